package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	verbose := flag.Bool("verbose", false, "print every cycle, not just divergences")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--verbose]")
		os.Exit(2)
	}

	os.Exit(run(*fixturePath, *verbose))
}

func run(path string, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	results, summary, err := replay.Replay(f, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	if f.Description != "" {
		fmt.Printf("Fixture: %s\n", f.Description)
	}

	if verbose {
		printCycles(results)
	}
	printSummary(summary)

	if len(summary.Mismatches) > 0 {
		return 1
	}
	return 0
}

// #endregion main

// #region output

func printCycles(results []replay.CycleResult) {
	fmt.Printf("%-12s| %-10s| %-10s| %-8s| %s\n", "Cycle", "Regime", "Alert", "Config", "Frozen")
	fmt.Printf("%-12s+%-11s+%-11s+%-9s+%s\n",
		"------------", "-----------", "-----------", "---------", "--------")
	for _, r := range results {
		fmt.Printf("%-12s| %-10v| %-10v| %-8v| %v\n",
			r.CycleID,
			r.Regime.Output["regime_state"],
			r.TailRisk.Output["alert_level"],
			r.Tuning.Output["best_config_id"],
			r.Tuning.Output["freeze_on_anomaly"])
	}
	fmt.Println()
}

func printSummary(s replay.Summary) {
	fmt.Printf("Summary: %d cycles, %d frozen, %d fallback\n",
		s.TotalCycles, s.FrozenCycles, s.FallbackCycles)
	for _, k := range sortedKeys(s.Regimes) {
		fmt.Printf("  regime %-12s %d\n", k, s.Regimes[k])
	}
	for _, k := range sortedKeys(s.Alerts) {
		fmt.Printf("  alert  %-12s %d\n", k, s.Alerts[k])
	}

	if len(s.Mismatches) == 0 {
		fmt.Println("All expectations matched.")
		return
	}
	fmt.Printf("%d mismatches:\n", len(s.Mismatches))
	for _, m := range s.Mismatches {
		fmt.Printf("  %s\n", m)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion output
