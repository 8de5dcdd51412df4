package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/decision"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/history"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/replay"
)

// #region main

// fixture-export turns logged regime decisions back into a replay fixture:
// the recorded feature snapshots become the metric stream and the logged
// outputs become the expected results.
func main() {
	dbPath := flag.String("db", "", "path to decisions.db")
	outPath := flag.String("out", "fixture.json", "output fixture path")
	last := flag.Int("last", 100, "export N most recent cycles")
	description := flag.String("description", "", "fixture description")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/decisions.db [--out fixture.json] [--last N] [--description text]")
		os.Exit(2)
	}

	store, err := history.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	f, err := export(store, *last, *description)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}

	if err := replay.SaveFixture(*outPath, f); err != nil {
		fmt.Fprintf(os.Stderr, "save fixture: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d cycles to %s\n", len(f.Cycles), *outPath)
}

// #endregion main

// #region export

func export(store *history.Store, last int, description string) (*replay.Fixture, error) {
	records, err := store.RecentDecisions(decision.TypeRegimeDetection, last)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no %s decisions found", decision.TypeRegimeDetection)
	}

	// RecentDecisions returns newest first; a fixture replays oldest first.
	f := &replay.Fixture{Description: description}
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		cycleID := fmt.Sprintf("cycle-%03d", len(f.Cycles)+1)
		f.Cycles = append(f.Cycles, replay.FixtureCycle{
			CycleID: cycleID,
			Metrics: rec.Features,
		})
		f.ExpectedResults = append(f.ExpectedResults, replay.FixtureExpectedResult{
			CycleID:     cycleID,
			RegimeState: stringField(rec.Output, "regime_state"),
		})
	}
	return f, nil
}

func stringField(output map[string]any, key string) string {
	if s, ok := output[key].(string); ok {
		return s
	}
	return ""
}

// #endregion export
