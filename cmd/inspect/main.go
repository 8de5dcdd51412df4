package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/history"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to decisions.db")
	decisionType := flag.String("type", "", "filter to one decision type")
	last := flag.Int("last", 20, "show N most recent decisions")
	violations := flag.Bool("violations", false, "show only unsafe decisions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/decisions.db [--type name] [--last N] [--violations] [--json]")
		os.Exit(2)
	}

	store, err := history.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	var records []history.DecisionRecord
	if *violations {
		records, err = store.RecentViolations(*last)
	} else {
		records, err = store.RecentDecisions(*decisionType, *last)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "query decisions: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		os.Exit(0)
	}

	if *jsonOut {
		if err := printJSON(records); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
	} else {
		printTable(records)
		printCounts(store)
	}
}

// #endregion main

// #region output

type inspectRow struct {
	ID           string         `json:"id"`
	DecisionType string         `json:"decision_type"`
	Action       string         `json:"action"`
	IsSafe       bool           `json:"is_safe"`
	Severity     string         `json:"severity"`
	Violations   []string       `json:"violations,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	Output       map[string]any `json:"output"`
	CreatedAt    string         `json:"created_at"`
}

func printJSON(records []history.DecisionRecord) error {
	rows := make([]inspectRow, len(records))
	for i, r := range records {
		rows[i] = inspectRow{
			ID:           r.ID,
			DecisionType: r.DecisionType,
			Action:       r.Action,
			IsSafe:       r.IsSafe,
			Severity:     r.Severity,
			Violations:   r.Violations,
			Warnings:     r.Warnings,
			Output:       r.Output,
			CreatedAt:    r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func printTable(records []history.DecisionRecord) {
	fmt.Printf("%-10s| %-18s| %-20s| %-6s| %-9s| %s\n",
		"ID", "Type", "Action", "Safe", "Severity", "Created")
	fmt.Printf("%-10s+%-19s+%-21s+%-7s+%-10s+%s\n",
		"----------", "-------------------", "---------------------",
		"-------", "----------", "--------------------")
	for _, r := range records {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Printf("%-10s| %-18s| %-20s| %-6v| %-9s| %s\n",
			id, r.DecisionType, r.Action, r.IsSafe, r.Severity,
			r.CreatedAt.Format("2006-01-02 15:04:05"))
		for _, v := range r.Violations {
			fmt.Printf("  violation: %s\n", v)
		}
	}
}

func printCounts(store *history.Store) {
	counts, err := store.CountByType()
	if err != nil || len(counts) == 0 {
		return
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Println("\nTotals by type:")
	for _, t := range types {
		fmt.Printf("  %-20s %d\n", t, counts[t])
	}
}

// #endregion output
