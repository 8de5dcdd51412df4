package history

import (
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "decisions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLogDecisionRoundtrip(t *testing.T) {
	s := tempStore(t)

	logged, err := s.LogDecision(DecisionRecord{
		DecisionType: "capacity_planning",
		Action:       "scale_up",
		IsSafe:       true,
		Severity:     "safe",
		Output:       map[string]any{"next_hour_workers": 12.0},
		Features:     map[string]float64{"p99_latency": 420},
		Warnings:     []string{"queue depth approaching limit"},
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if logged.ID == "" {
		t.Fatal("expected generated decision id")
	}
	if logged.CreatedAt.IsZero() {
		t.Fatal("expected generated timestamp")
	}

	records, err := s.RecentDecisions("", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.ID != logged.ID || rec.DecisionType != "capacity_planning" || rec.Action != "scale_up" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.IsSafe || rec.Severity != "safe" {
		t.Fatalf("unexpected verdict %+v", rec)
	}
	if rec.Output["next_hour_workers"] != 12.0 {
		t.Fatalf("unexpected output %v", rec.Output)
	}
	if rec.Features["p99_latency"] != 420 {
		t.Fatalf("unexpected features %v", rec.Features)
	}
	if len(rec.Warnings) != 1 {
		t.Fatalf("unexpected warnings %v", rec.Warnings)
	}
}

func TestRecentDecisionsFilterAndOrder(t *testing.T) {
	s := tempStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := s.LogDecision(DecisionRecord{
			DecisionType: "tail_slo",
			Action:       "admit_all",
			IsSafe:       true,
			Severity:     "safe",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	if _, err := s.LogDecision(DecisionRecord{
		DecisionType: "bandit_tuning",
		IsSafe:       true,
		Severity:     "safe",
		CreatedAt:    base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("log: %v", err)
	}

	records, err := s.RecentDecisions("tail_slo", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.DecisionType != "tail_slo" {
			t.Fatalf("type filter leaked %s", rec.DecisionType)
		}
	}
	if !records[0].CreatedAt.After(records[1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}
}

func TestRecentViolations(t *testing.T) {
	s := tempStore(t)

	if _, err := s.LogDecision(DecisionRecord{
		DecisionType: "capacity_planning",
		IsSafe:       true,
		Severity:     "safe",
	}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if _, err := s.LogDecision(DecisionRecord{
		DecisionType: "capacity_planning",
		IsSafe:       false,
		Severity:     "unsafe",
		Violations:   []string{"worker_count_bounds: out of range"},
	}); err != nil {
		t.Fatalf("log: %v", err)
	}

	violations, err := s.RecentViolations(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(violations))
	}
	if violations[0].IsSafe || len(violations[0].Violations) != 1 {
		t.Fatalf("unexpected violation record %+v", violations[0])
	}
}

func TestCountByType(t *testing.T) {
	s := tempStore(t)
	for _, decisionType := range []string{"tail_slo", "tail_slo", "extreme_events"} {
		if _, err := s.LogDecision(DecisionRecord{
			DecisionType: decisionType,
			IsSafe:       true,
			Severity:     "safe",
		}); err != nil {
			t.Fatalf("log: %v", err)
		}
	}

	counts, err := s.CountByType()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["tail_slo"] != 2 || counts["extreme_events"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
