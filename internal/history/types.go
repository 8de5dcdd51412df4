package history

import "time"

// #region decision-record

// DecisionRecord is one persisted decision cycle: the validated output plus
// its safety verdict.
type DecisionRecord struct {
	ID           string
	DecisionType string
	Action       string
	IsSafe       bool
	Severity     string
	Output       map[string]any
	Features     map[string]float64
	Violations   []string
	Warnings     []string
	CreatedAt    time.Time
}

// #endregion decision-record
