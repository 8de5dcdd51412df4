package safety

import (
	"time"
)

// #region severity

// Severity grades a check outcome. Ordering (for aggregation) is
// safe < warning < unsafe < critical.
type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityWarning  Severity = "warning"
	SeverityUnsafe   Severity = "unsafe"
	SeverityCritical Severity = "critical"
)

// rank maps a severity to its aggregation order.
func (s Severity) rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityUnsafe:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Max returns the higher of two severities.
func (s Severity) Max(other Severity) Severity {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// #endregion severity

// #region check

// Predicate evaluates a decision output against its context. It returns true
// when the output passes. A returned error (or a panic) is treated as a
// failed check of severity unsafe.
type Predicate func(output map[string]any, context map[string]float64) (bool, error)

// Check is one named rule attached to a decision type.
type Check struct {
	Name        string
	Severity    Severity
	Description string
	Enabled     bool
	Predicate   Predicate
}

// #endregion check

// #region validation-result

// ValidationResult is the outcome of validating one decision output.
type ValidationResult struct {
	IsSafe       bool
	Severity     Severity
	Violations   []string
	Warnings     []string
	DecisionType string
	ChecksRun    int
	Timestamp    time.Time
}

// #endregion validation-result

// #region violation-record

// ViolationRecord is one entry in the bounded violation history.
type ViolationRecord struct {
	Timestamp    time.Time
	DecisionType string
	Violations   []string
	Output       map[string]any
}

// #endregion violation-record

// #region config

// Config holds safety controller parameters.
type Config struct {
	HistoryLimit int // max retained violation records
}

// DefaultConfig returns the standard controller parameters.
func DefaultConfig() Config {
	return Config{
		HistoryLimit: 100,
	}
}

// #endregion config
