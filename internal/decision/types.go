package decision

import (
	"time"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/safety"
)

// #region decision-types

// Decision type names. Each type declares its own required feature subset.
const (
	TypeCapacityPlanning = "capacity_planning"
	TypeTailSLO          = "tail_slo"
	TypeExtremeEvents    = "extreme_events"
	TypeRegimeDetection  = "regime_detection"
	TypeBanditTuning     = "bandit_tuning"
)

// FeatureNames returns the static feature list consumed by a decision type.
// Unknown types get nil.
func FeatureNames(decisionType string) []string {
	switch decisionType {
	case TypeCapacityPlanning:
		return []string{
			"request_rate", "cpu_usage", "p99_latency",
			"hour_of_day", "day_of_week", "market_event_impact",
			"request_rate_rolling_mean", "active_workers",
		}
	case TypeTailSLO:
		return []string{
			"load_score", "request_rate", "error_rate",
			"p95_latency", "p99_latency", "cpu_usage",
		}
	case TypeExtremeEvents:
		return []string{
			"p99_latency", "error_rate", "anomaly_score",
			"latency_rolling_p95",
		}
	case TypeRegimeDetection:
		return []string{
			"p99_latency", "error_rate", "request_rate",
			"anomaly_score", "load_score",
		}
	case TypeBanditTuning:
		return []string{
			"error_rate", "p95_latency", "request_rate", "canary_health",
		}
	default:
		return nil
	}
}

// #endregion decision-types

// #region result

// Result is one validated decision cycle: the final output (original or
// fallback) wrapped with the safety verdict.
type Result struct {
	DecisionType string
	Output       map[string]any
	IsSafe       bool
	Severity     safety.Severity
	Violations   []string
	Warnings     []string
	FallbackUsed bool
	Features     map[string]float64
	Timestamp    time.Time
}

// Action returns the output's action field, or an empty string.
func (r Result) Action() string {
	if a, ok := r.Output["action"].(string); ok {
		return a
	}
	return ""
}

// #endregion result
