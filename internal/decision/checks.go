package decision

import (
	"github.com/danielpatrickdp/decision-core/go-engine/internal/safety"
)

// #region default-checks

// RegisterDefaultChecks installs the standard rule set for every decision
// type. Numeric output fields missing from a decision fail their bounds
// checks rather than passing silently.
func RegisterDefaultChecks(controller *safety.Controller) {
	controller.RegisterCheck(TypeCapacityPlanning, safety.Check{
		Name:        "worker_count_reasonable",
		Severity:    safety.SeverityUnsafe,
		Description: "worker count must be between 1 and 100",
		Enabled:     true,
		Predicate: func(out map[string]any, _ map[string]float64) (bool, error) {
			workers := numeric(out, "next_hour_workers", 0)
			return workers >= 1 && workers <= 100, nil
		},
	})

	controller.RegisterCheck(TypeCapacityPlanning, safety.Check{
		Name:        "queue_capacity_reasonable",
		Severity:    safety.SeverityWarning,
		Description: "queue capacity should be between 50 and 10000",
		Enabled:     true,
		Predicate: func(out map[string]any, _ map[string]float64) (bool, error) {
			capacity := numeric(out, "queue_capacity", 0)
			return capacity >= 50 && capacity <= 10000, nil
		},
	})

	controller.RegisterCheck(TypeTailSLO, safety.Check{
		Name:        "latency_predictions_reasonable",
		Severity:    safety.SeverityWarning,
		Description: "p99 prediction seems unreasonably high (>5s)",
		Enabled:     true,
		Predicate: func(out map[string]any, _ map[string]float64) (bool, error) {
			return numeric(out, "p99_pred", 0) < 5000, nil
		},
	})

	controller.RegisterCheck(TypeTailSLO, safety.Check{
		Name:        "autoscale_within_limits",
		Severity:    safety.SeverityUnsafe,
		Description: "autoscale recommendation exceeds limit (50 workers)",
		Enabled:     true,
		Predicate: func(out map[string]any, _ map[string]float64) (bool, error) {
			return numeric(out, "autoscale_workers", 0) <= 50, nil
		},
	})

	controller.RegisterCheck(TypeBanditTuning, safety.Check{
		Name:        "canary_percentage_safe",
		Severity:    safety.SeverityCritical,
		Description: "canary percentage must be between 0-10%",
		Enabled:     true,
		Predicate: func(out map[string]any, _ map[string]float64) (bool, error) {
			pct := numeric(out, "canary_percentage", 0)
			return pct >= 0 && pct <= 10, nil
		},
	})

	controller.RegisterCheck(TypeBanditTuning, safety.Check{
		Name:        "freeze_on_low_metric",
		Severity:    safety.SeverityUnsafe,
		Description: "should freeze exploration when canary health is very low",
		Enabled:     true,
		Predicate: func(out map[string]any, ctx map[string]float64) (bool, error) {
			health, ok := ctx["canary_health"]
			if !ok {
				health = 1.0
			}
			frozen := out["freeze_on_anomaly"] == "yes"
			return !(health < 0.2 && !frozen), nil
		},
	})

	controller.RegisterCheck(TypeExtremeEvents, safety.Check{
		Name:        "require_persistence",
		Severity:    safety.SeverityWarning,
		Description: "critical alerts should require persistence checks",
		Enabled:     true,
		Predicate: func(out map[string]any, _ map[string]float64) (bool, error) {
			if out["alert_level"] != "critical" {
				return true, nil
			}
			return out["persistence_required"] == "yes", nil
		},
	})
}

// numeric reads an output field that may have been produced as an int or a
// float (or round-tripped through JSON).
func numeric(out map[string]any, key string, fallback float64) float64 {
	switch v := out[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// #endregion default-checks
