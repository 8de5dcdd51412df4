package safety

// #region fallback

// FallbackOutput returns the statically defined conservative decision for a
// type whose validated output was unsafe. Unknown types get a generic
// no-action response.
func FallbackOutput(decisionType string) map[string]any {
	switch decisionType {
	case "capacity_planning":
		return map[string]any{
			"next_hour_workers": 5,
			"queue_capacity":    200,
			"action":            "maintain_current",
		}
	case "tail_slo":
		return map[string]any{
			"action":            "admit_throttle",
			"autoscale_workers": 0,
		}
	case "bandit_tuning":
		return map[string]any{
			"best_config_id": 1,
			"action":         "exploit",
		}
	case "extreme_events":
		return map[string]any{
			"alert_level":          "warning",
			"persistence_required": true,
		}
	default:
		return map[string]any{
			"action": "no_action",
		}
	}
}

// #endregion fallback
