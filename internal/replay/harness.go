package replay

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/bandit"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/decision"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/feature"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/telemetry"
)

// #region types

// CycleResult captures the outcome of replaying one recorded cycle through
// the full decision flow.
type CycleResult struct {
	CycleID  string
	Regime   decision.Result
	TailRisk decision.Result
	Tuning   decision.Result
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalCycles    int
	Regimes        map[string]int
	Alerts         map[string]int
	FrozenCycles   int
	FallbackCycles int
	Mismatches     []string
}

// #endregion types

// #region replay

// Replay runs every recorded cycle through a fresh engine and compares the
// outcomes against the fixture's expectations. Operates entirely in-memory;
// nothing is persisted.
func Replay(f *Fixture, logger *zap.Logger) ([]CycleResult, Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	source := telemetry.NewContextSource()
	pipeline := telemetry.NewPipeline(source, telemetry.DefaultPipelineConfig(), logger)
	cache := feature.NewCache(logger)
	if err := pipeline.Register(cache); err != nil {
		return nil, Summary{}, fmt.Errorf("register features: %w", err)
	}

	cfg := decision.DefaultConfig()
	if f.Config.HazardRate > 0 {
		cfg.Changepoint.HazardRate = f.Config.HazardRate
	}
	if f.Config.BanditMethod != "" {
		cfg.Bandit.Method = bandit.Method(f.Config.BanditMethod)
	}
	cfg.Bandit.Seed = f.Config.BanditSeed
	engine := decision.NewEngine(cfg, cache, nil, logger)

	expected := make(map[string]FixtureExpectedResult, len(f.ExpectedResults))
	for _, e := range f.ExpectedResults {
		expected[e.CycleID] = e
	}

	summary := Summary{
		Regimes: make(map[string]int),
		Alerts:  make(map[string]int),
	}
	results := make([]CycleResult, 0, len(f.Cycles))

	for _, cycle := range f.Cycles {
		source.Set(cycle.Metrics)
		pipeline.Observe(cycle.Metrics)
		ctx := feature.Context(cycle.Metrics)

		result := CycleResult{
			CycleID:  cycle.CycleID,
			Regime:   engine.DetectRegime(ctx),
			TailRisk: engine.AssessTailRisk(ctx),
			Tuning:   engine.TuneConfiguration(ctx),
		}
		results = append(results, result)

		summary.TotalCycles++
		regime, _ := result.Regime.Output["regime_state"].(string)
		alert, _ := result.TailRisk.Output["alert_level"].(string)
		frozen, _ := result.Tuning.Output["freeze_on_anomaly"].(string)
		summary.Regimes[regime]++
		summary.Alerts[alert]++
		if frozen == "yes" {
			summary.FrozenCycles++
		}
		if result.Regime.FallbackUsed || result.TailRisk.FallbackUsed || result.Tuning.FallbackUsed {
			summary.FallbackCycles++
		}

		if want, ok := expected[cycle.CycleID]; ok {
			if want.RegimeState != "" && want.RegimeState != regime {
				summary.Mismatches = append(summary.Mismatches,
					fmt.Sprintf("%s: regime %s, want %s", cycle.CycleID, regime, want.RegimeState))
			}
			if want.AlertLevel != "" && want.AlertLevel != alert {
				summary.Mismatches = append(summary.Mismatches,
					fmt.Sprintf("%s: alert %s, want %s", cycle.CycleID, alert, want.AlertLevel))
			}
			if want.Frozen != "" && want.Frozen != frozen {
				summary.Mismatches = append(summary.Mismatches,
					fmt.Sprintf("%s: frozen %s, want %s", cycle.CycleID, frozen, want.Frozen))
			}
		}
	}

	return results, summary, nil
}

// #endregion replay
