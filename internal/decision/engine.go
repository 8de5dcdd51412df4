package decision

import (
	"math"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/bandit"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/changepoint"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/feature"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/history"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/safety"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/tailrisk"
)

// #region config

// Config bundles the component configurations for one engine.
type Config struct {
	Changepoint changepoint.Config
	TailRisk    tailrisk.Config
	Bandit      bandit.Config
	Safety      safety.Config
}

// DefaultConfig returns standard parameters for every component.
func DefaultConfig() Config {
	return Config{
		Changepoint: changepoint.DefaultConfig(),
		TailRisk:    tailrisk.DefaultConfig(),
		Bandit:      bandit.DefaultConfig(),
		Safety:      safety.DefaultConfig(),
	}
}

// #endregion config

// #region engine

// Engine composes the feature cache, the three decision components, and the
// safety controller into the gated decision flow: resolve features, run the
// component, validate, substitute the fallback when unsafe, persist.
type Engine struct {
	cache      *feature.Cache
	detector   *changepoint.Detector
	estimator  *tailrisk.Estimator
	tuner      *bandit.Tuner
	controller *safety.Controller
	store      *history.Store
	log        *zap.Logger
}

// NewEngine creates an engine over an already-populated feature cache. The
// default safety checks are registered on construction. store and logger may
// be nil.
func NewEngine(config Config, cache *feature.Cache, store *history.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	controller := safety.NewController(config.Safety, logger.Named("safety"))
	RegisterDefaultChecks(controller)

	return &Engine{
		cache:      cache,
		detector:   changepoint.NewDetector(config.Changepoint, logger.Named("changepoint")),
		estimator:  tailrisk.NewEstimator(config.TailRisk, logger.Named("tailrisk")),
		tuner:      bandit.NewTuner(config.Bandit, logger.Named("bandit")),
		controller: controller,
		store:      store,
		log:        logger,
	}
}

// Safety returns the engine's controller for operator switches and history.
func (e *Engine) Safety() *safety.Controller {
	return e.controller
}

// Detector returns the changepoint detector.
func (e *Engine) Detector() *changepoint.Detector {
	return e.detector
}

// Estimator returns the tail-risk estimator.
func (e *Engine) Estimator() *tailrisk.Estimator {
	return e.estimator
}

// Tuner returns the bandit tuner.
func (e *Engine) Tuner() *bandit.Tuner {
	return e.tuner
}

// #endregion engine

// #region operations

// DetectRegime feeds the current p99 latency to the changepoint detector and
// classifies the operating regime.
func (e *Engine) DetectRegime(ctx feature.Context) Result {
	vec := e.cache.GetVector(FeatureNames(TypeRegimeDetection), ctx)
	p99 := vec.GetOr("p99_latency", 300)

	a := e.detector.Assess(p99)

	freeze := "no"
	if a.FreezeExploration {
		freeze = "yes"
	}
	output := map[string]any{
		"change_probability":    round(a.ChangeProbability, 3),
		"regime_state":          string(a.RegimeState),
		"run_length":            a.RunLength,
		"freeze_exploration":    freeze,
		"hazard_rate":           a.HazardRate,
		"action":                a.Action,
		"changepoints_detected": a.ChangepointsDetected,
	}
	return e.finalize(TypeRegimeDetection, output, mergeContext(ctx, vec), vec)
}

// AssessTailRisk evaluates extreme-event risk for the current value. The
// observed exceedance count and window size come from the call context
// ("exceedances", "window_size") with conservative defaults.
func (e *Engine) AssessTailRisk(ctx feature.Context) Result {
	vec := e.cache.GetVector(FeatureNames(TypeExtremeEvents), ctx)

	value := ctxOr(ctx, "current_value", 0.95)
	exceedances := int(ctxOr(ctx, "exceedances", 3))
	windowSize := int(ctxOr(ctx, "window_size", 1000))

	a := e.estimator.Assess(value, exceedances, windowSize)

	persistence := "no"
	if a.PersistenceRequired {
		persistence = "yes"
	}
	output := map[string]any{
		"extreme_threshold":         round(a.Threshold, 3),
		"extreme_probability":       round(a.ExceedanceProbability, 4),
		"return_period":             a.ReturnPeriod,
		"gpd_shape":                 round(a.Shape, 3),
		"gpd_scale":                 round(a.Scale, 3),
		"alert_level":               string(a.AlertLevel),
		"persistence_required":      persistence,
		"value_at_risk":             round(e.estimator.ValueAtRisk(0.99), 4),
		"conditional_value_at_risk": round(e.estimator.ConditionalValueAtRisk(0.99), 4),
	}
	return e.finalize(TypeExtremeEvents, output, mergeContext(ctx, vec), vec)
}

// TuneConfiguration asks the bandit tuner for this cycle's configuration,
// driven by the resolved canary health feature.
func (e *Engine) TuneConfiguration(ctx feature.Context) Result {
	vec := e.cache.GetVector(FeatureNames(TypeBanditTuning), ctx)
	health := vec.GetOr("canary_health", 1.0)

	sel := e.tuner.SelectConfig(health)

	frozen := "no"
	if sel.Frozen {
		frozen = "yes"
	}
	output := map[string]any{
		"best_config_id":      sel.ConfigID,
		"action":              sel.Action,
		"reason":              sel.Reason,
		"expected_reward":     round(sel.ExpectedReward, 3),
		"exploit_probability": round(sel.ExploitProbability, 2),
		"explore_probability": round(sel.ExploreProbability, 2),
		"canary_percentage":   sel.CanaryPercent,
		"freeze_on_anomaly":   frozen,
		"method":              string(sel.Method),
	}
	return e.finalize(TypeBanditTuning, output, mergeContext(ctx, vec), vec)
}

// RecordReward feeds an observed canary reward back to the tuner.
func (e *Engine) RecordReward(configID int, reward float64) {
	e.tuner.RecordReward(configID, reward)
}

// FitTailModel fits the tail-risk estimator on an observation window.
func (e *Engine) FitTailModel(samples []float64) error {
	return e.estimator.Fit(samples)
}

// ValidateForecast gates a decision produced by an external forecasting
// collaborator. The output passes through the type's checks and is replaced
// by the fallback when unsafe, exactly like internally produced decisions.
func (e *Engine) ValidateForecast(decisionType string, output map[string]any, ctx map[string]float64) Result {
	return e.finalize(decisionType, output, ctx, feature.Vector{})
}

// #endregion operations

// #region finalize

// finalize validates an output, substitutes the fallback when unsafe, wraps
// the verdict, and persists the record.
func (e *Engine) finalize(decisionType string, output map[string]any, ctx map[string]float64, vec feature.Vector) Result {
	verdict := e.controller.Validate(decisionType, output, ctx)

	final := output
	fallbackUsed := false
	if !verdict.IsSafe {
		final = safety.FallbackOutput(decisionType)
		fallbackUsed = true
		e.log.Warn("decision replaced by fallback",
			zap.String("decision_type", decisionType),
			zap.Strings("violations", verdict.Violations))
	}

	result := Result{
		DecisionType: decisionType,
		Output:       final,
		IsSafe:       verdict.IsSafe,
		Severity:     verdict.Severity,
		Violations:   verdict.Violations,
		Warnings:     verdict.Warnings,
		FallbackUsed: fallbackUsed,
		Features:     vec.Values,
		Timestamp:    verdict.Timestamp,
	}

	if e.store != nil {
		if _, err := e.store.LogDecision(history.DecisionRecord{
			DecisionType: decisionType,
			Action:       result.Action(),
			IsSafe:       result.IsSafe,
			Severity:     string(result.Severity),
			Output:       final,
			Features:     result.Features,
			Violations:   result.Violations,
			Warnings:     result.Warnings,
			CreatedAt:    result.Timestamp,
		}); err != nil {
			e.log.Error("persist decision failed",
				zap.String("decision_type", decisionType), zap.Error(err))
		}
	}
	return result
}

// mergeContext overlays the raw call context on the resolved feature values,
// so safety predicates can see both.
func mergeContext(ctx feature.Context, vec feature.Vector) map[string]float64 {
	merged := make(map[string]float64, len(vec.Values)+len(ctx))
	for k, v := range vec.Values {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	return merged
}

func ctxOr(ctx feature.Context, name string, fallback float64) float64 {
	if v, ok := ctx[name]; ok {
		return v
	}
	return fallback
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// #endregion finalize
