package telemetry

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/feature"
)

// #region pipeline

// Pipeline registers the standard feature set against a cache and keeps the
// rolling-aggregate windows those features read from. Call Observe once per
// decision cycle to advance the windows.
type Pipeline struct {
	source MetricSource

	rateWindow    *RollingWindow
	latencyWindow *RollingWindow

	clock func() time.Time
	log   *zap.Logger
}

// PipelineConfig holds pipeline parameters.
type PipelineConfig struct {
	WindowSize int // rolling-aggregate window capacity, in cycles
}

// DefaultPipelineConfig returns the standard parameters (one hour of
// five-second cycles).
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{WindowSize: 720}
}

// NewPipeline creates a pipeline over the given source. logger may be nil.
func NewPipeline(source MetricSource, config PipelineConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.WindowSize <= 0 {
		config.WindowSize = DefaultPipelineConfig().WindowSize
	}
	return &Pipeline{
		source:        source,
		rateWindow:    NewRollingWindow(config.WindowSize),
		latencyWindow: NewRollingWindow(config.WindowSize),
		clock:         time.Now,
		log:           logger,
	}
}

// Observe feeds one metric snapshot into the rolling windows.
func (p *Pipeline) Observe(metrics map[string]float64) {
	if v, ok := metrics["request_rate"]; ok {
		p.rateWindow.Push(v)
	}
	if v, ok := metrics["p95_latency"]; ok {
		p.latencyWindow.Push(v)
	}
}

// #endregion pipeline

// #region register

// Register adds the standard feature set to the cache: real-time SLI metrics,
// rolling aggregates, calendar features, topology metrics, and the derived
// load/anomaly scores.
func (p *Pipeline) Register(cache *feature.Cache) error {
	realTime := []struct {
		name        string
		description string
		fallback    float64
	}{
		{"request_rate", "current request rate (req/sec)", 0},
		{"error_rate", "current error rate", 0},
		{"p95_latency", "p95 latency in milliseconds", 0},
		{"p99_latency", "p99 latency in milliseconds", 0},
		{"cpu_usage", "cpu utilization (0-1)", 0},
		{"active_workers", "number of active worker processes", 10},
		{"queue_depth", "current queue depth", 50},
		{"canary_health", "canary deployment health (0-1)", 1},
	}
	for _, f := range realTime {
		if err := cache.Register(f.name, feature.KindRealTime, f.description,
			p.metricComputer(f.name, f.fallback), nil); err != nil {
			return fmt.Errorf("register %s: %w", f.name, err)
		}
		// Live metrics are re-read every cycle; caching would serve stale
		// decisions.
		if err := cache.SetTTL(f.name, 0); err != nil {
			return err
		}
	}

	batch := []struct {
		name        string
		description string
		compute     feature.ComputeFunc
	}{
		{"request_rate_rolling_mean", "rolling mean of request rate",
			func(feature.Context, map[string]float64) (float64, error) {
				return p.rateWindow.Mean(), nil
			}},
		{"request_rate_rolling_std", "rolling std of request rate",
			func(feature.Context, map[string]float64) (float64, error) {
				return p.rateWindow.Std(), nil
			}},
		{"latency_rolling_p95", "rolling p95 latency",
			func(feature.Context, map[string]float64) (float64, error) {
				return p.latencyWindow.Quantile(0.95), nil
			}},
	}
	for _, f := range batch {
		if err := cache.Register(f.name, feature.KindBatch, f.description, f.compute, nil); err != nil {
			return fmt.Errorf("register %s: %w", f.name, err)
		}
		if err := cache.SetTTL(f.name, 30*time.Second); err != nil {
			return err
		}
	}

	calendar := []struct {
		name        string
		description string
		compute     feature.ComputeFunc
	}{
		{"hour_of_day", "current hour (0-23)",
			func(feature.Context, map[string]float64) (float64, error) {
				return float64(p.clock().Hour()), nil
			}},
		{"day_of_week", "day of week (0=Monday, 6=Sunday)",
			func(feature.Context, map[string]float64) (float64, error) {
				return float64((int(p.clock().Weekday()) + 6) % 7), nil
			}},
		{"is_business_hours", "1 during 9am-5pm Mon-Fri, else 0",
			func(feature.Context, map[string]float64) (float64, error) {
				now := p.clock()
				weekday := now.Weekday() >= time.Monday && now.Weekday() <= time.Friday
				if weekday && now.Hour() >= 9 && now.Hour() < 17 {
					return 1, nil
				}
				return 0, nil
			}},
		{"market_event_impact", "impact score from calendar events (0-1)",
			func(ctx feature.Context, _ map[string]float64) (float64, error) {
				return ctx["calendar_events"] * 0.2, nil
			}},
	}
	for _, f := range calendar {
		if err := cache.Register(f.name, feature.KindRealTime, f.description, f.compute, nil); err != nil {
			return fmt.Errorf("register %s: %w", f.name, err)
		}
	}
	// Event impact varies with the call context and cannot be cached.
	if err := cache.SetTTL("market_event_impact", 0); err != nil {
		return err
	}

	if err := cache.Register("load_score", feature.KindDerived,
		"combined load score (0-1)",
		feature.ComputeFunc(func(_ feature.Context, deps map[string]float64) (float64, error) {
			return loadScore(deps), nil
		}),
		[]string{"cpu_usage", "request_rate", "p95_latency"}); err != nil {
		return fmt.Errorf("register load_score: %w", err)
	}
	if err := cache.SetTTL("load_score", 0); err != nil {
		return err
	}

	if err := cache.Register("anomaly_score", feature.KindDerived,
		"anomaly detection score (0-1)",
		feature.ComputeFunc(func(_ feature.Context, deps map[string]float64) (float64, error) {
			return anomalyScore(deps), nil
		}),
		[]string{"error_rate", "p99_latency", "request_rate"}); err != nil {
		return fmt.Errorf("register anomaly_score: %w", err)
	}
	if err := cache.SetTTL("anomaly_score", 0); err != nil {
		return err
	}

	return nil
}

// metricComputer reads a named metric from the source, then the call
// context, then the fallback. Source errors degrade to the fallback rather
// than failing the feature.
func (p *Pipeline) metricComputer(name string, fallback float64) feature.ComputeFunc {
	return func(ctx feature.Context, _ map[string]float64) (float64, error) {
		metrics, err := p.source.Metrics()
		if err != nil {
			p.log.Error("metric source failed", zap.String("metric", name), zap.Error(err))
			return fallback, nil
		}
		if v, ok := metrics[name]; ok {
			return v, nil
		}
		if v, ok := ctx[name]; ok {
			return v, nil
		}
		return fallback, nil
	}
}

// #endregion register

// #region derived

// loadScore combines cpu, normalized request rate, and normalized p95
// latency into one utilization signal.
func loadScore(deps map[string]float64) float64 {
	cpu := depOr(deps, "cpu_usage", 0.5)
	rate := depOr(deps, "request_rate", 1000) / 5000
	latency := depOr(deps, "p95_latency", 200) / 1000
	return clamp01(0.4*cpu + 0.3*rate + 0.3*latency)
}

// anomalyScore combines error-rate, tail-latency, and dead-traffic
// indicators.
func anomalyScore(deps map[string]float64) float64 {
	errRate := depOr(deps, "error_rate", 0.01)
	p99 := depOr(deps, "p99_latency", 400)
	rate := depOr(deps, "request_rate", 1000)

	highErrors := min1(errRate / 0.05)
	highLatency := min1(max0((p99 - 500) / 500))
	lowTraffic := 0.0
	if rate < 100 {
		lowTraffic = 1.0
	}
	return clamp01(0.5*highErrors + 0.3*highLatency + 0.2*lowTraffic)
}

func depOr(deps map[string]float64, name string, fallback float64) float64 {
	if v, ok := deps[name]; ok {
		return v
	}
	return fallback
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// #endregion derived
