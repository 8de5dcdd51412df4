package telemetry

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/feature"
)

func newRegisteredPipeline(t *testing.T) (*Pipeline, *ContextSource, *feature.Cache) {
	t.Helper()
	source := NewContextSource()
	p := NewPipeline(source, DefaultPipelineConfig(), nil)
	cache := feature.NewCache(nil)
	if err := p.Register(cache); err != nil {
		t.Fatalf("register: %v", err)
	}
	return p, source, cache
}

func TestMetricFeaturesReadSource(t *testing.T) {
	_, source, cache := newRegisteredPipeline(t)
	source.Set(map[string]float64{
		"request_rate": 1200,
		"error_rate":   0.02,
	})

	v, err := cache.Get("request_rate", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != 1200 {
		t.Fatalf("expected 1200, got %v", v)
	}

	// New snapshot must be visible on the next read.
	source.Set(map[string]float64{"request_rate": 900})
	v, _ = cache.Get("request_rate", nil)
	if v != 900 {
		t.Fatalf("expected fresh snapshot 900, got %v", v)
	}
}

func TestMetricFeatureDefaults(t *testing.T) {
	_, _, cache := newRegisteredPipeline(t)

	v, err := cache.Get("active_workers", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != 10 {
		t.Fatalf("expected default 10 workers, got %v", v)
	}

	// Context wins over the default when the source misses.
	v, _ = cache.Get("queue_depth", feature.Context{"queue_depth": 75})
	if v != 75 {
		t.Fatalf("expected context value 75, got %v", v)
	}
}

func TestLoadScoreWeights(t *testing.T) {
	_, source, cache := newRegisteredPipeline(t)
	source.Set(map[string]float64{
		"cpu_usage":    0.5,
		"request_rate": 2500, // normalized 0.5
		"p95_latency":  500,  // normalized 0.5
	})

	v, err := cache.Get("load_score", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := 0.4*0.5 + 0.3*0.5 + 0.3*0.5
	if math.Abs(v-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, v)
	}
}

func TestLoadScoreClamped(t *testing.T) {
	_, source, cache := newRegisteredPipeline(t)
	source.Set(map[string]float64{
		"cpu_usage":    1.0,
		"request_rate": 50000,
		"p95_latency":  9000,
	})
	v, _ := cache.Get("load_score", nil)
	if v != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", v)
	}
}

func TestAnomalyScoreComponents(t *testing.T) {
	_, source, cache := newRegisteredPipeline(t)
	source.Set(map[string]float64{
		"error_rate":   0.025, // half of the 5% ceiling
		"p99_latency":  750,   // half of the 500ms-over band
		"request_rate": 50,    // dead traffic
	})

	v, err := cache.Get("anomaly_score", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := 0.5*0.5 + 0.3*0.5 + 0.2*1.0
	if math.Abs(v-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, v)
	}
}

func TestAnomalyScoreQuietSystem(t *testing.T) {
	_, source, cache := newRegisteredPipeline(t)
	source.Set(map[string]float64{
		"error_rate":   0.0,
		"p99_latency":  200,
		"request_rate": 1000,
	})
	v, _ := cache.Get("anomaly_score", nil)
	if v != 0 {
		t.Fatalf("expected 0 for a quiet system, got %v", v)
	}
}

func TestRollingAggregates(t *testing.T) {
	p, _, cache := newRegisteredPipeline(t)
	for _, rate := range []float64{100, 200, 300} {
		p.Observe(map[string]float64{"request_rate": rate, "p95_latency": rate * 2})
	}

	v, err := cache.Get("request_rate_rolling_mean", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != 200 {
		t.Fatalf("expected rolling mean 200, got %v", v)
	}

	v, _ = cache.Get("latency_rolling_p95", nil)
	if v < 400 || v > 600 {
		t.Fatalf("rolling p95 %v outside expected band", v)
	}
}

func TestMarketEventImpact(t *testing.T) {
	_, _, cache := newRegisteredPipeline(t)
	v, err := cache.Get("market_event_impact", feature.Context{"calendar_events": 3})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if math.Abs(v-0.6) > 1e-12 {
		t.Fatalf("expected 0.6, got %v", v)
	}
	v, _ = cache.Get("market_event_impact", nil)
	if v != 0 {
		t.Fatalf("expected 0 without events, got %v", v)
	}
}

func TestRollingWindowEviction(t *testing.T) {
	w := NewRollingWindow(3)
	for _, v := range []float64{1, 2, 3, 10} {
		w.Push(v)
	}
	if w.Len() != 3 {
		t.Fatalf("expected capped length 3, got %d", w.Len())
	}
	if w.Mean() != 5 {
		t.Fatalf("expected mean of {10,2,3} = 5, got %v", w.Mean())
	}
}

func TestRollingWindowEmpty(t *testing.T) {
	w := NewRollingWindow(4)
	if w.Mean() != 0 || w.Std() != 0 || w.Quantile(0.95) != 0 {
		t.Fatal("empty window statistics must be zero")
	}
}

func TestCalendarFeaturesInRange(t *testing.T) {
	_, _, cache := newRegisteredPipeline(t)
	hour, err := cache.Get("hour_of_day", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hour < 0 || hour > 23 {
		t.Fatalf("hour %v out of range", hour)
	}
	dow, _ := cache.Get("day_of_week", nil)
	if dow < 0 || dow > 6 {
		t.Fatalf("day of week %v out of range", dow)
	}
	biz, _ := cache.Get("is_business_hours", nil)
	if biz != 0 && biz != 1 {
		t.Fatalf("is_business_hours %v not boolean", biz)
	}
}
