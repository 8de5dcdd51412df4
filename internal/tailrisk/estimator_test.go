package tailrisk

import (
	"errors"
	"math"
	"testing"
)

// heavyTailedSamples builds a latency-like sample: a stable base load with
// spikes of growing magnitude spread through the stream.
func heavyTailedSamples() []float64 {
	samples := make([]float64, 0, 5000)
	for i := 0; i < 5000; i++ {
		v := 100.0 + float64(i%10)
		if i%7 == 0 {
			v = 150.0 + float64(i%200)*3.0
		}
		samples = append(samples, v)
	}
	return samples
}

func fitted(t *testing.T) *Estimator {
	t.Helper()
	e := NewEstimator(DefaultConfig(), nil)
	if err := e.Fit(heavyTailedSamples()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !e.Fitted() {
		t.Fatal("expected a fitted model")
	}
	return e
}

func TestFitProducesValidParams(t *testing.T) {
	e := fitted(t)
	shape, scale := e.Params()
	if shape <= -1 {
		t.Fatalf("shape %v should be > -1", shape)
	}
	if scale <= 0 {
		t.Fatalf("scale %v should be > 0", scale)
	}
	if e.Threshold() <= 100 {
		t.Fatalf("threshold %v should sit above the base load", e.Threshold())
	}
	if e.ExceedanceCount() < DefaultConfig().MinExceedances {
		t.Fatalf("expected at least %d declustered exceedances, got %d",
			DefaultConfig().MinExceedances, e.ExceedanceCount())
	}
}

func TestFitEmptySamples(t *testing.T) {
	e := NewEstimator(DefaultConfig(), nil)
	if err := e.Fit(nil); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
}

func TestInsufficientExceedancesStaysUnfitted(t *testing.T) {
	e := NewEstimator(DefaultConfig(), nil)
	flat := make([]float64, 50)
	for i := range flat {
		flat[i] = 100.0
	}
	if err := e.Fit(flat); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if e.Fitted() {
		t.Fatal("expected unfitted model for flat samples")
	}
	if p := e.ExceedanceProbability(1e6); p != 0.0 {
		t.Fatalf("unfitted exceedance probability should be 0, got %v", p)
	}
	if v := e.ValueAtRisk(0.99); v != 0.0 {
		t.Fatalf("unfitted VaR should be 0, got %v", v)
	}
	if c := e.ConditionalValueAtRisk(0.99); c != 0.0 {
		t.Fatalf("unfitted CVaR should be 0, got %v", c)
	}
}

func TestExceedanceProbabilityMonotone(t *testing.T) {
	e := fitted(t)
	prev := 1.1
	for v := e.Threshold(); v < e.Threshold()+2000; v += 25 {
		p := e.ExceedanceProbability(v)
		if p < 0 || p > 1 {
			t.Fatalf("probability %v out of [0,1] at value %v", p, v)
		}
		if p > prev {
			t.Fatalf("probability increased from %v to %v at value %v", prev, p, v)
		}
		prev = p
	}
}

func TestExceedanceProbabilityBelowThreshold(t *testing.T) {
	e := fitted(t)
	if p := e.ExceedanceProbability(e.Threshold() - 1); p != 0.0 {
		t.Fatalf("expected 0 below threshold, got %v", p)
	}
	if p := e.ExceedanceProbability(e.Threshold()); p != 0.0 {
		t.Fatalf("expected 0 at threshold, got %v", p)
	}
}

func TestReturnPeriods(t *testing.T) {
	if got := ReturnPeriod(0, 1000); got != 10000 {
		t.Fatalf("ReturnPeriod(0, 1000) = %d, want 10000", got)
	}
	if got := ReturnPeriod(10, 1000); got != 100 {
		t.Fatalf("ReturnPeriod(10, 1000) = %d, want 100", got)
	}
	if got := ReturnPeriod(3000, 1000); got != 1 {
		t.Fatalf("ReturnPeriod(3000, 1000) = %d, want 1", got)
	}
	if got := ReturnPeriod(7, 1000); got != 142 {
		t.Fatalf("ReturnPeriod(7, 1000) = %d, want 142", got)
	}
}

func TestVaRAndCVaROrdering(t *testing.T) {
	e := fitted(t)
	v95 := e.ValueAtRisk(0.95)
	v99 := e.ValueAtRisk(0.99)
	if v95 <= e.Threshold() {
		t.Fatalf("VaR(0.95)=%v should exceed threshold %v", v95, e.Threshold())
	}
	if v99 <= v95 {
		t.Fatalf("VaR should grow with confidence: %v vs %v", v95, v99)
	}
	shape, _ := e.Params()
	cvar := e.ConditionalValueAtRisk(0.99)
	if shape < 1 && cvar < v99 {
		t.Fatalf("CVaR %v should not be below VaR %v", cvar, v99)
	}
}

func TestAssessFittedAlertLevels(t *testing.T) {
	e := fitted(t)

	// A value barely over threshold has high exceedance survival probability.
	a := e.Assess(e.Threshold()+1, 6, 1000)
	if !a.Fitted {
		t.Fatal("expected fitted assessment")
	}
	if a.AlertLevel != AlertCritical {
		t.Fatalf("expected critical alert near threshold, got %s (p=%v)", a.AlertLevel, a.ExceedanceProbability)
	}
	if !a.PersistenceRequired {
		t.Fatal("expected persistence required at 6 exceedances")
	}

	// A value far beyond the tail is near-impossible.
	a = e.Assess(e.Threshold()+1e6, 2, 1000)
	if a.AlertLevel != AlertNormal {
		t.Fatalf("expected normal alert for negligible probability, got %s", a.AlertLevel)
	}
	if a.PersistenceRequired {
		t.Fatal("expected no persistence requirement at 2 exceedances")
	}
	if a.ReturnPeriod != 500 {
		t.Fatalf("expected return period 500, got %d", a.ReturnPeriod)
	}
}

func TestAssessUnfittedHeuristics(t *testing.T) {
	e := NewEstimator(DefaultConfig(), nil)
	a := e.Assess(0.95, 3, 1000)
	if a.Fitted {
		t.Fatal("expected unfitted assessment")
	}
	wantProb := 1 - math.Exp(-0.3)
	if math.Abs(a.ExceedanceProbability-wantProb) > 1e-12 {
		t.Fatalf("heuristic probability %v, want %v", a.ExceedanceProbability, wantProb)
	}
	wantThreshold := 0.98 - 3*0.015
	if math.Abs(a.Threshold-wantThreshold) > 1e-12 {
		t.Fatalf("heuristic threshold %v, want %v", a.Threshold, wantThreshold)
	}
	if a.Shape != 0.1 || a.Scale != 0.05 {
		t.Fatalf("heuristic params %v/%v, want 0.1/0.05", a.Shape, a.Scale)
	}
}

func TestDecluster(t *testing.T) {
	exceedances := []float64{1, 5, 2, 3, 9, 4, 7, 6}
	out := decluster(exceedances, 4)
	if len(out) != 2 {
		t.Fatalf("expected 2 declustered peaks, got %d", len(out))
	}
	if out[0] != 5 || out[1] != 9 {
		t.Fatalf("expected window maxima [5 9], got %v", out)
	}
}
