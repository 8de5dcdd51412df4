package changepoint

import (
	"math"
	"testing"
)

func TestFirstObservationInitializes(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)
	prob, runLength := d.Update(100.0)
	if prob != 0.0 {
		t.Fatalf("expected probability 0.0 on first observation, got %v", prob)
	}
	if runLength != 0 {
		t.Fatalf("expected run length 0, got %d", runLength)
	}
	belief := d.Belief()
	if len(belief) != 1 || belief[0] != 1.0 {
		t.Fatalf("expected belief [1.0], got %v", belief)
	}
}

func TestBeliefNormalizedAndGrows(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)
	obs := []float64{10, 11, 9.5, 10.2, 10.8, 9.9, 10.1, 30, 30.5, 29.8}
	for i, x := range obs {
		d.Update(x)
		belief := d.Belief()

		sum := 0.0
		for _, p := range belief {
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Fatalf("step %d: belief sums to %v, want 1.0 +- 1e-9", i, sum)
		}
		if len(belief) != d.Step()+1 {
			t.Fatalf("step %d: belief length %d, want step+1 = %d", i, len(belief), d.Step()+1)
		}
	}
}

func TestConstantStreamStaysStable(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)
	for i := 0; i < 200; i++ {
		prob, _ := d.Update(100.0)
		if prob < 0 || prob > 1 {
			t.Fatalf("step %d: probability %v out of [0,1]", i, prob)
		}
		if prob >= 0.3 {
			t.Fatalf("step %d: constant stream produced probability %v >= 0.3", i, prob)
		}
	}
}

func TestLargeJumpDetected(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)
	for i := 0; i < 50; i++ {
		d.Update(100.0)
	}

	maxProb := 0.0
	for i := 0; i < 5; i++ {
		prob, _ := d.Update(10000.0)
		if prob > maxProb {
			maxProb = prob
		}
	}
	if maxProb <= 0.5 {
		t.Fatalf("expected changepoint probability above 0.5 within a few steps of the jump, max was %v", maxProb)
	}
	if len(d.Changepoints()) == 0 {
		t.Fatal("expected a recorded changepoint event")
	}
}

func TestGaussianModelDetectsJump(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = ModelGaussian
	d := NewDetector(cfg, nil)
	for i := 0; i < 50; i++ {
		d.Update(100.0)
	}
	maxProb := 0.0
	for i := 0; i < 5; i++ {
		prob, _ := d.Update(10000.0)
		if prob > maxProb {
			maxProb = prob
		}
	}
	if maxProb <= 0.5 {
		t.Fatalf("expected jump detection under gaussian model, max probability %v", maxProb)
	}
}

func TestRunLengthTracksRegime(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)
	for i := 0; i < 40; i++ {
		d.Update(50.0)
	}
	_, runLength := d.Update(50.0)
	if runLength < 30 {
		t.Fatalf("expected a long run length for a steady stream, got %d", runLength)
	}

	for i := 0; i < 5; i++ {
		d.Update(5000.0)
	}
	_, runLength = d.Update(5000.0)
	if runLength > 10 {
		t.Fatalf("expected a short run length after regime change, got %d", runLength)
	}
}

func TestBeliefCappedAtMaxRunLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRunLength = 20
	d := NewDetector(cfg, nil)
	for i := 0; i < 100; i++ {
		d.Update(100.0)
	}
	belief := d.Belief()
	if len(belief) != 21 {
		t.Fatalf("expected belief capped at 21 entries, got %d", len(belief))
	}
	sum := 0.0
	for _, p := range belief {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("capped belief sums to %v", sum)
	}
}

func TestReset(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)
	for i := 0; i < 10; i++ {
		d.Update(float64(i))
	}
	d.Reset()
	if d.Belief() != nil {
		t.Fatal("expected nil belief after reset")
	}
	if d.Step() != 0 {
		t.Fatalf("expected step 0 after reset, got %d", d.Step())
	}
	prob, runLength := d.Update(42.0)
	if prob != 0.0 || runLength != 0 {
		t.Fatalf("expected re-initialization after reset, got prob=%v run=%d", prob, runLength)
	}
}

func TestClassifyRegimes(t *testing.T) {
	cases := []struct {
		prob   float64
		state  RegimeState
		freeze bool
	}{
		{0.1, RegimeStable, false},
		{0.31, RegimeUnstable, false},
		{0.55, RegimeUnstable, true},
		{0.71, RegimeTransitioning, true},
	}
	for _, tc := range cases {
		a := Classify(tc.prob, 5, 1.0/250.0, 0)
		if a.RegimeState != tc.state {
			t.Fatalf("prob %v: expected %s, got %s", tc.prob, tc.state, a.RegimeState)
		}
		if a.FreezeExploration != tc.freeze {
			t.Fatalf("prob %v: expected freeze=%v", tc.prob, tc.freeze)
		}
		wantAction := "continue_monitoring"
		if tc.freeze {
			wantAction = "freeze_unsafe_exploration"
		}
		if a.Action != wantAction {
			t.Fatalf("prob %v: expected action %s, got %s", tc.prob, wantAction, a.Action)
		}
	}
}

func TestWindowDetectorShift(t *testing.T) {
	w := NewWindowDetector()
	for i := 0; i < 9; i++ {
		prob, _ := w.Update(10.0)
		if prob != 0.0 {
			t.Fatalf("expected probability 0 before window fills, got %v", prob)
		}
	}
	for i := 0; i < 50; i++ {
		w.Update(10.0)
	}
	// Shift the recent mean far from the window mean.
	var prob float64
	for i := 0; i < 10; i++ {
		prob, _ = w.Update(100.0)
	}
	if prob <= 0.5 {
		t.Fatalf("expected high probability after mean shift, got %v", prob)
	}
	if prob > 0.99 {
		t.Fatalf("probability should be capped at 0.99, got %v", prob)
	}
}

func TestWindowDetectorZeroVariance(t *testing.T) {
	w := NewWindowDetector()
	var prob float64
	for i := 0; i < 30; i++ {
		prob, _ = w.Update(7.0)
	}
	if prob != 0.0 {
		t.Fatalf("expected probability 0 for zero-variance window, got %v", prob)
	}
}
