package changepoint

import (
	"math"
	"sync"
)

// #region window-detector

// WindowDetector is the fallback detector for degenerate inputs: a bounded
// sliding window with a z-score test of the recent mean against the full
// window. It shares the Update/Assess surface with Detector but carries no
// run-length belief.
type WindowDetector struct {
	mu     sync.Mutex
	values []float64
}

const (
	windowCap   = 100
	recentCount = 10
)

// NewWindowDetector creates an empty window detector.
func NewWindowDetector() *WindowDetector {
	return &WindowDetector{}
}

// #endregion window-detector

// #region update

// Update appends an observation and returns the changepoint probability and
// the current run length (window occupancy).
func (w *WindowDetector) Update(observation float64) (float64, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.values = append(w.values, observation)
	if len(w.values) > windowCap {
		w.values = w.values[len(w.values)-windowCap:]
	}
	if len(w.values) < recentCount {
		return 0.0, len(w.values)
	}

	recentMean := mean(w.values[len(w.values)-recentCount:])
	overallMean := mean(w.values)
	overallStd := popStd(w.values, overallMean)

	if overallStd == 0 {
		return 0.0, len(w.values)
	}
	z := math.Abs(recentMean-overallMean) / overallStd
	return math.Min(0.99, z/3.0), len(w.values)
}

// Assess processes one observation and classifies the resulting regime.
func (w *WindowDetector) Assess(observation float64) Assessment {
	prob, runLength := w.Update(observation)
	return Classify(prob, runLength, 0, 0)
}

// Reset clears the window.
func (w *WindowDetector) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.values = nil
}

// #endregion update

// #region helpers

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// popStd is the population standard deviation around a known mean.
func popStd(xs []float64, mu float64) float64 {
	var sum float64
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// #endregion helpers
