package changepoint

import (
	"math"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

// #region sufficient-stats

// suffStats tracks the running observation statistics for one run length.
type suffStats struct {
	mean     float64
	variance float64
	n        int
}

// #endregion sufficient-stats

// #region detector

// Detector performs Bayesian online changepoint detection over a scalar
// observation stream. It maintains a normalized belief distribution over the
// time since the last changepoint plus one sufficient-statistics record per
// run length. Updates must be serialized; the detector locks internally.
type Detector struct {
	mu sync.Mutex

	config       Config
	belief       []float64 // nil until the first observation
	stats        []suffStats
	step         int
	changepoints []int
	log          *zap.Logger
}

// NewDetector creates a detector. logger may be nil.
func NewDetector(config Config, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxRunLength <= 0 {
		config.MaxRunLength = DefaultConfig().MaxRunLength
	}
	if config.RecentWindow <= 0 {
		config.RecentWindow = DefaultConfig().RecentWindow
	}
	return &Detector{config: config, log: logger}
}

// #endregion detector

// #region update

// Update processes one observation and returns the changepoint probability
// and the most likely run length.
func (d *Detector) Update(observation float64) (float64, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// First observation seeds the belief at run length 0.
	if d.belief == nil {
		d.belief = []float64{1.0}
		d.stats = []suffStats{{mean: observation, variance: 1.0, n: 1}}
		d.step = 0
		return 0.0, 0
	}

	nRuns := len(d.belief)
	likelihoods := make([]float64, nRuns)
	for r := 0; r < nRuns; r++ {
		likelihoods[r] = math.Max(d.likelihood(observation, d.stats[r]), 1e-10)
	}

	// Growth mass keeps each run alive; changepoint mass collapses all runs
	// back to length zero.
	changeProb := 0.0
	newBelief := make([]float64, nRuns+1)
	for r := 0; r < nRuns; r++ {
		joint := d.belief[r] * likelihoods[r]
		newBelief[r+1] = joint * (1 - d.config.HazardRate)
		changeProb += joint * d.config.HazardRate
	}
	newBelief[0] = changeProb

	total := 0.0
	for _, p := range newBelief {
		total += p
	}
	for i := range newBelief {
		newBelief[i] /= total
	}

	// Sufficient statistics: run length 0 reseeds from the new observation,
	// every surviving run absorbs it via the online recursions.
	newStats := make([]suffStats, 0, nRuns+1)
	newStats = append(newStats, suffStats{mean: observation, variance: 1.0, n: 1})
	for r := 0; r < nRuns; r++ {
		newStats = append(newStats, advance(d.stats[r], observation))
	}

	// Cap the belief vector: fold overflow mass into the final entry so
	// long-running streams stay bounded.
	if limit := d.config.MaxRunLength + 1; len(newBelief) > limit {
		overflow := 0.0
		for _, p := range newBelief[limit:] {
			overflow += p
		}
		newBelief = newBelief[:limit]
		newBelief[limit-1] += overflow
		newStats = newStats[:limit]
	}

	d.belief = newBelief
	d.stats = newStats

	maxRun := 0
	for r, p := range d.belief {
		if p > d.belief[maxRun] {
			maxRun = r
		}
	}

	// With a constant hazard the leading belief entry alone always equals the
	// hazard rate, so the reported probability is the posterior mass on run
	// lengths within RecentWindow: the probability that the current run began
	// in the last few observations.
	horizon := d.config.RecentWindow
	if n := len(d.belief) - 2; horizon > n {
		horizon = n
	}
	prob := 0.0
	for r := 0; r <= horizon; r++ {
		prob += d.belief[r]
	}
	if prob > 1 {
		prob = 1
	}

	if prob > d.config.Threshold {
		d.changepoints = append(d.changepoints, d.step)
		d.log.Info("changepoint detected",
			zap.Int("step", d.step),
			zap.Float64("probability", prob))
	}
	d.step++

	return prob, maxRun
}

// likelihood evaluates the posterior predictive density of x under one run's
// sufficient statistics.
func (d *Detector) likelihood(x float64, s suffStats) float64 {
	if d.config.Model == ModelGaussian {
		std := math.Max(0.1, math.Sqrt(s.variance))
		return distuv.Normal{Mu: s.mean, Sigma: std}.Prob(x)
	}
	df := float64(s.n - 1)
	if df < 1 {
		df = 1
	}
	scale := math.Sqrt(s.variance * float64(s.n+1) / float64(s.n))
	return distuv.StudentsT{Mu: s.mean, Sigma: scale, Nu: df}.Prob(x)
}

// advance applies the online mean/variance recursions for one new observation.
func advance(s suffStats, x float64) suffStats {
	n := s.n + 1
	mean := s.mean + (x-s.mean)/float64(n)
	variance := 1.0
	if n > 1 {
		d := x - s.mean
		variance = (float64(n-2)*s.variance + d*d/float64(n)) / float64(n-1)
	}
	return suffStats{mean: mean, variance: math.Max(0.1, variance), n: n}
}

// #endregion update

// #region assess

// Assess processes one observation and classifies the resulting regime.
func (d *Detector) Assess(observation float64) Assessment {
	prob, runLength := d.Update(observation)
	d.mu.Lock()
	changepoints := len(d.changepoints)
	hazard := d.config.HazardRate
	d.mu.Unlock()
	return Classify(prob, runLength, hazard, changepoints)
}

// #endregion assess

// #region accessors

// Belief returns a copy of the current run-length distribution.
// Returns nil before the first observation.
func (d *Detector) Belief() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.belief == nil {
		return nil
	}
	out := make([]float64, len(d.belief))
	copy(out, d.belief)
	return out
}

// Step returns the number of post-initialization updates processed.
func (d *Detector) Step() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.step
}

// Changepoints returns the step indices of recorded changepoint events.
func (d *Detector) Changepoints() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.changepoints...)
}

// #endregion accessors

// #region reset

// Reset clears all state back to pre-first-observation.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.belief = nil
	d.stats = nil
	d.changepoints = nil
	d.step = 0
}

// #endregion reset
