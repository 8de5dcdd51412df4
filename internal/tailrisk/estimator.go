package tailrisk

import (
	"errors"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned when Fit is called with an empty sample set.
var ErrNoSamples = errors.New("no samples to fit")

// #region estimator

// Estimator models the upper tail of a scalar distribution with a
// generalized Pareto fit over declustered peaks-over-threshold exceedances.
// An estimator with too few exceedances stays unfitted and reports neutral
// values; that state is not an error.
type Estimator struct {
	mu sync.Mutex

	config Config
	log    *zap.Logger

	threshold   float64
	shape       float64 // xi
	scale       float64 // sigma
	fitted      bool
	exceedCount int // declustered exceedances used for the fit
}

// NewEstimator creates an unfitted estimator. logger may be nil.
func NewEstimator(config Config, logger *zap.Logger) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{config: config, log: logger}
}

// #endregion estimator

// #region fit

// Fit selects the percentile threshold, extracts and declusters exceedances,
// and fits the GPD shape and scale with location fixed at zero. Too few
// declustered exceedances leaves the estimator unfitted without error.
func (e *Estimator) Fit(samples []float64) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	e.threshold = stat.Quantile(e.config.ThresholdPercentile, stat.LinInterp, sorted, nil)

	var exceedances []float64
	for _, s := range samples {
		if s > e.threshold {
			exceedances = append(exceedances, s-e.threshold)
		}
	}
	exceedances = decluster(exceedances, e.config.DeclusteringWindow)

	if len(exceedances) < e.config.MinExceedances {
		e.log.Warn("insufficient exceedances for tail fit",
			zap.Int("declustered", len(exceedances)),
			zap.Int("minimum", e.config.MinExceedances))
		e.fitted = false
		e.exceedCount = len(exceedances)
		return nil
	}

	e.shape, e.scale = fitGPD(exceedances)
	e.fitted = true
	e.exceedCount = len(exceedances)
	e.log.Info("tail model fitted",
		zap.Float64("threshold", e.threshold),
		zap.Float64("shape", e.shape),
		zap.Float64("scale", e.scale),
		zap.Int("exceedances", e.exceedCount))
	return nil
}

// decluster keeps only the maximum exceedance per non-overlapping window,
// approximating independence between peaks.
func decluster(exceedances []float64, window int) []float64 {
	if len(exceedances) == 0 || window <= 1 {
		return exceedances
	}
	var out []float64
	for i := 0; i < len(exceedances); i += window {
		end := i + window
		if end > len(exceedances) {
			end = len(exceedances)
		}
		max := exceedances[i]
		for _, v := range exceedances[i+1 : end] {
			if v > max {
				max = v
			}
		}
		out = append(out, max)
	}
	return out
}

// fitGPD estimates shape and scale by the method of moments with location
// fixed at zero: xi = (1 - m^2/v)/2, sigma = m*(m^2/v + 1)/2.
func fitGPD(excesses []float64) (shape, scale float64) {
	m := stat.Mean(excesses, nil)
	v := stat.Variance(excesses, nil)
	if v <= 0 || m <= 0 {
		// Degenerate excesses: fall back to an exponential tail.
		return 0, math.Max(m, 1e-9)
	}
	r := m * m / v
	shape = 0.5 * (1 - r)
	scale = 0.5 * m * (r + 1)
	return shape, scale
}

// #endregion fit

// #region exceedance-probability

// ExceedanceProbability returns the GPD survival probability of observing a
// value this extreme. Zero when unfitted or at/below the threshold.
func (e *Estimator) ExceedanceProbability(value float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.fitted || value <= e.threshold {
		return 0.0
	}
	return gpdSurvival(value-e.threshold, e.shape, e.scale)
}

// gpdSurvival is the survival function of GPD(xi, sigma) at excess x >= 0.
func gpdSurvival(x, xi, sigma float64) float64 {
	if x <= 0 {
		return 1.0
	}
	if math.Abs(xi) < 1e-9 {
		return math.Exp(-x / sigma)
	}
	arg := 1 + xi*x/sigma
	if arg <= 0 {
		// Beyond the upper endpoint of a bounded (xi < 0) tail.
		return 0.0
	}
	return math.Pow(arg, -1/xi)
}

// #endregion exceedance-probability

// #region return-period

// ReturnPeriod estimates how many observations pass between extreme events.
// Zero exceedances is special-cased to ten windows ("very rare").
func ReturnPeriod(exceedances, windowSize int) int {
	if exceedances == 0 {
		return windowSize * 10
	}
	p := windowSize / exceedances
	if p < 1 {
		return 1
	}
	return p
}

// #endregion return-period

// #region var-cvar

// ValueAtRisk returns the raw-scale quantile at the given confidence level.
// Zero when unfitted.
func (e *Estimator) ValueAtRisk(confidence float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.fitted {
		return 0.0
	}
	return e.threshold + gpdQuantile(confidence, e.shape, e.scale)
}

// ConditionalValueAtRisk returns the expected value beyond VaR. For xi >= 1
// the tail mean diverges and a heavy-tail approximation of VaR*1.5 is used.
// Zero when unfitted.
func (e *Estimator) ConditionalValueAtRisk(confidence float64) float64 {
	e.mu.Lock()
	fitted := e.fitted
	shape := e.shape
	e.mu.Unlock()
	if !fitted {
		return 0.0
	}
	v := e.ValueAtRisk(confidence)
	if shape < 1 {
		return v / (1 - shape)
	}
	return v * 1.5
}

// gpdQuantile is the inverse CDF of GPD(xi, sigma) at probability p.
func gpdQuantile(p, xi, sigma float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		p = 1 - 1e-12
	}
	if math.Abs(xi) < 1e-9 {
		return -sigma * math.Log(1-p)
	}
	return sigma / xi * (math.Pow(1-p, -xi) - 1)
}

// #endregion var-cvar

// #region assess

// Assess summarizes tail risk for the current value and observed exceedance
// count. An unfitted estimator reports the documented heuristic values
// instead of failing.
func (e *Estimator) Assess(currentValue float64, exceedances, windowSize int) Assessment {
	e.mu.Lock()
	fitted := e.fitted
	threshold := e.threshold
	shape := e.shape
	scale := e.scale
	e.mu.Unlock()

	var prob float64
	if fitted {
		prob = e.ExceedanceProbability(currentValue)
	} else {
		threshold = 0.98 - math.Min(0.15, float64(exceedances)*0.015)
		shape = 0.1
		scale = 0.05
		prob = 1 - math.Exp(-float64(exceedances)/10.0)
	}

	level, persistence := ClassifyAlert(prob, exceedances)

	return Assessment{
		Threshold:             threshold,
		ExceedanceProbability: prob,
		ReturnPeriod:          ReturnPeriod(exceedances, windowSize),
		Shape:                 shape,
		Scale:                 scale,
		AlertLevel:            level,
		PersistenceRequired:   persistence,
		ExceedancesCount:      exceedances,
		Fitted:                fitted,
	}
}

// #endregion assess

// #region accessors

// Fitted reports whether a usable GPD fit exists.
func (e *Estimator) Fitted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fitted
}

// Threshold returns the fitted threshold (zero when unfitted).
func (e *Estimator) Threshold() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// Params returns the fitted GPD shape and scale.
func (e *Estimator) Params() (shape, scale float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shape, e.scale
}

// ExceedanceCount returns the declustered exceedance count from the last fit.
func (e *Estimator) ExceedanceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exceedCount
}

// #endregion accessors
