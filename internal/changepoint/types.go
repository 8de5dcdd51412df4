package changepoint

// #region model

// Model selects the posterior predictive used for observation likelihoods.
// The choice is fixed at construction; there is no per-call probing.
type Model string

const (
	// ModelStudentT uses the heavier-tailed Student's-t predictive.
	ModelStudentT Model = "student_t"
	// ModelGaussian uses a plain Normal density with std = sqrt(var).
	ModelGaussian Model = "gaussian"
)

// #endregion model

// #region regime-state

// RegimeState classifies the current operating regime.
type RegimeState string

const (
	RegimeStable        RegimeState = "stable"
	RegimeUnstable      RegimeState = "unstable"
	RegimeTransitioning RegimeState = "transitioning"
)

// #endregion regime-state

// #region config

// Config holds detector parameters.
type Config struct {
	HazardRate   float64 // prior changepoint probability per step
	Threshold    float64 // probability above which a changepoint event is recorded
	Model        Model
	MaxRunLength int // belief vector cap; overflow mass is folded into the last entry
	RecentWindow int // run-length horizon counted as "a recent changepoint"
}

// DefaultConfig expects a changepoint roughly every 250 observations.
func DefaultConfig() Config {
	return Config{
		HazardRate:   1.0 / 250.0,
		Threshold:    0.5,
		Model:        ModelStudentT,
		MaxRunLength: 500,
		RecentWindow: 3,
	}
}

// #endregion config

// #region assessment

// Assessment is the regime classification derived from one observation.
type Assessment struct {
	ChangeProbability    float64
	RegimeState          RegimeState
	RunLength            int
	FreezeExploration    bool
	Action               string // "freeze_unsafe_exploration" | "continue_monitoring"
	HazardRate           float64
	ChangepointsDetected int
}

// #endregion assessment

// #region classify

// Classify maps a changepoint probability to a regime assessment.
func Classify(prob float64, runLength int, hazard float64, changepoints int) Assessment {
	var state RegimeState
	switch {
	case prob > 0.7:
		state = RegimeTransitioning
	case prob > 0.3:
		state = RegimeUnstable
	default:
		state = RegimeStable
	}

	freeze := prob > 0.5
	action := "continue_monitoring"
	if freeze {
		action = "freeze_unsafe_exploration"
	}

	return Assessment{
		ChangeProbability:    prob,
		RegimeState:          state,
		RunLength:            runLength,
		FreezeExploration:    freeze,
		Action:               action,
		HazardRate:           hazard,
		ChangepointsDetected: changepoints,
	}
}

// #endregion classify
