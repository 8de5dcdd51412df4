package bandit

// #region arm-stats

// ArmStats summarizes one arm's observed history. Alpha/Beta are populated
// only by the Thompson policy.
type ArmStats struct {
	ConfigID   int // zero-indexed arm id
	Name       string
	Pulls      int
	MeanReward float64
	StdReward  float64
	Alpha      float64
	Beta       float64
}

// #endregion arm-stats

// #region policy

// Policy is the shared contract of the selection policies. Select returns an
// arm index; Observe records the reward for a pulled arm. Select/Observe
// pairs from concurrent callers must be serialized by the caller (the Tuner
// does this).
type Policy interface {
	Select() int
	Observe(arm int, reward float64)
	Statistics() []ArmStats
	BestArm() int
	NumArms() int
}

// #endregion policy

// #region method

// Method names a selection policy.
type Method string

const (
	MethodUCB              Method = "ucb"
	MethodThompsonSampling Method = "thompson_sampling"
)

// #endregion method

// #region config

// Config holds tuning-engine parameters.
type Config struct {
	NumConfigs        int
	Method            Method
	ExplorationFactor float64
	FreezeFloor       float64 // canary health below this freezes exploration
	MinCanaryPercent  int
	MaxCanaryPercent  int
	Seed              uint64 // Thompson sampling source; 0 seeds from time
}

// DefaultConfig returns the standard online tuning parameters.
func DefaultConfig() Config {
	return Config{
		NumConfigs:        5,
		Method:            MethodThompsonSampling,
		ExplorationFactor: 0.2,
		FreezeFloor:       0.3,
		MinCanaryPercent:  1,
		MaxCanaryPercent:  5,
	}
}

// #endregion config

// #region selection

// Selection is the tuner's decision for one cycle. ConfigID is 1-indexed at
// this surface.
type Selection struct {
	ConfigID           int
	Action             string // "exploit" | "explore"
	Reason             string
	ExpectedReward     float64
	ExploitProbability float64
	ExploreProbability float64
	CanaryPercent      int
	Frozen             bool
	Method             Method
}

// #endregion selection
