package bandit

import (
	"math"
	"sync"

	"go.uber.org/zap"
)

// #region tuner

// Tuner wraps a selection policy with canary-deployment safety: exploration
// freezes when canary health drops below the configured floor, and the
// canary traffic allocation is derived from health and clamped to a safe
// range. Config IDs are 1-indexed at this surface.
type Tuner struct {
	mu sync.Mutex

	config Config
	policy Policy
	log    *zap.Logger
}

// NewTuner creates a tuner with a policy built from config. logger may be nil.
func NewTuner(config Config, logger *zap.Logger) *Tuner {
	var policy Policy
	if config.Method == MethodUCB {
		policy = NewUCB(config.NumConfigs, config.ExplorationFactor*10)
	} else {
		policy = NewThompson(config.NumConfigs, 1.0, 1.0, config.Seed)
	}
	return newTuner(config, policy, logger)
}

// NewTunerWithPolicy creates a tuner around an existing policy.
func NewTunerWithPolicy(config Config, policy Policy, logger *zap.Logger) *Tuner {
	return newTuner(config, policy, logger)
}

func newTuner(config Config, policy Policy, logger *zap.Logger) *Tuner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tuner{config: config, policy: policy, log: logger}
}

// #endregion tuner

// #region select-config

// SelectConfig picks a configuration for this decision cycle. The freeze
// check runs before either policy is consulted: an unhealthy canary returns
// the best-known configuration with a zero canary allocation.
func (t *Tuner) SelectConfig(canaryHealth float64) Selection {
	t.mu.Lock()
	defer t.mu.Unlock()

	if canaryHealth < t.config.FreezeFloor {
		best := t.policy.BestArm()
		t.log.Warn("exploration frozen",
			zap.Float64("canary_health", canaryHealth),
			zap.Int("best_config", best+1))
		return Selection{
			ConfigID:           best + 1,
			Action:             "exploit",
			Reason:             "anomaly_detected_frozen",
			ExpectedReward:     0.0,
			ExploitProbability: 1.0,
			CanaryPercent:      0,
			Frozen:             true,
			Method:             t.config.Method,
		}
	}

	arm := t.policy.Select()
	stats := t.policy.Statistics()
	expected := stats[arm].MeanReward

	var exploitProb float64
	if t.config.Method == MethodUCB {
		exploitProb = 0.1
		if arm == t.policy.BestArm() {
			exploitProb = 0.9
		}
	} else {
		exploitProb = math.Min(0.95, canaryHealth+0.3)
	}

	action := "explore"
	if exploitProb >= 0.5 {
		action = "exploit"
	}

	return Selection{
		ConfigID:           arm + 1,
		Action:             action,
		Reason:             "policy_selection",
		ExpectedReward:     expected,
		ExploitProbability: exploitProb,
		ExploreProbability: 1 - exploitProb,
		CanaryPercent:      t.canaryPercent(canaryHealth),
		Frozen:             false,
		Method:             t.config.Method,
	}
}

// canaryPercent derives the canary allocation from health, clamped to the
// configured safe range.
func (t *Tuner) canaryPercent(health float64) int {
	pct := int(health * 10)
	if pct < t.config.MinCanaryPercent {
		pct = t.config.MinCanaryPercent
	}
	if pct > t.config.MaxCanaryPercent {
		pct = t.config.MaxCanaryPercent
	}
	return pct
}

// #endregion select-config

// #region record-reward

// RecordReward feeds an observed canary reward back to the policy. configID
// is 1-indexed; the reward is clamped to [0,1] before the policy sees it.
func (t *Tuner) RecordReward(configID int, reward float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	arm := configID - 1
	if arm < 0 || arm >= t.policy.NumArms() {
		t.log.Warn("reward for unknown config dropped", zap.Int("config_id", configID))
		return
	}
	t.policy.Observe(arm, clamp01(reward))
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

// #endregion record-reward

// #region statistics

// Statistics returns the underlying policy's per-arm summaries.
func (t *Tuner) Statistics() []ArmStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.policy.Statistics()
}

// #endregion statistics
