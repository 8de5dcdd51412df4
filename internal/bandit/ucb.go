package bandit

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// #region ucb

// UCBPolicy selects arms by upper confidence bound: every arm is pulled once
// before any scoring, then score = mean + c*sqrt(ln(total+1)/(pulls+1)).
type UCBPolicy struct {
	mu sync.Mutex

	exploration float64
	arms        []ucbArm
	totalPulls  int
}

type ucbArm struct {
	rewards []float64
	pulls   int
}

// NewUCB creates a UCB policy over numArms arms with exploration factor c.
func NewUCB(numArms int, exploration float64) *UCBPolicy {
	return &UCBPolicy{
		exploration: exploration,
		arms:        make([]ucbArm, numArms),
	}
}

// #endregion ucb

// #region select

// Select returns the arm with the highest UCB score. Any arm with zero pulls
// is selected immediately, in index order.
func (p *UCBPolicy) Select() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.arms {
		if p.arms[i].pulls == 0 {
			return i
		}
	}

	best := 0
	bestScore := math.Inf(-1)
	for i := range p.arms {
		arm := &p.arms[i]
		bonus := p.exploration * math.Sqrt(math.Log(float64(p.totalPulls+1))/float64(arm.pulls+1))
		score := mean(arm.rewards) + bonus
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// #endregion select

// #region observe

// Observe appends the reward and increments pull counters.
func (p *UCBPolicy) Observe(arm int, reward float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if arm < 0 || arm >= len(p.arms) {
		return
	}
	p.arms[arm].rewards = append(p.arms[arm].rewards, reward)
	p.arms[arm].pulls++
	p.totalPulls++
}

// #endregion observe

// #region stats

// Statistics returns per-arm summaries.
func (p *UCBPolicy) Statistics() []ArmStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ArmStats, len(p.arms))
	for i := range p.arms {
		arm := &p.arms[i]
		std := 1.0
		if len(arm.rewards) > 1 {
			std = stat.StdDev(arm.rewards, nil)
		}
		out[i] = ArmStats{
			ConfigID:   i,
			Name:       fmt.Sprintf("config_%d", i),
			Pulls:      arm.pulls,
			MeanReward: mean(arm.rewards),
			StdReward:  std,
		}
	}
	return out
}

// BestArm returns the arm with the highest mean reward (arm 0 with no history).
func (p *UCBPolicy) BestArm() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := 0
	bestMean := math.Inf(-1)
	for i := range p.arms {
		if m := mean(p.arms[i].rewards); m > bestMean {
			bestMean = m
			best = i
		}
	}
	return best
}

// NumArms returns the arm count.
func (p *UCBPolicy) NumArms() int {
	return len(p.arms)
}

// #endregion stats

// #region helpers

func mean(rewards []float64) float64 {
	if len(rewards) == 0 {
		return 0.0
	}
	return stat.Mean(rewards, nil)
}

// #endregion helpers
