package bandit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// #region thompson

// ThompsonPolicy selects arms by sampling each arm's Beta(alpha, beta)
// posterior and taking the argmax. Rewards are assumed to lie in [0,1].
type ThompsonPolicy struct {
	mu sync.Mutex

	alpha []float64
	beta  []float64
	pulls []int
	src   rand.Source
}

// NewThompson creates a Thompson sampling policy with the given Beta prior.
// seed 0 draws a seed from the wall clock.
func NewThompson(numArms int, priorAlpha, priorBeta float64, seed uint64) *ThompsonPolicy {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	p := &ThompsonPolicy{
		alpha: make([]float64, numArms),
		beta:  make([]float64, numArms),
		pulls: make([]int, numArms),
		src:   rand.NewSource(seed),
	}
	for i := 0; i < numArms; i++ {
		p.alpha[i] = priorAlpha
		p.beta[i] = priorBeta
	}
	return p
}

// #endregion thompson

// #region select

// Select draws one posterior sample per arm and returns the argmax.
func (p *ThompsonPolicy) Select() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := 0
	bestSample := -1.0
	for i := range p.alpha {
		sample := distuv.Beta{Alpha: p.alpha[i], Beta: p.beta[i], Src: p.src}.Rand()
		if sample > bestSample {
			bestSample = sample
			best = i
		}
	}
	return best
}

// #endregion select

// #region observe

// Observe updates the posterior: alpha += reward, beta += 1 - reward.
func (p *ThompsonPolicy) Observe(arm int, reward float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if arm < 0 || arm >= len(p.alpha) {
		return
	}
	p.alpha[arm] += reward
	p.beta[arm] += 1 - reward
	p.pulls[arm]++
}

// #endregion observe

// #region stats

// Statistics returns per-arm posterior summaries.
func (p *ThompsonPolicy) Statistics() []ArmStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ArmStats, len(p.alpha))
	for i := range p.alpha {
		out[i] = ArmStats{
			ConfigID:   i,
			Name:       fmt.Sprintf("config_%d", i),
			Pulls:      p.pulls[i],
			MeanReward: p.alpha[i] / (p.alpha[i] + p.beta[i]),
			Alpha:      p.alpha[i],
			Beta:       p.beta[i],
		}
	}
	return out
}

// BestArm returns the arm with the highest posterior mean.
func (p *ThompsonPolicy) BestArm() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := 0
	bestMean := -1.0
	for i := range p.alpha {
		if m := p.alpha[i] / (p.alpha[i] + p.beta[i]); m > bestMean {
			bestMean = m
			best = i
		}
	}
	return best
}

// NumArms returns the arm count.
func (p *ThompsonPolicy) NumArms() int {
	return len(p.alpha)
}

// #endregion stats
