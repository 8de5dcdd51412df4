package telemetry

import "sync"

// #region metric-source

// MetricSource is the boundary to external metric collectors. Implementations
// return the latest flat snapshot of named numeric metrics.
type MetricSource interface {
	Metrics() (map[string]float64, error)
}

// #endregion metric-source

// #region context-source

// ContextSource is an in-process MetricSource fed one snapshot at a time.
// The engine loop and the replay harness push each cycle's metrics here
// before running a decision.
type ContextSource struct {
	mu      sync.RWMutex
	current map[string]float64
}

// NewContextSource creates an empty source.
func NewContextSource() *ContextSource {
	return &ContextSource{current: make(map[string]float64)}
}

// Set replaces the current snapshot.
func (s *ContextSource) Set(metrics map[string]float64) {
	copied := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		copied[k] = v
	}
	s.mu.Lock()
	s.current = copied
	s.mu.Unlock()
}

// Metrics returns a copy of the current snapshot.
func (s *ContextSource) Metrics() (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.current))
	for k, v := range s.current {
		out[k] = v
	}
	return out, nil
}

// #endregion context-source
