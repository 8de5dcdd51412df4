package telemetry

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// #region rolling-window

// RollingWindow is a bounded ring of observations with summary statistics.
// All statistics return 0 on an empty window.
type RollingWindow struct {
	mu       sync.Mutex
	values   []float64
	capacity int
	next     int
	full     bool
}

// NewRollingWindow creates a window holding up to capacity observations.
func NewRollingWindow(capacity int) *RollingWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &RollingWindow{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends an observation, evicting the oldest when full.
func (w *RollingWindow) Push(v float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.full {
		w.values = append(w.values, v)
		if len(w.values) == w.capacity {
			w.full = true
		}
		return
	}
	w.values[w.next] = v
	w.next = (w.next + 1) % w.capacity
}

// Len returns the current observation count.
func (w *RollingWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.values)
}

// Mean returns the window mean.
func (w *RollingWindow) Mean() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.values) == 0 {
		return 0
	}
	return stat.Mean(w.values, nil)
}

// Std returns the window sample standard deviation (0 below two observations).
func (w *RollingWindow) Std() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.values) < 2 {
		return 0
	}
	return stat.StdDev(w.values, nil)
}

// Quantile returns the p-quantile of the window, p in [0,1].
func (w *RollingWindow) Quantile(p float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), w.values...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// #endregion rolling-window
