package feature

import "time"

// #region kind

// Kind classifies how a feature's value is produced.
type Kind string

const (
	KindRealTime Kind = "real_time" // computed from live metrics
	KindBatch    Kind = "batch"     // pre-computed from historical data
	KindDerived  Kind = "derived"   // computed from other features
)

// #endregion kind

// #region context

// Context is the flat map of named numeric metrics supplied per call.
type Context map[string]float64

// #endregion context

// #region computer

// Computer produces a feature value from the call context and the values of
// already-resolved dependency features.
type Computer interface {
	Compute(ctx Context, deps map[string]float64) (float64, error)
}

// ComputeFunc adapts a plain function to the Computer interface.
type ComputeFunc func(ctx Context, deps map[string]float64) (float64, error)

// Compute implements Computer.
func (f ComputeFunc) Compute(ctx Context, deps map[string]float64) (float64, error) {
	return f(ctx, deps)
}

// #endregion computer

// #region definition

// Definition holds a registered feature with its cached value.
type Definition struct {
	Name         string
	Kind         Kind
	Description  string
	Dependencies []string
	TTL          time.Duration

	computer Computer

	// cache
	cachedValue float64
	cachedAt    time.Time
	hasCached   bool
}

// #endregion definition

// #region vector

// Vector is a partial feature resolution result. Names that failed to compute
// appear in Errors and are absent from Values.
type Vector struct {
	Values    map[string]float64
	Errors    map[string]string
	Timestamp time.Time
}

// Get returns the value for name and whether it resolved.
func (v Vector) Get(name string) (float64, bool) {
	val, ok := v.Values[name]
	return val, ok
}

// GetOr returns the value for name, or fallback if it failed to resolve.
func (v Vector) GetOr(name string, fallback float64) float64 {
	if val, ok := v.Values[name]; ok {
		return val
	}
	return fallback
}

// #endregion vector
