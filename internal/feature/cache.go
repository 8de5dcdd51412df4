package feature

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// #region errors

var (
	// ErrDuplicateFeature is returned when registering a name twice.
	ErrDuplicateFeature = errors.New("feature already registered")
	// ErrUnknownFeature is returned when resolving an unregistered name.
	ErrUnknownFeature = errors.New("feature not registered")
	// ErrCircularDependency is returned when resolution revisits a feature.
	ErrCircularDependency = errors.New("circular feature dependency")
	// ErrNoComputer is returned for features registered without a computer.
	ErrNoComputer = errors.New("feature has no compute function")
)

// #endregion errors

// #region cache

// Cache is a registry of named feature computations with per-feature TTL
// caching and recursive dependency resolution. Construct one per process and
// pass it by handle; there is no package-level instance.
type Cache struct {
	mu       sync.Mutex
	features map[string]*Definition
	clock    func() time.Time
	log      *zap.Logger
}

// NewCache creates an empty feature cache. logger may be nil.
func NewCache(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		features: make(map[string]*Definition),
		clock:    time.Now,
		log:      logger,
	}
}

// #endregion cache

// #region register

// Register adds a feature. Dependencies must already be registered, which
// also guarantees the dependency graph is acyclic at registration time.
// Returns ErrDuplicateFeature if the name exists; registration never
// overwrites.
func (c *Cache) Register(name string, kind Kind, description string, computer Computer, deps []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.features[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFeature, name)
	}
	for _, dep := range deps {
		if _, ok := c.features[dep]; !ok {
			return fmt.Errorf("%w: dependency %q of %q", ErrUnknownFeature, dep, name)
		}
	}

	c.features[name] = &Definition{
		Name:         name,
		Kind:         kind,
		Description:  description,
		Dependencies: append([]string(nil), deps...),
		TTL:          DefaultTTL,
		computer:     computer,
	}
	c.log.Debug("registered feature", zap.String("name", name), zap.String("kind", string(kind)))
	return nil
}

// DefaultTTL is the cache lifetime applied at registration.
const DefaultTTL = 300 * time.Second

// SetTTL overrides the cache lifetime for a registered feature.
func (c *Cache) SetTTL(name string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	def, ok := c.features[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	def.TTL = ttl
	return nil
}

// #endregion register

// #region get

// Get resolves a single feature, recursively computing dependencies
// depth-first. Cached values younger than the feature's TTL are returned
// without recompute.
func (c *Cache) Get(name string, ctx Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolve(name, ctx, map[string]bool{})
}

// resolve walks the dependency graph under c.mu. visiting guards against
// cycles introduced after registration-order checks.
func (c *Cache) resolve(name string, ctx Context, visiting map[string]bool) (float64, error) {
	def, ok := c.features[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	if visiting[name] {
		return 0, fmt.Errorf("%w: %s", ErrCircularDependency, name)
	}

	if def.hasCached && c.clock().Sub(def.cachedAt) < def.TTL {
		return def.cachedValue, nil
	}

	if def.computer == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoComputer, name)
	}

	visiting[name] = true
	defer delete(visiting, name)

	deps := make(map[string]float64, len(def.Dependencies))
	for _, depName := range def.Dependencies {
		v, err := c.resolve(depName, ctx, visiting)
		if err != nil {
			return 0, fmt.Errorf("resolve %s: %w", name, err)
		}
		deps[depName] = v
	}

	value, err := def.computer.Compute(ctx, deps)
	if err != nil {
		return 0, fmt.Errorf("compute %s: %w", name, err)
	}

	// Replace the cache entry whole; never partially written.
	def.cachedValue = value
	def.cachedAt = c.clock()
	def.hasCached = true
	return value, nil
}

// #endregion get

// #region get-vector

// GetVector resolves each name independently. A failure computing one feature
// is recorded in the result's Errors map for that name only; the remaining
// features still resolve.
func (c *Cache) GetVector(names []string, ctx Context) Vector {
	c.mu.Lock()
	defer c.mu.Unlock()

	vec := Vector{
		Values:    make(map[string]float64, len(names)),
		Errors:    make(map[string]string),
		Timestamp: c.clock(),
	}
	for _, name := range names {
		v, err := c.resolve(name, ctx, map[string]bool{})
		if err != nil {
			c.log.Warn("feature resolution failed", zap.String("name", name), zap.Error(err))
			vec.Errors[name] = err.Error()
			continue
		}
		vec.Values[name] = v
	}
	return vec
}

// #endregion get-vector

// #region invalidate

// Invalidate clears the cached value for one feature.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if def, ok := c.features[name]; ok {
		def.hasCached = false
		def.cachedAt = time.Time{}
	}
}

// InvalidateAll clears every cached value.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, def := range c.features {
		def.hasCached = false
		def.cachedAt = time.Time{}
	}
}

// #endregion invalidate

// #region list

// Info describes one registered feature for inspection.
type Info struct {
	Name         string
	Kind         Kind
	Description  string
	Dependencies []string
	Cached       bool
}

// List returns all registered features sorted by name.
func (c *Cache) List() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	infos := make([]Info, 0, len(c.features))
	for _, def := range c.features {
		infos = append(infos, Info{
			Name:         def.Name,
			Kind:         def.Kind,
			Description:  def.Description,
			Dependencies: append([]string(nil), def.Dependencies...),
			Cached:       def.hasCached,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// #endregion list
