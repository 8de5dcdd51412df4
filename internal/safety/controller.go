package safety

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// #region controller

// Controller validates decision outputs against per-type check lists and
// substitutes conservative fallbacks when a decision is unsafe. It carries
// two global switches: emergency mode (everything unsafe, no checks run)
// and human override (everything safe, no checks run). Emergency wins when
// both are set.
type Controller struct {
	mu sync.Mutex

	config  Config
	checks  map[string][]Check
	history []ViolationRecord

	emergency     atomic.Bool
	override      atomic.Bool
	emergencyNote atomic.Value // string

	clock func() time.Time
	log   *zap.Logger
}

// NewController creates a controller with no checks registered. logger may
// be nil.
func NewController(config Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultConfig().HistoryLimit
	}
	c := &Controller{
		config: config,
		checks: make(map[string][]Check),
		clock:  time.Now,
		log:    logger,
	}
	c.emergencyNote.Store("")
	return c
}

// RegisterCheck appends a check to the decision type's ordered list.
func (c *Controller) RegisterCheck(decisionType string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[decisionType] = append(c.checks[decisionType], check)
}

// Checks returns a copy of the check list for a decision type.
func (c *Controller) Checks(decisionType string) []Check {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Check, len(c.checks[decisionType]))
	copy(out, c.checks[decisionType])
	return out
}

// #endregion controller

// #region validate

// Validate runs every enabled check registered for the decision type. A
// predicate error or panic is fail-closed: it counts as a violation of
// severity unsafe. Critical severity is sticky once observed.
func (c *Controller) Validate(decisionType string, output map[string]any, context map[string]float64) ValidationResult {
	now := c.clock()

	if c.emergency.Load() {
		result := ValidationResult{
			IsSafe:       false,
			Severity:     SeverityCritical,
			Violations:   []string{"emergency_mode_active"},
			DecisionType: decisionType,
			Timestamp:    now,
		}
		c.recordViolations(result, output)
		return result
	}

	if c.override.Load() {
		return ValidationResult{
			IsSafe:       true,
			Severity:     SeveritySafe,
			Warnings:     []string{"human_override_active: checks bypassed"},
			DecisionType: decisionType,
			Timestamp:    now,
		}
	}

	result := ValidationResult{
		Severity:     SeveritySafe,
		DecisionType: decisionType,
		Timestamp:    now,
	}

	for _, check := range c.Checks(decisionType) {
		if !check.Enabled {
			continue
		}
		result.ChecksRun++

		passed, err := runPredicate(check.Predicate, output, context)
		if err != nil {
			result.Violations = append(result.Violations,
				fmt.Sprintf("%s: check_error: %v", check.Name, err))
			result.Severity = result.Severity.Max(SeverityUnsafe)
			c.log.Error("safety check errored",
				zap.String("decision_type", decisionType),
				zap.String("check", check.Name),
				zap.Error(err))
			continue
		}
		if passed {
			continue
		}

		switch check.Severity {
		case SeverityWarning:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: %s", check.Name, check.Description))
		default:
			result.Violations = append(result.Violations,
				fmt.Sprintf("%s: %s", check.Name, check.Description))
		}
		result.Severity = result.Severity.Max(check.Severity)
	}

	result.IsSafe = len(result.Violations) == 0
	if !result.IsSafe {
		c.recordViolations(result, output)
		c.log.Warn("decision failed validation",
			zap.String("decision_type", decisionType),
			zap.String("severity", string(result.Severity)),
			zap.Strings("violations", result.Violations))
	}
	return result
}

// runPredicate isolates predicate panics so one bad check cannot take down
// the decision path.
func runPredicate(p Predicate, output map[string]any, context map[string]float64) (passed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			passed = false
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	if p == nil {
		return false, fmt.Errorf("nil predicate")
	}
	return p(output, context)
}

func (c *Controller) recordViolations(result ValidationResult, output map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, ViolationRecord{
		Timestamp:    result.Timestamp,
		DecisionType: result.DecisionType,
		Violations:   result.Violations,
		Output:       output,
	})
	if excess := len(c.history) - c.config.HistoryLimit; excess > 0 {
		c.history = append(c.history[:0], c.history[excess:]...)
	}
}

// #endregion validate

// #region switches

// EnableEmergencyMode forces every subsequent Validate to fail closed.
func (c *Controller) EnableEmergencyMode(reason string) {
	c.emergencyNote.Store(reason)
	c.emergency.Store(true)
	c.log.Warn("emergency mode enabled", zap.String("reason", reason))
}

// DisableEmergencyMode restores normal validation.
func (c *Controller) DisableEmergencyMode() {
	c.emergency.Store(false)
	c.emergencyNote.Store("")
	c.log.Info("emergency mode disabled")
}

// EmergencyMode reports the switch state and its reason.
func (c *Controller) EmergencyMode() (bool, string) {
	return c.emergency.Load(), c.emergencyNote.Load().(string)
}

// EnableHumanOverride makes every subsequent Validate pass with a warning.
func (c *Controller) EnableHumanOverride() {
	c.override.Store(true)
	c.log.Warn("human override enabled")
}

// DisableHumanOverride restores normal validation.
func (c *Controller) DisableHumanOverride() {
	c.override.Store(false)
	c.log.Info("human override disabled")
}

// HumanOverride reports the switch state.
func (c *Controller) HumanOverride() bool {
	return c.override.Load()
}

// #endregion switches

// #region history

// ViolationHistory returns up to limit most-recent violation records, newest
// last. limit <= 0 returns everything retained.
func (c *Controller) ViolationHistory(limit int) []ViolationRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ViolationRecord, n)
	copy(out, c.history[len(c.history)-n:])
	return out
}

// #endregion history
