package replay

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a recorded
// metric stream plus the expected per-cycle outcomes.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Cycles          []FixtureCycle          `json:"cycles"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results,omitempty"`
}

// FixtureConfig pins the engine parameters that matter for determinism.
type FixtureConfig struct {
	HazardRate   float64 `json:"hazard_rate,omitempty"`
	BanditMethod string  `json:"bandit_method,omitempty"`
	BanditSeed   uint64  `json:"bandit_seed,omitempty"`
}

// FixtureCycle is one recorded decision cycle's metric snapshot.
type FixtureCycle struct {
	CycleID string             `json:"cycle_id"`
	Metrics map[string]float64 `json:"metrics"`
}

// FixtureExpectedResult captures the expected outcome for one cycle. Empty
// fields are not checked.
type FixtureExpectedResult struct {
	CycleID     string `json:"cycle_id"`
	RegimeState string `json:"regime_state,omitempty"`
	AlertLevel  string `json:"alert_level,omitempty"`
	Frozen      string `json:"frozen,omitempty"` // "yes" | "no"
}

// #endregion fixture-types

// #region fixture-io

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-io
