package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/bandit"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/changepoint"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/decision"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/safety"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/tailrisk"
)

// #region config

// Config is the engine's file configuration. Defaults apply for anything the
// file omits; a handful of environment variables override the file.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Changepoint ChangepointConfig `yaml:"changepoint"`
	TailRisk    TailRiskConfig    `yaml:"tail_risk"`
	Bandit      BanditConfig      `yaml:"bandit"`
	Safety      SafetyConfig      `yaml:"safety"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// EngineConfig holds process-level settings.
type EngineConfig struct {
	DatabasePath string `yaml:"database_path"` // sqlite decision log; empty disables persistence
	WindowSize   int    `yaml:"window_size"`   // rolling-aggregate window, in cycles
}

// ChangepointConfig mirrors the detector parameters.
type ChangepointConfig struct {
	HazardRate   float64 `yaml:"hazard_rate"`
	Threshold    float64 `yaml:"threshold"`
	Model        string  `yaml:"model"` // "student_t" | "gaussian"
	MaxRunLength int     `yaml:"max_run_length"`
	RecentWindow int     `yaml:"recent_window"`
}

// TailRiskConfig mirrors the POT estimator parameters.
type TailRiskConfig struct {
	ThresholdPercentile float64 `yaml:"threshold_percentile"`
	DeclusteringWindow  int     `yaml:"declustering_window"`
	MinExceedances      int     `yaml:"min_exceedances"`
}

// BanditConfig mirrors the tuner parameters.
type BanditConfig struct {
	NumConfigs        int     `yaml:"num_configs"`
	Method            string  `yaml:"method"` // "ucb" | "thompson_sampling"
	ExplorationFactor float64 `yaml:"exploration_factor"`
	FreezeFloor       float64 `yaml:"freeze_floor"`
	MinCanaryPercent  int     `yaml:"min_canary_percent"`
	MaxCanaryPercent  int     `yaml:"max_canary_percent"`
	Seed              uint64  `yaml:"seed"`
}

// SafetyConfig mirrors the controller parameters.
type SafetyConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

// LoggingConfig selects the logger build.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// #endregion config

// #region defaults

// Default returns the standard configuration.
func Default() *Config {
	cp := changepoint.DefaultConfig()
	tr := tailrisk.DefaultConfig()
	bd := bandit.DefaultConfig()
	sf := safety.DefaultConfig()

	return &Config{
		Engine: EngineConfig{
			DatabasePath: "decisions.db",
			WindowSize:   720,
		},
		Changepoint: ChangepointConfig{
			HazardRate:   cp.HazardRate,
			Threshold:    cp.Threshold,
			Model:        string(cp.Model),
			MaxRunLength: cp.MaxRunLength,
			RecentWindow: cp.RecentWindow,
		},
		TailRisk: TailRiskConfig{
			ThresholdPercentile: tr.ThresholdPercentile,
			DeclusteringWindow:  tr.DeclusteringWindow,
			MinExceedances:      tr.MinExceedances,
		},
		Bandit: BanditConfig{
			NumConfigs:        bd.NumConfigs,
			Method:            string(bd.Method),
			ExplorationFactor: bd.ExplorationFactor,
			FreezeFloor:       bd.FreezeFloor,
			MinCanaryPercent:  bd.MinCanaryPercent,
			MaxCanaryPercent:  bd.MaxCanaryPercent,
		},
		Safety: SafetyConfig{
			HistoryLimit: sf.HistoryLimit,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// #endregion defaults

// #region load

// Load reads a YAML configuration file. A missing file returns defaults;
// environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("DECISION_DB"); path != "" {
		c.Engine.DatabasePath = path
	}
	if level := os.Getenv("DECISION_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if method := os.Getenv("DECISION_BANDIT_METHOD"); method != "" {
		c.Bandit.Method = method
	}
	if hazard := os.Getenv("DECISION_HAZARD_RATE"); hazard != "" {
		if v, err := strconv.ParseFloat(hazard, 64); err == nil && v > 0 {
			c.Changepoint.HazardRate = v
		}
	}
}

// #endregion load

// #region components

// Components maps the file configuration onto the engine's component
// configurations.
func (c *Config) Components() decision.Config {
	return decision.Config{
		Changepoint: changepoint.Config{
			HazardRate:   c.Changepoint.HazardRate,
			Threshold:    c.Changepoint.Threshold,
			Model:        changepoint.Model(c.Changepoint.Model),
			MaxRunLength: c.Changepoint.MaxRunLength,
			RecentWindow: c.Changepoint.RecentWindow,
		},
		TailRisk: tailrisk.Config{
			ThresholdPercentile: c.TailRisk.ThresholdPercentile,
			DeclusteringWindow:  c.TailRisk.DeclusteringWindow,
			MinExceedances:      c.TailRisk.MinExceedances,
		},
		Bandit: bandit.Config{
			NumConfigs:        c.Bandit.NumConfigs,
			Method:            bandit.Method(c.Bandit.Method),
			ExplorationFactor: c.Bandit.ExplorationFactor,
			FreezeFloor:       c.Bandit.FreezeFloor,
			MinCanaryPercent:  c.Bandit.MinCanaryPercent,
			MaxCanaryPercent:  c.Bandit.MaxCanaryPercent,
			Seed:              c.Bandit.Seed,
		},
		Safety: safety.Config{
			HistoryLimit: c.Safety.HistoryLimit,
		},
	}
}

// #endregion components
