// Package config loads pyheal configuration from .pyheal/config.yaml,
// with PYHEAL_* environment variables taking precedence over the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigRelPath is the config file location inside a workspace.
const ConfigRelPath = ".pyheal/config.yaml"

// Config holds all pyheal configuration.
type Config struct {
	Scanner ScannerConfig `yaml:"scanner"`
	Planner PlannerConfig `yaml:"planner"`
	Engine  EngineConfig  `yaml:"engine"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// ScannerConfig tunes defect detection.
type ScannerConfig struct {
	LongLineThreshold int `yaml:"long_line_threshold"`
	TabWidth          int `yaml:"tab_width"`
	MaxComplexity     int `yaml:"max_complexity"`
	MaxDefects        int `yaml:"max_defects"`
}

// PlannerConfig tunes fix planning.
type PlannerConfig struct {
	IndentUnit       int     `yaml:"indent_unit"`
	MaxFixesPerCycle int     `yaml:"max_fixes_per_cycle"`
	WeightBudget     float64 `yaml:"weight_budget"`
}

// EngineConfig tunes the repair loop.
type EngineConfig struct {
	DefaultCycles     int `yaml:"default_cycles"`
	MaxRepairAttempts int `yaml:"max_repair_attempts"`
}

// HistoryConfig configures cycle-record persistence.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures debug logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scanner: ScannerConfig{
			LongLineThreshold: 100,
			TabWidth:          8,
			MaxComplexity:     10,
			MaxDefects:        256,
		},
		Planner: PlannerConfig{
			IndentUnit:       4,
			MaxFixesPerCycle: 10,
			WeightBudget:     2.0,
		},
		Engine: EngineConfig{
			DefaultCycles:     3,
			MaxRepairAttempts: 5,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: ".pyheal/history.db",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads the workspace config file, starting from defaults. A missing
// file is not an error; defaults plus environment overrides apply.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, ConfigRelPath)
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the workspace config file, creating
// the .pyheal directory if needed.
func (c *Config) Save(workspace string) error {
	path := filepath.Join(workspace, ConfigRelPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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

// applyEnvOverrides applies PYHEAL_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PYHEAL_DEBUG"); v != "" {
		c.Logging.DebugMode = v == "1" || v == "true"
	}
	if v := os.Getenv("PYHEAL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if n, ok := envInt("PYHEAL_LONG_LINE"); ok {
		c.Scanner.LongLineThreshold = n
	}
	if n, ok := envInt("PYHEAL_MAX_COMPLEXITY"); ok {
		c.Scanner.MaxComplexity = n
	}
	if n, ok := envInt("PYHEAL_INDENT_UNIT"); ok {
		c.Planner.IndentUnit = n
	}
	if n, ok := envInt("PYHEAL_MAX_FIXES"); ok {
		c.Planner.MaxFixesPerCycle = n
	}
	if n, ok := envInt("PYHEAL_CYCLES"); ok {
		c.Engine.DefaultCycles = n
	}
	if path := os.Getenv("PYHEAL_DB"); path != "" {
		c.History.DatabasePath = path
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// validLevels lists the accepted logging levels.
var validLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Scanner.LongLineThreshold < 20 {
		return fmt.Errorf("scanner.long_line_threshold too small: %d (minimum 20)",
			c.Scanner.LongLineThreshold)
	}
	if c.Planner.IndentUnit < 1 || c.Planner.IndentUnit > 8 {
		return fmt.Errorf("planner.indent_unit out of range: %d (1-8)", c.Planner.IndentUnit)
	}
	if c.Planner.MaxFixesPerCycle < 1 {
		return fmt.Errorf("planner.max_fixes_per_cycle must be positive: %d",
			c.Planner.MaxFixesPerCycle)
	}
	if c.Planner.WeightBudget <= 0 {
		return fmt.Errorf("planner.weight_budget must be positive: %g", c.Planner.WeightBudget)
	}
	if c.Engine.DefaultCycles < 1 {
		return fmt.Errorf("engine.default_cycles must be positive: %d", c.Engine.DefaultCycles)
	}
	if c.Engine.MaxRepairAttempts < 1 {
		return fmt.Errorf("engine.max_repair_attempts must be positive: %d",
			c.Engine.MaxRepairAttempts)
	}

	ok := false
	for _, l := range validLevels {
		if c.Logging.Level == l {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, validLevels)
	}
	return nil
}
