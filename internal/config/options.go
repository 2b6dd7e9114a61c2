package config

import (
	"pyheal/internal/engine"
	"pyheal/internal/logging"
	"pyheal/internal/plan"
	"pyheal/internal/scan"
)

// ScanOptions converts the scanner section to scanner options.
func (c *Config) ScanOptions() scan.Options {
	return scan.Options{
		LongLineThreshold: c.Scanner.LongLineThreshold,
		TabWidth:          c.Scanner.TabWidth,
		MaxComplexity:     c.Scanner.MaxComplexity,
		MaxDefects:        c.Scanner.MaxDefects,
	}
}

// PlanOptions converts the planner section to planner options. The scanner
// thresholds feed the planner too, so a split line lands under the same
// limit the scanner flags.
func (c *Config) PlanOptions() plan.Options {
	return plan.Options{
		IndentUnit:        c.Planner.IndentUnit,
		TabWidth:          c.Scanner.TabWidth,
		LongLineThreshold: c.Scanner.LongLineThreshold,
		MaxFixesPerCycle:  c.Planner.MaxFixesPerCycle,
		WeightBudget:      c.Planner.WeightBudget,
	}
}

// EngineOptions assembles the controller options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Scan:              c.ScanOptions(),
		Plan:              c.PlanOptions(),
		MaxRepairAttempts: c.Engine.MaxRepairAttempts,
	}
}

// LogSettings converts the logging section for logging.Initialize.
func (c *Config) LogSettings() logging.Settings {
	return logging.Settings{
		DebugMode:  c.Logging.DebugMode,
		Categories: c.Logging.Categories,
		Level:      c.Logging.Level,
	}
}
