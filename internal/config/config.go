// Package config loads simulation run settings.
//
// Settings are layered, lowest precedence first:
//
//  1. Built-in defaults
//  2. The YAML config file (--config)
//  3. The model's own run block
//  4. PLEXSIM_* environment variables
//  5. Command-line flags the user set explicitly
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/ir"
)

// DefaultStopTime is the simulated time a run stops at when nothing sets it.
const DefaultStopTime = 100.0

// RunConfig holds every setting a simulation run needs.
type RunConfig struct {
	Seed            uint64   `mapstructure:"seed"`
	StopTime        float64  `mapstructure:"stop_time"`
	Depth           int      `mapstructure:"depth"`
	Volume          float64  `mapstructure:"volume"`
	SampleInterval  float64  `mapstructure:"sample_interval"`
	MaxEvents       int64    `mapstructure:"max_events"`
	Method          string   `mapstructure:"method"`
	HighSensitivity float64  `mapstructure:"high_sensitivity"`
	LowSensitivity  float64  `mapstructure:"low_sensitivity"`
	Sample          []string `mapstructure:"sample"`
	LogLevel        string   `mapstructure:"log_level"`
	Database        string   `mapstructure:"database"`
}

// Validate checks the settings the engine does not: log level and stop
// time. All problems are reported together.
func (c *RunConfig) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if math.IsNaN(c.StopTime) || c.StopTime <= 0 {
		errs = append(errs, fmt.Errorf("stop_time must be positive, got %v", c.StopTime))
	}
	if !slices.Contains([]string{ir.MethodQueue, ir.MethodDirect}, c.Method) {
		errs = append(errs, fmt.Errorf("method must be %q or %q, got %q", ir.MethodQueue, ir.MethodDirect, c.Method))
	}
	return errors.Join(errs...)
}

// EngineOptions translates the settings into engine options.
func (c *RunConfig) EngineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithSeed(c.Seed),
		engine.WithDepth(c.Depth),
		engine.WithVolume(c.Volume),
		engine.WithMethod(c.Method),
		engine.WithSensitivity(c.HighSensitivity, c.LowSensitivity),
	}
	if c.MaxEvents > 0 {
		opts = append(opts, engine.WithMaxEvents(c.MaxEvents))
	}
	if len(c.Sample) > 0 {
		opts = append(opts, engine.WithSampleSpecies(c.Sample))
	}
	return opts
}

// ParseLevel maps a log level name to a slog level. "trace" is the engine's
// per-event level below debug.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return engine.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q (want trace, debug, info, warn or error)", name)
}
