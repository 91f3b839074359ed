package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/ir"
)

// envPrefix is the environment variable prefix for all run settings.
const envPrefix = "PLEXSIM"

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"seed":       "seed",
	"stop":       "stop_time",
	"depth":      "depth",
	"volume":     "volume",
	"interval":   "sample_interval",
	"max-events": "max_events",
	"method":     "method",
	"db":         "database",
	"log-level":  "log_level",
}

// Options selects the layers Load reads. Every field is optional.
type Options struct {
	// File is a YAML config file.
	File string

	// Model is the run block of the model being simulated.
	Model *ir.RunSpec

	// Flags holds command-line flags. Only flags the user changed
	// override other layers.
	Flags *pflag.FlagSet
}

// newViper builds a Viper instance with YAML config, the PLEXSIM_ env
// prefix and every key defaulted, so that AutomaticEnv can resolve each
// key during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("seed", 0)
	v.SetDefault("stop_time", DefaultStopTime)
	v.SetDefault("depth", engine.DefaultDepth)
	v.SetDefault("volume", engine.DefaultVolume)
	v.SetDefault("sample_interval", 0.0)
	v.SetDefault("max_events", 0)
	v.SetDefault("method", ir.MethodQueue)
	v.SetDefault("high_sensitivity", engine.DefaultHighSensitivity)
	v.SetDefault("low_sensitivity", engine.DefaultLowSensitivity)
	v.SetDefault("sample", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("database", "")
	return v
}

// Load resolves the run configuration from every layer in opts and
// validates the result.
func Load(opts Options) (*RunConfig, error) {
	v := newViper()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", opts.File, err)
		}
	}

	if opts.Model != nil {
		if err := v.MergeConfigMap(modelLayer(opts.Model)); err != nil {
			return nil, fmt.Errorf("config: failed to merge model run settings: %w", err)
		}
	}

	if opts.Flags != nil {
		for flag, key := range FlagKeys {
			f := opts.Flags.Lookup(flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: failed to bind flag --%s: %w", flag, err)
			}
		}
	}

	cfg := &RunConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// modelLayer converts the settings a model sets into a config map. Zero
// values mean "not set" except for depth, which is a pointer.
func modelLayer(run *ir.RunSpec) map[string]any {
	m := make(map[string]any)
	if run.Seed != 0 {
		m["seed"] = run.Seed
	}
	if run.StopTime != 0 {
		m["stop_time"] = run.StopTime
	}
	if run.Depth != nil {
		m["depth"] = *run.Depth
	}
	if run.Volume != 0 {
		m["volume"] = run.Volume
	}
	if run.SampleInterval != 0 {
		m["sample_interval"] = run.SampleInterval
	}
	if run.MaxEvents != 0 {
		m["max_events"] = run.MaxEvents
	}
	if run.Method != "" {
		m["method"] = run.Method
	}
	if run.HighSensitivity != 0 {
		m["high_sensitivity"] = run.HighSensitivity
	}
	if run.LowSensitivity != 0 {
		m["low_sensitivity"] = run.LowSensitivity
	}
	if len(run.Sample) > 0 {
		m["sample"] = run.Sample
	}
	return m
}
