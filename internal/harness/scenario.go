package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/ir"
)

// Scenario defines a simulation test: a model, the run settings that
// override the model's own, and assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Model is the CUE model file or directory, relative to the scenario
	// file.
	Model string `yaml:"model"`

	// Run settings. Zero values keep the model's setting; Depth is a
	// pointer because depth 0 is meaningful.
	Seed           uint64  `yaml:"seed,omitempty"`
	StopTime       float64 `yaml:"stop_time,omitempty"`
	Depth          *int    `yaml:"depth,omitempty"`
	Method         string  `yaml:"method,omitempty"`
	SampleInterval float64 `yaml:"sample_interval,omitempty"`
	MaxEvents      int64   `yaml:"max_events,omitempty"`

	// Assertions validate the final network and populations.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run ID. If empty, defaults to
	// "test-run-default" so golden files are stable.
	RunID string `yaml:"run_id,omitempty"`
}

// Assertion validates the final state of a scenario run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "reaction_count": number of reactions (optionally of one generator)
	// - "reaction_exists": a reaction with these reactant and product names
	// - "species_count": number of species
	// - "species_exists": a species with this name
	// - "population": final population of a species within [min, max]
	// - "stop_reason": why the run stopped
	Type string `yaml:"type"`

	// Count is the expected number (reaction_count, species_count).
	Count *int `yaml:"count,omitempty"`

	// Generator restricts reaction_count and reaction_exists to reactions
	// of one rule, or "explicit:<name>" for declared reactions.
	Generator string `yaml:"generator,omitempty"`

	// Reactants and Products are species names, compared as multisets
	// (reaction_exists).
	Reactants []string `yaml:"reactants,omitempty"`
	Products  []string `yaml:"products,omitempty"`

	// Species is a species name (species_exists, population).
	Species string `yaml:"species,omitempty"`

	// Min and Max bound a population, inclusive. Either may be omitted.
	Min *int64 `yaml:"min,omitempty"`
	Max *int64 `yaml:"max,omitempty"`

	// Reason is the expected stop reason (stop_reason).
	Reason string `yaml:"reason,omitempty"`
}

// Assertion type constants.
const (
	AssertReactionCount  = "reaction_count"
	AssertReactionExists = "reaction_exists"
	AssertSpeciesCount   = "species_count"
	AssertSpeciesExists  = "species_exists"
	AssertPopulation     = "population"
	AssertStopReason     = "stop_reason"
)

var stopReasons = []string{
	string(engine.StopTime),
	string(engine.StopExhausted),
	string(engine.StopMaxEvents),
	string(engine.StopCondition),
	string(engine.StopCanceled),
}

// LoadScenario reads and parses a scenario YAML file. The model path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) {
		scenario.Model = filepath.Join(filepath.Dir(path), scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model not found: %s", s.Model)
	}

	if s.StopTime < 0 || math.IsNaN(s.StopTime) {
		return fmt.Errorf("stop_time must be positive")
	}
	if s.Depth != nil && *s.Depth < 0 {
		return fmt.Errorf("depth must be >= 0")
	}
	if s.Method != "" && s.Method != ir.MethodQueue && s.Method != ir.MethodDirect {
		return fmt.Errorf("method must be %q or %q", ir.MethodQueue, ir.MethodDirect)
	}
	if s.SampleInterval < 0 {
		return fmt.Errorf("sample_interval must be >= 0")
	}
	if s.MaxEvents < 0 {
		return fmt.Errorf("max_events must be >= 0")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertReactionCount, AssertSpeciesCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertReactionExists:
		if len(a.Reactants) == 0 && len(a.Products) == 0 {
			return fmt.Errorf("assertions[%d]: reactants or products are required for reaction_exists", index)
		}
	case AssertSpeciesExists:
		if a.Species == "" {
			return fmt.Errorf("assertions[%d]: species is required for species_exists", index)
		}
	case AssertPopulation:
		if a.Species == "" {
			return fmt.Errorf("assertions[%d]: species is required for population", index)
		}
		if a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: min or max is required for population", index)
		}
		if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
			return fmt.Errorf("assertions[%d]: min %d exceeds max %d", index, *a.Min, *a.Max)
		}
	case AssertStopReason:
		if !slices.Contains(stopReasons, a.Reason) {
			return fmt.Errorf("assertions[%d]: reason must be one of %v", index, stopReasons)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// runSpec overlays the scenario's run settings on the model's.
func (s *Scenario) runSpec(model ir.RunSpec) ir.RunSpec {
	run := model
	if s.Seed != 0 {
		run.Seed = s.Seed
	}
	if s.StopTime != 0 {
		run.StopTime = s.StopTime
	}
	if s.Depth != nil {
		d := *s.Depth
		run.Depth = &d
	}
	if s.Method != "" {
		run.Method = s.Method
	}
	if s.SampleInterval != 0 {
		run.SampleInterval = s.SampleInterval
	}
	if s.MaxEvents != 0 {
		run.MaxEvents = s.MaxEvents
	}
	return run
}
