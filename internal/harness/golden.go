package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/plexsim/internal/ir"
)

// GoldenRecord captures a scenario run for golden comparison: the final
// network with populations and the digests of trajectory and state.
// All fields use canonical JSON serialization for deterministic comparison.
type GoldenRecord struct {
	ScenarioName     string          `json:"scenario_name"`
	RunID            string          `json:"run_id"`
	Reason           string          `json:"reason"`
	Time             float64         `json:"time"`
	Events           int64           `json:"events"`
	Species          []GoldenSpecies `json:"species"`
	Reactions        []string        `json:"reactions"`
	TrajectoryDigest string          `json:"trajectory_digest"`
	StateDigest      string          `json:"state_digest"`
}

// GoldenSpecies is one species in a golden record.
type GoldenSpecies struct {
	Name       string `json:"name"`
	Population int64  `json:"population"`
}

// NewGoldenRecord builds the golden record of a scenario result.
func NewGoldenRecord(scenarioName string, result *Result) GoldenRecord {
	rec := GoldenRecord{
		ScenarioName:     scenarioName,
		RunID:            result.RunID,
		Reason:           result.Reason,
		Time:             result.Time,
		Events:           result.Events,
		Species:          []GoldenSpecies{},
		Reactions:        []string{},
		TrajectoryDigest: result.TrajectoryDigest,
		StateDigest:      result.StateDigest,
	}
	if result.Snapshot != nil {
		for _, st := range result.Snapshot.Species {
			rec.Species = append(rec.Species, GoldenSpecies{Name: st.Name, Population: st.Population})
		}
		for _, r := range result.Snapshot.Reactions {
			rec.Reactions = append(rec.Reactions,
				formatReaction(expand(r.Reactants), expand(r.Products))+" ("+r.Generator+")")
		}
	}
	return rec
}

// GoldenBytes marshals the golden record of a result to canonical JSON.
func GoldenBytes(scenarioName string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(NewGoldenRecord(scenarioName, result))
}

// GoldenPath returns the golden file of a scenario file:
// <dir>/golden/<name>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// UpdateGolden writes the golden file of a scenario file.
func UpdateGolden(scenarioFile string, data []byte) error {
	path := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RunWithGolden executes a scenario and compares its golden record
// against fixtureDir/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
//
// Test failure (via goldie) occurs if the record doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, fixtureDir string) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	data, err := GoldenBytes(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(fixtureDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}

// AssertDeterministic runs a scenario twice: the first run writes a golden
// file into a temporary directory and the second must match it byte for
// byte.
func AssertDeterministic(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(t.TempDir()),
		goldie.WithNameSuffix(".golden"),
	)

	var first *Result
	for i := range 2 {
		result, err := Run(context.Background(), scenario)
		if err != nil {
			t.Fatalf("scenario %s: run %d: %v", scenario.Name, i+1, err)
		}
		data, err := GoldenBytes(scenario.Name, result)
		if err != nil {
			t.Fatalf("scenario %s: %v", scenario.Name, err)
		}
		if i == 0 {
			first = result
			if err := g.Update(t, scenario.Name, data); err != nil {
				t.Fatalf("scenario %s: write golden: %v", scenario.Name, err)
			}
			continue
		}
		g.Assert(t, scenario.Name, data)
	}
	return first
}
