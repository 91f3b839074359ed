package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/ir"
)

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func touchModel(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.cue"), []byte("name: \"m\"\n"), 0o644))
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/dimer_depth2.yaml")
	require.NoError(t, err)

	assert.Equal(t, "dimer_depth2", s.Name)
	assert.Equal(t, filepath.Join("testdata", "models", "dimer.cue"), s.Model)
	assert.Equal(t, uint64(7), s.Seed)
	require.NotNil(t, s.Depth)
	assert.Equal(t, 2, *s.Depth)
	require.Len(t, s.Assertions, 5)
	assert.Equal(t, AssertReactionExists, s.Assertions[1].Type)
	assert.Equal(t, []string{"A", "B"}, s.Assertions[1].Reactants)
}

func TestLoadScenarioRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	touchModel(t, dir)
	path := writeScenario(t, dir, "typo.yaml", `
name: typo
model: model.cue
assertion:
  - type: species_count
    count: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarioValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: "model: model.cue\nassertions: [{type: species_count, count: 1}]\n",
			want: "name is required",
		},
		{
			name: "missing model",
			body: "name: x\nassertions: [{type: species_count, count: 1}]\n",
			want: "model is required",
		},
		{
			name: "model not found",
			body: "name: x\nmodel: other.cue\nassertions: [{type: species_count, count: 1}]\n",
			want: "model not found",
		},
		{
			name: "no assertions",
			body: "name: x\nmodel: model.cue\n",
			want: "assertions list is required",
		},
		{
			name: "negative depth",
			body: "name: x\nmodel: model.cue\ndepth: -1\nassertions: [{type: species_count, count: 1}]\n",
			want: "depth must be >= 0",
		},
		{
			name: "bad method",
			body: "name: x\nmodel: model.cue\nmethod: tau\nassertions: [{type: species_count, count: 1}]\n",
			want: "method must be",
		},
		{
			name: "negative stop time",
			body: "name: x\nmodel: model.cue\nstop_time: -1\nassertions: [{type: species_count, count: 1}]\n",
			want: "stop_time must be positive",
		},
		{
			name: "count missing",
			body: "name: x\nmodel: model.cue\nassertions: [{type: reaction_count}]\n",
			want: "count is required for reaction_count",
		},
		{
			name: "negative count",
			body: "name: x\nmodel: model.cue\nassertions: [{type: species_count, count: -2}]\n",
			want: "count must be non-negative",
		},
		{
			name: "empty reaction",
			body: "name: x\nmodel: model.cue\nassertions: [{type: reaction_exists}]\n",
			want: "reactants or products are required",
		},
		{
			name: "population without bounds",
			body: "name: x\nmodel: model.cue\nassertions: [{type: population, species: A}]\n",
			want: "min or max is required",
		},
		{
			name: "inverted bounds",
			body: "name: x\nmodel: model.cue\nassertions: [{type: population, species: A, min: 3, max: 1}]\n",
			want: "min 3 exceeds max 1",
		},
		{
			name: "unknown reason",
			body: "name: x\nmodel: model.cue\nassertions: [{type: stop_reason, reason: bored}]\n",
			want: "reason must be one of",
		},
		{
			name: "unknown type",
			body: "name: x\nmodel: model.cue\nassertions: [{type: flux}]\n",
			want: `unknown assertion type "flux"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touchModel(t, dir)
			path := writeScenario(t, dir, "s.yaml", tt.body)

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenarioRunSpecOverlay(t *testing.T) {
	depth := 3
	model := ir.RunSpec{StopTime: 10, Seed: 42, Method: ir.MethodQueue, SampleInterval: 2}

	t.Run("empty scenario keeps model settings", func(t *testing.T) {
		got := (&Scenario{}).runSpec(model)
		assert.Equal(t, model, got)
	})

	t.Run("scenario overrides", func(t *testing.T) {
		s := &Scenario{Seed: 7, StopTime: 5, Depth: &depth, Method: ir.MethodDirect, MaxEvents: 100}
		got := s.runSpec(model)

		assert.Equal(t, uint64(7), got.Seed)
		assert.Equal(t, 5.0, got.StopTime)
		require.NotNil(t, got.Depth)
		assert.Equal(t, 3, *got.Depth)
		assert.Equal(t, ir.MethodDirect, got.Method)
		assert.Equal(t, int64(100), got.MaxEvents)
		assert.Equal(t, 2.0, got.SampleInterval)
	})

	t.Run("depth is copied", func(t *testing.T) {
		d := 1
		s := &Scenario{Depth: &d}
		got := s.runSpec(model)
		d = 9
		assert.Equal(t, 1, *got.Depth)
	})
}
