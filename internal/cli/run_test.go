package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/engine"
)

// runJSON runs the model with args and decodes the JSON result.
func runJSON(t *testing.T, args ...string) (RunResult, CLIResponse) {
	t.Helper()
	out, err := execute(t, NewRunCommand(jsonOpts()), args...)
	require.NoError(t, err, "output: %s", out)
	var result RunResult
	resp := decodeData(t, out, &result)
	return result, resp
}

func TestRunText(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)

	out, err := execute(t, NewRunCommand(textOpts()), "--seed", "7", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Run ")
	assert.Contains(t, out, "stopped on stop_time at t=10")
	assert.Contains(t, out, "3 species, 2 reaction(s)")
	assert.Contains(t, out, "Species:")
	assert.NotContains(t, out, "snapshot", "nothing is stored without --db")
}

func TestRunJSONWithDatabase(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)
	db := filepath.Join(t.TempDir(), "runs.db")

	result, resp := runJSON(t, "--seed", "7", "--interval", "1", "--db", db, path)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, result.RunID, resp.RunID)
	assert.Empty(t, result.ParentRunID)
	assert.Equal(t, "dimer", result.Model)
	assert.Equal(t, string(engine.StopTime), result.Reason)
	assert.Equal(t, 10.0, result.Time)
	assert.Positive(t, result.SnapshotID)
	assert.Equal(t, int64(11), result.Samples)

	var total int64
	for _, sp := range result.Species {
		switch sp.Name {
		case "A", "B":
			total += sp.Population
		case "AB":
			total += 2 * sp.Population
		}
	}
	assert.Equal(t, int64(10), total, "mols are conserved")
}

func TestRunMaxEvents(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)

	result, _ := runJSON(t, "--seed", "7", "--stop", "1000", "--max-events", "3", path)
	assert.Equal(t, string(engine.StopMaxEvents), result.Reason)
	assert.Equal(t, int64(3), result.Events)
}

func TestRunDirectMethod(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)

	result, _ := runJSON(t, "--seed", "7", "--method", "direct", path)
	assert.Equal(t, string(engine.StopTime), result.Reason)
}

func TestRunSeedIsDeterministic(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)

	a, _ := runJSON(t, "--seed", "11", path)
	b, _ := runJSON(t, "--seed", "11", path)
	assert.Equal(t, a.Events, b.Events)
	assert.Equal(t, a.Species, b.Species)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunMetrics(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)

	result, _ := runJSON(t, "--seed", "7", "--metrics", path)
	require.NotNil(t, result.Metrics)
	assert.Equal(t, float64(result.Events), result.Metrics["plexsim_engine_events_total"])

	out, err := execute(t, NewRunCommand(textOpts()), "--seed", "7", "--metrics", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# TYPE plexsim_engine_events_total counter")
}

func TestRunInvalidMethod(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)

	out, err := execute(t, NewRunCommand(jsonOpts()), "--method", "tau-leap", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeData(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
}

func TestRunInvalidLogLevel(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)

	_, err := execute(t, NewRunCommand(textOpts()), "--log-level", "loud", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunConfigFile(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)
	cfgPath := writeModel(t, "plexsim.yaml", "stop_time: 3\nseed: 5\n")

	// The model's run block outranks the file; flags outrank both.
	opts := &RootOptions{Format: "json", Config: cfgPath}
	out, err := execute(t, NewRunCommand(opts), "--stop", "2", path)
	require.NoError(t, err)
	var result RunResult
	decodeData(t, out, &result)
	assert.Equal(t, 2.0, result.Time)
}

func TestRunMissingModel(t *testing.T) {
	_, err := execute(t, NewRunCommand(textOpts()), filepath.Join(t.TempDir(), "none.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
