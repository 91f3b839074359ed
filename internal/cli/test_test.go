package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/harness"
)

var (
	passingScenarios = filepath.Join("..", "harness", "testdata", "scenarios")
	failingScenarios = filepath.Join("..", "harness", "testdata", "failing")
)

func TestTestCommandPasses(t *testing.T) {
	out, err := execute(t, NewTestCommand(textOpts()), passingScenarios)
	require.NoError(t, err, "output: %s", out)
	assert.Contains(t, out, "✓ dimer_depth2")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, NewTestCommand(jsonOpts()), "--filter", "dimer_*", passingScenarios)
	require.NoError(t, err)

	var result harness.SuiteResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Passed)
}

func TestTestCommandFailures(t *testing.T) {
	out, err := execute(t, NewTestCommand(textOpts()), failingScenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandFailuresJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(jsonOpts()), failingScenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result harness.SuiteResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, result.Scenarios, 1)
	assert.Len(t, result.Scenarios[0].Errors, 2)
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(t, NewTestCommand(textOpts()), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTestCommandMissingDir(t *testing.T) {
	out, err := execute(t, NewTestCommand(textOpts()), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
