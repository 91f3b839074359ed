package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copySuite copies the fixtures into a temporary tree so golden files can
// be written.
func copySuite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, sub := range []string{"models", "scenarios", "failing"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
		entries, err := os.ReadDir(filepath.Join("testdata", sub))
		require.NoError(t, err)
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join("testdata", sub, e.Name()))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(dir, sub, e.Name()), data, 0o644))
		}
	}
	return dir
}

func TestDiscoverScenarios(t *testing.T) {
	files, err := DiscoverScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	assert.Len(t, files, 4)

	files, err = DiscoverScenarios("testdata/scenarios", "dimer_*")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = DiscoverScenarios("testdata/scenarios", "[")
	require.Error(t, err)
}

func TestRunSuite(t *testing.T) {
	result, err := RunSuite(context.Background(), "testdata/scenarios", SuiteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.Passed)
	assert.Zero(t, result.Failed)
	for _, sr := range result.Scenarios {
		assert.True(t, sr.Pass, "%s: %v", sr.Name, sr.Errors)
		assert.False(t, sr.GoldenUpdated)
	}
}

func TestRunSuiteFailures(t *testing.T) {
	result, err := RunSuite(context.Background(), "testdata/failing", SuiteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "wrong_count", result.Scenarios[0].Name)
	assert.Len(t, result.Scenarios[0].Errors, 2)
}

func TestRunSuiteGoldenUpdateThenCompare(t *testing.T) {
	dir := copySuite(t)
	scenarios := filepath.Join(dir, "scenarios")

	updated, err := RunSuite(context.Background(), scenarios, SuiteOptions{Update: true, Filter: "dimer_depth2"})
	require.NoError(t, err)
	require.Equal(t, 1, updated.Total)
	assert.True(t, updated.Scenarios[0].GoldenUpdated)
	assert.FileExists(t, filepath.Join(scenarios, "golden", "dimer_depth2.golden"))

	compared, err := RunSuite(context.Background(), scenarios, SuiteOptions{Filter: "dimer_depth2"})
	require.NoError(t, err)
	assert.Equal(t, 1, compared.Passed)

	golden := filepath.Join(scenarios, "golden", "dimer_depth2.golden")
	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0o644))

	drifted, err := RunSuite(context.Background(), scenarios, SuiteOptions{Filter: "dimer_depth2"})
	require.NoError(t, err)
	assert.Equal(t, 1, drifted.Failed)
	assert.Contains(t, drifted.Scenarios[0].Errors[0], "does not match golden file")
}

func TestRunSuiteBadScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: [\n"), 0o644))

	result, err := RunSuite(context.Background(), dir, SuiteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "bad.yaml", result.Scenarios[0].Name)
	assert.Contains(t, result.Scenarios[0].Errors[0], "failed to load scenario")
}
