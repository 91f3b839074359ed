package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/engine"
)

func TestRootCommandSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"validate", "compile", "run", "resume", "replay", "test", "trace"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"verbose", "format", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCommandRejectsFormat(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"validate", "--format", "xml", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommandValidate(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"validate", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "✓ Model dimer valid")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(&RootOptions{}, "info", &buf)
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))

	logger, err = newLogger(&RootOptions{Verbose: true}, "info", &buf)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger, err = newLogger(&RootOptions{Verbose: true}, "trace", &buf)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), engine.LevelTrace))

	_, err = newLogger(&RootOptions{}, "loud", &buf)
	assert.Error(t, err)
}
