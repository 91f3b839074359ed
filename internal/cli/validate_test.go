package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/compiler"
)

func TestValidateText(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)

	out, err := execute(t, NewValidateCommand(textOpts()), path)
	require.NoError(t, err)
	assert.Equal(t, "✓ Model dimer valid\n", out)
}

func TestValidateJSON(t *testing.T) {
	path := writeModel(t, "dimer.cue", dimerModel)

	out, err := execute(t, NewValidateCommand(jsonOpts()), path)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, "dimer", result.Model)
	assert.NotEmpty(t, result.Hash)
	assert.Empty(t, result.Warnings)
}

func TestValidateGrowthWarnings(t *testing.T) {
	path := writeModel(t, "polymer.cue", polymerModel)

	out, err := execute(t, NewValidateCommand(textOpts()), path)
	require.NoError(t, err, "growth warnings do not fail validation")
	assert.Contains(t, out, "✓ Model polymer valid")
	assert.Contains(t, out, "warning: ")

	out, err = execute(t, NewValidateCommand(jsonOpts()), path)
	require.NoError(t, err)
	var result ValidationResult
	decodeData(t, out, &result)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Rules, "grow")
}

func TestValidateNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.cue")

	out, err := execute(t, NewValidateCommand(textOpts()), missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateSyntaxError(t *testing.T) {
	path := writeModel(t, "broken.cue", "name: \"broken\"\nmol: {\n")

	out, err := execute(t, NewValidateCommand(jsonOpts()), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeData(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLoadFailed, resp.Error.Code)
}

func TestValidateInvalidModel(t *testing.T) {
	path := writeModel(t, "bad.cue", unknownMolModel)

	out, err := execute(t, NewValidateCommand(textOpts()), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with")
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrUnknownMol+": unknown mol \"Z\"")
}

func TestValidateInvalidModelJSON(t *testing.T) {
	path := writeModel(t, "bad.cue", unknownMolModel)

	out, err := execute(t, NewValidateCommand(jsonOpts()), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)

	var codes []string
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, compiler.ErrUnknownMol)
}

func TestClassifyLoadError(t *testing.T) {
	tests := []struct {
		op   string
		code string
	}{
		{compiler.OpStat, ErrCodeNotFound},
		{compiler.OpScan, ErrCodeScanError},
		{compiler.OpLoad, ErrCodeLoadFailed},
		{compiler.OpBuild, ErrCodeBuildFailed},
		{"other", ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			loadErr := classifyLoadError(&compiler.SourceError{Op: tt.op, Path: "m.cue", Message: "failed"})
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}

	loadErr := classifyLoadError(&compiler.CompileError{Field: "cue", Message: "conflicting values"})
	assert.Equal(t, ErrCodeBuildFailed, loadErr.Code)

	loadErr = classifyLoadError(&compiler.CompileError{Field: "mol.A", Message: "bad weight"})
	assert.Equal(t, ErrCodeCompileFailed, loadErr.Code)
	assert.Equal(t, "E008: mol.A: bad weight", loadErr.Error())
}
