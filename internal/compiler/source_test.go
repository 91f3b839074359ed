package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func sourceOp(t *testing.T, err error) string {
	t.Helper()
	var se *SourceError
	require.True(t, errors.As(err, &se), "got %T: %v", err, err)
	return se.Op
}

func TestLoadModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binding.cue")
	writeFile(t, path, "mol: {A: sites: s: {}, B: sites: s: {}}\nrule: ab: {dimerize: [\"A.s\", \"B.s\"], on_rate: 1}\n")

	src, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "binding", src.Spec.Name, "unnamed models take the file name")
	assert.Equal(t, []string{path}, src.Files)
	assert.Len(t, src.Spec.Mols, 2)
	assert.Len(t, src.Spec.Rules, 1)
	assert.True(t, src.Value.Exists())
}

func TestLoadModelDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kinase")
	writeFile(t, filepath.Join(dir, "mols.cue"), "package model\n\nmol: S: weight: 200\n")
	writeFile(t, filepath.Join(dir, "species.cue"), "package model\n\nspecies: S: {mol: \"S\", population: 3}\n")

	src, err := LoadModel(dir)
	require.NoError(t, err)
	assert.Equal(t, "kinase", src.Spec.Name)
	assert.Len(t, src.Files, 2)
	require.Len(t, src.Spec.Species, 1)
	assert.Equal(t, int64(3), src.Spec.Species[0].Population)
}

func TestLoadModelSourceErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "model.txt"), "mol: A: {}")
	writeFile(t, filepath.Join(root, "broken.cue"), "mol: A: {")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	tests := []struct {
		name string
		path string
		op   string
	}{
		{"missing", filepath.Join(root, "nope.cue"), OpStat},
		{"wrong extension", filepath.Join(root, "model.txt"), OpScan},
		{"empty directory", filepath.Join(root, "empty"), OpScan},
		{"syntax error", filepath.Join(root, "broken.cue"), OpLoad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModel(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.op, sourceOp(t, err))
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestLoadModelCompileError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.cue")
	writeFile(t, path, "name: \"empty\"\n")

	_, err := LoadModel(path)
	var ce *CompileError
	require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
	assert.Equal(t, "mol", ce.Field)
}
