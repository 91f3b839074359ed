package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const dimerModel = `
name: "dimer"
mol: {
	A: {weight: 100, sites: s: {}}
	B: {weight: 50, sites: s: {}}
}
rule: bind: {dimerize: ["A.s", "B.s"], on_rate: 1, off_rate: 1}
species: {
	A: {mol: "A", population: 5}
	B: {mol: "B", population: 5}
	AB: {
		mols: {a: "A", b: "B"}
		bindings: [["a.s", "b.s"]]
	}
}
run: {stop_time: 10, depth: 2, seed: 42}
`

const polymerModel = `
name: "polymer"
mol: M: {weight: 10, sites: {head: {}, tail: {}}}
rule: grow: {dimerize: ["M.tail", "M.head"], on_rate: 1, off_rate: 0.1}
species: M: {mol: "M", population: 10}
run: {stop_time: 1, depth: 2, seed: 42}
`

const unknownMolModel = `
mol: A: sites: s: {}
rule: r: {dimerize: ["A.s", "Z.s"], on_rate: 1}
`

// writeModel writes a CUE model into a temporary directory.
func writeModel(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// execute runs cmd with args and returns its stdout. Logs are discarded.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData decodes a JSON CLI response and its data payload.
func decodeData(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}

func textOpts() *RootOptions { return &RootOptions{Format: "text"} }
func jsonOpts() *RootOptions { return &RootOptions{Format: "json"} }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
