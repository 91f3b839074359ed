package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/plexsim/internal/compiler"
	"github.com/roach88/plexsim/internal/config"
	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/sim"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	Depth  int
}

// CompilationResult is the network a model expands to at load time.
type CompilationResult struct {
	Model     string                   `json:"model"`
	Hash      string                   `json:"hash"`
	Depth     int                      `json:"depth"`
	Species   []ir.SpeciesState        `json:"species"`
	Reactions []ir.ReactionRecord      `json:"reactions"`
	Warnings  []compiler.GrowthWarning `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model>",
		Short: "Expand a model's network at load time",
		Long: `Compile a CUE model and expand its reaction network from the populated
declared species, up to the configured depth, without simulating.

Prints every species with its initial population and every reaction
with the rule that generated it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the network as JSON to this file")
	cmd.Flags().IntVar(&opts.Depth, "depth", engine.DefaultDepth, "expansion depth")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, loadErr := loadModel(path)
	if loadErr != nil {
		if loadErr.Code == ErrCodeValidation {
			return outputValidationErrors(formatter, loadErr.Validation)
		}
		return outputValidateError(formatter, loadErr)
	}
	formatter.VerboseLog("Compiled %d CUE file(s) from %s", len(m.Files), path)

	cfg, err := loadRunConfig(opts.RootOptions, &m.Spec.Run, cmd.Flags())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid run configuration", err)
	}

	result, err := expandNetwork(cmd, m, cfg, opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSimulation, "failed to expand network", err)
	}
	result.Warnings = m.Warnings

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeNetworkToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// expandNetwork builds an engine for the model, which expands the network
// from the populated declared species, and describes it.
func expandNetwork(cmd *cobra.Command, m *sim.Model, cfg *config.RunConfig, opts *RootOptions) (*CompilationResult, error) {
	logger, err := newLogger(opts, cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	r, err := sim.Start(cmd.Context(), m, sim.Options{Config: cfg, Logger: logger})
	if err != nil {
		return nil, err
	}
	snap := r.Engine.Snapshot()
	return &CompilationResult{
		Model:     m.Spec.Name,
		Hash:      m.Hash,
		Depth:     r.Engine.Depth(),
		Species:   snap.Species,
		Reactions: snap.Reactions,
	}, nil
}

// outputCompileSuccess outputs the expanded network.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	// Human-readable text output
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s: %d species, %d reaction(s) at depth %d\n\n",
		result.Model, len(result.Species), len(result.Reactions), result.Depth)

	writeSpecies(w, result.Species)
	if len(result.Reactions) > 0 {
		fmt.Fprintln(w, "Reactions:")
		for _, r := range result.Reactions {
			fmt.Fprintf(w, "  %s: %s  [%s] rate %g\n", r.Tag, formatStoichReaction(r), r.Generator, r.Rate)
		}
		fmt.Fprintln(w)
	}

	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.Message)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote network to %s\n", outputFile)
	}

	return nil
}

// writeSpecies lists species with their populations.
func writeSpecies(w io.Writer, species []ir.SpeciesState) {
	if len(species) == 0 {
		return
	}
	fmt.Fprintln(w, "Species:")
	for _, sp := range species {
		fmt.Fprintf(w, "  %s: %s = %d\n", sp.Tag, sp.Name, sp.Population)
	}
	fmt.Fprintln(w)
}

// formatStoichReaction renders a reaction as "2 A + B -> C".
func formatStoichReaction(r ir.ReactionRecord) string {
	side := func(terms []ir.StoichSpec) string {
		if len(terms) == 0 {
			return "∅"
		}
		parts := make([]string, len(terms))
		for i, t := range terms {
			if t.Count > 1 {
				parts[i] = fmt.Sprintf("%d %s", t.Count, t.Species)
			} else {
				parts[i] = t.Species
			}
		}
		return strings.Join(parts, " + ")
	}
	return side(r.Reactants) + " -> " + side(r.Products)
}

// writeNetworkToFile writes the compilation result as indented JSON.
func writeNetworkToFile(result *CompilationResult, filename string) error {
	// Indented for readability; canonical JSON is used only for hashing
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling network: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
