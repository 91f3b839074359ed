package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/plexsim/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Model    string                     `json:"model,omitempty"`
	Hash     string                     `json:"hash,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.GrowthWarning   `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model>",
		Short: "Validate a model without simulating it",
		Long: `Compile a CUE model (a .cue file or a directory of .cue files) and check
every declaration, rule, species and run setting.

All validation errors are reported together. Rules that can bind
complexes into unbounded chains are reported as growth warnings;
they do not fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, loadErr := loadModel(path)
	if loadErr != nil {
		if loadErr.Code == ErrCodeValidation {
			return outputValidationErrors(formatter, loadErr.Validation)
		}
		return outputValidateError(formatter, loadErr)
	}

	formatter.VerboseLog("Compiled %d CUE file(s) from %s", len(m.Files), path)
	formatter.VerboseLog("Model %s: %d mol(s), %d rule(s), %d species", m.Spec.Name, len(m.Spec.Mols), len(m.Spec.Rules), len(m.Spec.Species))

	result := ValidationResult{
		Valid:    true,
		Model:    m.Spec.Name,
		Hash:     m.Hash,
		Warnings: m.Warnings,
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Model %s valid\n", m.Spec.Name)
	for _, w := range m.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", w.Message)
	}
	return nil
}

// outputValidateError outputs an error that kept the model from compiling.
func outputValidateError(formatter *OutputFormatter, loadErr *LoadError) error {
	_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
	if !formatter.JSON() && loadErr.Pos.IsValid() {
		fmt.Fprintf(formatter.Writer, "  at %s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
	}
	// Unreadable models are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, loadErr.Error())
}

// outputValidationErrors outputs every validation error of a model.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	// Validation failures = exit code 1 (test/validation failure)
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		})
		if err != nil {
			return err
		}
		return exitErr
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n", err.Field)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	return exitErr
}
