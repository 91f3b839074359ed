package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/pflag"

	"github.com/roach88/plexsim/internal/compiler"
	"github.com/roach88/plexsim/internal/config"
	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/sim"
)

// Error code constants - unified across all CLI commands. Model validation
// codes (E1xx) come from the compiler.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error or no CUE files
	ErrCodeConfig        = "E003" // Invalid run configuration
	ErrCodeLoadFailed    = "E004" // CUE load failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // CUE build failed
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeCompileFailed = "E008" // Model structure could not be compiled
	ErrCodeDatabase      = "E009" // Database open/read/write error
	ErrCodeSimulation    = "E010" // Engine could not be built or failed mid-run
	ErrCodeValidation    = "E100" // One or more E1xx validation errors
)

// LoadError represents an error that occurred while loading a model.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available

	// Validation holds every error when Code is ErrCodeValidation.
	Validation []compiler.ValidationError
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// loadModel compiles and validates the model at path. Every failure is a
// *LoadError.
func loadModel(path string) (*sim.Model, *LoadError) {
	m, err := sim.LoadModel(path)
	if err != nil {
		return nil, classifyLoadError(err)
	}
	return m, nil
}

// classifyLoadError maps compiler and validation failures to CLI codes.
func classifyLoadError(err error) *LoadError {
	var srcErr *compiler.SourceError
	if errors.As(err, &srcErr) {
		return &LoadError{Code: MapSourceOpToErrorCode(srcErr.Op), Message: srcErr.Error()}
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := ErrCodeCompileFailed
		if compileErr.Field == "cue" {
			code = ErrCodeBuildFailed
		}
		return &LoadError{Code: code, Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message), Pos: compileErr.Pos}
	}

	var invalid *sim.InvalidModelError
	if errors.As(err, &invalid) {
		return &LoadError{
			Code:       ErrCodeValidation,
			Message:    fmt.Sprintf("model has %d validation error(s)", len(invalid.Errors)),
			Validation: invalid.Errors,
		}
	}

	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// MapSourceOpToErrorCode maps a compiler source operation to an error code.
func MapSourceOpToErrorCode(op string) string {
	switch op {
	case compiler.OpStat:
		return ErrCodeNotFound
	case compiler.OpScan:
		return ErrCodeScanError
	case compiler.OpLoad:
		return ErrCodeLoadFailed
	case compiler.OpBuild:
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}

// loadRunConfig resolves run settings: defaults, then the --config file,
// then the model's run block, then PLEXSIM_* variables, then the flags the
// user set.
func loadRunConfig(opts *RootOptions, run *ir.RunSpec, flags *pflag.FlagSet) (*config.RunConfig, error) {
	return config.Load(config.Options{File: opts.Config, Model: run, Flags: flags})
}
