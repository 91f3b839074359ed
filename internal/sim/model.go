package sim

import (
	"fmt"
	"strings"

	"github.com/roach88/plexsim/internal/compiler"
	"github.com/roach88/plexsim/internal/ir"
)

// Model is a compiled model that passed validation.
type Model struct {
	Spec     *ir.ModelSpec
	Hash     string
	Warnings []compiler.GrowthWarning
	Files    []string
}

// InvalidModelError carries every validation error of a model.
type InvalidModelError struct {
	Errors []compiler.ValidationError
}

func (e *InvalidModelError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("model has %d validation error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Prepare validates spec, analyzes growth and hashes it.
func Prepare(spec *ir.ModelSpec) (*Model, error) {
	if errs := compiler.Validate(spec); len(errs) > 0 {
		return nil, &InvalidModelError{Errors: errs}
	}
	hash, err := ir.ModelHash(spec)
	if err != nil {
		return nil, err
	}
	return &Model{
		Spec:     spec,
		Hash:     hash,
		Warnings: compiler.AnalyzeGrowth(spec),
	}, nil
}

// LoadModel compiles the model at path (a .cue file or a directory) and
// prepares it.
func LoadModel(path string) (*Model, error) {
	src, err := compiler.LoadModel(path)
	if err != nil {
		return nil, err
	}
	m, err := Prepare(src.Spec)
	if err != nil {
		return nil, err
	}
	m.Files = src.Files
	return m, nil
}
