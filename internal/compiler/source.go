package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/plexsim/internal/ir"
)

// Source operations reported by SourceError.
const (
	OpStat  = "stat"  // path missing or unreadable
	OpScan  = "scan"  // directory walk failed or found no .cue files
	OpLoad  = "load"  // cue/load rejected the files
	OpBuild = "build" // CUE evaluation failed
)

// SourceError reports a problem locating, loading or evaluating model files.
// Structural problems inside a model are *CompileError.
type SourceError struct {
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Message)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Source is a compiled model together with where it came from.
type Source struct {
	Spec  *ir.ModelSpec
	Value cue.Value
	Files []string
	Path  string
}

// LoadModel reads a model from a single .cue file or from every .cue file
// in a directory (one CUE package) and compiles it.
func LoadModel(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &SourceError{Op: OpStat, Path: path, Message: "model not found", Err: err}
	}

	cfg := &load.Config{}
	var args, files []string
	if info.IsDir() {
		files, err = FindCUEFiles(path)
		if err != nil {
			return nil, &SourceError{Op: OpScan, Path: path, Message: "error scanning directory", Err: err}
		}
		cfg.Dir = path
		args = []string{"."}
	} else {
		if filepath.Ext(path) != ".cue" {
			return nil, &SourceError{Op: OpScan, Path: path, Message: "model file must have a .cue extension"}
		}
		files = []string{path}
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}
	if len(files) == 0 {
		return nil, &SourceError{Op: OpScan, Path: path, Message: "no CUE files found"}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, &SourceError{Op: OpLoad, Path: path, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &SourceError{Op: OpLoad, Path: path, Message: "loading CUE files", Err: inst.Err}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &SourceError{Op: OpBuild, Path: path, Message: "building CUE value", Err: formatCUEError(err)}
	}

	spec, err := CompileModel(value)
	if err != nil {
		return nil, err
	}
	if spec.Name == "" {
		spec.Name = modelName(path, info.IsDir())
	}
	return &Source{Spec: spec, Value: value, Files: files, Path: path}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// modelName derives a name for unnamed models from the file or directory.
func modelName(path string, dir bool) string {
	base := filepath.Base(filepath.Clean(path))
	if dir {
		return base
	}
	return base[:len(base)-len(filepath.Ext(base))]
}
