package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SuiteOptions controls a suite run.
type SuiteOptions struct {
	// Filter is a glob matched against scenario file names without
	// extension. Empty matches everything.
	Filter string

	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// SuiteResult contains results from running every scenario in a directory.
type SuiteResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	Pass          bool     `json:"pass"`
	Errors        []string `json:"errors,omitempty"`
	GoldenUpdated bool     `json:"golden_updated,omitempty"`
	Events        int64    `json:"events"`
	Species       int      `json:"species"`
	Reactions     int      `json:"reactions"`
}

// DiscoverScenarios finds all YAML scenario files under dir, sorted by path.
func DiscoverScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// RunSuite runs every scenario under dir. A scenario passes when it loads,
// runs, satisfies its assertions and, if it has a golden file, matches it.
//
// For each scenario file:
//  1. Load and validate the scenario
//  2. Run it via Run
//  3. Update or compare its golden file
//  4. Collect the outcome
func RunSuite(ctx context.Context, dir string, opts SuiteOptions) (*SuiteResult, error) {
	files, err := DiscoverScenarios(dir, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find scenarios: %w", err)
	}

	result := &SuiteResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenarioFile(ctx, file, opts)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}
	return result, nil
}

func runScenarioFile(ctx context.Context, file string, opts SuiteOptions) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), Path: file}

	scenario, err := LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	res, err := Run(ctx, scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return sr
	}
	sr.Events, sr.Species, sr.Reactions = res.Events, res.Species, res.Reactions
	sr.Errors = res.Errors

	data, err := GoldenBytes(scenario.Name, res)
	if err != nil {
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to marshal golden record: %v", err))
		return sr
	}

	if opts.Update {
		if err := UpdateGolden(file, data); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return sr
		}
		sr.GoldenUpdated = true
	} else {
		want, err := os.ReadFile(GoldenPath(file))
		switch {
		case errors.Is(err, os.ErrNotExist):
			// No golden file: assertions only.
		case err != nil:
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		case !bytes.Equal(want, data):
			sr.Errors = append(sr.Errors, "result does not match golden file (run with --update to regenerate)")
		}
	}

	sr.Pass = len(sr.Errors) == 0
	return sr
}
