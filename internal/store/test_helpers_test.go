package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/plexsim/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id, parent string) Run {
	return Run{
		ID:        id,
		ParentID:  parent,
		ModelName: "dimer",
		ModelHash: "test-hash",
		Seed:      42,
		Depth:     2,
		Volume:    1,
		Method:    ir.MethodQueue,
		StopTime:  10,
	}
}

// mustWriteRun writes run and fails the test on error.
func mustWriteRun(t *testing.T, s *Store, run Run) {
	t.Helper()
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
	}
}

// createTestSnapshot builds a dimer-model snapshot: A, B and the AB
// complex, with the binding and unbinding reactions.
func createTestSnapshot(runID string, events int64) *ir.Snapshot {
	ab := ir.ComplexSpec{
		Mols: []ir.MolInstanceSpec{{Label: "A", Mol: "A"}, {Label: "B", Mol: "B"}},
		Bindings: []ir.BindingSpec{{
			Left:  ir.SiteRefSpec{Mol: "A", Site: "b"},
			Right: ir.SiteRefSpec{Mol: "B", Site: "a"},
		}},
	}
	return &ir.Snapshot{
		RunID:      runID,
		ModelHash:  "test-hash",
		Seed:       42,
		Time:       1.5,
		EventCount: events,
		Depth:      2,
		Volume:     1,
		Species: []ir.SpeciesState{
			{Tag: "A", Name: "A", Complex: ir.ComplexSpec{Mols: []ir.MolInstanceSpec{{Mol: "A"}}}, Population: 3},
			{Tag: "B", Name: "B", Complex: ir.ComplexSpec{Mols: []ir.MolInstanceSpec{{Mol: "B"}}}, Population: 2},
			{Tag: "s2", Name: "A-B", Complex: ab, Population: 1},
		},
		Reactions: []ir.ReactionRecord{
			{
				Tag:       "r0",
				Generator: "bind",
				Reactants: []ir.StoichSpec{{Species: "A", Count: 1}, {Species: "B", Count: 1}},
				Products:  []ir.StoichSpec{{Species: "s2", Count: 1}},
				Rate:      2,
			},
			{
				Tag:       "r1",
				Generator: "bind/unbind",
				Reactants: []ir.StoichSpec{{Species: "s2", Count: 1}},
				Products:  []ir.StoichSpec{{Species: "A", Count: 1}, {Species: "B", Count: 1}},
				Rate:      1,
			},
			{
				Tag:       "r2",
				Generator: "explicit:feed",
				Products:  []ir.StoichSpec{{Species: "A", Count: 1}},
				Rate:      0.5,
			},
		},
	}
}
