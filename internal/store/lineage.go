package store

import (
	"context"
	"fmt"

	"github.com/roach88/plexsim/internal/runquery"
)

// RunLineage returns the chain of runs ending at runID, oldest first: the
// original run, each run resumed from it, and finally runID itself.
func (s *Store) RunLineage(ctx context.Context, runID string) ([]Run, error) {
	var chain []Run
	seen := make(map[string]bool)
	for id := runID; id != ""; {
		if seen[id] {
			return nil, fmt.Errorf("run lineage: cycle at run %s", id)
		}
		seen[id] = true

		run, err := s.ReadRun(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("run lineage: read %s: %w", id, err)
		}
		chain = append(chain, run)
		id = run.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// FindUnfinishedRuns returns runs that never recorded a stop reason, in
// creation order. These are runs whose process died mid-simulation; their
// latest snapshot is the point to resume from.
func (s *Store) FindUnfinishedRuns(ctx context.Context) ([]Run, error) {
	return s.QueryRuns(ctx, runquery.IsNull{Column: runquery.ColStopReason})
}

// ResumedFrom returns the runs resumed directly from runID, in creation
// order.
func (s *Store) ResumedFrom(ctx context.Context, runID string) ([]Run, error) {
	return s.QueryRuns(ctx, runquery.Equals{Column: runquery.ColParentID, Value: runID})
}
