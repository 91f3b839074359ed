package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/runquery"
)

// ErrDigestMismatch indicates a stored snapshot no longer matches its
// recorded digest.
var ErrDigestMismatch = errors.New("snapshot digest mismatch")

const runColumns = `id, parent_run_id, seq, model_name, model_hash, seed, depth, volume, method,
	stop_time, stop_reason, sim_time, event_count, engine_version, ir_version`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		parent   sql.NullString
		seed     int64
		stopTime sql.NullFloat64
		reason   sql.NullString
	)
	if err := row.Scan(
		&run.ID, &parent, &run.Seq, &run.ModelName, &run.ModelHash, &seed,
		&run.Depth, &run.Volume, &run.Method, &stopTime, &reason,
		&run.SimTime, &run.EventCount, &run.EngineVersion, &run.IRVersion,
	); err != nil {
		return Run{}, err
	}
	run.ParentID = parent.String
	run.Seed = seedFromSQL(seed)
	run.StopTime = stopTimeFromSQL(stopTime)
	run.StopReason = reason.String
	return run, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns all runs in creation order.
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.QueryRuns(ctx, nil)
}

// QueryRuns returns the runs matching p in creation order. A nil predicate
// matches every run.
func (s *Store) QueryRuns(ctx context.Context, p runquery.Predicate) ([]Run, error) {
	query, args, err := runquery.Compile(runColumns, p)
	if err != nil {
		return nil, err
	}
	return s.queryRuns(ctx, query, args...)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSamples returns the trajectory of a run in recording order.
// Returns an empty slice (not nil) if the run has no samples.
func (s *Store) ReadSamples(ctx context.Context, runID string) ([]ir.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, event_count, populations
		FROM samples
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []ir.Sample{}
	for rows.Next() {
		var (
			sample ir.Sample
			pops   string
		)
		if err := rows.Scan(&sample.Time, &sample.EventCount, &pops); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.Populations, err = unmarshalPopulations(pops)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// SnapshotInfo summarizes a stored snapshot without its species and
// reactions.
type SnapshotInfo struct {
	ID         int64
	RunID      string
	Time       float64
	EventCount int64
	Digest     string
}

// ListSnapshots returns the snapshots of a run, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, runID string) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, time, event_count, digest
		FROM snapshots
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	infos := []SnapshotInfo{}
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.RunID, &info.Time, &info.EventCount, &info.Digest); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

// LatestSnapshot returns the ID of the most recently written snapshot.
// An empty runID searches every run.
// Returns sql.ErrNoRows if there is none.
func (s *Store) LatestSnapshot(ctx context.Context, runID string) (int64, error) {
	var id int64
	var err error
	if runID == "" {
		err = s.db.QueryRowContext(ctx, `SELECT id FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&id)
	} else {
		err = s.db.QueryRowContext(ctx, `
			SELECT id FROM snapshots WHERE run_id = ? ORDER BY id DESC LIMIT 1
		`, runID).Scan(&id)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ReadSnapshot loads a complete snapshot and verifies it against its
// stored digest.
// Returns sql.ErrNoRows if not found and ErrDigestMismatch if the content
// was altered.
func (s *Store) ReadSnapshot(ctx context.Context, id int64) (*ir.Snapshot, error) {
	var (
		snap   ir.Snapshot
		seed   int64
		digest string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, model_hash, seed, time, event_count, depth, volume, digest
		FROM snapshots
		WHERE id = ?
	`, id).Scan(&snap.RunID, &snap.ModelHash, &seed, &snap.Time, &snap.EventCount,
		&snap.Depth, &snap.Volume, &digest)
	if err != nil {
		return nil, err
	}
	snap.Seed = seedFromSQL(seed)

	if snap.Species, err = s.readSnapshotSpecies(ctx, id); err != nil {
		return nil, err
	}
	if snap.Reactions, err = s.readSnapshotReactions(ctx, id); err != nil {
		return nil, err
	}

	got, err := ir.SnapshotDigest(&snap)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %d: %w", id, err)
	}
	if got != digest {
		return nil, fmt.Errorf("read snapshot %d: %w: stored %s, computed %s", id, ErrDigestMismatch, digest, got)
	}
	return &snap, nil
}

func (s *Store) readSnapshotSpecies(ctx context.Context, id int64) ([]ir.SpeciesState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, name, complex, population
		FROM snapshot_species
		WHERE snapshot_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query snapshot species: %w", err)
	}
	defer rows.Close()

	species := []ir.SpeciesState{}
	for rows.Next() {
		var (
			st          ir.SpeciesState
			complexJSON string
		)
		if err := rows.Scan(&st.Tag, &st.Name, &complexJSON, &st.Population); err != nil {
			return nil, fmt.Errorf("scan snapshot species: %w", err)
		}
		if st.Complex, err = unmarshalComplex(complexJSON); err != nil {
			return nil, err
		}
		species = append(species, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot species: %w", err)
	}
	return species, nil
}

func (s *Store) readSnapshotReactions(ctx context.Context, id int64) ([]ir.ReactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, generator, reactants, products, rate
		FROM snapshot_reactions
		WHERE snapshot_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query snapshot reactions: %w", err)
	}
	defer rows.Close()

	reactions := []ir.ReactionRecord{}
	for rows.Next() {
		var (
			rec                 ir.ReactionRecord
			reactants, products string
		)
		if err := rows.Scan(&rec.Tag, &rec.Generator, &reactants, &products, &rec.Rate); err != nil {
			return nil, fmt.Errorf("scan snapshot reaction: %w", err)
		}
		if rec.Reactants, err = unmarshalStoich(reactants); err != nil {
			return nil, err
		}
		if rec.Products, err = unmarshalStoich(products); err != nil {
			return nil, err
		}
		reactions = append(reactions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot reactions: %w", err)
	}
	return reactions, nil
}
