package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/roach88/plexsim/internal/ir"
)

// Run is the stored record of one simulation.
type Run struct {
	ID            string
	ParentID      string // Run this one resumed from, or ""
	Seq           int64  // Logical creation order, assigned by the store
	ModelName     string
	ModelHash     string
	Seed          uint64
	Depth         int
	Volume        float64
	Method        string
	StopTime      float64 // +Inf when the run stops only on exhaustion
	StopReason    string  // Empty while the run is in progress
	SimTime       float64
	EventCount    int64
	EngineVersion string
	IRVersion     string
}

// Finished reports whether the run recorded a stop reason.
func (r Run) Finished() bool { return r.StopReason != "" }

// WriteRun inserts a run record and assigns its seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - rewriting a run is
// silently ignored. EngineVersion and IRVersion default to the current
// versions.
//
// Note: The parent run, when set, must exist (foreign key constraint).
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.EngineVersion == "" {
		run.EngineVersion = ir.EngineVersion
	}
	if run.IRVersion == "" {
		run.IRVersion = ir.SchemaVersion
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, parent_run_id, seq, model_name, model_hash, seed, depth, volume, method,
		 stop_time, engine_version, ir_version)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		nullString(run.ParentID),
		run.ModelName,
		run.ModelHash,
		seedToSQL(run.Seed),
		run.Depth,
		run.Volume,
		run.Method,
		stopTimeToSQL(run.StopTime),
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun records how and where a run stopped.
// Returns an error wrapping sql.ErrNoRows if the run does not exist.
func (s *Store) FinishRun(ctx context.Context, id, reason string, simTime float64, events int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET stop_reason = ?, sim_time = ?, event_count = ?
		WHERE id = ?
	`, reason, simTime, events, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// SampleWriter appends trajectory samples of one run. It implements the
// engine's Recorder interface.
type SampleWriter struct {
	ctx   context.Context
	store *Store
	runID string
	seq   int64
}

// NewSampleWriter returns a writer for runID. ctx bounds every write.
func (s *Store) NewSampleWriter(ctx context.Context, runID string) *SampleWriter {
	return &SampleWriter{ctx: ctx, store: s, runID: runID}
}

// Record inserts one sample. Samples are numbered in the order recorded.
func (w *SampleWriter) Record(sample ir.Sample) error {
	pops, err := marshalPopulations(sample.Populations)
	if err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	w.seq++
	_, err = w.store.db.ExecContext(w.ctx, `
		INSERT INTO samples (run_id, seq, time, event_count, populations)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, w.runID, w.seq, sample.Time, sample.EventCount, pops)
	if err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}

// Written returns the number of samples recorded so far.
func (w *SampleWriter) Written() int64 { return w.seq }

// WriteSnapshot stores a snapshot with its species and reactions in one
// transaction. Returns the snapshot ID and whether a new record was
// inserted.
//
// A snapshot is unique per (run_id, event_count): writing the same point
// twice returns the existing ID and inserted=false.
//
// Note: The run referenced by snap.RunID must exist (foreign key constraint).
func (s *Store) WriteSnapshot(ctx context.Context, snap *ir.Snapshot) (id int64, inserted bool, err error) {
	digest, err := ir.SnapshotDigest(snap)
	if err != nil {
		return 0, false, fmt.Errorf("write snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(run_id, model_hash, seed, time, event_count, depth, volume, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, event_count) DO NOTHING
	`,
		snap.RunID,
		snap.ModelHash,
		seedToSQL(snap.Seed),
		snap.Time,
		snap.EventCount,
		snap.Depth,
		snap.Volume,
		digest,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write snapshot: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write snapshot: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM snapshots WHERE run_id = ? AND event_count = ?
		`, snap.RunID, snap.EventCount).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("write snapshot: select existing: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("write snapshot: commit (existing): %w", err)
		}
		return id, false, nil
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("write snapshot: last insert id: %w", err)
	}

	for i, sp := range snap.Species {
		complexJSON, err := marshalComplex(sp.Complex)
		if err != nil {
			return 0, false, fmt.Errorf("write snapshot: species %s: %w", sp.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshot_species (snapshot_id, seq, tag, name, complex, population)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, i, sp.Tag, sp.Name, complexJSON, sp.Population)
		if err != nil {
			return 0, false, fmt.Errorf("write snapshot: species %s: %w", sp.Name, err)
		}
	}

	for i, rx := range snap.Reactions {
		reactants, err := marshalStoich(rx.Reactants)
		if err != nil {
			return 0, false, fmt.Errorf("write snapshot: reaction %s: %w", rx.Tag, err)
		}
		products, err := marshalStoich(rx.Products)
		if err != nil {
			return 0, false, fmt.Errorf("write snapshot: reaction %s: %w", rx.Tag, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshot_reactions (snapshot_id, seq, tag, generator, reactants, products, rate)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, i, rx.Tag, rx.Generator, reactants, products, rx.Rate)
		if err != nil {
			return 0, false, fmt.Errorf("write snapshot: reaction %s: %w", rx.Tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write snapshot: commit: %w", err)
	}
	return id, true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// stopTimeToSQL stores an infinite stop time as NULL.
func stopTimeToSQL(t float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: t, Valid: !math.IsInf(t, 0) && !math.IsNaN(t)}
}

func stopTimeFromSQL(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.Inf(1)
	}
	return v.Float64
}
