package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/plexsim/internal/config"
	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/sim"
	"github.com/roach88/plexsim/internal/store"
	"github.com/roach88/plexsim/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// fixed run ID so that results are reproducible.
//
// Execution flow:
//  1. Load, compile and validate the model
//  2. Overlay the scenario's run settings on the model's run block
//  3. Simulate, recording samples in memory and in the store
//  4. Read the final snapshot back from the store (verifying its digest)
//  5. Evaluate assertions against that snapshot
//
// A returned error means the scenario could not run; failed assertions
// are reported in the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	m, err := sim.LoadModel(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	run := scenario.runSpec(m.Spec.Run)
	cfg, err := config.Load(config.Options{Model: &run})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve run settings: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	rec := &engine.MemoryRecorder{}
	r, err := sim.Start(ctx, m, sim.Options{
		Config:   cfg,
		Store:    st,
		Recorder: rec,
		RunIDs:   testutil.NewFixedRunID(scenario.RunID),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	out, err := r.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute run: %w", err)
	}

	snap, err := st.ReadSnapshot(ctx, out.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to read final snapshot: %w", err)
	}

	result := NewResult()
	result.RunID = r.ID
	result.Reason = string(out.Reason)
	result.Time = out.Time
	result.Events = out.Events
	result.Species = len(snap.Species)
	result.Reactions = len(snap.Reactions)
	result.Snapshot = snap
	result.Samples = rec.Samples
	if result.TrajectoryDigest, err = rec.Digest(); err != nil {
		return nil, err
	}
	if result.StateDigest, err = ir.StateDigest(snap); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// CheckDeterminism runs the scenario twice and reports whether both runs
// agree on trajectory and final state.
func CheckDeterminism(ctx context.Context, scenario *Scenario) (first *Result, err error) {
	first, err = Run(ctx, scenario)
	if err != nil {
		return nil, err
	}
	second, err := Run(ctx, scenario)
	if err != nil {
		return nil, err
	}
	if first.TrajectoryDigest != second.TrajectoryDigest {
		first.AddError(fmt.Sprintf("non-deterministic trajectory: %s != %s", first.TrajectoryDigest, second.TrajectoryDigest))
	}
	if first.StateDigest != second.StateDigest {
		first.AddError(fmt.Sprintf("non-deterministic final state: %s != %s", first.StateDigest, second.StateDigest))
	}
	return first, nil
}
