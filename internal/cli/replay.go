package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/plexsim/internal/config"
	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/sim"
	"github.com/roach88/plexsim/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	RunOptions
	RunID string // optional - replay a stored run instead of a fresh pair
}

// ReplayPass is one simulation of a replay.
type ReplayPass struct {
	RunID            string  `json:"run_id"`
	Reason           string  `json:"reason"`
	Time             float64 `json:"time"`
	Events           int64   `json:"events"`
	TrajectoryDigest string  `json:"trajectory_digest,omitempty"`
	StateDigest      string  `json:"state_digest"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Model         string       `json:"model"`
	Seed          uint64       `json:"seed"`
	Passes        []ReplayPass `json:"passes"`
	Deterministic bool         `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RunOptions: RunOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "replay <model>",
		Short: "Re-simulate and verify determinism",
		Long: `Simulate a model twice with the same seed and verify that both runs
produce the same sampled trajectory and the same final state.

With --db and --run, re-simulate a stored run with its recorded seed,
depth, volume, method and stop time, and verify that the final state
matches the run's last stored snapshot.

Exit codes:
  0 - Replay is deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (model or database not found, etc.)

Examples:
  plexsim replay --seed 7 --stop 50 --interval 1 ./models/dimer.cue
  plexsim replay --db ./runs.db --run 0190c2d4-... ./models/dimer.cue
  plexsim replay --format json ./models/dimer.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&opts.Depth, "depth", engine.DefaultDepth, "expansion depth")
	cmd.Flags().Float64Var(&opts.Volume, "volume", engine.DefaultVolume, "reaction volume in liters")
	addSimulationFlags(cmd, &opts.RunOptions)
	cmd.Flags().StringVar(&opts.RunID, "run", "", "stored run to replay (requires --db)")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, loadErr := loadModel(path)
	if loadErr != nil {
		if loadErr.Code == ErrCodeValidation {
			return outputValidationErrors(formatter, loadErr.Validation)
		}
		return outputValidateError(formatter, loadErr)
	}

	cfg, err := loadRunConfig(opts.RootOptions, &m.Spec.Run, cmd.Flags())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid run configuration", err)
	}
	logger, err := newLogger(opts.RootOptions, cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid log level", err)
	}

	ctx := cmd.Context()
	var result ReplayResult
	if opts.RunID != "" {
		if cfg.Database == "" {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "--run requires --db", nil)
		}
		result, err = replayStoredRun(ctx, m, cfg, opts.RunID, logger)
	} else {
		result, err = replayTwice(ctx, m, cfg, logger)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSimulation, "replay failed", err)
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayTwice runs the model twice in memory and compares both digests.
func replayTwice(ctx context.Context, m *sim.Model, cfg *config.RunConfig, logger *slog.Logger) (ReplayResult, error) {
	result := ReplayResult{Model: m.Spec.Name, Seed: cfg.Seed}
	for range 2 {
		pass, err := replayPass(ctx, m, cfg, nil, logger)
		if err != nil {
			return result, err
		}
		result.Passes = append(result.Passes, pass)
	}
	a, b := result.Passes[0], result.Passes[1]
	result.Deterministic = a.TrajectoryDigest == b.TrajectoryDigest && a.StateDigest == b.StateDigest
	return result, nil
}

// replayStoredRun re-simulates a stored run and compares its final state
// with the run's last snapshot.
func replayStoredRun(ctx context.Context, m *sim.Model, cfg *config.RunConfig, runID string, logger *slog.Logger) (ReplayResult, error) {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer closeStore(st, logger)

	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("failed to read run %s: %w", runID, err)
	}
	if run.ModelHash != m.Hash {
		return ReplayResult{}, fmt.Errorf("run %s: %w", runID, engine.ErrSnapshotMismatch)
	}
	if !run.Finished() {
		return ReplayResult{}, fmt.Errorf("run %s has not finished", runID)
	}

	var from *ir.Snapshot
	if run.ParentID != "" {
		// A resumed run starts from its parent's final snapshot.
		parentSnap, err := st.LatestSnapshot(ctx, run.ParentID)
		if err != nil {
			return ReplayResult{}, fmt.Errorf("failed to find snapshot of parent run %s: %w", run.ParentID, err)
		}
		if from, err = st.ReadSnapshot(ctx, parentSnap); err != nil {
			return ReplayResult{}, fmt.Errorf("failed to read snapshot %d: %w", parentSnap, err)
		}
	}

	snapID, err := st.LatestSnapshot(ctx, runID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("failed to find snapshot of run %s: %w", runID, err)
	}
	stored, err := st.ReadSnapshot(ctx, snapID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("failed to read snapshot %d: %w", snapID, err)
	}
	storedDigest, err := ir.StateDigest(stored)
	if err != nil {
		return ReplayResult{}, err
	}

	rcfg := *cfg
	rcfg.Seed, rcfg.Depth, rcfg.Volume, rcfg.Method = run.Seed, run.Depth, run.Volume, run.Method
	rcfg.StopTime = run.StopTime
	rcfg.MaxEvents = 0
	switch engine.StopReason(run.StopReason) {
	case engine.StopMaxEvents, engine.StopCanceled:
		rcfg.MaxEvents = run.EventCount
	}

	pass, err := replayPass(ctx, m, &rcfg, from, logger)
	if err != nil {
		return ReplayResult{}, err
	}
	return ReplayResult{
		Model: m.Spec.Name,
		Seed:  run.Seed,
		Passes: []ReplayPass{
			{
				RunID:       run.ID,
				Reason:      run.StopReason,
				Time:        run.SimTime,
				Events:      run.EventCount,
				StateDigest: storedDigest,
			},
			pass,
		},
		Deterministic: pass.StateDigest == storedDigest,
	}, nil
}

// replayPass simulates once without a store, recording samples in memory.
func replayPass(ctx context.Context, m *sim.Model, cfg *config.RunConfig, from *ir.Snapshot, logger *slog.Logger) (ReplayPass, error) {
	rec := &engine.MemoryRecorder{}
	opts := sim.Options{Config: cfg, Recorder: rec, Logger: logger}

	var r *sim.Run
	var err error
	if from != nil {
		r, err = sim.Resume(ctx, m, from, opts)
	} else {
		r, err = sim.Start(ctx, m, opts)
	}
	if err != nil {
		return ReplayPass{}, err
	}
	out, err := r.Execute(ctx)
	if err != nil {
		return ReplayPass{}, err
	}

	pass := ReplayPass{
		RunID:  r.ID,
		Reason: string(out.Reason),
		Time:   out.Time,
		Events: out.Events,
	}
	if pass.TrajectoryDigest, err = rec.Digest(); err != nil {
		return ReplayPass{}, err
	}
	if pass.StateDigest, err = ir.StateDigest(out.Snapshot); err != nil {
		return ReplayPass{}, err
	}
	return pass, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Encode(response); err != nil {
		return err
	}

	if !result.Deterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay of %s (seed %d)\n", result.Model, result.Seed)
	fmt.Fprintln(w)

	for i, pass := range result.Passes {
		writeReplayPass(w, i+1, pass, formatter.Verbose)
	}

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}

func writeReplayPass(w io.Writer, n int, pass ReplayPass, verbose bool) {
	fmt.Fprintf(w, "Pass %d: %s\n", n, pass.RunID)
	fmt.Fprintf(w, "  Stopped on %s at t=%g after %d event(s)\n", pass.Reason, pass.Time, pass.Events)
	if verbose {
		if pass.TrajectoryDigest != "" {
			fmt.Fprintf(w, "  Trajectory: %s\n", pass.TrajectoryDigest)
		}
		fmt.Fprintf(w, "  State: %s\n", pass.StateDigest)
	}
	fmt.Fprintln(w)
}
