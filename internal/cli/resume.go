package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/store"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	RunOptions
	SnapshotID int64
	FromRun    string
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{RunOptions: RunOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "resume <model>",
		Short: "Continue a simulation from a stored snapshot",
		Long: `Continue a simulation from a snapshot stored by run or resume.

The snapshot's seed, depth and volume are kept; --stop is the absolute
simulated time to continue to and must not be earlier than the
snapshot's time. The model must be the one the snapshot was taken
from. The new run records the snapshot's run as its parent.

Without --snapshot the latest snapshot (of --from-run, or of any run)
is used. Resuming one snapshot twice yields the same trajectory.

Example:
  plexsim resume --db ./runs.db --stop 200 ./models/dimer.cue
  plexsim resume --db ./runs.db --snapshot 3 --stop 200 ./models/dimer.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, args[0], cmd)
		},
	}

	addSimulationFlags(cmd, &opts.RunOptions)
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.SnapshotID, "snapshot", 0, "snapshot ID to resume from (default latest)")
	cmd.Flags().StringVar(&opts.FromRun, "from-run", "", "resume the latest snapshot of this run")

	return cmd
}

func runResume(opts *ResumeOptions, path string, cmd *cobra.Command) error {
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

	st, err := store.Open(cfg.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	id := opts.SnapshotID
	if id == 0 {
		id, err = st.LatestSnapshot(ctx, opts.FromRun)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, "no snapshot to resume from", nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to find latest snapshot", err)
		}
	}

	snap, err := st.ReadSnapshot(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("snapshot %d not found", id), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to read snapshot %d", id), err)
	}
	if snap.ModelHash != m.Hash {
		return formatter.Fail(ExitCommandError, ErrCodeSimulation,
			fmt.Sprintf("snapshot %d was taken from another model", id), engine.ErrSnapshotMismatch)
	}
	formatter.VerboseLog("Resuming run %s from snapshot %d at t=%g", snap.RunID, id, snap.Time)

	return executeSimulation(cmd, formatter, &opts.RunOptions, m, cfg, st, snap)
}
