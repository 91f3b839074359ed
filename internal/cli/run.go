package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/plexsim/internal/config"
	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/sim"
	"github.com/roach88/plexsim/internal/store"
)

// RunOptions holds flags for the run and resume commands. The simulation
// settings are read through the config layer; the fields here exist so the
// flags have typed defaults.
type RunOptions struct {
	*RootOptions
	Seed      uint64
	StopTime  float64
	Depth     int
	Volume    float64
	Interval  float64
	MaxEvents int64
	Method    string
	Database  string
	LogLevel  string
	Metrics   bool

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunResult is the outcome of a run or resume.
type RunResult struct {
	RunID       string             `json:"run_id"`
	ParentRunID string             `json:"parent_run_id,omitempty"`
	Model       string             `json:"model"`
	Reason      string             `json:"reason"`
	Time        float64            `json:"time"`
	Events      int64              `json:"events"`
	Species     []ir.SpeciesState  `json:"species"`
	Reactions   int                `json:"reactions"`
	SnapshotID  int64              `json:"snapshot_id,omitempty"`
	Samples     int64              `json:"samples,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <model>",
		Short: "Simulate a model",
		Long: `Simulate a CUE model until the stop time, an empty schedule, the event
limit or an interrupt.

Settings come from built-in defaults, the --config file, the model's
run block, PLEXSIM_* environment variables and finally the flags given
here, in increasing precedence. With --db the run, its samples and its
final snapshot are stored in SQLite; an interrupted run still stores its
final snapshot so it can be resumed.

Example:
  plexsim run --seed 7 --stop 50 --interval 1 --db ./runs.db ./models/dimer.cue
  plexsim run --metrics --format json ./models/kinase`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&opts.Depth, "depth", engine.DefaultDepth, "expansion depth")
	cmd.Flags().Float64Var(&opts.Volume, "volume", engine.DefaultVolume, "reaction volume in liters")
	addSimulationFlags(cmd, opts)

	return cmd
}

// addSimulationFlags registers the flags run and resume share.
func addSimulationFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().Float64Var(&opts.StopTime, "stop", config.DefaultStopTime, "simulated time to stop at")
	cmd.Flags().Float64Var(&opts.Interval, "interval", 0, "sample interval (0 samples only the final state)")
	cmd.Flags().Int64Var(&opts.MaxEvents, "max-events", 0, "stop after this many events (0 is unlimited)")
	cmd.Flags().StringVar(&opts.Method, "method", ir.MethodQueue, "scheduling method (queue|direct)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "collect and print Prometheus metrics")
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
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

	return executeSimulation(cmd, formatter, opts, m, cfg, nil, nil)
}

// executeSimulation runs m (from snap when resuming) and reports the
// outcome. st, when non-nil, is already open; otherwise cfg.Database is
// opened if set.
func executeSimulation(cmd *cobra.Command, formatter *OutputFormatter, opts *RunOptions, m *sim.Model, cfg *config.RunConfig, st *store.Store, snap *ir.Snapshot) error {
	logger, err := newLogger(opts.RootOptions, cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid log level", err)
	}
	for _, w := range m.Warnings {
		logger.Warn("unbounded growth", "rules", w.Rules, "path", w.Path)
	}

	if st == nil && cfg.Database != "" {
		logger.Info("opening database", "path", cfg.Database)
		st, err = store.Open(cfg.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		defer closeStore(st, logger)
	}

	simOpts := sim.Options{
		Config:  cfg,
		Store:   st,
		RunIDs:  opts.RunIDs,
		Metrics: opts.Metrics,
		Logger:  logger,
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	var r *sim.Run
	if snap != nil {
		r, err = sim.Resume(ctx, m, snap, simOpts)
	} else {
		r, err = sim.Start(ctx, m, simOpts)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSimulation, "failed to start simulation", err)
	}

	logger.Info("simulation starting",
		"run_id", r.ID,
		"model", m.Spec.Name,
		"seed", r.Engine.Seed(),
		"depth", r.Engine.Depth(),
		"stop_time", cfg.StopTime)

	out, err := r.Execute(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return formatter.Fail(ExitFailure, ErrCodeSimulation, "simulation failed", err)
	}

	result := RunResult{
		RunID:       r.ID,
		ParentRunID: r.Engine.ParentRunID(),
		Model:       m.Spec.Name,
		Reason:      string(out.Reason),
		Time:        out.Time,
		Events:      out.Events,
		Species:     out.Snapshot.Species,
		Reactions:   len(out.Snapshot.Reactions),
		SnapshotID:  out.SnapshotID,
		Samples:     out.Samples,
	}
	if r.Metrics != nil {
		if result.Metrics, err = r.Metrics.Totals(); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to gather metrics", err)
		}
	}

	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, RunID: r.ID})
	}
	return outputRunText(formatter, result, r)
}

// outputRunText prints a run summary, final populations and, with
// --metrics, the Prometheus text exposition.
func outputRunText(formatter *OutputFormatter, result RunResult, r *sim.Run) error {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Run %s stopped on %s at t=%g after %d event(s)\n", result.RunID, result.Reason, result.Time, result.Events)
	if result.ParentRunID != "" {
		fmt.Fprintf(w, "  resumed from %s\n", result.ParentRunID)
	}
	fmt.Fprintf(w, "  %d species, %d reaction(s)\n", len(result.Species), result.Reactions)
	if result.SnapshotID != 0 {
		fmt.Fprintf(w, "  snapshot %d, %d sample(s) stored\n", result.SnapshotID, result.Samples)
	}
	fmt.Fprintln(w)

	writeSpecies(w, result.Species)

	if r.Metrics != nil {
		if err := r.Metrics.WriteText(w); err != nil {
			return WrapExitError(ExitFailure, "failed to write metrics", err)
		}
	}
	return nil
}

// signalContext derives a context canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}
