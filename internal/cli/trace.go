package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/runquery"
	"github.com/roach88/plexsim/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Species  []string // optional - restrict sample columns
	Filter   runquery.Filter
}

// TraceRun is one run in a lineage.
type TraceRun struct {
	ID         string          `json:"id"`
	ParentID   string          `json:"parent_id,omitempty"`
	Model      string          `json:"model"`
	Seed       uint64          `json:"seed"`
	Depth      int             `json:"depth"`
	Method     string          `json:"method"`
	StopTime   *float64        `json:"stop_time,omitempty"` // nil when unbounded
	StopReason string          `json:"stop_reason,omitempty"`
	SimTime    float64         `json:"sim_time"`
	Events     int64           `json:"events"`
	Snapshots  []TraceSnapshot `json:"snapshots"`
}

// TraceSnapshot is a stored snapshot of a run.
type TraceSnapshot struct {
	ID     int64   `json:"id"`
	Time   float64 `json:"time"`
	Events int64   `json:"events"`
	Digest string  `json:"digest"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID    string      `json:"run_id"`
	Lineage  []TraceRun  `json:"lineage"`
	Timeline []ir.Sample `json:"timeline"`
}

// RunListing is the output of trace without a run ID.
type RunListing struct {
	Runs []TraceRun `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show stored runs, their lineage and trajectories",
		Long: `Query the runs stored in a database.

Without a run ID, lists the stored runs in creation order, optionally
filtered by model, stop reason or unfinished status. With a run ID,
shows:
- Lineage: the chain of runs it was resumed from, oldest first, with
  their snapshots
- Timeline: the population samples the run recorded

Examples:
  plexsim trace --db ./runs.db
  plexsim trace --db ./runs.db --model dimer --unfinished
  plexsim trace --db ./runs.db 0190c2d4-...
  plexsim trace --db ./runs.db 0190c2d4-... --species A --species AB
  plexsim trace --db ./runs.db 0190c2d4-... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringSliceVar(&opts.Species, "species", nil, "show only these species in the timeline")
	cmd.Flags().StringVar(&opts.Filter.Model, "model", "", "list only runs of this model")
	cmd.Flags().StringVar(&opts.Filter.StopReason, "reason", "", "list only runs that stopped for this reason")
	cmd.Flags().BoolVar(&opts.Filter.Unfinished, "unfinished", false, "list only runs that never finished")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	if runID == "" {
		runs, err := st.QueryRuns(ctx, opts.Filter.Predicate())
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list runs", err)
		}
		listing := RunListing{Runs: make([]TraceRun, 0, len(runs))}
		for _, run := range runs {
			listing.Runs = append(listing.Runs, traceRun(run))
		}
		if formatter.JSON() {
			return formatter.Success(listing)
		}
		return outputRunListing(formatter.Writer, listing)
	}

	lineage, err := st.RunLineage(ctx, runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %s not found", runID), err)
	}

	result := TraceResult{RunID: runID, Lineage: make([]TraceRun, 0, len(lineage))}
	for _, run := range lineage {
		tr := traceRun(run)
		if tr.Snapshots, err = traceSnapshots(ctx, st, run.ID); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list snapshots", err)
		}
		result.Lineage = append(result.Lineage, tr)
	}

	samples, err := st.ReadSamples(ctx, runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read samples", err)
	}
	result.Timeline = filterSamples(samples, opts.Species)

	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, RunID: runID})
	}
	return outputTraceText(formatter.Writer, result, formatter.Verbose)
}

func traceRun(run store.Run) TraceRun {
	return TraceRun{
		ID:         run.ID,
		ParentID:   run.ParentID,
		Model:      run.ModelName,
		Seed:       run.Seed,
		Depth:      run.Depth,
		Method:     run.Method,
		StopTime:   finite(run.StopTime),
		StopReason: run.StopReason,
		SimTime:    run.SimTime,
		Events:     run.EventCount,
		Snapshots:  []TraceSnapshot{},
	}
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func traceSnapshots(ctx context.Context, st *store.Store, runID string) ([]TraceSnapshot, error) {
	infos, err := st.ListSnapshots(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]TraceSnapshot, len(infos))
	for i, info := range infos {
		out[i] = TraceSnapshot{ID: info.ID, Time: info.Time, Events: info.EventCount, Digest: info.Digest}
	}
	return out, nil
}

// filterSamples keeps only the named species in every sample. No names
// keeps everything.
func filterSamples(samples []ir.Sample, species []string) []ir.Sample {
	if samples == nil {
		samples = []ir.Sample{}
	}
	if len(species) == 0 {
		return samples
	}
	out := make([]ir.Sample, len(samples))
	for i, s := range samples {
		out[i] = ir.Sample{Time: s.Time, EventCount: s.EventCount, Populations: []ir.PopulationEntry{}}
		for _, p := range s.Populations {
			if slices.Contains(species, p.Species) {
				out[i].Populations = append(out[i].Populations, p)
			}
		}
	}
	return out
}

// outputRunListing outputs every stored run as text.
func outputRunListing(w io.Writer, listing RunListing) error {
	if len(listing.Runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(w, "Runs: %d\n\n", len(listing.Runs))
	for _, run := range listing.Runs {
		fmt.Fprintf(w, "  %s  %s  seed=%d  %s\n", run.ID, run.Model, run.Seed, runStatus(run))
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintln(w)

	// Lineage section
	fmt.Fprintln(w, "=== Lineage ===")
	for i, run := range result.Lineage {
		fmt.Fprintf(w, "  [%d] %s  %s\n", i, truncateID(run.ID), runStatus(run))
		if verbose {
			fmt.Fprintf(w, "       Model: %s  Seed: %d  Depth: %d  Method: %s\n", run.Model, run.Seed, run.Depth, run.Method)
		}
		for _, snap := range run.Snapshots {
			fmt.Fprintf(w, "       snapshot %d at t=%g (%d events)", snap.ID, snap.Time, snap.Events)
			if verbose {
				fmt.Fprintf(w, " %s", truncateID(snap.Digest))
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no samples)")
	} else {
		for _, s := range result.Timeline {
			fmt.Fprintf(w, "  t=%-10g events=%-8d %s\n", s.Time, s.EventCount, formatPopulations(s.Populations))
		}
	}

	return nil
}

// formatPopulations formats sample populations in sample order, which is
// species creation order.
func formatPopulations(pops []ir.PopulationEntry) string {
	if len(pops) == 0 {
		return "{}"
	}
	parts := make([]string, len(pops))
	for i, p := range pops {
		parts[i] = fmt.Sprintf("%s=%d", p.Species, p.Population)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// runStatus returns a human-readable run status.
func runStatus(run TraceRun) string {
	if run.StopReason == "" {
		return "unfinished"
	}
	stop := "∞"
	if run.StopTime != nil {
		stop = fmt.Sprintf("%g", *run.StopTime)
	}
	return fmt.Sprintf("%s at t=%g/%s after %d event(s)", run.StopReason, run.SimTime, stop, run.Events)
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
