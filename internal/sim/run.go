package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/plexsim/internal/config"
	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/metrics"
	"github.com/roach88/plexsim/internal/network"
	"github.com/roach88/plexsim/internal/store"
)

// Options wires a run to its surroundings. Only Config is required.
type Options struct {
	Config *config.RunConfig

	// Store, when set, receives the run record, its samples and a final
	// snapshot.
	Store *store.Store

	// Recorder receives samples in addition to the store.
	Recorder engine.Recorder

	// RunIDs defaults to UUIDv7 run IDs.
	RunIDs engine.RunIDGenerator

	// Metrics enables a Prometheus collector for the run.
	Metrics bool

	Logger *slog.Logger
}

// Run is one prepared simulation.
type Run struct {
	ID      string
	Model   *Model
	Engine  *engine.Engine
	Metrics *metrics.Collector

	cfg     *config.RunConfig
	store   *store.Store
	samples *store.SampleWriter
	logger  *slog.Logger
}

// Outcome is what Execute reports.
type Outcome struct {
	engine.Result
	Snapshot   *ir.Snapshot
	SnapshotID int64 // 0 without a store
	Samples    int64 // samples written to the store
}

// Start loads the model's network and builds a fresh engine for it.
func Start(ctx context.Context, m *Model, opts Options) (*Run, error) {
	return start(ctx, m, nil, opts)
}

// Resume loads the model's network and restores snap into it. The
// snapshot's seed, depth and volume override opts.Config.
func Resume(ctx context.Context, m *Model, snap *ir.Snapshot, opts Options) (*Run, error) {
	return start(ctx, m, snap, opts)
}

func start(ctx context.Context, m *Model, snap *ir.Snapshot, opts Options) (*Run, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("sim: run configuration is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	gen := opts.RunIDs
	if gen == nil {
		gen = engine.UUIDv7Generator{}
	}
	r := &Run{
		ID:     gen.Generate(),
		Model:  m,
		cfg:    opts.Config,
		store:  opts.Store,
		logger: logger,
	}

	netOpts := []network.Option{network.WithLogger(logger)}
	if opts.Metrics {
		r.Metrics = metrics.New(r.ID)
		netOpts = append(netOpts, network.WithObserver(r.Metrics))
	}
	net, err := network.Load(m.Spec, netOpts...)
	if err != nil {
		return nil, fmt.Errorf("sim: load network: %w", err)
	}
	if r.Metrics != nil {
		r.Metrics.Attach(net)
	}

	engOpts := append(opts.Config.EngineOptions(),
		engine.WithLogger(logger),
		engine.WithModelHash(m.Hash),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(r.ID)),
	)
	if r.Metrics != nil {
		engOpts = append(engOpts, engine.WithObserver(r.Metrics))
	}
	var samples engine.Recorder
	if r.store != nil {
		r.samples = r.store.NewSampleWriter(context.WithoutCancel(ctx), r.ID)
		samples = r.samples
	}
	if rec := engine.MultiRecorder(samples, opts.Recorder); rec != nil {
		engOpts = append(engOpts, engine.WithRecorder(rec, opts.Config.SampleInterval))
	}

	if snap != nil {
		r.Engine, err = engine.Resume(net, snap, engOpts...)
	} else {
		r.Engine, err = engine.New(net, engOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("sim: create engine: %w", err)
	}
	return r, nil
}

// Execute simulates until the configured stop time and persists the run
// when a store is attached. The final state is persisted even when ctx is
// canceled mid-run.
func (r *Run) Execute(ctx context.Context) (*Outcome, error) {
	if r.store != nil {
		err := r.store.WriteRun(ctx, store.Run{
			ID:        r.ID,
			ParentID:  r.Engine.ParentRunID(),
			ModelName: r.Model.Spec.Name,
			ModelHash: r.Model.Hash,
			Seed:      r.Engine.Seed(),
			Depth:     r.Engine.Depth(),
			Volume:    r.Engine.Volume(),
			Method:    r.Engine.Method(),
			StopTime:  r.cfg.StopTime,
		})
		if err != nil {
			return nil, fmt.Errorf("sim: write run: %w", err)
		}
	}

	res, runErr := r.Engine.Run(ctx, r.cfg.StopTime)
	out := &Outcome{Result: res, Snapshot: r.Engine.Snapshot()}
	if runErr != nil && res.Reason != engine.StopCanceled {
		return out, fmt.Errorf("sim: run %s: %w", r.ID, runErr)
	}

	if r.store != nil {
		persist := context.WithoutCancel(ctx)
		id, _, err := r.store.WriteSnapshot(persist, out.Snapshot)
		if err != nil {
			return out, fmt.Errorf("sim: write snapshot: %w", err)
		}
		out.SnapshotID = id
		if err := r.store.FinishRun(persist, r.ID, string(res.Reason), res.Time, res.Events); err != nil {
			return out, fmt.Errorf("sim: finish run: %w", err)
		}
		out.Samples = r.samples.Written()
	}

	r.logger.Info("run finished",
		"run_id", r.ID,
		"reason", string(res.Reason),
		"sim_time", res.Time,
		"events", res.Events,
		"snapshot_id", out.SnapshotID)
	return out, runErr
}
