// Package sim runs one simulation end to end: a prepared model, its
// network, the engine, and optionally a store and a metrics collector.
//
// The command line and the scenario harness both drive runs through here,
// so a run started from either is recorded the same way:
//
//	m, err := sim.LoadModel("dimer.cue")
//	cfg, err := config.Load(config.Options{Model: &m.Spec.Run})
//	r, err := sim.Start(ctx, m, sim.Options{Config: cfg, Store: st})
//	out, err := r.Execute(ctx)
package sim
