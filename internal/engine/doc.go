// Package engine implements the event-driven stochastic simulator.
//
// The engine schedules the reactions of a network.Network and fires them
// one at a time in simulated-time order. Firing a reaction changes species
// populations, which can populate new species, which the network expands
// into new reactions, which the engine schedules at once.
//
// ARCHITECTURE:
//
// Single-Threaded Event Loop:
// Run pops the earliest pending firing, advances the clock to it and
// applies the reaction. There is no concurrency: one goroutine owns the
// network, the scheduler and the random source.
//
// Event Processing Flow:
//  1. next() peeks the earliest firing (queue) or draws one (direct)
//  2. happen() consumes it and applies every population delta
//  3. The network collects the reactions sensitive to those species
//  4. respond() recomputes each collected propensity and reschedules it
//     when it left the tolerance band
//
// Two schedulers implement the same internal interface: an indexed binary
// heap of per-reaction firing times (ir.MethodQueue, the default) and a
// flat direct-method list with a running propensity total (ir.MethodDirect).
//
// CRITICAL PATTERNS:
//
// Deterministic Randomness:
// Every draw comes from one math/rand/v2 PCG seeded from the run seed.
// Equal fire times are ordered by the clock's scheduling sequence. Same
// model plus same seed gives the same trajectory.
//
// Deferred Response:
// Reactions created while an event is being applied are not responded to
// until every delta of the event is in, so no reaction is ever scheduled
// from a half-applied state.
package engine
