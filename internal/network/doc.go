// Package network owns the lazily generated reaction network: families,
// species, features, reaction generators and reactions.
//
// ARCHITECTURE:
//
// Arenas:
// Families, species and reactions live in append-only slices and are
// referenced by integer IDs. Nothing is ever removed, so IDs are stable for
// the lifetime of a Network and double as deterministic iteration order.
//
// Recognition:
// Every complex produced by a generator is recognized through the plex
// Classifier. A new structure creates a Family; a new parameter vector
// (per-mol states in paradigm order) creates a Species in that family.
//
// Features and generators:
// A Family attaches once, at creation, to the features its paradigm
// exhibits: free sites, bindings, mols and omniplex occurrences. A new
// species registers one context per accepted attachment. When a species is
// expanded, each context is offered to the generators of its feature, which
// build the product complex, recognize it, create the reaction once per
// (generator, context) key and recurse into the products.
//
// CRITICAL PATTERNS:
//
// Depth bound:
// Expand(species, d) does nothing unless d >= 1 and d exceeds the depth the
// species was already expanded to. Products of a unary reaction are
// expanded with d-1. A binary product gets min(d, e)-1, where e is the depth
// its partner was expanded to, so a shallow partner cannot inherit the
// trigger's larger budget. A species becomes a generation partner only once
// it has been expanded, and no species is ever created more than d
// generation steps away from a species expanded at d.
//
// Population updates:
// UpdatePopulation applies a delta, collects the affected reactions into an
// Accumulator in first-touch order, and expands the species at the run's
// depth once it is populated. A negative population is an invariant
// violation and panics.
package network
