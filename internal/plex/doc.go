// Package plex models complexes as graphs and recognizes them up to
// relabeling.
//
// A Plex is an ordered list of mol instances plus the bindings between
// their sites. Two plexes that differ only in the order of their mols (or
// the orientation of their bindings) describe the same complex; the
// Classifier collapses them onto one paradigm and returns the Iso that maps
// the input's mol indices onto the paradigm's.
//
// The Catalog is the model context: the registry of mol types,
// modifications and interned per-instance mol states. It is created once
// per model and never mutated after load, except for state interning,
// which is append-only.
//
// Recognition pipeline:
//
//  1. Fingerprint: mol-type multiset, degree sequence and binding site-pair
//     multiset hashed into a bucket key
//  2. Bucket scan: explicit isomorphism search against each paradigm in
//     the bucket, binding by binding with forward and backward maps
//  3. First match wins; no match registers the input as a new paradigm
//     with the identity Iso
//
// Input plexes must be connected and well formed; violations are caller
// defects and panic.
package plex
