// Package ir provides the data contracts shared by every plexsim layer.
//
// ModelSpec is the compiled form of a model definition (mols, modifications,
// omniplexes, rules, explicit species and reactions, run settings). Snapshot
// and Sample are the state-dump and trajectory records written by the engine
// and persisted by the store.
//
// This package contains type definitions and canonical serialization only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - All JSON tags use snake_case
//   - Structures reference mols, sites and modifications by name, never by
//     catalog ID, so a ModelSpec or Snapshot is stable across processes
//   - Content hashes use canonical JSON with domain separation
package ir
