package network

import (
	"errors"
	"fmt"
)

// FamilyID indexes the family arena.
type FamilyID int32

// SpeciesID indexes the species arena.
type SpeciesID int32

// ReactionID indexes the reaction arena.
type ReactionID int32

// GeneratorID indexes the generator registry.
type GeneratorID int32

// NoGenerator marks explicit reactions.
const NoGenerator GeneratorID = -1

// InvariantCode categorizes run-time invariant violations.
type InvariantCode string

const (
	// ErrCodeNegativePopulation indicates a delta drove a population below zero.
	ErrCodeNegativePopulation InvariantCode = "NEGATIVE_POPULATION"
	// ErrCodeUnknownSpecies indicates an ID outside the species arena.
	ErrCodeUnknownSpecies InvariantCode = "UNKNOWN_SPECIES"
)

// InvariantError is the panic value for run-time invariant violations.
// These indicate a defect, never bad input, and are not recovered.
type InvariantError struct {
	Code    InvariantCode
	Message string
	Species SpeciesID
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s (species=%d)", e.Code, e.Message, e.Species)
}

// IsInvariantError returns true if err is an InvariantError.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// Accumulator collects reactions affected by population changes during one
// event. Each reaction appears once, in first-touch order, so that
// responding to the set consumes random numbers in a reproducible order.
type Accumulator struct {
	ids   []ReactionID
	mark  []uint32
	epoch uint32
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{epoch: 1}
}

// Add records id unless it is already present.
func (a *Accumulator) Add(id ReactionID) {
	if int(id) >= len(a.mark) {
		grown := make([]uint32, int(id)+1+len(a.mark))
		copy(grown, a.mark)
		a.mark = grown
	}
	if a.mark[id] == a.epoch {
		return
	}
	a.mark[id] = a.epoch
	a.ids = append(a.ids, id)
}

// Has reports whether id was collected since the last Reset.
func (a *Accumulator) Has(id ReactionID) bool {
	return int(id) < len(a.mark) && a.mark[id] == a.epoch
}

// IDs returns the collected reactions. The slice is reused after Reset.
func (a *Accumulator) IDs() []ReactionID {
	return a.ids
}

// Len returns the number of collected reactions.
func (a *Accumulator) Len() int {
	return len(a.ids)
}

// Reset empties the accumulator in O(1).
func (a *Accumulator) Reset() {
	a.ids = a.ids[:0]
	a.epoch++
	if a.epoch == 0 {
		clear(a.mark)
		a.epoch = 1
	}
}
