package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/plexsim/internal/ir"
)

// marshalComplex converts a species structure to canonical JSON TEXT.
func marshalComplex(c ir.ComplexSpec) (string, error) {
	data, err := ir.MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("marshal complex: %w", err)
	}
	return string(data), nil
}

// marshalStoich converts reactant or product terms to canonical JSON TEXT.
// An empty side is stored as "[]".
func marshalStoich(terms []ir.StoichSpec) (string, error) {
	if terms == nil {
		terms = []ir.StoichSpec{}
	}
	data, err := ir.MarshalCanonical(terms)
	if err != nil {
		return "", fmt.Errorf("marshal stoichiometry: %w", err)
	}
	return string(data), nil
}

// marshalPopulations converts a sample's populations to canonical JSON TEXT.
func marshalPopulations(pops []ir.PopulationEntry) (string, error) {
	if pops == nil {
		pops = []ir.PopulationEntry{}
	}
	data, err := ir.MarshalCanonical(pops)
	if err != nil {
		return "", fmt.Errorf("marshal populations: %w", err)
	}
	return string(data), nil
}

func unmarshalComplex(data string) (ir.ComplexSpec, error) {
	var c ir.ComplexSpec
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return ir.ComplexSpec{}, fmt.Errorf("unmarshal complex: %w", err)
	}
	return c, nil
}

// unmarshalStoich parses stoichiometry TEXT. "[]" becomes nil so a
// round-tripped record compares equal to one built with an omitted side.
func unmarshalStoich(data string) ([]ir.StoichSpec, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var terms []ir.StoichSpec
	if err := json.Unmarshal([]byte(data), &terms); err != nil {
		return nil, fmt.Errorf("unmarshal stoichiometry: %w", err)
	}
	return terms, nil
}

func unmarshalPopulations(data string) ([]ir.PopulationEntry, error) {
	pops := []ir.PopulationEntry{}
	if data == "" || data == "[]" {
		return pops, nil
	}
	if err := json.Unmarshal([]byte(data), &pops); err != nil {
		return nil, fmt.Errorf("unmarshal populations: %w", err)
	}
	return pops, nil
}

// seedToSQL stores a uint64 seed in SQLite's signed INTEGER by bit pattern.
func seedToSQL(seed uint64) int64 { return int64(seed) }

func seedFromSQL(v int64) uint64 { return uint64(v) }
