package store

import (
	"math"
	"testing"

	"github.com/roach88/plexsim/internal/ir"
)

func TestMarshalStoich_Empty(t *testing.T) {
	got, err := marshalStoich(nil)
	if err != nil {
		t.Fatalf("marshalStoich(nil) failed: %v", err)
	}
	if got != "[]" {
		t.Errorf("marshalStoich(nil) = %q, want []", got)
	}

	terms, err := unmarshalStoich(got)
	if err != nil || terms != nil {
		t.Errorf("unmarshalStoich([]) = %#v, %v; want nil", terms, err)
	}
}

func TestMarshalComplex_Canonical(t *testing.T) {
	c := ir.ComplexSpec{Mols: []ir.MolInstanceSpec{{Mol: "S", Mods: []ir.ModAssignment{{Site: "y", Mod: "phos"}}}}}
	got, err := marshalComplex(c)
	if err != nil {
		t.Fatalf("marshalComplex() failed: %v", err)
	}
	want := `{"mols":[{"mods":[{"mod":"phos","site":"y"}],"mol":"S"}]}`
	if got != want {
		t.Errorf("marshalComplex() = %s, want %s", got, want)
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	if _, err := unmarshalComplex("{"); err == nil {
		t.Error("unmarshalComplex accepted malformed JSON")
	}
	if _, err := unmarshalStoich("{"); err == nil {
		t.Error("unmarshalStoich accepted malformed JSON")
	}
	if _, err := unmarshalPopulations("{"); err == nil {
		t.Error("unmarshalPopulations accepted malformed JSON")
	}
}

func TestSeedBitPattern(t *testing.T) {
	for _, seed := range []uint64{0, 1, math.MaxInt64, math.MaxInt64 + 1, math.MaxUint64} {
		if got := seedFromSQL(seedToSQL(seed)); got != seed {
			t.Errorf("seed %d round-trips to %d", seed, got)
		}
	}
}
