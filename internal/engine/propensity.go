package engine

import (
	"math"

	"github.com/roach88/plexsim/internal/network"
)

// Avogadro is Avogadro's number, per mole.
const Avogadro = 6.02214076e23

// DefaultVolume makes the volume normalization N_A*V equal to one, so
// binary rates are per molecule pair.
const DefaultVolume = 1 / Avogadro

// Propensity is the instantaneous firing rate of r: the rate times the
// falling-factorial product of reactant populations, divided by
// (N_A*V)^(arity-1). pop returns a species population.
func Propensity(r *network.Reaction, pop func(network.SpeciesID) int64, normalization float64) float64 {
	a := r.Rate
	if a <= 0 {
		return 0
	}
	for _, t := range r.Reactants {
		x := pop(t.Species)
		for k := 0; k < t.Count; k++ {
			if x-int64(k) <= 0 {
				return 0
			}
			a *= float64(x - int64(k))
		}
	}
	if r.Arity > 1 {
		a /= math.Pow(normalization, float64(r.Arity-1))
	}
	return a
}
