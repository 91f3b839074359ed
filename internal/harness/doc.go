// Package harness runs simulation scenarios as executable tests.
//
// A scenario names a model, overrides some of its run settings and asserts
// on the network and populations the run ends with.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: dimer_equilibrium
//	description: "A and B bind and unbind"
//	model: models/dimer.cue
//	seed: 7
//	stop_time: 50
//	depth: 2
//	assertions:
//	  - type: reaction_count
//	    count: 2
//	  - type: reaction_exists
//	    reactants: [A, B]
//	    products: [AB]
//	  - type: population
//	    species: AB
//	    min: 0
//	    max: 5
//
// The model path is relative to the scenario file. Unknown fields are
// rejected.
//
// # Assertion Types
//
//   - reaction_count: number of reactions, optionally of one generator
//   - reaction_exists: a reaction with these reactants and products
//   - species_count: number of species
//   - species_exists: a species with this name
//   - population: final population within [min, max]
//   - stop_reason: why the run stopped
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run ID, the scenario's seed and a fresh
// in-memory SQLite store. Assertions are evaluated against the final
// snapshot as read back from that store. Two runs of one scenario produce
// byte-identical golden records (see AssertDeterministic).
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/dimer.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
