package ir

// Snapshot is a complete state dump: enough to resume a run bit-for-bit
// given the same model, and enough for an external reader to list the
// generated network.
type Snapshot struct {
	RunID      string           `json:"run_id"`
	ModelHash  string           `json:"model_hash"`
	Seed       uint64           `json:"seed"`
	Time       float64          `json:"time"`
	EventCount int64            `json:"event_count"`
	Depth      int              `json:"depth"`
	Volume     float64          `json:"volume"`
	Species    []SpeciesState   `json:"species"`
	Reactions  []ReactionRecord `json:"reactions"`
}

// SpeciesState is one species in a snapshot, described structurally in
// paradigm order so it can be re-recognized.
type SpeciesState struct {
	Tag        string      `json:"tag"`
	Name       string      `json:"name"`
	Complex    ComplexSpec `json:"complex"`
	Population int64       `json:"population"`
}

// ReactionRecord is one generated or explicit reaction in a snapshot.
// Generator is the name of the rule that produced it, or "explicit:<name>"
// for declared reactions.
type ReactionRecord struct {
	Tag       string       `json:"tag"`
	Generator string       `json:"generator,omitempty"`
	Reactants []StoichSpec `json:"reactants,omitempty"`
	Products  []StoichSpec `json:"products,omitempty"`
	Rate      float64      `json:"rate"`
}

// Sample is one point of a population trajectory.
type Sample struct {
	Time        float64           `json:"time"`
	EventCount  int64             `json:"event_count"`
	Populations []PopulationEntry `json:"populations"`
}

// PopulationEntry is the population of one species at a sample point.
type PopulationEntry struct {
	Species    string `json:"species"`
	Population int64  `json:"population"`
}
