package harness

import (
	"github.com/roach88/plexsim/internal/ir"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	RunID     string  `json:"run_id"`
	Reason    string  `json:"reason"`
	Time      float64 `json:"time"`
	Events    int64   `json:"events"`
	Species   int     `json:"species"`
	Reactions int     `json:"reactions"`

	// TrajectoryDigest and StateDigest identify the sampled trajectory and
	// the final state (without run identity). Two runs of one scenario
	// must agree on both.
	TrajectoryDigest string `json:"trajectory_digest"`
	StateDigest      string `json:"state_digest"`

	// Snapshot is the final state as read back from the store.
	Snapshot *ir.Snapshot `json:"-"`

	// Samples is the recorded trajectory.
	Samples []ir.Sample `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
