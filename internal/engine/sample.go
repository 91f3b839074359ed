package engine

import (
	"github.com/roach88/plexsim/internal/ir"
)

// Recorder receives trajectory samples in time order.
type Recorder interface {
	Record(s ir.Sample) error
}

type multiRecorder []Recorder

func (m multiRecorder) Record(s ir.Sample) error {
	for _, r := range m {
		if err := r.Record(s); err != nil {
			return err
		}
	}
	return nil
}

// MultiRecorder fans every sample out to each non-nil recorder in order and
// stops at the first error. It returns nil when no recorder is given.
func MultiRecorder(recs ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range recs {
		if r != nil {
			out = append(out, r)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// MemoryRecorder keeps samples in memory.
type MemoryRecorder struct {
	Samples []ir.Sample
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(s ir.Sample) error {
	m.Samples = append(m.Samples, s)
	return nil
}

// Digest returns the canonical content hash of the recorded trajectory.
func (m *MemoryRecorder) Digest() (string, error) {
	return ir.TrajectoryDigest(m.Samples)
}

// Last returns the most recent sample.
func (m *MemoryRecorder) Last() (ir.Sample, bool) {
	if len(m.Samples) == 0 {
		return ir.Sample{}, false
	}
	return m.Samples[len(m.Samples)-1], true
}

// Population returns the population of a named species in s, or 0.
func Population(s ir.Sample, species string) int64 {
	for _, p := range s.Populations {
		if p.Species == species {
			return p.Population
		}
	}
	return 0
}
