package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/plexsim/internal/network"
)

// InvariantError is the panic value for scheduler bookkeeping corruption.
//
// Invariant errors include:
//   - Queue corruption: the fired reaction is not the queue head
//   - Failed sampling scan: the direct method's cumulative scan did not
//     reach its sampled target
//
// These are defects, not conditions a caller can handle.
type InvariantError struct {
	// Code identifies the error category.
	Code InvariantCode

	// Message is a human-readable description.
	Message string

	// Reaction identifies the affected reaction, when there is one.
	Reaction network.ReactionID
}

// InvariantCode categorizes invariant violations.
type InvariantCode string

const (
	// ErrCodeQueueCorrupt indicates the event queue index is inconsistent.
	ErrCodeQueueCorrupt InvariantCode = "QUEUE_CORRUPT"

	// ErrCodeSampleScan indicates a direct-method scan failed.
	ErrCodeSampleScan InvariantCode = "SAMPLE_SCAN_FAILED"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s (reaction=%d)", e.Code, e.Message, e.Reaction)
}

// IsInvariantError returns true if err is an engine or network invariant
// violation. Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	if errors.As(err, &ie) {
		return true
	}
	return network.IsInvariantError(err)
}

// ConfigError reports invalid engine settings.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsConfigError returns true if err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ErrSnapshotMismatch is returned by Resume when a snapshot was taken from a
// different model.
var ErrSnapshotMismatch = errors.New("snapshot does not match model")
