package engine

import (
	"errors"
	"fmt"
)

// EventBudget caps the number of events one Run may fire.
//
// A run that hits its budget stops cleanly with StopMaxEvents. The budget
// counts events fired by this engine, including those fired before a
// snapshot was taken, so a resumed run honours the same overall cap.
type EventBudget struct {
	max     int64
	current int64
}

// NewEventBudget creates a budget. max <= 0 means unlimited.
func NewEventBudget(max int64) *EventBudget {
	return &EventBudget{max: max}
}

// Check counts one event and reports whether it fits in the budget.
func (b *EventBudget) Check() error {
	if b.max > 0 && b.current >= b.max {
		return &EventLimitError{Events: b.current, Limit: b.max}
	}
	b.current++
	return nil
}

// Reset restores the count, e.g. from a snapshot.
func (b *EventBudget) Reset(current int64) {
	b.current = current
}

// Current returns the number of events counted.
func (b *EventBudget) Current() int64 {
	return b.current
}

// Max returns the limit (0 = unlimited).
func (b *EventBudget) Max() int64 {
	return b.max
}

// EventLimitError reports an exhausted event budget.
type EventLimitError struct {
	Events int64
	Limit  int64
}

// Error implements the error interface.
func (e *EventLimitError) Error() string {
	return fmt.Sprintf("event budget exhausted: %d events >= %d limit", e.Events, e.Limit)
}

// IsEventLimitError returns true if err is an EventLimitError.
// Uses errors.As to handle wrapped errors.
func IsEventLimitError(err error) bool {
	var le *EventLimitError
	return errors.As(err, &le)
}
