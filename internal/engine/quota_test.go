package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventBudget_WithinLimit tests normal operation within the budget.
func TestEventBudget_WithinLimit(t *testing.T) {
	b := NewEventBudget(10)

	for i := 0; i < 10; i++ {
		assert.NoError(t, b.Check(), "event %d should be allowed", i+1)
	}
	assert.Equal(t, int64(10), b.Current())
	assert.Equal(t, int64(10), b.Max())
}

// TestEventBudget_ExceedsLimit tests the limit error.
func TestEventBudget_ExceedsLimit(t *testing.T) {
	b := NewEventBudget(5)
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Check())
	}

	err := b.Check()
	require.Error(t, err)

	var limitErr *EventLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(5), limitErr.Events)
	assert.Equal(t, int64(5), limitErr.Limit)
	assert.Equal(t, int64(5), b.Current(), "rejected event is not counted")
}

// TestEventBudget_Unlimited tests a zero limit.
func TestEventBudget_Unlimited(t *testing.T) {
	b := NewEventBudget(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, b.Check())
	}
}

// TestEventBudget_ResetFromSnapshot tests restoring a count.
func TestEventBudget_ResetFromSnapshot(t *testing.T) {
	b := NewEventBudget(3)
	b.Reset(3)
	assert.True(t, IsEventLimitError(b.Check()))
}

// TestIsEventLimitError_Wrapped tests detection through wrapping.
func TestIsEventLimitError_Wrapped(t *testing.T) {
	err := fmt.Errorf("run: %w", &EventLimitError{Events: 1, Limit: 1})
	assert.True(t, IsEventLimitError(err))
	assert.False(t, IsEventLimitError(fmt.Errorf("other")))
}
