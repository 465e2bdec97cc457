package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{
			name:     "not found",
			err:      NotFound("order", 7),
			sentinel: ErrNotFound,
			contains: "order #7 not found",
		},
		{
			name:     "invalid transition with reason",
			err:      &InvalidTransitionError{Transition: "confirm", Status: "PENDING", Reason: "no items"},
			sentinel: ErrInvalidTransition,
			contains: "cannot confirm order in PENDING status: no items",
		},
		{
			name:     "insufficient stock",
			err:      &InsufficientStockError{ProductID: 3, Requested: 4, Available: 1},
			sentinel: ErrInsufficientStock,
			contains: "requested 4, available 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("operation: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Contains(t, wrapped.Error(), tt.contains)
		})
	}
}

func TestTypedErrorsDoNotCrossMatch(t *testing.T) {
	err := &InsufficientStockError{ProductID: 1, Requested: 2, Available: 0}

	assert.False(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrNotFound))

	var stockErr *InsufficientStockError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &stockErr))
	assert.Equal(t, 2, stockErr.Requested)
}
