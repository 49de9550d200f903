package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReservationExpiredIsInvalidState(t *testing.T) {
	err := fmt.Errorf("confirm r1: %w", ErrReservationExpired)
	assert.True(t, errors.Is(err, ErrInvalidReservationState))
	assert.True(t, errors.Is(err, ErrReservationExpired))
	assert.False(t, errors.Is(ErrInvalidReservationState, ErrReservationExpired))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", ErrTicketNotFound)))
	assert.True(t, IsNotFound(ErrEventNotFound))
	assert.False(t, IsNotFound(ErrSoldOut))
}
