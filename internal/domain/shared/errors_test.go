package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewDomainError(CodeNotFound, "cash box not found")
	wrapped := fmt.Errorf("loading box: %w", err)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInsufficientFunds))
}

func TestDomainError_Cause(t *testing.T) {
	cause := errors.New("pq: canceling statement due to lock timeout")
	err := WrapDomainError(CodeOperationTimedOut, "lock wait timed out", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrOperationTimedOut)
	assert.Contains(t, err.Error(), "lock timeout")
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(ErrInsufficientFunds))
	assert.False(t, IsRetryable(errors.New("plain")))
}
