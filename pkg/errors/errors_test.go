package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelChecks(t *testing.T) {
	wrapped := fmt.Errorf("looking up record: %w", ErrNotFound)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsAlreadyExists(wrapped))

	assert.True(t, IsValidation(fmt.Errorf("bad start_time: %w", ErrValidation)))
	assert.True(t, IsAlreadyExists(fmt.Errorf("insert: %w", ErrAlreadyExists)))
}

func TestRemoteErrorRetryable(t *testing.T) {
	transient := NewTransientError(CodeServiceUnavailable, "bot lookup failed", errors.New("503"))
	assert.True(t, transient.IsRetryable())
	assert.True(t, IsRetryable(transient))

	permanent := NewPermanentError(CodeBadRequest, "invalid meeting link", nil)
	assert.False(t, permanent.IsRetryable())
	assert.False(t, IsRetryable(permanent))

	// Unclassified errors default to retryable.
	assert.True(t, IsRetryable(errors.New("who knows")))
}

func TestRemoteNotFound(t *testing.T) {
	nf := NewRemoteNotFoundError("bot nt-123 not found")

	assert.True(t, IsRemoteNotFound(nf))
	assert.False(t, nf.IsRetryable())

	// Wraps the domain sentinel for boundary checks.
	assert.True(t, errors.Is(nf, ErrNotFound))

	wrapped := fmt.Errorf("find: %w", nf)
	assert.True(t, IsRemoteNotFound(wrapped))
}

func TestRemoteErrorMessage(t *testing.T) {
	err := NewTransientError(CodeTimeout, "media fetch timed out", errors.New("context deadline exceeded"))
	assert.Equal(t, "media fetch timed out: context deadline exceeded", err.Error())

	bare := NewPermanentError(CodeBadRequest, "rejected", nil)
	assert.Equal(t, "rejected", bare.Error())
}
