package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrConflict, "card already registered"))

	got := FromError(wrapped)
	assert.Equal(t, http.StatusConflict, got.Status)
	assert.Equal(t, "card already registered", got.Message)
}

func TestFromErrorHidesUnknownErrors(t *testing.T) {
	got := FromError(errors.New("disk I/O error"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, ErrInternal.Message, got.Message)
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "student not found")
	assert.Equal(t, "student not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := Internal(cause, "failed to list students")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to list students: boom", err.Error())
}

func TestFromErrorMapsDeadlines(t *testing.T) {
	got := FromError(fmt.Errorf("list check-ins: %w", context.DeadlineExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, got.Status)
	assert.Equal(t, ErrTimeout.Code, got.Code)
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("check-in: %w", Clone(ErrNeedsRegistration, ""))
	assert.True(t, HasCode(err, ErrNeedsRegistration.Code))
	assert.False(t, HasCode(err, ErrNotFound.Code))
	assert.False(t, HasCode(errors.New("plain"), ErrNotFound.Code))
}
