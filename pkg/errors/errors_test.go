package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", ErrNotFound)
	got := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, got.Code)
	assert.Equal(t, http.StatusNotFound, got.Status)
}

func TestFromErrorFallsBackToInternal(t *testing.T) {
	cause := errors.New("boom")
	got := FromError(cause)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, FromError(nil))
}

func TestCloneOverridesMessage(t *testing.T) {
	clone := Clone(ErrValidation, "particles must be at least 2")
	assert.Equal(t, "particles must be at least 2", clone.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Equal(t, ErrValidation.Code, clone.Code)
}
