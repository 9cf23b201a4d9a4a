package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidation("page", "must be at least 1")
	assert.Equal(t, "page: must be at least 1", err.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsInfrastructure(err))

	bare := NewValidation("", "regions must be space-separated lowercase tokens")
	assert.Equal(t, "regions must be space-separated lowercase tokens", bare.Error())
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFound("commute", "property 9 has no commute row for school UNSW")
	assert.Equal(t, "commute not found: property 9 has no commute row for school UNSW", err.Error())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
}

func TestInfrastructureError_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInfrastructure("query properties", cause)

	assert.Equal(t, "query properties: connection refused", err.Error())
	assert.True(t, IsInfrastructure(err))
	assert.ErrorIs(t, err, cause)
}

func TestClassifiers_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("search: %w", NewValidation("page_size", "must be at most 100"))
	assert.True(t, IsValidation(wrapped))

	assert.False(t, IsValidation(nil))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsInfrastructure(nil))
	assert.False(t, IsValidation(errors.New("plain")))
}
