package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindErrors(t *testing.T) {
	err := NotFoundf("vehicle %s not found", "v1")
	assert.EqualError(t, err, "vehicle v1 not found")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrConflict))

	wrapped := fmt.Errorf("load: %w", Conflictf("plate taken"))
	assert.ErrorIs(t, wrapped, ErrConflict)

	assert.ErrorIs(t, Validationf("x"), ErrValidation)
	assert.ErrorIs(t, Unauthorizedf("x"), ErrUnauthorized)
}
