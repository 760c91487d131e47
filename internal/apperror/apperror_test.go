package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"ms-booking/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := apperror.ErrEventNotFound.WithMessage("event %s not found", "evt-1")

	assert.True(t, errors.Is(err, apperror.ErrEventNotFound))
	assert.False(t, errors.Is(err, apperror.ErrUserNotFound))
	assert.Equal(t, "event evt-1 not found", err.Message)
	// the sentinel itself is untouched
	assert.Equal(t, "event not found", apperror.ErrEventNotFound.Message)
}

func TestKindOfWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("booking: %w", apperror.ErrDiscountNotActive)

	assert.Equal(t, apperror.KindBusinessRule, apperror.KindOf(wrapped))
	assert.True(t, apperror.IsExpected(wrapped))

	appErr, ok := apperror.As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "DISCOUNT_NOT_ACTIVE", appErr.Code)
}

func TestUntypedErrorsAreInfrastructure(t *testing.T) {
	err := errors.New("connection refused")

	assert.Equal(t, apperror.KindInfrastructure, apperror.KindOf(err))
	assert.False(t, apperror.IsExpected(err))
	assert.False(t, apperror.IsExpected(nil))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := apperror.Internal(cause, "failed to save ticket")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, apperror.KindInfrastructure, err.Kind)
	assert.Contains(t, err.Error(), "disk full")
}

func TestValidationNamesFields(t *testing.T) {
	type req struct {
		EventID string `validate:"required"`
	}
	err := validator.New().Struct(req{})

	appErr := apperror.Validation(err)

	assert.True(t, errors.Is(appErr, apperror.ErrValidationFailed))
	assert.Contains(t, appErr.Message, "EventID (required)")
}
