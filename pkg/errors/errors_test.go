package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_StatusCode(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeValidationFailed:   http.StatusBadRequest,
		CodeInvalidCredentials: http.StatusUnauthorized,
		CodeRecipeNotFound:     http.StatusNotFound,
		CodeDuplicateRecipe:    http.StatusConflict,
		CodeTooManyRequests:    http.StatusTooManyRequests,
		CodeServiceUnavailable: http.StatusServiceUnavailable,
		CodeInternal:           http.StatusInternalServerError,
	}

	for code, status := range cases {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, status, NewAppError(code, "m", "").StatusCode())
		})
	}
}

func TestFrom(t *testing.T) {
	t.Run("WrappedAppError_ShouldBeReturned", func(t *testing.T) {
		// Arrange
		inner := NewDuplicateRecipeError(7)
		wrapped := fmt.Errorf("add: %w", inner)

		// Act
		got := From(wrapped)

		// Assert
		assert.Same(t, inner, got)
		assert.True(t, Is(wrapped, CodeDuplicateRecipe))
		assert.False(t, Is(wrapped, CodeRecipeNotFound))
	})

	t.Run("PlainError_ShouldBecomeInternal", func(t *testing.T) {
		cause := fmt.Errorf("boom")

		got := From(cause)

		assert.Equal(t, CodeInternal, got.Code)
		assert.ErrorIs(t, got, cause)
		assert.Equal(t, http.StatusInternalServerError, got.StatusCode())
	})
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "RECIPE_NOT_FOUND: Recipe not found (No recipe matched the request)",
		NewRecipeNotFoundError("").Error())
	assert.Equal(t, "UNAUTHORIZED: Authentication required", NewUnauthorizedError("").Error())
}

func TestValidationErrors_Message(t *testing.T) {
	errs := ValidationErrors{
		{Field: "title", Message: "title is required"},
		{Field: "category", Message: "category is required"},
	}

	assert.Equal(t, "title is required; category is required", errs.Error())
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())

	appErr := NewValidationErrors(errs)
	assert.Equal(t, CodeValidationFailed, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode())
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(NewRecipeNotFoundError("42"), "req-1")

	assert.Equal(t, CodeRecipeNotFound, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, "42", resp.Error.Metadata["recipe_id"])
	assert.NotEmpty(t, resp.Error.Timestamp)
}
