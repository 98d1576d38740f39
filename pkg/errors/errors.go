// Package errors provides structured error handling for the recipe server.
// AppError carries a stable code that maps onto an HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode is the machine-readable part of an error response
type ErrorCode string

const (
	CodeBadRequest         ErrorCode = "BAD_REQUEST"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeRecipeNotFound     ErrorCode = "RECIPE_NOT_FOUND"
	CodeDuplicateRecipe    ErrorCode = "DUPLICATE_RECIPE"
	CodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	CodeTooManyRequests    ErrorCode = "TOO_MANY_REQUESTS"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

var statusByCode = map[ErrorCode]int{
	CodeBadRequest:         http.StatusBadRequest,
	CodeValidationFailed:   http.StatusBadRequest,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeNotFound:           http.StatusNotFound,
	CodeRecipeNotFound:     http.StatusNotFound,
	CodeDuplicateRecipe:    http.StatusConflict,
	CodeTooManyRequests:    http.StatusTooManyRequests,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

// AppError represents an application error with structured information
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(" (")
		b.WriteString(e.Details)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap exposes the cause, usually a domain sentinel.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode is the HTTP status for the code; unknown codes are 500.
func (e *AppError) StatusCode() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

// From returns the AppError in err's chain, or err wrapped as an internal error.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("").WithCause(err)
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAppError(CodeUnauthorized, message, "")
}

func NewInvalidCredentialsError() *AppError {
	return NewAppError(CodeInvalidCredentials, "Invalid credentials",
		"The provided registration credentials are incorrect")
}

// NewNotFoundError is for unknown routes; recipes use NewRecipeNotFoundError.
func NewNotFoundError(resource string) *AppError {
	return NewAppError(CodeNotFound, resource+" not found", "")
}

// NewRecipeNotFoundError covers unknown ids, empty stores and ingredient
// queries without a unique match. recipeID may be empty.
func NewRecipeNotFoundError(recipeID string) *AppError {
	if recipeID == "" {
		return NewAppError(CodeRecipeNotFound, "Recipe not found", "No recipe matched the request")
	}
	return NewAppError(CodeRecipeNotFound, "Recipe not found",
		fmt.Sprintf("Recipe with ID %s does not exist", recipeID)).
		WithMetadata("recipe_id", recipeID)
}

func NewDuplicateRecipeError(recipeID int64) *AppError {
	return NewAppError(CodeDuplicateRecipe, "Recipe already exists",
		fmt.Sprintf("Recipe with ID %d already exists", recipeID)).
		WithMetadata("recipe_id", recipeID)
}

func NewTooManyRequestsError() *AppError {
	return NewAppError(CodeTooManyRequests, "Too many requests", "Rate limit exceeded")
}

func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewServiceUnavailableError reports a dependency, usually the store, that cannot serve requests.
func NewServiceUnavailableError(service string, cause error) *AppError {
	return NewAppError(CodeServiceUnavailable, "Service unavailable",
		service+" is not reachable").WithCause(cause)
}

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v))
	for i, err := range v {
		messages[i] = err.Message
	}
	return strings.Join(messages, "; ")
}

// NewValidationErrors reports every rejected field in one error.
func NewValidationErrors(errs []ValidationError) *AppError {
	v := ValidationErrors(errs)
	return NewValidationError(v.Error()).WithMetadata("validation_errors", v)
}

// ErrorResponse is the JSON envelope for every API error
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:      err.Code,
			Message:   err.Message,
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: time.Now().UTC(),
		},
	}
}
