// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/file-loader/backend/internal/session"
	"github.com/file-loader/backend/internal/slots"
	"github.com/file-loader/backend/internal/widget"
	"github.com/labstack/echo/v4"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewUnprocessableError creates a 422 error for a rejected widget transition
func NewUnprocessableError(code, message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    code,
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewInvariantError creates a 409 error for a slot pool invariant violation
func NewInvariantError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "INVARIANT_VIOLATION",
		Message: "slot state does not allow this operation",
		Details: cause.Error(),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// mapWidgetError converts session, slot and controller errors to APIErrors.
func mapWidgetError(err error, id string) *APIError {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return NewNotFoundError("widget", id)
	case errors.Is(err, slots.ErrValidationFailed):
		return NewUnprocessableError("VALIDATION_FAILED", "file type or size not accepted", err)
	case errors.Is(err, widget.ErrCategoryExhausted):
		return NewUnprocessableError("CATEGORY_EXHAUSTED", "category has no remaining quota", err)
	case errors.Is(err, widget.ErrUnknownCategory):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "unknown category", Details: err.Error()}
	case errors.Is(err, slots.ErrOutOfRange):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "no such slot", Details: err.Error()}
	case errors.Is(err, widget.ErrNoActiveSlot):
		return NewConflictError("every slot is already filled")
	case errors.Is(err, slots.ErrAlreadyBound), errors.Is(err, slots.ErrNotBound):
		return NewInvariantError(err)
	default:
		return NewInternalError("widget transition failed", err)
	}
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
			Details: err.Error(),
		}
	}

	if apiErr.Status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	c.JSON(apiErr.Status, apiErr)
}
