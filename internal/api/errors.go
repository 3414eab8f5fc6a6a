// errors.go - Structured error handling for API responses
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/recruit-dashboard/backend/internal/contacts"
	"github.com/recruit-dashboard/backend/internal/session"
	"github.com/recruit-dashboard/backend/internal/upload"
	"go.uber.org/zap"
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

// Error constructors for consistent error handling

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

// NewParseError creates a 400 error for a file that is not readable CSV
func NewParseError(cause *contacts.ParseError) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "PARSE_ERROR",
		Message: "could not read file",
		Details: cause.Error(),
	}
}

// NewSchemaError creates a 422 error naming the missing columns
func NewSchemaError(cause *contacts.SchemaError) *APIError {
	quoted := make([]string, len(cause.Missing))
	for i, col := range cause.Missing {
		quoted[i] = fmt.Sprintf("%q", col)
	}
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "SCHEMA_ERROR",
		Message: "missing required columns: " + strings.Join(quoted, ", "),
	}
}

// NewPayloadTooLargeError creates a 413 error
func NewPayloadTooLargeError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "PAYLOAD_TOO_LARGE",
		Message: "upload exceeds the size limit",
		Details: cause.Error(),
	}
}

// NewUnsupportedTypeError creates a 415 error
func NewUnsupportedTypeError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusUnsupportedMediaType,
		Code:    "UNSUPPORTED_TYPE",
		Message: "only CSV files are accepted",
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

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// toAPIError maps domain errors to their API form. Unknown errors come back
// as nil so callers can pick the fallback.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	var parseErr *contacts.ParseError
	var schemaErr *contacts.SchemaError

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &parseErr):
		return NewParseError(parseErr)
	case errors.As(err, &schemaErr):
		return NewSchemaError(schemaErr)
	case errors.Is(err, upload.ErrTooLarge):
		return NewPayloadTooLargeError(err)
	case errors.Is(err, upload.ErrUnsupportedType):
		return NewUnsupportedTypeError(err)
	case errors.Is(err, upload.ErrEmpty):
		return NewBadRequestError("uploaded file is empty", nil)
	case errors.Is(err, session.ErrSessionNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewServiceUnavailableError("request cancelled or timed out")
	}
	return nil
}

// sessionError maps an error from a session lookup, naming the session on 404.
func sessionError(err error, id string) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return NewNotFoundError("session", id)
	}
	if apiErr := toAPIError(err); apiErr != nil {
		return apiErr
	}
	return NewInternalError("session query failed", err)
}

// NewErrorHandler returns an echo.HTTPErrorHandler rendering every error as
// an APIError. Details of unexpected errors are only shown in development.
func NewErrorHandler(logger *zap.Logger, development bool) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		apiErr := toAPIError(err)
		if apiErr == nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				apiErr = &APIError{
					Status:  he.Code,
					Code:    "HTTP_ERROR",
					Message: fmt.Sprintf("%v", he.Message),
				}
			} else {
				apiErr = &APIError{
					Status:  http.StatusInternalServerError,
					Code:    "UNKNOWN_ERROR",
					Message: "An unexpected error occurred",
				}
				if development {
					apiErr.Details = err.Error()
				}
			}
		}

		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", apiErr.Status),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		c.JSON(apiErr.Status, apiErr)
	}
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
