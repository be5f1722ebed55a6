package errors

import (
	"net/http"
	"strings"

	"roastery/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Staging contract violations
	ErrDuplicateSKU = NewBaseError(
		http.StatusConflict,
		"DUPLICATE_SKU",
		"A product with this SKU is already staged",
		"",
	)

	ErrProductNotFound = NewBaseError(
		http.StatusNotFound,
		"PRODUCT_NOT_FOUND",
		"No staged product with this SKU",
		"",
	)

	// Publish pipeline errors
	ErrPublishInFlight = NewBaseError(
		http.StatusConflict,
		"PUBLISH_IN_FLIGHT",
		"A publish is already running; concurrent publishes are rejected",
		"",
	)

	ErrNothingToPublish = NewBaseError(
		http.StatusBadRequest,
		"NOTHING_TO_PUBLISH",
		"The staged catalog matches the published baseline",
		"",
	)

	ErrNoRetryablePublish = NewBaseError(
		http.StatusBadRequest,
		"NO_RETRYABLE_PUBLISH",
		"There is no failed publish to retry",
		"",
	)

	ErrCatalogWriteFailed = NewBaseError(
		http.StatusBadGateway,
		"CATALOG_WRITE_FAILED",
		"The catalog store rejected the write",
		"",
	)

	ErrCatalogUnreachable = NewBaseError(
		http.StatusBadGateway,
		"CATALOG_UNREACHABLE",
		"The catalog store could not be reached",
		"",
	)

	// Import / request errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	ErrImportFailed = NewBaseError(
		http.StatusBadRequest,
		"IMPORT_FAILED",
		"The uploaded catalog file could not be parsed",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"Resource not found",
		"",
	)
)

// ValidationError reports a row that is missing or has malformed required
// fields. It is row-scoped and recoverable: a decode or import never aborts
// on it, the row is skipped and reported.
type ValidationError struct {
	MissingFields []string
	Reason        string
}

// NewValidationError creates a row-scoped validation error
func NewValidationError(missing []string, reason string) *ValidationError {
	return &ValidationError{
		MissingFields: missing,
		Reason:        reason,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.MissingFields) > 0 {
		return "missing required fields: " + strings.Join(e.MissingFields, ", ")
	}

	return e.Reason
}

// HTTPCode returns the HTTP status code
func (e *ValidationError) HTTPCode() int {
	return http.StatusBadRequest
}

// ErrorCode returns the business error code
func (e *ValidationError) ErrorCode() string {
	return "VALIDATION_FAILED"
}

// Message returns the user-friendly error message
func (e *ValidationError) Message() string {
	return "Product row validation failed"
}

// Details returns detailed error information
func (e *ValidationError) Details() string {
	return e.Error()
}
