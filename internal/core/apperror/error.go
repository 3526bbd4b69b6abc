// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Business rule violations (422)
	CodeBusinessRule       = "BUSINESS_RULE_VIOLATION"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeFractionOutOfRange = "FRACTION_OUT_OF_RANGE"
	CodeInvalidMeasure     = "INVALID_MEASURE"

	// Lifecycle and locking violations (409)
	CodeLineLocked             = "LINE_LOCKED"
	CodePeriodLocked           = "PERIOD_LOCKED"
	CodeNotClosed              = "NOT_CLOSED"
	CodeIncompleteCount        = "INCOMPLETE_COUNT"
	CodeConflictingTransition  = "CONFLICTING_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Item resolution (voice commands)
	CodeAmbiguousItem = "AMBIGUOUS_ITEM"
	CodeNoMatch       = "NO_MATCH"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict    = "CONFLICT"
	CodeDuplicate   = "DUPLICATE_ENTRY"
	CodeIdempotency = "IDEMPOTENCY_CONFLICT"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInvalidQuantity creates an error for negative or malformed count inputs
func NewInvalidQuantity(field string, value any) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    "Quantity must be a non-negative number",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"field": field, "value": value},
	}
}

// NewFractionOutOfRange creates an error for partial counts outside [0, 1)
// on schemes that express the partial as a fraction of one container.
func NewFractionOutOfRange(scheme string, partial any) *AppError {
	return &AppError{
		Code:       CodeFractionOutOfRange,
		Message:    "Partial count must be below 1.0 for this category",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"scheme": scheme, "partial": partial},
	}
}

// NewInvalidMeasure creates an error for unusable item conversion metadata
// (zero serving size, wine with units per container other than 1, etc.)
func NewInvalidMeasure(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidMeasure,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewLineLocked creates an error for count mutations on an approved sheet
func NewLineLocked(stocktakeID string) *AppError {
	return &AppError{
		Code:       CodeLineLocked,
		Message:    "Stocktake is approved; lines are locked",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"stocktake_id": stocktakeID},
	}
}

// NewNotClosed creates an error for reopening a period that is not closed
func NewNotClosed(period string) *AppError {
	return &AppError{
		Code:       CodeNotClosed,
		Message:    fmt.Sprintf("Period %s is not closed", period),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"period": period},
	}
}

// NewIncompleteCount creates an error for closing with uncounted lines
func NewIncompleteCount(period string, uncounted int) *AppError {
	return &AppError{
		Code:       CodeIncompleteCount,
		Message:    "All stocktake lines must be counted before close",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"period": period, "uncounted_lines": uncounted},
	}
}

// NewConflictingTransition creates an error when a lifecycle transition loses
// to a concurrent one (or the period is already in the requested state).
func NewConflictingTransition(period string) *AppError {
	return &AppError{
		Code:       CodeConflictingTransition,
		Message:    "Period state changed by a concurrent transition",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"period": period},
	}
}

// NewAmbiguousItem creates an error when an item identifier matches several
// catalog items too closely to pick one.
func NewAmbiguousItem(identifier string, candidates []string) *AppError {
	return &AppError{
		Code:       CodeAmbiguousItem,
		Message:    fmt.Sprintf("Item %q matches multiple catalog items", identifier),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"identifier": identifier, "candidates": candidates},
	}
}

// NewNoMatch creates an error when an item identifier matches nothing
func NewNoMatch(identifier string) *AppError {
	return &AppError{
		Code:       CodeNoMatch,
		Message:    fmt.Sprintf("No catalog item matches %q", identifier),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"identifier": identifier},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewPeriodLocked creates error when trying to modify a closed period
func NewPeriodLocked(period string) *AppError {
	return &AppError{
		Code:       CodePeriodLocked,
		Message:    fmt.Sprintf("Period %s is closed for modifications", period),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"period": period},
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeConcurrentModification
	}
	return false
}

// IsCode checks if error carries the given code
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
