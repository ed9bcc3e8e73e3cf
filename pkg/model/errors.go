package model

import "fmt"

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation ErrorCode = "VALIDATION_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the opgate API.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError creates a VALIDATION_ERROR APIError.
func NewValidationError(msg string) *APIError {
	return &APIError{Code: ErrValidation, Message: msg}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// TransportError is a fault raised by the messaging transport while an
// operation executes. It carries the operation and channel identifiers so
// the error sink can route diagnostics.
type TransportError struct {
	OpID    string
	Channel string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (op %s, channel %s): %v", e.OpID, e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned when a state transition is invalid.
type InvalidTransitionError struct {
	OpID string
	From OpState
	To   OpState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid operation state transition: %s → %s (op %s)", e.From, e.To, e.OpID)
}
