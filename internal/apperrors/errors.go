package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError is a client fault: a malformed or missing request field.
// It is raised before any storage or cache I/O happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation creates a ValidationError for the given field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError indicates a record the system guarantees to exist is missing,
// e.g. a commute row for a property returned by a school-filtered search.
// It is a data-integrity fault, not a user-correctable one.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Message)
}

// NewNotFound creates a NotFoundError for the given resource.
func NewNotFound(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

// InfrastructureError wraps a storage or cache connectivity/timeout failure.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// NewInfrastructure wraps err as an infrastructure failure of operation op.
func NewInfrastructure(op string, err error) *InfrastructureError {
	return &InfrastructureError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsInfrastructure reports whether err is (or wraps) an InfrastructureError.
func IsInfrastructure(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}
