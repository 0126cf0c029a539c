package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrReferenced indicates a row is still referenced by other rows.
	ErrReferenced = errors.New("referenced by other records")
)

// AuthorizationError means the caller may not access the requested identity or action.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "access denied"
}

// ObjectNotFoundError means a lookup by id or email matched nothing.
type ObjectNotFoundError struct {
	Resource string
	ID       string
	Message  string
}

func (e *ObjectNotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("object not found! id: %s, type: %s", e.ID, e.Resource)
}

// DataIntegrityError means the store rejected a change because of existing references.
type DataIntegrityError struct {
	Message string
	Err     error
}

func (e *DataIntegrityError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "data integrity violation"
}

func (e *DataIntegrityError) Unwrap() error {
	return e.Err
}

// FieldMessage is a single rejected input field.
type FieldMessage struct {
	Field   string `json:"fieldName"`
	Message string `json:"message"`
}

// ValidationError carries every rejected field of a request.
type ValidationError struct {
	Fields []FieldMessage
}

// NewValidationError builds a ValidationError for one field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldMessage{{Field: field, Message: message}}}
}

// Add records another rejected field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldMessage{Field: field, Message: message})
}

// Empty reports whether no field was rejected.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation error: " + strings.Join(parts, "; ")
}
