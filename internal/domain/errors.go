package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrForbidden    = errors.New("insufficient permissions")
)

// NotFound wraps ErrNotFound with the entity name, e.g. "participant not found".
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// StateError is returned when an operation requires a different current status.
type StateError struct {
	Action  string
	Current string
	From    string
	To      string
	Message string
}

func (e *StateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("only participants in status %q can be moved to %q (current status %q)", e.From, e.To, e.Current)
}

// ConflictError reports a duplicate unique value such as a NIK or username.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
