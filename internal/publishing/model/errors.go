package model

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the publishing core. Every failure wraps exactly one of them.
var (
	ErrValidation             = errors.New("validation error")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// InvalidTransitionError reports a state change the current state does not permit.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func NewInvalidTransitionError(entity, id string, from, to fmt.Stringer) *InvalidTransitionError {
	return &InvalidTransitionError{Entity: entity, ID: id, From: from.String(), To: to.String()}
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition for %s: %s -> %s", e.Entity, e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NotFoundError wraps ErrNotFound with the entity that was looked up.
func NotFoundError(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// ConcurrentModificationError wraps ErrConcurrentModification with the contended entity.
func ConcurrentModificationError(entity string, id any) error {
	return fmt.Errorf("%s %v was modified concurrently: %w", entity, id, ErrConcurrentModification)
}
