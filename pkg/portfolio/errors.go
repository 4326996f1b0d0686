package portfolio

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrValidation indicates the request was rejected before any side effect
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the addressed entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrBackendNotConfigured indicates no store is registered for a backend kind
	ErrBackendNotConfigured = errors.New("storage backend not configured")

	// ErrSkipped indicates a delete found nothing of its own to remove: the
	// object is already gone, or the locator belongs to another host
	ErrSkipped = errors.New("delete skipped")
)

// ValidationError names the field that made a request invalid
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError represents a missing entity
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// EntityError wraps a repository failure for one entity
type EntityError struct {
	Entity EntityType
	ID     string
	Op     string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation %s failed for %s: %v", e.Entity, e.Op, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}
