package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStore represents persistence-layer errors (query or I/O)
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeResolve represents composition-resolution errors
	ErrorTypeResolve ErrorType = "resolve"
	// ErrorTypeIndex represents file-index reconciliation errors
	ErrorTypeIndex ErrorType = "index"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// NotFoundError is returned when a node, version or tag does not exist.
// Kind names the entity kind ("node", "version", "tag"), Key the lookup key.
type NotFoundError struct {
	*BaseError
	Kind string
	Key  string
}

func NewNotFound(kind, key string) *NotFoundError {
	return &NotFoundError{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("%s not found: %s", kind, key), nil),
		Kind:      kind,
		Key:       key,
	}
}

// ConflictError is returned when a create collides with an existing name.
type ConflictError struct {
	*BaseError
	Kind string
	Name string
}

func NewConflict(kind, name string) *ConflictError {
	return &ConflictError{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("%s already exists: %s", kind, name), nil),
		Kind:      kind,
		Name:      name,
	}
}

// PersistenceError is returned when a backend query or file operation fails.
// Op names the failing operation; Query or Path carry detail when available.
type PersistenceError struct {
	*BaseError
	Op    string
	Query string
	Path  string
}

func NewPersistence(op string, err error) *PersistenceError {
	return &PersistenceError{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("operation failed: %s", op), err),
		Op:        op,
	}
}

func NewQueryFailed(op, query string, err error) *PersistenceError {
	return &PersistenceError{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("query failed in %s", op), err),
		Op:        op,
		Query:     query,
	}
}

func NewWriteFailed(op, path string, err error) *PersistenceError {
	return &PersistenceError{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("write failed in %s: %s", op, path), err),
		Op:        op,
		Path:      path,
	}
}

func NewReadFailed(op, path string, err error) *PersistenceError {
	return &PersistenceError{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("read failed in %s: %s", op, path), err),
		Op:        op,
		Path:      path,
	}
}

// NewIndexWriteFailed is the index-reconciliation flavor of a write failure,
// so index persistence problems are distinguishable from node-file I/O.
func NewIndexWriteFailed(op, path string, err error) *PersistenceError {
	return &PersistenceError{
		BaseError: NewBaseError(ErrorTypeIndex, fmt.Sprintf("write failed in %s: %s", op, path), err),
		Op:        op,
		Path:      path,
	}
}

// NewConfig reports a missing or contradictory configuration value.
func NewConfig(message string) *BaseError {
	return NewBaseError(ErrorTypeConfig, message, nil)
}

// ValidationError is returned on schema or shape violations, both on input
// (bad slug, bad insert key) and on stored data touched by external writers.
type ValidationError struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// CycleError is returned when resolution re-enters a version already on the
// current recursion path.
type CycleError struct {
	*BaseError
	VersionID string
}

func NewCycle(versionID string) *CycleError {
	return &CycleError{
		BaseError: NewBaseError(ErrorTypeResolve, fmt.Sprintf("include cycle through version %s", versionID), nil),
		VersionID: versionID,
	}
}

// UnsupportedError is returned when a backend cannot represent an operation
// (the file backend has no explicit include edges).
type UnsupportedError struct {
	*BaseError
	Op string
}

func NewUnsupported(op, reason string) *UnsupportedError {
	return &UnsupportedError{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("%s unsupported: %s", op, reason), nil),
		Op:        op,
	}
}

// Helper predicates used by the HTTP layer for status mapping.

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsCycle(err error) bool {
	var e *CycleError
	return errors.As(err, &e)
}

func IsUnsupported(err error) bool {
	var e *UnsupportedError
	return errors.As(err, &e)
}
