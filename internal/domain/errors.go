package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Is lets the typed errors match their sentinels
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrCycle        = errors.New("would create a cycle")
	ErrNotEmpty     = errors.New("not empty")
	ErrIndexDesync  = errors.New("search index out of sync")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (collection, tag, member)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// CycleError is returned when moving a collection would make it its own ancestor.
type CycleError struct {
	CollectionID string
	ParentID     string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cannot move collection %s under %s: %v", e.CollectionID, e.ParentID, ErrCycle)
}

func (e *CycleError) StatusCode() int { return http.StatusConflict }

// Is matches both ErrCycle and the broader ErrConflict
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle || target == ErrConflict
}

// NotEmptyError is returned when deleting a collection that still holds content.
type NotEmptyError struct {
	CollectionID string
	Snippets     int
	Children     int
}

func (e *NotEmptyError) Error() string {
	return fmt.Sprintf("collection %s still contains %d snippet(s) and %d sub-collection(s)",
		e.CollectionID, e.Snippets, e.Children)
}

func (e *NotEmptyError) StatusCode() int { return http.StatusConflict }

func (e *NotEmptyError) Is(target error) bool {
	return target == ErrNotEmpty || target == ErrConflict
}

// IndexDesyncError wraps a failed search index write. It always aborts the
// surrounding transaction and is never reported as partial success.
type IndexDesyncError struct {
	SnippetID string
	Err       error
}

func (e *IndexDesyncError) Error() string {
	return fmt.Sprintf("index snippet %s: %v", e.SnippetID, e.Err)
}

func (e *IndexDesyncError) StatusCode() int { return http.StatusInternalServerError }

func (e *IndexDesyncError) Is(target error) bool { return target == ErrIndexDesync }

func (e *IndexDesyncError) Unwrap() error { return e.Err }
