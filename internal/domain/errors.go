package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling in the
// ingest API without switch statements over concrete types.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types. The pipeline distinguishes parse, validation, graph
// and storage failures so that calling infrastructure can apply different
// retry policies to each.
type (
	// ParseError indicates a provider payload that failed structural
	// validation. The offending event is dropped, never the pipeline.
	ParseError struct {
		Provider string
		Message  string
		Cause    error
	}

	// ValidationError indicates invalid caller input.
	ValidationError struct {
		Message string
	}

	// GraphOperationError wraps a failure from the graph store. These are
	// propagated to the event-consumption loop, which decides retry vs.
	// dead-letter.
	GraphOperationError struct {
		Operation string
		Cause     error
	}

	// StorageError wraps a failure from the blob/archive store or the
	// ingest journal.
	StorageError struct {
		Operation string
		Cause     error
	}

	// UnauthorizedError indicates authentication failure.
	UnauthorizedError struct {
		Message string
	}
)

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse %s payload: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse %s payload: %s", e.Provider, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ValidationError) Error() string { return e.Message }

func (e *GraphOperationError) Error() string {
	return fmt.Sprintf("graph operation %s: %v", e.Operation, e.Cause)
}

func (e *GraphOperationError) Unwrap() error { return e.Cause }

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s: %v", e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

func (e *UnauthorizedError) Error() string { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *ParseError) StatusCode() int        { return http.StatusBadRequest }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrGraph        = errors.New("graph operation failed")
	ErrStorage      = errors.New("storage operation failed")
)

// Is allows errors.Is() matching against the sentinel values.
func (e *ValidationError) Is(target error) bool     { return target == ErrValidation }
func (e *GraphOperationError) Is(target error) bool { return target == ErrGraph }
func (e *StorageError) Is(target error) bool        { return target == ErrStorage }
func (e *UnauthorizedError) Is(target error) bool   { return target == ErrUnauthorized }
