// Package errors provides standardized error handling for the analysis pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeProviderUnavailable means the reference provider failed entirely.
	// This is the only terminal failure: with no references there is nothing
	// to score.
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"

	// ErrCodeRegistryUnavailable means one retraction registry failed.
	// Retraction detection degrades to whichever registry succeeded.
	ErrCodeRegistryUnavailable ErrorCode = "REGISTRY_UNAVAILABLE"

	// ErrCodeMatcherUnavailable means the semantic matcher failed for one
	// candidate. The candidate is treated as non-matching.
	ErrCodeMatcherUnavailable ErrorCode = "MATCHER_UNAVAILABLE"

	// ErrCodeWatchlistUnavailable means a watchlist category failed to load.
	// The category contributes no evidence for this run.
	ErrCodeWatchlistUnavailable ErrorCode = "WATCHLIST_UNAVAILABLE"

	// ErrCodePersistenceFailure means the result sink failed. The computed
	// analysis is still valid and returnable.
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewProviderUnavailableError creates the terminal provider error.
func NewProviderUnavailableError(err error) *StandardError {
	details := "no references returned"
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeProviderUnavailable,
		Message:   "Reference provider returned no usable references",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRegistryUnavailableError creates a recoverable registry error.
func NewRegistryUnavailableError(registry string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryUnavailable,
		Message:   fmt.Sprintf("Retraction registry '%s' lookup failed", registry),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMatcherUnavailableError creates a recoverable matcher error.
func NewMatcherUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMatcherUnavailable,
		Message:   "Semantic name matcher call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWatchlistUnavailableError creates a recoverable watchlist error.
func NewWatchlistUnavailableError(category string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWatchlistUnavailable,
		Message:   fmt.Sprintf("Watchlist category '%s' failed to load", category),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailureError creates a recoverable persistence error.
func NewPersistenceFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailure,
		Message:   "Failed to persist analysis result",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsTerminal reports whether the error should abort the whole analysis.
// Everything except a total provider failure is absorbed locally and
// expressed as reduced evidence.
func IsTerminal(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == ErrCodeProviderUnavailable
	}
	return false
}

// CodeOf extracts the ErrorCode from an error chain, or "" if absent.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}
