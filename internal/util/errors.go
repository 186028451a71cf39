// Package util provides utility functions and types for the multitier
// routing layer.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrStoreUnavailable.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ConfigError, StoreError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinel errors.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrStoreUnavailable = errors.New("site store unavailable")
	ErrConfigInvalid    = errors.New("invalid configuration")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s (fields: %v)", e.Message, e.Fields)
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// NewValidationErrorWithFields creates a new ValidationError with field errors.
func NewValidationErrorWithFields(message string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// StoreError represents a site store connectivity error.
type StoreError struct {
	Store   string
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("store %s %s error: %s: %v", e.Store, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("store %s %s error: %s", e.Store, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *StoreError) Is(target error) bool {
	if target == ErrStoreUnavailable {
		return true
	}
	_, ok := target.(*StoreError)
	return ok || errors.Is(e.Cause, target)
}

// NewStoreError creates a new StoreError.
func NewStoreError(store, op, message string) *StoreError {
	return &StoreError{Store: store, Op: op, Message: message}
}

// NewStoreErrorWithCause creates a new StoreError with a cause.
func NewStoreErrorWithCause(store, op, message string, cause error) *StoreError {
	return &StoreError{Store: store, Op: op, Message: message, Cause: cause}
}

// ReverseError reports a reverse URL lookup that found no candidate
// pattern satisfiable by the supplied arguments. The name may well be
// registered; the arguments did not fit any of its patterns.
type ReverseError struct {
	Name    string
	Args    map[string]string
	Tried   []string
	Message string
}

// Error implements the error interface.
func (e *ReverseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("reverse for %q failed: %s", e.Name, e.Message)
	}
	if len(e.Tried) == 0 {
		return fmt.Sprintf("reverse for %q failed: no pattern registered under this name", e.Name)
	}
	return fmt.Sprintf("reverse for %q with arguments %v failed: tried %v", e.Name, e.Args, e.Tried)
}

// Is checks if the error matches the target.
func (e *ReverseError) Is(target error) bool {
	_, ok := target.(*ReverseError)
	return ok
}

// NewReverseError creates a new ReverseError.
func NewReverseError(name string, args map[string]string, tried []string) *ReverseError {
	return &ReverseError{Name: name, Args: args, Tried: tried}
}

// RateLimitError represents a rate limit exceeded error.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d, retry after: %v)", e.Limit, e.RetryAfter)
}

// Is checks if the error matches the target.
func (e *RateLimitError) Is(target error) bool {
	if target == ErrRateLimited {
		return true
	}
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(limit int, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Limit: limit, RetryAfter: retryAfter}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
