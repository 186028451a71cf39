package server

import "errors"

// Sentinel errors for server lifecycle operations.
var (
	// ErrNotStopped indicates a start was attempted while the server
	// is not in the stopped state.
	ErrNotStopped = errors.New("server is not in stopped state")

	// ErrNotRunning indicates a stop was attempted while the server
	// is not running.
	ErrNotRunning = errors.New("server is not running")

	// ErrNilConfig indicates a nil configuration was provided.
	ErrNilConfig = errors.New("configuration is required")

	// ErrNilHandler indicates no application handler was provided.
	ErrNilHandler = errors.New("application handler is required")
)
