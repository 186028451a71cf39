// Package util provides utility functions and types for the
// multitier routing layer.
//
// This package contains shared utilities used across the project
// including context helpers, error types, HTTP utilities, and
// validation functions.
//
// # Context Helpers
//
// Context utilities for request-scoped data:
//
//	ctx = util.ContextWithRouteName(ctx, "profile")
//	params := util.PathParamsFromContext(ctx)
//
// # Error Types
//
// Structured error types for consistent error handling:
//
//   - ConfigError: configuration validation errors
//   - ValidationError: data-entry validation failures
//   - StoreError: site store connectivity errors
//   - Common sentinel errors: ErrInvalidInput, ErrStoreUnavailable, etc.
//
// # HTTP Utilities
//
// Response writer wrappers for status code capture:
//
//	w := util.NewStatusCapturingResponseWriter(responseWriter)
//	handler.ServeHTTP(w, r)
//	statusCode := w.StatusCode
//
// # Validation
//
// Input validation helpers for hostnames, ports, and regex patterns:
//
//	err := util.ValidateHostname("acme.example.com")
//	err := util.ValidateRegex(`^user/(?P<id>\d+)/$`)
package util
