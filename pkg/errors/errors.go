// Package errors provides custom error types for the seerrsync system.
// These errors enable programmatic error checking across the sync engine
// and distinguish fatal configuration problems from soft per-server and
// per-user failures.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the seerrsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrServerUnavailable indicates that a media server failed its health probe
	ErrServerUnavailable = errors.New("media server unavailable")

	// ErrNoServersAvailable indicates that no media server passed its health probe
	ErrNoServersAvailable = errors.New("no media servers available")

	// ErrSyncInProgress indicates that a sync run is already active
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrUnauthorized indicates a missing or invalid session token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// ConfigError represents a configuration error. It is fatal to the run
// that needs the configuration and never touches persisted state.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// FetchError represents a roster-fetch failure against a media server that
// already passed its health probe. It aborts the entire sync run: a partial
// roster could cause legitimate users to be treated as missing during the
// removal phase.
type FetchError struct {
	Server     string
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch error from %s (status %d): %s", e.Server, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch error from %s: %s", e.Server, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(server, endpoint string, statusCode int, message string, err error) *FetchError {
	return &FetchError{
		Server:     server,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// GatewayError represents a failed call against the request service
// (Overseerr/Jellyseerr). Individual create/delete/update failures are
// local to one user; only a failed account listing aborts the run.
type GatewayError struct {
	Operation  string // "list", "create", "delete", "set_password", "set_request_limit"
	Username   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Username != "" {
		return fmt.Sprintf("gateway error during %s for %s: %s", e.Operation, e.Username, e.Message)
	}
	return fmt.Sprintf("gateway error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new GatewayError
func NewGatewayError(operation, username string, statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Operation:  operation,
		Username:   username,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// PersistError represents a failure writing the override store back to
// disk. Non-fatal: mutations already applied to the request service stand,
// but protection bookkeeping may lag until the next successful write.
type PersistError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *PersistError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("persist error for %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("persist error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *PersistError) Unwrap() error {
	return e.Err
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "xml"
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("parse error in %s from %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// AuthenticationError represents an authentication failure against the
// admin API or an upstream service.
type AuthenticationError struct {
	Service string
	Method  string // "api_key", "token", "basic"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsFetch checks if an error is a roster-fetch error
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsGateway checks if an error is a request-service gateway error
func IsGateway(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// IsPersist checks if an error is an override-store persist error
func IsPersist(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, Source: source, Message: err.Error(), Err: err}
}

// WrapPersist wraps an error as a PersistError
func WrapPersist(path string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistError{Path: path, Message: err.Error(), Err: err}
}
