// Package errors provides centralized error definitions and error handling
// utilities for procwatch. It defines the server failure taxonomy produced by
// output classification, operational errors from process management, error
// constructors with cause wrapping, and classification helpers.
//
// # Error Categories
//
// Classified errors are scraped from server output during startup and carry a
// stable diagnostic code:
//   - AddressInUse: the server's listen address is already bound (code -1)
//   - PermissionDenied: the server was refused access to a resource (code -2)
//   - InvalidPort: the server could not listen on the configured port (code -3)
//   - Generic: any other startup failure reported on the output stream (code -3)
//
// Operational errors come from the supervisor itself rather than the server's
// output, and carry no diagnostic code:
//   - SpawnFailed: the OS could not create the server process
//   - KillFailed: termination-signal delivery to the server failed
//   - ReaperLookup: the OS process-table query itself failed
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewAddressInUse("bind: Address already in use")
//	err := errors.NewSpawnFailed(execErr)
//
// Checking errors:
//
//	var serr *errors.ServerError
//	if errors.As(err, &serr) {
//	    fmt.Println(serr.Kind, serr.Code())
//	}
//	if errors.IsClassified(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Kind identifies the category of a server failure.
type Kind int

const (
	// KindGeneric is any startup failure reported on the server's output
	// stream that does not match a more specific pattern.
	KindGeneric Kind = iota

	// KindAddressInUse means the server's listen address is already bound.
	KindAddressInUse

	// KindPermissionDenied means the server was denied access to a resource.
	KindPermissionDenied

	// KindInvalidPort means the server could not listen on the configured port.
	KindInvalidPort

	// KindSpawnFailed means the OS could not create the server process.
	KindSpawnFailed

	// KindKillFailed means termination-signal delivery to the server failed.
	KindKillFailed

	// KindReaperLookup means the OS process-table query itself failed.
	KindReaperLookup
)

// String returns a human-readable string for the kind.
func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindAddressInUse:
		return "address_in_use"
	case KindPermissionDenied:
		return "permission_denied"
	case KindInvalidPort:
		return "invalid_port"
	case KindSpawnFailed:
		return "spawn_failed"
	case KindKillFailed:
		return "kill_failed"
	case KindReaperLookup:
		return "reaper_lookup_failed"
	default:
		return "unknown"
	}
}

// Code returns the stable diagnostic code for classified kinds.
// Operational kinds (spawn, kill, reaper) return 0: they are not produced
// by output classification and have no code on the wire.
func (k Kind) Code() int {
	switch k {
	case KindAddressInUse:
		return -1
	case KindPermissionDenied:
		return -2
	case KindInvalidPort, KindGeneric:
		return -3
	default:
		return 0
	}
}

// Classified reports whether the kind is produced by output classification,
// as opposed to an operational failure of the supervisor itself.
func (k Kind) Classified() bool {
	switch k {
	case KindAddressInUse, KindPermissionDenied, KindInvalidPort, KindGeneric:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// ServerError
// -----------------------------------------------------------------------------

// ServerError is the error type carried by rejected supervisor operations.
// It pairs a Kind with the raw diagnostic line scraped from the server's
// output (for classified kinds) or a wrapped cause (for operational kinds).
type ServerError struct {
	// Kind categorizes the failure.
	Kind Kind

	// Message is the diagnostic text, typically the matched output line with
	// runs of whitespace collapsed. May be empty for operational errors that
	// only wrap a cause.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error returns the error message.
func (e *ServerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ServerError) Unwrap() error {
	return e.Err
}

// Code returns the diagnostic code for the error's kind.
func (e *ServerError) Code() int {
	return e.Kind.Code()
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// NewAddressInUse creates an AddressInUse error with the matched output line.
func NewAddressInUse(line string) *ServerError {
	return &ServerError{Kind: KindAddressInUse, Message: line}
}

// NewPermissionDenied creates a PermissionDenied error with the matched output line.
func NewPermissionDenied(line string) *ServerError {
	return &ServerError{Kind: KindPermissionDenied, Message: line}
}

// NewInvalidPort creates an InvalidPort error with the matched output line.
func NewInvalidPort(line string) *ServerError {
	return &ServerError{Kind: KindInvalidPort, Message: line}
}

// NewGeneric creates a Generic classified error with the scraped diagnostic.
func NewGeneric(message string) *ServerError {
	return &ServerError{Kind: KindGeneric, Message: message}
}

// NewSpawnFailed creates a SpawnFailed error wrapping the OS-level cause.
func NewSpawnFailed(cause error) *ServerError {
	return &ServerError{Kind: KindSpawnFailed, Message: "failed to spawn server process", Err: cause}
}

// NewKillFailed creates a KillFailed error wrapping the signal-delivery cause.
func NewKillFailed(cause error) *ServerError {
	return &ServerError{Kind: KindKillFailed, Message: "failed to signal server process", Err: cause}
}

// NewReaperLookup creates a ReaperLookup error wrapping the process-table
// query cause.
func NewReaperLookup(cause error) *ServerError {
	return &ServerError{Kind: KindReaperLookup, Message: "process table lookup failed", Err: cause}
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// KindOf returns the Kind of err if it is (or wraps) a ServerError.
// Returns KindGeneric and false otherwise.
func KindOf(err error) (Kind, bool) {
	var serr *ServerError
	if As(err, &serr) {
		return serr.Kind, true
	}
	return KindGeneric, false
}

// IsClassified reports whether err carries a kind produced by output
// classification (as opposed to an operational supervisor failure).
func IsClassified(err error) bool {
	if k, ok := KindOf(err); ok {
		return k.Classified()
	}
	return false
}

// IsKind reports whether err is a ServerError of the given kind.
func IsKind(err error, kind Kind) bool {
	if k, ok := KindOf(err); ok {
		return k == kind
	}
	return false
}
