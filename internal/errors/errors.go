// Package errors provides domain-specific error types for polysock.
//
// These types carry structured context (operation, address, phase) that
// lets the pump decide whether a failure is fatal for the whole run or
// only for one transfer direction, and lets the CLI map a run result to
// a distinct process exit code.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotOpen       = errors.New("endpoint is not open")
	ErrClosed        = errors.New("endpoint is closed")
	ErrNoDestination = errors.New("no destination address configured")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op   string // operation: "dial", "listen", "bind", "accept", "read", "write"
	Addr string // network address involved
	Err  error  // underlying error
}

func (e *NetworkError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Connect reports whether the error happened while establishing the
// endpoint (dial/listen/bind) rather than mid-transfer.
func (e *NetworkError) Connect() bool {
	switch e.Op {
	case "dial", "listen", "bind":
		return true
	}
	return false
}

// ConfigError represents an invalid or missing endpoint parameter.
type ConfigError struct {
	Field   string      // parameter key, e.g. "port_dst"
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: %s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError for op on addr.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// Config creates a ConfigError for a bad parameter value.
func Config(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: message}
}

// Missing creates a ConfigError for a required parameter that was not
// supplied.
func Missing(field, hint string) *ConfigError {
	return &ConfigError{Field: field, Message: "required parameter is missing", Hint: hint}
}

// ── Classification helpers ───────────────────────────────────────────

// IsConfig reports whether err stems from invalid configuration.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsConnect reports whether err happened while establishing an
// endpoint, before any data moved.
func IsConnect(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.Connect()
}

// IsDisconnect reports whether err is an expected consequence of a
// peer closing or of the endpoint being torn down: EOF, closed
// connections, closed pipes.  The pump treats these as a graceful end
// of a transfer direction, not a failure.
func IsDisconnect(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, ErrClosed) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// ── Exit-code mapping ────────────────────────────────────────────────

// Process exit codes distinguishing failure classes for scripting.
const (
	ExitOK      = 0
	ExitFailure = 1 // anything unclassified
	ExitConfig  = 2 // bad/missing parameter
	ExitConnect = 3 // peer unreachable / bind failed
	ExitIO      = 4 // mid-run I/O failure
)

// ExitCode maps a run result to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsConfig(err):
		return ExitConfig
	case IsConnect(err):
		return ExitConnect
	default:
		var ne *NetworkError
		if errors.As(err, &ne) {
			return ExitIO
		}
		return ExitFailure
	}
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use polysock/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
