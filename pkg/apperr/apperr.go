// Package apperr provides the typed error shape used across the proxy's
// connection driver. It plays the same role the teacher codebase's HTTP
// AppError does for its REST surface, but carries a SOCKS5 reply code
// (or none, when the protocol phase that would carry one has already
// passed) instead of an HTTP status.
package apperr

import (
	"errors"
	"fmt"

	"github.com/ferrolane/socks5d/pkg/socks5"
)

// Kind classifies the error kinds enumerated in the connection driver's
// error handling design: protocol violation, credential failure,
// upstream dial failure, relay I/O failure, listener accept failure,
// and bind failure.
type Kind string

const (
	KindProtocol   Kind = "protocol_violation"
	KindCredential Kind = "credential_failure"
	KindDial       Kind = "dial_failure"
	KindRelay      Kind = "relay_failure"
	KindAccept     Kind = "accept_failure"
	KindBind       Kind = "bind_failure"
)

// AppError is a connection-lifecycle error carrying enough context for
// the driver to decide whether a SOCKS5 reply frame can still be sent,
// and for the logger to record a structured, operator-readable event.
type AppError struct {
	Kind     Kind
	Message  string
	Reply    socks5.ReplyCode
	HasReply bool
	Internal error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the wrapped error, so errors.Is/As see through AppError.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// New creates an AppError with no associated reply frame (the protocol
// phase that would carry one has already ended, or never began).
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// NewReply creates an AppError that the driver should answer with the
// given SOCKS5 reply code before closing the connection.
func NewReply(kind Kind, message string, reply socks5.ReplyCode) *AppError {
	return &AppError{Kind: kind, Message: message, Reply: reply, HasReply: true}
}

// WithInternal attaches the underlying error that triggered this one.
func (e *AppError) WithInternal(err error) *AppError {
	e.Internal = err
	return e
}

// Is reports whether err matches target via errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target via errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// FromError extracts an *AppError from an error chain, falling back to
// an internal KindRelay error (no reply possible) if none is found.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(KindRelay, "unclassified connection error").WithInternal(err)
}
