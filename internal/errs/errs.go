// Package errs defines the error taxonomy shared by the collection engine.
// Every per-source failure the engine can produce carries a Kind so callers
// can drive the collector state machine with errors.As instead of string
// matching on error text.
package errs

import "fmt"

// Kind identifies which branch of the error taxonomy an error belongs to.
type Kind string

const (
	// KindConfig marks malformed or semantically invalid configuration. Fatal at startup.
	KindConfig Kind = "config_error"
	// KindCursorIO marks a cursor file read/write failure.
	KindCursorIO Kind = "cursor_io_error"
	// KindSourceUnavailable marks a transport error or 5xx from the journal gateway.
	KindSourceUnavailable Kind = "source_unavailable"
	// KindSourceProtocol marks an unexpected 4xx from the journal gateway.
	KindSourceProtocol Kind = "source_protocol"
	// KindCursorInvalid marks a gateway rejection of the supplied cursor.
	KindCursorInvalid Kind = "cursor_invalid"
	// KindExportRetriable marks an OTLP 429/502/503/504 response or a transport failure.
	KindExportRetriable Kind = "export_retriable"
	// KindExportPermanent marks any other non-2xx OTLP response (4xx or 5xx).
	KindExportPermanent Kind = "export_permanent"
)

// Error wraps an underlying cause with a taxonomy Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if as(err, &e) {
		return e.Kind == kind
	}
	return false
}

// as walks err's single-error Unwrap chain and stores the first *Error it
// finds in target.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
