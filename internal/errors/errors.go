// Package errors defines the bridge's error taxonomy.
//
// Every channel operation returns one of four typed errors:
//   - ConnectError: a link could not be opened (fatal for serial at startup,
//     retried every cycle for Modbus)
//   - ReadError: a read on an open link failed
//   - WriteError: a write on an open link failed
//   - ParseError: an inbound serial line could not be decoded
//
// Anything else reaching the bridge loop is unclassified. Classify maps an
// arbitrary error onto a Kind so callers can branch without type switches.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions so callers need only one import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Link names which peer an error came from.
type Link string

const (
	LinkSerial Link = "serial"
	LinkModbus Link = "modbus"
)

// Sentinels.
var (
	// ErrClosed is returned by operations on a channel after Close.
	ErrClosed = New("link closed")
	// ErrNotConnected is returned by Modbus I/O attempted while disconnected.
	ErrNotConnected = New("link not connected")
	// ErrUnrecognized marks an inbound line whose tag is not a known command.
	ErrUnrecognized = New("unrecognized line")
)

// ConnectError reports a failed open of a link.
type ConnectError struct {
	Link   Link
	Target string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s: connect %s: %v", e.Link, e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ReadError reports a failed read on a link.
type ReadError struct {
	Link Link
	Op   string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Link, e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a failed write on a link.
type WriteError struct {
	Link Link
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Link, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ParseError reports an inbound line that was discarded.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Kind is the taxonomy bucket of an error.
type Kind int

const (
	KindNone Kind = iota
	KindConnect
	KindRead
	KindWrite
	KindParse
	KindUnclassified
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConnect:
		return "connect"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindParse:
		return "parse"
	default:
		return "unclassified"
	}
}

// Classify returns the Kind of err. A nil error is KindNone.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var ce *ConnectError
	if As(err, &ce) {
		return KindConnect
	}
	var re *ReadError
	if As(err, &re) {
		return KindRead
	}
	var we *WriteError
	if As(err, &we) {
		return KindWrite
	}
	var pe *ParseError
	if As(err, &pe) {
		return KindParse
	}
	return KindUnclassified
}
