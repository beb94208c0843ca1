// ABOUTME: Typed error taxonomy for device and file operations
// ABOUTME: Every native failure carries its operation name and status code
package audio

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind classifies a failure
type Kind int

const (
	KindUnknown Kind = iota
	KindDeviceUnavailable
	KindPathResolution
	KindFormatNegotiation
	KindWrite
	KindInvalidState
	KindInvalidFormat
)

func (k Kind) String() string {
	switch k {
	case KindDeviceUnavailable:
		return "device unavailable"
	case KindPathResolution:
		return "path resolution error"
	case KindFormatNegotiation:
		return "format negotiation error"
	case KindWrite:
		return "write error"
	case KindInvalidState:
		return "invalid state"
	case KindInvalidFormat:
		return "invalid format"
	default:
		return "unknown error"
	}
}

// NoStatus is the Code of errors that did not originate from a native status
const NoStatus = -1

// Error is returned by every operation that crosses the device or file boundary
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "malgo.InitDevice"
	Code int    // native status code, NoStatus when none applies
	Err  error
}

// Sentinels for errors.Is matching on Kind alone
var (
	ErrDeviceUnavailable = &Error{Kind: KindDeviceUnavailable}
	ErrPathResolution    = &Error{Kind: KindPathResolution}
	ErrFormatNegotiation = &Error{Kind: KindFormatNegotiation}
	ErrWrite             = &Error{Kind: KindWrite}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrInvalidFormat     = &Error{Kind: KindInvalidFormat}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Code != NoStatus && e.Code != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind when target is a bare sentinel
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// Wrap attaches a kind and operation to a native error. It returns nil for a nil err.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Code: StatusCode(err), Err: err}
}

// WrapStatus is Wrap for native errors whose status code the caller
// extracted itself. It returns nil for a nil err.
func WrapStatus(kind Kind, op string, code int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Code: code, Err: err}
}

// Errorf builds an Error without a native status
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Code: NoStatus, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusCode extracts the numeric status of a native failure
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Code != NoStatus {
		return e.Code
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode()
	}
	return NoStatus
}
