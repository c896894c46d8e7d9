package types

import "fmt"

// ErrorCode classifies an error raised by a builtin.
type ErrorCode string

const (
	// T0xxx: wrong kind of value for an operation
	ErrType ErrorCode = "T0001"

	// D0xxx: right kind, invalid content
	ErrDomain      ErrorCode = "D0001"
	ErrZeroDivisor ErrorCode = "D0002"
	ErrInvalidPath ErrorCode = "D0003"
	ErrRegex       ErrorCode = "D0004"
	ErrDateTime    ErrorCode = "D0005"
	ErrInvalidJSON ErrorCode = "D0006"
	ErrRangeBounds ErrorCode = "D0007"
	ErrIterate     ErrorCode = "D0008"
	ErrIndex       ErrorCode = "D0009"

	// U0xxx: raised by the program itself or unresolved by the linker
	ErrUser              ErrorCode = "U0001"
	ErrUndefinedFunction ErrorCode = "U0002"

	// C0xxx: feature not available on this host
	ErrCapability ErrorCode = "C0001"

	// R0xxx: runtime signals
	ErrBreak       ErrorCode = "R0001"
	ErrNoMoreInput ErrorCode = "R0002"
	ErrCancelled   ErrorCode = "R0003"
)

// Error is the error value every builtin reports. Message is the text a
// program sees when it catches the error; Value is set when the error was
// raised with an arbitrary value (error/1).
type Error struct {
	Code    ErrorCode
	Message string
	Value   any
	Err     error
}

// NewError creates a new error with a plain message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Value: message}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// TypeError reports v with its kind and a truncated rendering, followed by
// clause: `number (42) has no keys`.
func TypeError(v any, clause string) *Error {
	return ValueError(ErrType, v, clause)
}

// TypeError2 is TypeError for binary operations:
// `object ({"a":1}) and number (1) cannot be added`.
func TypeError2(a, b any, clause string) *Error {
	return ValueError2(ErrType, a, b, clause)
}

// ValueError is TypeError with an explicit code, for errors about the
// content of a value rather than its kind.
func ValueError(code ErrorCode, v any, clause string) *Error {
	return Errorf(code, "%s (%s) %s", KindName(v), DumpTrunc(v), clause)
}

// ValueError2 is ValueError for two operands.
func ValueError2(code ErrorCode, a, b any, clause string) *Error {
	return Errorf(code, "%s (%s) and %s (%s) %s",
		KindName(a), DumpTrunc(a), KindName(b), DumpTrunc(b), clause)
}

// UserError wraps a value raised with error/1.
func UserError(v any) *Error {
	e := &Error{Code: ErrUser, Value: v}
	if s, ok := v.(string); ok {
		e.Message = s
	} else {
		e.Message = Dump(v) + " (not a string)"
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// HaltError is returned when a program calls halt or halt_error. It is not
// catchable by the program and carries the requested exit status.
type HaltError struct {
	Code  int
	Value any
}

// Error implements the error interface.
func (e *HaltError) Error() string {
	if s, ok := e.Value.(string); ok {
		return s
	}
	if e.Value == nil {
		return fmt.Sprintf("halt with exit code %d", e.Code)
	}
	return Dump(e.Value)
}

// ExitCode returns the exit status requested by the program.
func (e *HaltError) ExitCode() int {
	return e.Code
}
