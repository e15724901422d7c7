package quant

import "fmt"

// Code identifies a stable, branchable error kind (spec.md §7). Callers use
// errors.As to recover a *Error and switch on Code rather than matching
// error strings.
type Code int

const (
	CodeUnknown Code = iota
	CodeNotTrained
	CodeDimensionMismatch
	CodeCapacityExceeded
	CodeUnsupportedOp
	CodeInvalidArgument
	CodeNumericalFailure
	CodeResourceExhausted
)

// String renders the code the way it appears in error messages (e.g.
// "NotTrained").
func (c Code) String() string {
	switch c {
	case CodeNotTrained:
		return "NotTrained"
	case CodeDimensionMismatch:
		return "DimensionMismatch"
	case CodeCapacityExceeded:
		return "CapacityExceeded"
	case CodeUnsupportedOp:
		return "UnsupportedOp"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeNumericalFailure:
		return "NumericalFailure"
	case CodeResourceExhausted:
		return "ResourceExhausted"
	default:
		return "Unknown"
	}
}

// Error is the typed error every operation in this module returns on
// failure. It always carries a Code so calling code can branch without
// parsing a message string.
type Error struct {
	Code      Code
	Component string // e.g. "ivf", "rq", "lsh"
	Op        string // e.g. "Train", "Search"
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s.%s: %s (%v)", e.Code, e.Component, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Component, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, quant.ErrNotTrained) (and similar sentinels below)
// match any *Error carrying the same Code, regardless of component/op/message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds an *Error with the given code.
func New(code Code, component, op, message string) *Error {
	return &Error{Code: code, Component: component, Op: op, Message: message}
}

// Wrap builds an *Error with the given code and an underlying cause.
func Wrap(code Code, component, op, message string, cause error) *Error {
	return &Error{Code: code, Component: component, Op: op, Message: message, Cause: cause}
}

// Sentinel errors for errors.Is comparisons where callers don't need
// component/op context (e.g. `errors.Is(err, quant.ErrNotTrained)`).
var (
	ErrNotTrained         = &Error{Code: CodeNotTrained}
	ErrDimensionMismatch  = &Error{Code: CodeDimensionMismatch}
	ErrCapacityExceeded   = &Error{Code: CodeCapacityExceeded}
	ErrUnsupportedOp      = &Error{Code: CodeUnsupportedOp}
	ErrInvalidArgument    = &Error{Code: CodeInvalidArgument}
	ErrNumericalFailure   = &Error{Code: CodeNumericalFailure}
	ErrResourceExhausted  = &Error{Code: CodeResourceExhausted}
)
