// Package native translates failures signalled by the vision library into
// typed, catchable errors.
package native

import (
	"errors"
	"fmt"
)

// Code identifies the class of a native failure.
type Code int

const (
	CodeUnknown Code = iota
	CodeDecode
	CodeColorConversion
	CodeDetect
	CodeDescriptor
	CodeWatershed
	CodeBuffer
)

func (c Code) String() string {
	switch c {
	case CodeDecode:
		return "decode"
	case CodeColorConversion:
		return "color conversion"
	case CodeDetect:
		return "detect"
	case CodeDescriptor:
		return "descriptor"
	case CodeWatershed:
		return "watershed"
	case CodeBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// ErrUnavailable is returned by native entry points when the binary was built
// without OpenCV support.
var ErrUnavailable = errors.New("gocv build tag is not enabled")

// Error is a NativeComputationError: the vision library failed internally.
type Error struct {
	Op    string
	Code  Code
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: native %s failure: %v", e.Op, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s: native %s failure", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error.
func New(op string, code Code, cause error) *Error {
	return &Error{Op: op, Code: code, Cause: cause}
}

// Guard runs fn and converts a panic raised inside it into an *Error.
func Guard(op string, code Code, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Op: op, Code: code, Cause: panicError(r)}
		}
	}()
	if err := fn(); err != nil {
		var nerr *Error
		if errors.As(err, &nerr) || errors.Is(err, ErrUnavailable) {
			return err
		}
		return &Error{Op: op, Code: code, Cause: err}
	}
	return nil
}

func panicError(r any) error {
	switch v := r.(type) {
	case error:
		return v
	case int:
		return fmt.Errorf("error code %d", v)
	default:
		return fmt.Errorf("%v", v)
	}
}
