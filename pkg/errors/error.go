package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Error carries an ErrorCode through the execution and storage layers up to
// the CLI renderer and the HTTP envelope.
type Error struct {
	Code    ErrorCode
	Message string                 // shown to the user; defaults to Code.Message()
	Details map[string]interface{} // echoed in the HTTP envelope
	Err     error
	Stack   string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the code's default message.
func New(code ErrorCode) *Error {
	return newError(code, code.Message(), nil)
}

// Newf creates an Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return newError(code, fmt.Sprintf(format, args...), nil)
}

// Wrap attaches code to err, keeping err's message. Wrapping an *Error
// returns a copy and leaves err untouched.
func Wrap(err error, code ErrorCode) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		out := *e
		out.Code = code
		out.Details = cloneDetails(e.Details)
		return &out
	}
	return newError(code, err.Error(), err)
}

// Wrapf wraps err under code with a new message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return newError(code, fmt.Sprintf(format, args...), err)
}

// FromContext maps a context error onto Timeout or Canceled. what names the
// interrupted operation, e.g. "execution".
func FromContext(err error, what string) *Error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrapf(err, Timeout, "%s timed out", what)
	case stderrors.Is(err, context.Canceled):
		return Wrapf(err, Canceled, "%s canceled", what)
	default:
		return Wrap(err, InternalServerError)
	}
}

func newError(code ErrorCode, msg string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Details: make(map[string]interface{}),
		Err:     cause,
		Stack:   getStack(3),
	}
}

func cloneDetails(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetCode returns err's code, Success for nil and InternalServerError for
// foreign errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalServerError
}

// GetError returns the *Error in err's chain, wrapping foreign errors as
// InternalServerError.
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Wrap(err, InternalServerError)
}

// Is reports whether the first *Error in err's chain has code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	return err != nil && stderrors.As(err, &e) && e.Code == code
}

func getStack(skip int) string {
	const maxDepth = 10
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&builder, "\n\t%s:%d %s", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return builder.String()
}

// UnsupportedLanguage is returned for any language outside the registry.
func UnsupportedLanguage(lang string) *Error {
	return Newf(LanguageNotSupported, "Unsupported language: %s", lang).
		WithDetail("language", lang)
}

// ValidationError reports a bad field value.
func ValidationError(field, reason string) *Error {
	return New(ValidationFailed).
		WithDetail("field", field).
		WithDetail("reason", reason)
}
