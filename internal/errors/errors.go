// Package errors provides the error taxonomy for randsearch.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies a failure. Every kind is fatal to a run.
type Kind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown Kind = iota
	// KindConfig is an invalid option value, detected before the search starts.
	KindConfig
	// KindInputFormat is malformed or dimensionally inconsistent seed data.
	KindInputFormat
	// KindNoScoreFound means the objective program printed no parseable score.
	KindNoScoreFound
	// KindProcessFailure means the objective program could not be launched,
	// exited non-zero, or timed out.
	KindProcessFailure
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindInputFormat:
		return "input_format"
	case KindNoScoreFound:
		return "no_score_found"
	case KindProcessFailure:
		return "process_failure"
	default:
		return "unknown"
	}
}

// Sentinels for use with errors.Is. They match any *Error of the same kind.
var (
	ErrConfig         = &Error{Kind: KindConfig, Message: "invalid configuration"}
	ErrInputFormat    = &Error{Kind: KindInputFormat, Message: "invalid input"}
	ErrNoScoreFound   = &Error{Kind: KindNoScoreFound, Message: "no score found"}
	ErrProcessFailure = &Error{Kind: KindProcessFailure, Message: "process failure"}
)

// Error represents an error with context and stack trace.
type Error struct {
	// Kind classifies the failure
	Kind Kind
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// The component or package where the error occurred
	Component string
	// The stack trace
	Stack []string
	// Reported is set once the error has been shown to the user.
	Reported bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString("operation=")
		builder.WriteString(e.Operation)
	}

	if e.Component != "" {
		if builder.Len() > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("component=")
		builder.WriteString(e.Component)
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same, known kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind != KindUnknown && t.Kind == e.Kind
}

// UserMessage is the text shown after the "## ERROR: " prefix. It omits the
// operation and component annotations, which are meant for logs.
func (e *Error) UserMessage() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

// WithMessage adds a message to the error.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent adds a component to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// MarkReported flags the error as already shown to the user.
func (e *Error) MarkReported() *Error {
	e.Reported = true
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates a new error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{
		Kind:    kind,
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Errorf creates a new error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// Wrap wraps err as the given kind with additional context.
func Wrap(err error, kind Kind, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Err:     err,
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Wrapf wraps err as the given kind with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Err:     err,
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsReported reports whether err carries an *Error already shown to the user.
func IsReported(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Reported
	}
	return false
}

// UserMessage returns the user-facing text of err.
func UserMessage(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.UserMessage()
	}
	return err.Error()
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case KindOf(err) == KindConfig:
		return 2
	default:
		return 1
	}
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
