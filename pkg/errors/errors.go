package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel values used throughout the analytics pipeline.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternalError = errors.New("internal error")

	// ErrEmptyConversation is the input-invalid precondition failure: every
	// analyzer raises it for a conversation with zero messages, and the
	// orchestrator deliberately does not catch it.
	ErrEmptyConversation = errors.New("conversation has no messages")

	// ErrBackendUnavailable marks a missing or failed remote backend. It is
	// caught at each call site and downgraded to a local method.
	ErrBackendUnavailable = errors.New("analysis backend unavailable")

	// ErrNotAvailable marks an analyzer whose preconditions are not met
	// (for example a network graph over a single participant). Callers
	// report "not available" rather than failing.
	ErrNotAvailable = errors.New("analysis not available")
)

// Error is a structured error carrying contextual fields, an optional code,
// and the location where it was created.
type Error struct {
	original error
	message  string
	fields   map[string]interface{}
	file     string
	line     int

	Code string
}

// New creates a structured error with the given message.
func New(message string, fields ...map[string]interface{}) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{
		original: errors.New(message),
		message:  message,
		fields:   firstFields(fields),
		file:     file,
		line:     line,
	}
}

// Wrap wraps an existing error with additional context. Returns nil when err
// is nil.
func Wrap(err error, message string, fields ...map[string]interface{}) *Error {
	if err == nil {
		return nil
	}
	_, file, line, _ := runtime.Caller(1)
	return &Error{
		original: err,
		message:  message,
		fields:   firstFields(fields),
		file:     file,
		line:     line,
	}
}

func firstFields(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 && fields[0] != nil {
		return fields[0]
	}
	return make(map[string]interface{})
}

// WithField returns a copy of the error with one additional context field.
func (e *Error) WithField(key string, value interface{}) *Error {
	if e == nil {
		return nil
	}
	fields := make(map[string]interface{}, len(e.fields)+1)
	for k, v := range e.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Error{
		original: e.original,
		message:  e.message,
		fields:   fields,
		file:     e.file,
		line:     e.line,
		Code:     e.Code,
	}
}

// WithCode returns a copy of the error carrying a categorization code.
func (e *Error) WithCode(code string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		original: e.original,
		message:  e.message,
		fields:   e.fields,
		file:     e.file,
		line:     e.line,
		Code:     code,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil || e.original == nil {
		return ""
	}
	if e.message == "" {
		return e.original.Error()
	}
	return fmt.Sprintf("%s: %v", e.message, e.original)
}

// Unwrap implements errors.Unwrap.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.original
}

// Is reports whether any error in the tree matches target.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	if errors.Is(e.original, target) {
		return true
	}
	return e == target
}

// Location returns the file:line where the error was created.
func (e *Error) Location() string {
	if e == nil {
		return ""
	}
	parts := strings.Split(e.file, "/")
	return fmt.Sprintf("%s:%d", parts[len(parts)-1], e.line)
}

// GetFields returns the error's context fields.
func (e *Error) GetFields() map[string]interface{} {
	if e == nil {
		return nil
	}
	return e.fields
}

// NewEmptyConversation creates an ErrEmptyConversation for the named
// conversation.
func NewEmptyConversation(conversationID string) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{
		original: ErrEmptyConversation,
		message:  fmt.Sprintf("conversation %q has no messages", conversationID),
		fields:   map[string]interface{}{"conversation_id": conversationID},
		file:     file,
		line:     line,
		Code:     "EMPTY_CONVERSATION",
	}
}

// NewBackendUnavailable creates an ErrBackendUnavailable with detail about
// the backend that failed.
func NewBackendUnavailable(backend string, cause error) *Error {
	_, file, line, _ := runtime.Caller(1)
	fields := map[string]interface{}{"backend": backend}
	if cause != nil {
		fields["cause"] = cause.Error()
	}
	return &Error{
		original: ErrBackendUnavailable,
		message:  fmt.Sprintf("backend %q unavailable", backend),
		fields:   fields,
		file:     file,
		line:     line,
		Code:     "BACKEND_UNAVAILABLE",
	}
}

// NewNotAvailable creates an ErrNotAvailable explaining why an analyzer
// could not run.
func NewNotAvailable(reason string) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{
		original: ErrNotAvailable,
		message:  reason,
		fields:   make(map[string]interface{}),
		file:     file,
		line:     line,
		Code:     "NOT_AVAILABLE",
	}
}

// IsErrorType checks whether err matches target anywhere in its tree.
func IsErrorType(err, target error) bool {
	return errors.Is(err, target)
}

// GetErrorCode extracts the code from a structured error, or "".
func GetErrorCode(err error) string {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Code
	}
	return ""
}
