package errors

import (
	"fmt"
)

// WatchError is the structured error type for fireworm.
// It carries enough context for the watcher to decide whether a failure is
// absorbed, surfaced as an error event, or escalated to exhaustion handling.
type WatchError struct {
	// Code is the unique error code (e.g., "ERR_201_ENTRY_VANISHED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Resource, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Path is the filesystem path the failure relates to, if any.
	Path string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *WatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *WatchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *WatchError) Is(target error) bool {
	if t, ok := target.(*WatchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *WatchError) WithDetail(key, value string) *WatchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *WatchError) WithSuggestion(suggestion string) *WatchError {
	e.Suggestion = suggestion
	return e
}

// WithPath records the path the error relates to.
func (e *WatchError) WithPath(path string) *WatchError {
	e.Path = path
	return e
}

// New creates a new WatchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *WatchError {
	return &WatchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a WatchError from an existing error.
// The error's message becomes the WatchError message.
func Wrap(code string, err error) *WatchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *WatchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *WatchError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *WatchError {
	return New(ErrCodeInternal, message, cause)
}

// ListFailed reports a directory listing that failed for a reason other
// than the directory disappearing.
func ListFailed(path string, cause error) *WatchError {
	return New(ErrCodeListFailed, "list directory", cause).WithPath(path)
}

// StatFailed reports an unexpected stat failure.
func StatFailed(path string, cause error) *WatchError {
	return New(ErrCodeStatFailed, "stat entry", cause).WithPath(path)
}

// SubscribeFailed reports an OS subscription that could not be created.
func SubscribeFailed(path string, cause error) *WatchError {
	return New(ErrCodeSubscribeFailed, "subscribe to changes", cause).WithPath(path)
}

// Exhausted reports that the OS ran out of watch handles.
func Exhausted(path string, cause error) *WatchError {
	return New(ErrCodeHandleExhausted, "watch handles exhausted", cause).
		WithPath(path).
		WithSuggestion("raise the descriptor limit (ulimit -n) or fs.inotify.max_user_watches, then recover")
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a WatchError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(*WatchError); ok {
		return we.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(*WatchError); ok {
		return we.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a WatchError.
// Returns empty string if not a WatchError.
func GetCode(err error) string {
	if we, ok := err.(*WatchError); ok {
		return we.Code
	}
	return ""
}

// GetCategory extracts the category from a WatchError.
// Returns empty string if not a WatchError.
func GetCategory(err error) Category {
	if we, ok := err.(*WatchError); ok {
		return we.Category
	}
	return ""
}
