// Package errors provides structured error handling for fireworm.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Filesystem errors (stat, list, subscribe)
//   - 3XX: Resource errors (watch handle budget)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates filesystem errors.
	CategoryIO Category = "IO"
	// CategoryResource indicates OS resource exhaustion.
	CategoryResource Category = "RESOURCE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"

	// Filesystem errors (200-299)
	ErrCodeEntryVanished    = "ERR_201_ENTRY_VANISHED"
	ErrCodePermission       = "ERR_202_PERMISSION_DENIED"
	ErrCodeListFailed       = "ERR_208_LIST_FAILED"
	ErrCodeStatFailed       = "ERR_209_STAT_FAILED"
	ErrCodeSubscribeFailed  = "ERR_210_SUBSCRIBE_FAILED"
	ErrCodeBackendFailed    = "ERR_211_BACKEND_FAILED"
	ErrCodeBackendUnstarted = "ERR_212_BACKEND_UNAVAILABLE"

	// Resource errors (300-399)
	ErrCodeHandleExhausted = "ERR_301_HANDLE_EXHAUSTED"
	ErrCodeSystemCheck     = "ERR_302_SYSTEM_CHECK_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPattern = "ERR_402_INVALID_PATTERN"
	ErrCodeInvalidPath    = "ERR_406_INVALID_PATH"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeWatcherClosed = "ERR_502_WATCHER_CLOSED"
)

// categories maps the hundreds digit of a code to its category.
var categories = map[byte]Category{
	'1': CategoryConfig,
	'2': CategoryIO,
	'3': CategoryResource,
	'4': CategoryValidation,
}

// categoryFromCode reads the category from the digits after "ERR_".
func categoryFromCode(code string) Category {
	if len(code) < 7 || code[:4] != "ERR_" {
		return CategoryInternal
	}
	if c, ok := categories[code[4]]; ok {
		return c
	}
	return CategoryInternal
}

// severityFromCode: exhaustion ends a watch, races and permission
// denials are routine, a backend that may come up later only warns.
func severityFromCode(code string) Severity {
	switch {
	case code == ErrCodeHandleExhausted:
		return SeverityFatal
	case code == ErrCodeEntryVanished, code == ErrCodePermission:
		return SeverityInfo
	case isRetryableCode(code):
		return SeverityWarning
	default:
		return SeverityError
	}
}

func isRetryableCode(code string) bool {
	return code == ErrCodeBackendUnstarted
}
