package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Preference & snippet storage errors
// 12000-12999: Formatting errors
// 13000-13999: Execution & judge errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	Timeout             ErrorCode = 10008
	Canceled            ErrorCode = 10009

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300

	// ========== Storage Errors (11000-11999) ==========

	PersistenceFailed   ErrorCode = 11000
	PersistenceCorrupt  ErrorCode = 11001
	StorageNotSupported ErrorCode = 11002
	SnippetNotFound     ErrorCode = 11100
	SnippetNameInvalid  ErrorCode = 11101

	// ========== Formatting Errors (12000-12999) ==========

	FormatFailed         ErrorCode = 12000
	FormatterUnavailable ErrorCode = 12001

	// ========== Execution & Judge Errors (13000-13999) ==========

	// Submission (13000-13099)
	CodeTooLarge         ErrorCode = 13002
	LanguageNotSupported ErrorCode = 13003

	// Judge (13100-13199)
	ExecutionTransportFailed ErrorCode = 13110
	ExecutionPollExhausted   ErrorCode = 13111
	RunInProgress            ErrorCode = 13112
	JudgeResponseInvalid     ErrorCode = 13113
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	Timeout:             "Request timeout",
	Canceled:            "Request canceled",

	// Validation
	ValidationFailed: "Validation failed",

	// Storage
	PersistenceFailed:   "Local storage operation failed",
	PersistenceCorrupt:  "Stored value is corrupt",
	StorageNotSupported: "Storage driver is not supported",
	SnippetNotFound:     "Snippet not found",
	SnippetNameInvalid:  "Snippet name is invalid",

	// Formatting
	FormatFailed:         "Failed to format code",
	FormatterUnavailable: "Formatter is not configured",

	// Execution
	CodeTooLarge:             "Source code is too large",
	LanguageNotSupported:     "Unsupported language",
	ExecutionTransportFailed: "Judge request failed",
	ExecutionPollExhausted:   "Judge did not finish in time",
	RunInProgress:            "Another run is already in progress",
	JudgeResponseInvalid:     "Judge returned an invalid response",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == SnippetNotFound:
		return 404
	case c == TooManyRequests:
		return 429
	case c == Canceled:
		return 499
	case c == RunInProgress:
		return 409
	case c == Timeout, c == ExecutionPollExhausted:
		return 504
	case c == ExecutionTransportFailed, c == JudgeResponseInvalid:
		return 502
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge, c == SnippetNameInvalid:
		return 400
	default:
		return 500
	}
}
