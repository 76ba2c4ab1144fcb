package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: broker unreachable, store timeout during reconnection.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: unknown task id, clearing a task that is still running.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryFatal indicates failures the process cannot recover from.
	// Examples: initial broker connection refused, bad configuration.
	CategoryFatal ErrorCategory = "fatal"

	// CategoryInternal indicates unexpected errors or corrupted state.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for the failure scenarios of the task layer.
const (
	// Transient errors
	ErrCodeTimeout     ErrorCode = "TIMEOUT"     // Operation timed out
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Broker or store temporarily unreachable
	ErrCodeIO          ErrorCode = "IO"          // Channel or store I/O failed mid-flight

	// Permanent errors
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"       // Record or key does not exist
	ErrCodeUnknownTask    ErrorCode = "UNKNOWN_TASK"    // Task id is not registered
	ErrCodeUnknownChannel ErrorCode = "UNKNOWN_CHANNEL" // Publish on a queue with no open channel
	ErrCodeNotPermitted   ErrorCode = "NOT_PERMITTED"   // Operation rejected (e.g. clearing unfinished task)
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"   // Malformed or invalid input
	ErrCodeCanceled       ErrorCode = "CANCELED"        // Operation was canceled
	ErrCodeTaskFailed     ErrorCode = "TASK_FAILED"     // Task body reported a failure

	// Fatal errors
	ErrCodeConnection ErrorCode = "CONNECTION" // Initial broker/store connection failed
	ErrCodeConfig     ErrorCode = "CONFIG"     // Configuration cannot be loaded or is invalid

	// Internal errors
	ErrCodeInternal   ErrorCode = "INTERNAL"   // Unexpected internal error
	ErrCodeCorruption ErrorCode = "CORRUPTION" // Undecodable record or event on the wire
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable, ErrCodeIO:
		return CategoryTransient
	case ErrCodeNotFound, ErrCodeUnknownTask, ErrCodeUnknownChannel,
		ErrCodeNotPermitted, ErrCodeInvalidInput, ErrCodeCanceled, ErrCodeTaskFailed:
		return CategoryPermanent
	case ErrCodeConnection, ErrCodeConfig:
		return CategoryFatal
	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:        "operation timed out",
	ErrCodeUnavailable:    "broker or store temporarily unavailable",
	ErrCodeIO:             "i/o failure",
	ErrCodeNotFound:       "not found",
	ErrCodeUnknownTask:    "unknown task id",
	ErrCodeUnknownChannel: "no channel opened for queue",
	ErrCodeNotPermitted:   "operation not permitted",
	ErrCodeInvalidInput:   "invalid input provided",
	ErrCodeCanceled:       "operation canceled",
	ErrCodeTaskFailed:     "task execution failed",
	ErrCodeConnection:     "connection could not be established",
	ErrCodeConfig:         "invalid configuration",
	ErrCodeInternal:       "internal error",
	ErrCodeCorruption:     "undecodable data",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
