package errors

import "errors"

// Category classifies remote-service errors for retry decisions.
type Category string

const (
	// CategoryTransient indicates a temporary error that should be retried.
	CategoryTransient Category = "transient"
	// CategoryPermanent indicates an error that will not be resolved by retry.
	CategoryPermanent Category = "permanent"
	// CategoryNotFound indicates the remote resource does not exist (yet).
	CategoryNotFound Category = "not_found"
)

// Common error codes for remote failures.
const (
	CodeTimeout            = "TIMEOUT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeConnection         = "CONNECTION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeDecode             = "DECODE_ERROR"
	CodeFetchFailed        = "FETCH_FAILED"
)

// RemoteError wraps failures from the remote meeting-bot service with a
// category so callers can decide between retrying and terminating without
// inspecting exception types or message text.
type RemoteError struct {
	Category Category
	Code     string
	Message  string
	Err      error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error should trigger a retry.
func (e *RemoteError) IsRetryable() bool {
	return e.Category == CategoryTransient
}

// NewTransientError creates a new transient remote error.
func NewTransientError(code, message string, err error) *RemoteError {
	return &RemoteError{Category: CategoryTransient, Code: code, Message: message, Err: err}
}

// NewPermanentError creates a new permanent remote error.
func NewPermanentError(code, message string, err error) *RemoteError {
	return &RemoteError{Category: CategoryPermanent, Code: code, Message: message, Err: err}
}

// NewRemoteNotFoundError creates a remote not-found error. It wraps ErrNotFound
// so errors.Is checks keep working at the API boundary.
func NewRemoteNotFoundError(message string) *RemoteError {
	return &RemoteError{Category: CategoryNotFound, Code: CodeNotFound, Message: message, Err: ErrNotFound}
}

// IsRetryable reports whether err is a remote error worth retrying.
// Non-RemoteError values are treated as retryable: an unclassified failure
// should not burn a polling run.
func IsRetryable(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.IsRetryable()
	}
	return true
}

// IsRemoteNotFound reports whether err is a remote not-found.
func IsRemoteNotFound(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Category == CategoryNotFound
	}
	return false
}
