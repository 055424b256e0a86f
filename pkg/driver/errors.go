package driver

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind tags a driver error with the condition it represents. Kinds
// carry no behavior; they exist so callers can dispatch without string
// matching.
type ErrorKind string

const (
	ErrorKindAuthentication ErrorKind = "authentication"
	ErrorKindConnection     ErrorKind = "connection"
	ErrorKindObjectNotFound ErrorKind = "object_not_found"
	ErrorKindFieldNotFound  ErrorKind = "field_not_found"
	ErrorKindQuerySyntax    ErrorKind = "query_syntax"
	ErrorKindRateLimit      ErrorKind = "rate_limit"
	ErrorKindValidation     ErrorKind = "validation"
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindNotImplemented ErrorKind = "not_implemented"
)

// Error is the single error type surfaced by all drivers. Details holds
// structured data for programmatic handling: retry_after seconds for rate
// limits, the available object names for not-found conditions, suggestion
// text, and so on.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Detail returns a single details entry, or nil when absent.
func (e *Error) Detail(key string) any {
	if e.Details == nil {
		return nil
	}

	return e.Details[key]
}

// NewError creates a driver error with the given kind.
func NewError(kind ErrorKind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// NewAuthenticationError reports invalid or missing credentials.
func NewAuthenticationError(message string, details map[string]any) *Error {
	return NewError(ErrorKindAuthentication, message, details)
}

// NewConnectionError reports an unreachable API or a malformed response.
func NewConnectionError(message string, details map[string]any) *Error {
	return NewError(ErrorKindConnection, message, details)
}

// NewObjectNotFoundError reports a missing object or resource.
func NewObjectNotFoundError(message string, details map[string]any) *Error {
	return NewError(ErrorKindObjectNotFound, message, details)
}

// NewFieldNotFoundError reports a field missing from an object schema.
func NewFieldNotFoundError(message string, details map[string]any) *Error {
	return NewError(ErrorKindFieldNotFound, message, details)
}

// NewQuerySyntaxError reports a query the vendor rejected as malformed.
func NewQuerySyntaxError(message string, details map[string]any) *Error {
	return NewError(ErrorKindQuerySyntax, message, details)
}

// NewRateLimitError reports an exhausted rate-limit retry budget.
func NewRateLimitError(message string, details map[string]any) *Error {
	return NewError(ErrorKindRateLimit, message, details)
}

// NewValidationError reports invalid input rejected before or by the vendor.
func NewValidationError(message string, details map[string]any) *Error {
	return NewError(ErrorKindValidation, message, details)
}

// NewTimeoutError reports an exceeded request deadline.
func NewTimeoutError(message string, details map[string]any) *Error {
	return NewError(ErrorKindTimeout, message, details)
}

// NewNotImplementedError reports an operation the vendor does not support.
func NewNotImplementedError(message string, details map[string]any) *Error {
	return NewError(ErrorKindNotImplemented, message, details)
}

// AsError unwraps err into a *Error, or nil when it is not one.
func AsError(err error) *Error {
	var driverErr *Error
	if errors.As(err, &driverErr) {
		return driverErr
	}

	return nil
}

func isKind(err error, kind ErrorKind) bool {
	driverErr := AsError(err)

	return driverErr != nil && driverErr.Kind == kind
}

// IsAuthentication checks if the error is an authentication error.
func IsAuthentication(err error) bool {
	return isKind(err, ErrorKindAuthentication)
}

// IsConnection checks if the error is a connection error.
func IsConnection(err error) bool {
	return isKind(err, ErrorKindConnection)
}

// IsNotFound checks if the error is an object-not-found or
// field-not-found error.
func IsNotFound(err error) bool {
	return isKind(err, ErrorKindObjectNotFound) || isKind(err, ErrorKindFieldNotFound)
}

// IsQuerySyntax checks if the error is a query-syntax error.
func IsQuerySyntax(err error) bool {
	return isKind(err, ErrorKindQuerySyntax)
}

// IsRateLimit checks if the error is a rate-limit error.
func IsRateLimit(err error) bool {
	return isKind(err, ErrorKindRateLimit)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return isKind(err, ErrorKindValidation)
}

// IsTimeout checks if the error is a timeout error.
func IsTimeout(err error) bool {
	return isKind(err, ErrorKindTimeout)
}

// IsNotImplemented checks if the error is a not-implemented error.
func IsNotImplemented(err error) bool {
	return isKind(err, ErrorKindNotImplemented)
}

// RetryAfter extracts the retry_after detail from a rate-limit error as a
// duration. Returns zero when the error carries no retry-after hint.
func RetryAfter(err error) time.Duration {
	driverErr := AsError(err)
	if driverErr == nil {
		return 0
	}

	switch v := driverErr.Detail("retry_after").(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v) * time.Second
	case time.Duration:
		return v
	default:
		return 0
	}
}

// Static errors for sentinel comparisons in iterator and facade code.
var (
	ErrNoMoreBatches     = errors.New("no more batches")
	ErrConfigRequired    = errors.New("config is required")
	ErrBaseURLRequired   = errors.New("base URL is required")
	ErrUnknownVendor     = errors.New("unknown vendor")
	ErrNilPageFunc       = errors.New("page fetch function is required")
	ErrCacheDisabled     = errors.New("cache disabled")
	ErrCacheKeyNotFound  = errors.New("key not found in cache")
	ErrCacheEntryExpired = errors.New("cache entry expired")
)
