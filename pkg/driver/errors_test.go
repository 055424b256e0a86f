package driver_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	err := driver.NewRateLimitError("rate limit exceeded", map[string]any{"retry_after": 30})

	assert.Equal(t, "rate_limit: rate limit exceeded", err.Error())
}

func TestErrorKindHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		matcher func(error) bool
		matches bool
	}{
		{
			name:    "authentication error matches IsAuthentication",
			err:     driver.NewAuthenticationError("invalid API key", nil),
			matcher: driver.IsAuthentication,
			matches: true,
		},
		{
			name:    "object not found matches IsNotFound",
			err:     driver.NewObjectNotFoundError("object 'custmers' not found", nil),
			matcher: driver.IsNotFound,
			matches: true,
		},
		{
			name:    "field not found matches IsNotFound",
			err:     driver.NewFieldNotFoundError("field 'emial' not found on 'customers'", nil),
			matcher: driver.IsNotFound,
			matches: true,
		},
		{
			name:    "rate limit matches IsRateLimit",
			err:     driver.NewRateLimitError("rate limit exceeded", nil),
			matcher: driver.IsRateLimit,
			matches: true,
		},
		{
			name:    "validation matches IsValidation",
			err:     driver.NewValidationError("limit exceeds maximum", nil),
			matcher: driver.IsValidation,
			matches: true,
		},
		{
			name:    "timeout matches IsTimeout",
			err:     driver.NewTimeoutError("request deadline exceeded", nil),
			matcher: driver.IsTimeout,
			matches: true,
		},
		{
			name:    "connection matches IsConnection",
			err:     driver.NewConnectionError("dial failed", nil),
			matcher: driver.IsConnection,
			matches: true,
		},
		{
			name:    "query syntax matches IsQuerySyntax",
			err:     driver.NewQuerySyntaxError("malformed filter", nil),
			matcher: driver.IsQuerySyntax,
			matches: true,
		},
		{
			name:    "not implemented matches IsNotImplemented",
			err:     driver.NewNotImplementedError("delete not supported", nil),
			matcher: driver.IsNotImplemented,
			matches: true,
		},
		{
			name:    "validation does not match IsRateLimit",
			err:     driver.NewValidationError("bad input", nil),
			matcher: driver.IsRateLimit,
			matches: false,
		},
		{
			name:    "plain error matches nothing",
			err:     fmt.Errorf("plain error"),
			matcher: driver.IsNotFound,
			matches: false,
		},
		{
			name:    "nil error matches nothing",
			err:     nil,
			matcher: driver.IsAuthentication,
			matches: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.matches, tt.matcher(tt.err))
		})
	}
}

func TestErrorKindHelpers_Wrapped(t *testing.T) {
	t.Parallel()

	inner := driver.NewRateLimitError("rate limit exceeded", map[string]any{"retry_after": 12})
	wrapped := fmt.Errorf("reading customers: %w", inner)

	assert.True(t, driver.IsRateLimit(wrapped))
	assert.Equal(t, 12*time.Second, driver.RetryAfter(wrapped))
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected time.Duration
	}{
		{
			name:     "int seconds",
			err:      driver.NewRateLimitError("limited", map[string]any{"retry_after": 30}),
			expected: 30 * time.Second,
		},
		{
			name:     "float seconds from JSON decoding",
			err:      driver.NewRateLimitError("limited", map[string]any{"retry_after": float64(5)}),
			expected: 5 * time.Second,
		},
		{
			name:     "duration value",
			err:      driver.NewRateLimitError("limited", map[string]any{"retry_after": 2 * time.Minute}),
			expected: 2 * time.Minute,
		},
		{
			name:     "no detail",
			err:      driver.NewRateLimitError("limited", nil),
			expected: 0,
		},
		{
			name:     "not a driver error",
			err:      fmt.Errorf("plain"),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, driver.RetryAfter(tt.err))
		})
	}
}

func TestError_Detail(t *testing.T) {
	t.Parallel()

	err := driver.NewObjectNotFoundError("object 'custmers' not found", map[string]any{
		"available_objects": []string{"customers", "charges"},
		"suggestion":        "customers",
	})

	assert.Equal(t, "customers", err.Detail("suggestion"))
	assert.Nil(t, err.Detail("missing"))

	bare := driver.NewConnectionError("dial failed", nil)
	assert.Nil(t, bare.Detail("anything"))
}

func TestAsError(t *testing.T) {
	t.Parallel()

	err := driver.NewValidationError("bad input", nil)
	wrapped := fmt.Errorf("creating invoice: %w", err)

	driverErr := driver.AsError(wrapped)
	require.NotNil(t, driverErr)
	assert.Equal(t, driver.ErrorKindValidation, driverErr.Kind)

	assert.Nil(t, driver.AsError(fmt.Errorf("plain")))
	assert.Nil(t, driver.AsError(nil))
}
