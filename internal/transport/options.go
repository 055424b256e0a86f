package transport

import (
	"github.com/fivetwenty-io/driverkit/internal/auth"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
)

// ConfigOptions converts the shared driver configuration into transport
// options: timeout, retry bounds, logging. Auth is vendor-specific and
// appended by the caller.
func ConfigOptions(cfg *driver.Config) []Option {
	var opts []Option

	if cfg.HTTPTimeout > 0 {
		opts = append(opts, WithTimeout(cfg.HTTPTimeout))
	}

	if cfg.RetryMax != 0 || cfg.RetryWaitMin > 0 || cfg.RetryWaitMax > 0 {
		opts = append(opts, WithRetryConfig(cfg.RetryMax, cfg.RetryWaitMin, cfg.RetryWaitMax))
	}

	if cfg.Logger != nil {
		opts = append(opts, WithLogger(cfg.Logger), WithDebug(cfg.Debug))
	}

	return opts
}

// BearerOptions builds options for vendors authenticating with a bearer
// token in the Authorization header.
func BearerOptions(token string, cfg *driver.Config) []Option {
	return append(ConfigOptions(cfg),
		WithTokenManager(auth.NewStaticTokenManager(token)))
}

// APIKeyOptions builds options for vendors authenticating with a key in a
// custom header.
func APIKeyOptions(header, key string, cfg *driver.Config) []Option {
	return append(ConfigOptions(cfg),
		WithAPIKeyHeader(header, auth.NewStaticTokenManager(key)))
}
