package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ExtendedHTTPTimeout is used for export and bulk operations.
	ExtendedHTTPTimeout = 120 * time.Second
)

// Retry limits for rate-limited and transient failures.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the base backoff delay.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax caps the backoff delay.
	DefaultRetryWaitMax = 30 * time.Second
)

// Per-vendor maximum page sizes, matching the documented API limits.
const (
	StripeMaxPageSize  = 100
	ApifyMaxPageSize   = 100
	FidooMaxPageSize   = 100
	MpohodaMaxPageSize = 50
	OdooMaxPageSize    = 1000
	PostHogMaxPageSize = 100
	AmplitudeMaxBatch  = 2000
	DefaultPageSize    = 100
)

// Default vendor API roots. Config.BaseURL overrides them.
const (
	StripeBaseURL    = "https://api.stripe.com"
	ApifyBaseURL     = "https://api.apify.com/v2"
	FidooBaseURL     = "https://api.fidoo.com/v2"
	MpohodaBaseURL   = "https://api.mpohoda.cz/api"
	MpohodaTokenURL  = "https://ucet.pohoda.cz/connect/token"
	PostHogBaseURL   = "https://app.posthog.com/api"
	OdooCallPath     = "/api/v1/call"
	AmplitudeBaseURL = "https://api2.amplitude.com"
)

// Cache defaults.
const (
	// DefaultCacheSize bounds the in-memory metadata cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the lifetime of cached schema lookups.
	DefaultCacheTTL = 5 * time.Minute
)

// UserAgent identifies the library on the wire.
const UserAgent = "driverkit/1.0"
