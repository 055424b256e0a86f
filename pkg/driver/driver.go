package driver

import (
	"context"
	"time"
)

// Driver is the uniform surface implemented by every vendor driver. All
// operations are synchronous and honor ctx for cancellation and deadlines.
// Every returned error is a *Error.
type Driver interface {
	// Read returns one page of records matching the query. A limit above
	// the vendor's maximum page size fails validation before any network
	// call.
	Read(ctx context.Context, query *Query) ([]Record, error)

	// ReadBatched returns a lazy iterator over all pages matching the
	// query. Concatenating its batches yields the same records as repeated
	// Read calls with advancing pagination.
	ReadBatched(ctx context.Context, query *Query) (*BatchIterator, error)

	// Create inserts a record and returns it as the vendor stored it.
	Create(ctx context.Context, object string, data Record) (Record, error)

	// Update modifies the identified record and returns the result.
	Update(ctx context.Context, object string, id string, data Record) (Record, error)

	// Delete removes the identified record. Vendors with soft deletes
	// report their own truth; true means the vendor acknowledged removal.
	Delete(ctx context.Context, object string, id string) (bool, error)

	// ListObjects returns the object names this driver can address.
	ListObjects(ctx context.Context) ([]string, error)

	// GetFields returns the schema for one object.
	GetFields(ctx context.Context, object string) (Schema, error)

	// Capabilities returns the driver's static capability descriptor.
	Capabilities() Capabilities

	// Name returns the vendor name, e.g. "stripe".
	Name() string

	// Close releases idle connections. The driver must not be used after.
	Close() error
}

// BatchIngestor is implemented by drivers whose vendor accepts bulk event
// ingestion. Callers discover it with a type assertion on the Driver.
type BatchIngestor interface {
	// IngestBatch submits up to the vendor's batch maximum of events in a
	// single call and returns the number accepted.
	IngestBatch(ctx context.Context, events []Record) (int, error)
}

// Logger is the minimal structured logging interface drivers log through.
// Implementations adapt it to their logging library of choice.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config carries everything needed to construct a vendor driver. Credential
// fields are vendor-specific; unused ones stay empty.
type Config struct {
	// BaseURL overrides the vendor's default API root. Useful for tests
	// and self-hosted deployments.
	BaseURL string

	// APIKey is the credential for API-key and bearer-token vendors.
	APIKey string

	// AccessToken is a pre-obtained OAuth2 access token.
	AccessToken string

	// ClientID and ClientSecret drive the OAuth2 client-credentials flow.
	ClientID     string
	ClientSecret string

	// TokenURL overrides the vendor's default OAuth2 token endpoint.
	TokenURL string

	// Username and Password serve vendors using basic authentication.
	Username string
	Password string

	// Database selects the Odoo database to operate on.
	Database string

	// ProjectID scopes PostHog requests to one project.
	ProjectID string

	// SecretKey is the Amplitude secret key used for export reads.
	SecretKey string

	// HTTPTimeout bounds each HTTP request. Zero means the default.
	HTTPTimeout time.Duration

	// RetryMax caps retries for rate-limited and transient failures.
	// Negative disables retries; zero means the default.
	RetryMax int

	// RetryWaitMin and RetryWaitMax bound the exponential backoff.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Debug enables request/response logging through Logger.
	Debug bool

	// Logger receives structured log output. Nil disables logging.
	Logger Logger

	// ValidateOnInit performs one cheap authenticated call during
	// construction so bad credentials fail fast.
	ValidateOnInit bool

	// Cache, when set, backs read-through caching of schema and
	// object-list lookups.
	Cache Cache
}
