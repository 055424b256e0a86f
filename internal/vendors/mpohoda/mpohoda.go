// Package mpohoda implements the mPOHODA accounting API driver. It
// authenticates with either a static Api-Key header or OAuth2 client
// credentials, and pages with PageNumber/PageSize plus an After token when
// the server hands one out.
package mpohoda

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/fivetwenty-io/driverkit/internal/auth"
	"github.com/fivetwenty-io/driverkit/internal/constants"
	"github.com/fivetwenty-io/driverkit/internal/transport"
	"github.com/fivetwenty-io/driverkit/internal/vendors/vendorcache"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
)

const (
	vendorName   = "mpohoda"
	apiKeyHeader = "Api-Key"
)

// Objects are the mPOHODA agendas this driver addresses. The API uses
// PascalCase resource names.
var Objects = []string{
	"Activities",
	"BankAccounts",
	"Banks",
	"BusinessPartners",
	"CashRegisters",
	"Centres",
	"CityPostCodes",
	"Countries",
	"Currencies",
	"Establishments",
}

var schemas = map[string]driver.Schema{
	"Activities": {
		"id":          {Type: "string", Label: "ID"},
		"description": {Type: "string", Label: "Description"},
		"createdDate": {Type: "datetime", Label: "Created Date"},
	},
	"BusinessPartners": {
		"id":                   {Type: "string", Label: "ID"},
		"name":                 {Type: "string", Label: "Name", Required: true},
		"taxNumber":            {Type: "string", Label: "Tax Number"},
		"identificationNumber": {Type: "string", Label: "Identification Number"},
		"addresses":            {Type: "array", Label: "Addresses"},
	},
	"Banks": {
		"id":   {Type: "string", Label: "ID"},
		"name": {Type: "string", Label: "Name"},
	},
	"BankAccounts": {
		"id":            {Type: "string", Label: "ID"},
		"accountNumber": {Type: "string", Label: "Account Number"},
		"bankId":        {Type: "string", Label: "Bank ID"},
	},
	"CashRegisters": {
		"id":   {Type: "string", Label: "ID"},
		"name": {Type: "string", Label: "Name"},
	},
	"Centres": {
		"id":   {Type: "string", Label: "ID"},
		"name": {Type: "string", Label: "Name"},
	},
}

var genericSchema = driver.Schema{
	"id": {Type: "string", Label: "ID"},
}

// Driver is the mPOHODA vendor driver.
type Driver struct {
	client *transport.Client
	meta   *vendorcache.Metadata
}

// New creates an mPOHODA driver. An API key wins over client credentials;
// with neither, the constructor fails.
func New(cfg *driver.Config) (*Driver, error) {
	if cfg == nil {
		return nil, driver.ErrConfigRequired
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = constants.MpohodaBaseURL
	}

	opts := transport.ConfigOptions(cfg)

	switch {
	case cfg.APIKey != "":
		opts = append(opts, transport.WithAPIKeyHeader(apiKeyHeader,
			auth.NewStaticTokenManager(cfg.APIKey)))
	case cfg.ClientID != "":
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = constants.MpohodaTokenURL
		}

		manager, err := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     tokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			AccessToken:  cfg.AccessToken,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring mpohoda oauth: %w", err)
		}

		opts = append(opts, transport.WithTokenManager(manager))
	case cfg.AccessToken != "":
		opts = append(opts, transport.WithTokenManager(
			auth.NewStaticTokenManager(cfg.AccessToken)))
	default:
		return nil, driver.NewAuthenticationError(
			"missing mPOHODA credentials: set an API key or OAuth2 client credentials", nil)
	}

	return &Driver{
		client: transport.NewClient(vendorName, baseURL, opts...),
		meta:   vendorcache.New(vendorName, cfg.Cache),
	}, nil
}

// FromEnv creates an mPOHODA driver from MPOHODA_API_KEY or the
// MPOHODA_CLIENT_ID / MPOHODA_CLIENT_SECRET pair.
func FromEnv(cfg *driver.Config) (*Driver, error) {
	if cfg == nil {
		cfg = &driver.Config{}
	}

	cfg.APIKey = os.Getenv("MPOHODA_API_KEY")
	cfg.ClientID = os.Getenv("MPOHODA_CLIENT_ID")
	cfg.ClientSecret = os.Getenv("MPOHODA_CLIENT_SECRET")
	cfg.AccessToken = os.Getenv("MPOHODA_ACCESS_TOKEN")

	if cfg.APIKey == "" && cfg.ClientID == "" && cfg.AccessToken == "" {
		return nil, driver.MissingEnvError(vendorName,
			[]string{"MPOHODA_API_KEY", "MPOHODA_CLIENT_ID", "MPOHODA_CLIENT_SECRET"})
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("MPOHODA_BASE_URL")
	}

	return New(cfg)
}

// Name returns "mpohoda".
func (d *Driver) Name() string {
	return vendorName
}

// Capabilities describes mPOHODA driver support. The public API exposes
// creation but no update or delete.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		Read:                  true,
		Write:                 true,
		Update:                false,
		Delete:                false,
		BatchOperations:       false,
		Streaming:             true,
		Pagination:            driver.PaginationHybrid,
		MaxPageSize:           constants.MpohodaMaxPageSize,
		SupportsTransactions:  false,
		SupportsRelationships: false,
	}
}

// ListObjects returns the supported agendas.
func (d *Driver) ListObjects(ctx context.Context) ([]string, error) {
	return append([]string(nil), Objects...), nil
}

// GetFields returns the schema for one agenda.
func (d *Driver) GetFields(ctx context.Context, object string) (driver.Schema, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	return d.meta.Schema(ctx, object, func(context.Context) (driver.Schema, error) {
		if schema, ok := schemas[object]; ok {
			return schema, nil
		}

		return genericSchema, nil
	})
}

// Read returns one page, addressed by PageNumber (1-indexed) and PageSize.
func (d *Driver) Read(ctx context.Context, query *driver.Query) ([]driver.Record, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	if err := driver.ValidateLimit(query.Limit, constants.MpohodaMaxPageSize); err != nil {
		return nil, err
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}

	records, _, err := d.page(ctx, query, page, "")
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", query.Object, err)
	}

	return records, nil
}

// ReadBatched iterates all pages. When a response carries a page token the
// next request sends it as After; otherwise the page number advances.
func (d *Driver) ReadBatched(ctx context.Context, query *driver.Query) (*driver.BatchIterator, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	batched := query.Clone()
	if batched.Limit <= 0 || batched.Limit > constants.MpohodaMaxPageSize {
		batched.Limit = constants.MpohodaMaxPageSize
	}

	fetch := func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		page := cursor.Page
		if page <= 0 {
			page = 1
		}

		records, token, err := d.page(ctx, batched, page, cursor.Token)
		if err != nil {
			return nil, cursor, false, err
		}

		next := driver.Cursor{Page: page + 1, Token: token}
		hasMore := len(records) == batched.Limit || token != ""

		return records, next, hasMore, nil
	}

	start := driver.Cursor{Page: query.Page, Token: query.Cursor}

	return driver.NewBatchIterator(fetch, start)
}

func (d *Driver) page(ctx context.Context, query *driver.Query, page int, after string) ([]driver.Record, string, error) {
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("PageSize", strconv.Itoa(query.Limit))
	}

	if after != "" {
		params.Set("After", after)
	} else {
		params.Set("PageNumber", strconv.Itoa(page))
	}

	for field, values := range query.Filters {
		if len(values) > 0 {
			params.Set(field, values[0])
		}
	}

	resp, err := d.client.Get(ctx, "/"+query.Object, params)
	if err != nil {
		return nil, "", err
	}

	var envelope struct {
		Data       []driver.Record `json:"data"`
		Pagination struct {
			PageToken string `json:"pageToken"`
		} `json:"pagination"`
	}

	if err := resp.JSON(&envelope); err != nil {
		return nil, "", err
	}

	return envelope.Data, envelope.Pagination.PageToken, nil
}

// Create inserts a record into an agenda.
func (d *Driver) Create(ctx context.Context, object string, data driver.Record) (driver.Record, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	schema, _ := d.GetFields(ctx, object)
	if err := driver.ValidateRequired(object, schema, data); err != nil {
		return nil, err
	}

	resp, err := d.client.Post(ctx, "/"+object, data)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", object, err)
	}

	var record driver.Record
	if err := resp.JSON(&record); err != nil {
		return nil, err
	}

	return record, nil
}

// Update is not exposed by the mPOHODA API.
func (d *Driver) Update(ctx context.Context, object, id string, data driver.Record) (driver.Record, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	return nil, driver.NewNotImplementedError("mpohoda does not support updating records", nil)
}

// Delete is not exposed by the mPOHODA API.
func (d *Driver) Delete(ctx context.Context, object, id string) (bool, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return false, err
	}

	return false, driver.NewNotImplementedError("mpohoda does not support deleting records", nil)
}

// Close releases idle connections.
func (d *Driver) Close() error {
	d.client.Close()

	return nil
}
