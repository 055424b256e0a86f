// Package fidoo implements the Fidoo expense-management API driver: X-Api-Key
// authentication and token-based cursor pagination.
package fidoo

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/fivetwenty-io/driverkit/internal/constants"
	"github.com/fivetwenty-io/driverkit/internal/transport"
	"github.com/fivetwenty-io/driverkit/internal/vendors/vendorcache"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
)

const (
	vendorName   = "fidoo"
	apiKeyHeader = "X-Api-Key"
)

// Objects are the Fidoo resource collections this driver addresses.
var Objects = []string{
	"cards",
	"cost_centers",
	"expenses",
	"projects",
	"transactions",
	"users",
}

// writableObjects are the collections Fidoo allows creating and updating.
// Cards, expenses, and transactions originate in the Fidoo application.
var writableObjects = []string{"cost_centers", "projects"}

var schemas = map[string]driver.Schema{
	"users": {
		"id":        {Type: "string", Label: "ID"},
		"firstName": {Type: "string", Label: "First Name"},
		"lastName":  {Type: "string", Label: "Last Name"},
		"email":     {Type: "string", Label: "Email"},
		"state":     {Type: "string", Label: "State"},
	},
	"cards": {
		"id":         {Type: "string", Label: "ID"},
		"cardNumber": {Type: "string", Label: "Masked Card Number"},
		"holderId":   {Type: "string", Label: "Holder User ID"},
		"state":      {Type: "string", Label: "State"},
	},
	"expenses": {
		"id":           {Type: "string", Label: "ID"},
		"amount":       {Type: "number", Label: "Amount"},
		"currency":     {Type: "string", Label: "Currency"},
		"costCenterId": {Type: "string", Label: "Cost Center ID"},
		"state":        {Type: "string", Label: "State"},
	},
	"transactions": {
		"id":       {Type: "string", Label: "ID"},
		"cardId":   {Type: "string", Label: "Card ID"},
		"amount":   {Type: "number", Label: "Amount"},
		"currency": {Type: "string", Label: "Currency"},
	},
	"cost_centers": {
		"id":   {Type: "string", Label: "ID"},
		"name": {Type: "string", Label: "Name", Required: true},
		"code": {Type: "string", Label: "Code"},
	},
	"projects": {
		"id":   {Type: "string", Label: "ID"},
		"name": {Type: "string", Label: "Name", Required: true},
		"code": {Type: "string", Label: "Code"},
	},
}

// Driver is the Fidoo vendor driver.
type Driver struct {
	client *transport.Client
	meta   *vendorcache.Metadata
}

// New creates a Fidoo driver from explicit configuration.
func New(cfg *driver.Config) (*Driver, error) {
	if cfg == nil {
		return nil, driver.ErrConfigRequired
	}

	if cfg.APIKey == "" {
		return nil, driver.NewAuthenticationError("missing Fidoo API key", nil)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = constants.FidooBaseURL
	}

	client := transport.NewClient(vendorName, baseURL,
		transport.APIKeyOptions(apiKeyHeader, cfg.APIKey, cfg)...)

	return &Driver{
		client: client,
		meta:   vendorcache.New(vendorName, cfg.Cache),
	}, nil
}

// FromEnv creates a Fidoo driver from FIDOO_API_KEY, with FIDOO_BASE_URL as
// an optional override.
func FromEnv(cfg *driver.Config) (*Driver, error) {
	apiKey := os.Getenv("FIDOO_API_KEY")
	if apiKey == "" {
		return nil, driver.MissingEnvError(vendorName, []string{"FIDOO_API_KEY"})
	}

	if cfg == nil {
		cfg = &driver.Config{}
	}

	cfg.APIKey = apiKey

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("FIDOO_BASE_URL")
	}

	return New(cfg)
}

// Name returns "fidoo".
func (d *Driver) Name() string {
	return vendorName
}

// Capabilities describes Fidoo driver support. Deleting is not exposed by
// the Fidoo API at all.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		Read:                  true,
		Write:                 true,
		Update:                true,
		Delete:                false,
		BatchOperations:       false,
		Streaming:             true,
		Pagination:            driver.PaginationCursor,
		MaxPageSize:           constants.FidooMaxPageSize,
		SupportsTransactions:  false,
		SupportsRelationships: false,
	}
}

// ListObjects returns the supported resource collections.
func (d *Driver) ListObjects(ctx context.Context) ([]string, error) {
	return append([]string(nil), Objects...), nil
}

// GetFields returns the schema for one resource collection.
func (d *Driver) GetFields(ctx context.Context, object string) (driver.Schema, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	return d.meta.Schema(ctx, object, func(context.Context) (driver.Schema, error) {
		return schemas[object], nil
	})
}

// Read returns one page of records, at most MaxPageSize.
func (d *Driver) Read(ctx context.Context, query *driver.Query) ([]driver.Record, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	if err := driver.ValidateLimit(query.Limit, constants.FidooMaxPageSize); err != nil {
		return nil, err
	}

	records, _, err := d.page(ctx, query, query.Cursor)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", query.Object, err)
	}

	return records, nil
}

// ReadBatched iterates all pages, chaining the nextPageToken from each
// response into the next request.
func (d *Driver) ReadBatched(ctx context.Context, query *driver.Query) (*driver.BatchIterator, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	batched := query.Clone()
	if batched.Limit <= 0 || batched.Limit > constants.FidooMaxPageSize {
		batched.Limit = constants.FidooMaxPageSize
	}

	fetch := func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		records, nextToken, err := d.page(ctx, batched, cursor.Token)
		if err != nil {
			return nil, cursor, false, err
		}

		next := driver.Cursor{Token: nextToken}

		return records, next, nextToken != "", nil
	}

	return driver.NewBatchIterator(fetch, driver.Cursor{Token: query.Cursor})
}

func (d *Driver) page(ctx context.Context, query *driver.Query, pageToken string) ([]driver.Record, string, error) {
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	for field, values := range query.Filters {
		if len(values) > 0 {
			params.Set(field, values[0])
		}
	}

	resp, err := d.client.Get(ctx, path(query.Object), params)
	if err != nil {
		return nil, "", err
	}

	var envelope struct {
		Items         []driver.Record `json:"items"`
		NextPageToken string          `json:"nextPageToken"`
	}

	if err := resp.JSON(&envelope); err != nil {
		return nil, "", err
	}

	return envelope.Items, envelope.NextPageToken, nil
}

// Create inserts a resource. Only cost centers and projects are writable.
func (d *Driver) Create(ctx context.Context, object string, data driver.Record) (driver.Record, error) {
	if err := d.requireWritable(object); err != nil {
		return nil, err
	}

	schema, _ := d.GetFields(ctx, object)
	if err := driver.ValidateRequired(object, schema, data); err != nil {
		return nil, err
	}

	resp, err := d.client.Post(ctx, path(object), data)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", object, err)
	}

	var record driver.Record
	if err := resp.JSON(&record); err != nil {
		return nil, err
	}

	return record, nil
}

// Update modifies a resource via PUT.
func (d *Driver) Update(ctx context.Context, object, id string, data driver.Record) (driver.Record, error) {
	if err := d.requireWritable(object); err != nil {
		return nil, err
	}

	resp, err := d.client.Put(ctx, path(object)+"/"+id, data)
	if err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", object, id, err)
	}

	var record driver.Record
	if err := resp.JSON(&record); err != nil {
		return nil, err
	}

	return record, nil
}

// Delete is not supported by the Fidoo API.
func (d *Driver) Delete(ctx context.Context, object, id string) (bool, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return false, err
	}

	return false, driver.NewNotImplementedError("fidoo does not support deleting records", nil)
}

// Close releases idle connections.
func (d *Driver) Close() error {
	d.client.Close()

	return nil
}

func (d *Driver) requireWritable(object string) error {
	if err := driver.RequireObject(object, Objects); err != nil {
		return err
	}

	for _, writable := range writableObjects {
		if object == writable {
			return nil
		}
	}

	return driver.NewNotImplementedError(
		fmt.Sprintf("fidoo does not support writing %s", object),
		map[string]any{"writable_objects": writableObjects})
}

// path maps an object name to its URL segment. Fidoo uses kebab-case.
func path(object string) string {
	switch object {
	case "cost_centers":
		return "/cost-centers"
	default:
		return "/" + object
	}
}
