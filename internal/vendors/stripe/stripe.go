// Package stripe implements the Stripe payment API driver: bearer
// authentication, cursor pagination via starting_after, and form-encoded
// writes.
package stripe

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

const vendorName = "stripe"

// Objects are the Stripe resource collections this driver addresses.
var Objects = []string{
	"balance_transactions",
	"charges",
	"checkout_sessions",
	"coupons",
	"credit_notes",
	"customers",
	"disputes",
	"events",
	"invoices",
	"invoice_items",
	"payment_intents",
	"payment_links",
	"payment_methods",
	"payouts",
	"plans",
	"prices",
	"products",
	"promotion_codes",
	"quotes",
	"refunds",
	"setup_intents",
	"shipping_rates",
	"subscriptions",
	"subscription_items",
	"tax_codes",
	"tax_rates",
	"transfers",
}

var schemas = map[string]driver.Schema{
	"products": {
		"id":          {Type: "string", Label: "ID"},
		"name":        {Type: "string", Label: "Product Name", Required: true},
		"description": {Type: "string", Label: "Description"},
		"active":      {Type: "boolean", Label: "Active"},
		"metadata":    {Type: "object", Label: "Metadata"},
	},
	"customers": {
		"id":          {Type: "string", Label: "ID"},
		"email":       {Type: "string", Label: "Email"},
		"name":        {Type: "string", Label: "Name"},
		"description": {Type: "string", Label: "Description"},
		"metadata":    {Type: "object", Label: "Metadata"},
	},
	"invoices": {
		"id":          {Type: "string", Label: "ID"},
		"customer":    {Type: "string", Label: "Customer ID"},
		"amount_paid": {Type: "integer", Label: "Amount Paid"},
		"status":      {Type: "string", Label: "Status"},
	},
	"charges": {
		"id":       {Type: "string", Label: "ID"},
		"amount":   {Type: "integer", Label: "Amount", Required: true},
		"currency": {Type: "string", Label: "Currency", Required: true},
		"customer": {Type: "string", Label: "Customer ID"},
		"status":   {Type: "string", Label: "Status"},
	},
	"payment_intents": {
		"id":       {Type: "string", Label: "ID"},
		"amount":   {Type: "integer", Label: "Amount", Required: true},
		"currency": {Type: "string", Label: "Currency", Required: true},
		"status":   {Type: "string", Label: "Status"},
	},
}

// genericSchema covers resources without a curated schema; the full shape
// varies by Stripe API version.
var genericSchema = driver.Schema{
	"id":     {Type: "string", Label: "ID"},
	"object": {Type: "string", Label: "Object Type"},
}

// Driver is the Stripe vendor driver.
type Driver struct {
	client *transport.Client
	meta   *vendorcache.Metadata
}

// New creates a Stripe driver from explicit configuration.
func New(cfg *driver.Config) (*Driver, error) {
	if cfg == nil {
		return nil, driver.ErrConfigRequired
	}

	key := cfg.APIKey
	if key == "" {
		key = cfg.AccessToken
	}

	if key == "" {
		return nil, driver.NewAuthenticationError("missing Stripe API key", nil)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = constants.StripeBaseURL
	}

	client := transport.NewClient(vendorName, baseURL,
		transport.BearerOptions(key, cfg)...)

	return &Driver{
		client: client,
		meta:   vendorcache.New(vendorName, cfg.Cache),
	}, nil
}

// FromEnv creates a Stripe driver from STRIPE_API_KEY, with STRIPE_BASE_URL
// as an optional override.
func FromEnv(cfg *driver.Config) (*Driver, error) {
	apiKey := os.Getenv("STRIPE_API_KEY")
	if apiKey == "" {
		return nil, driver.MissingEnvError(vendorName, []string{"STRIPE_API_KEY"})
	}

	if cfg == nil {
		cfg = &driver.Config{}
	}

	cfg.APIKey = apiKey

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("STRIPE_BASE_URL")
	}

	return New(cfg)
}

// Name returns "stripe".
func (d *Driver) Name() string {
	return vendorName
}

// Capabilities describes Stripe driver support. Batch writes are off: the
// Stripe API has no bulk operations.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		Read:                  true,
		Write:                 true,
		Update:                true,
		Delete:                true,
		BatchOperations:       false,
		Streaming:             true,
		Pagination:            driver.PaginationCursor,
		MaxPageSize:           constants.StripeMaxPageSize,
		SupportsTransactions:  false,
		SupportsRelationships: true,
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
		if schema, ok := schemas[object]; ok {
			return schema, nil
		}

		return genericSchema, nil
	})
}

// Read returns one page of records, at most MaxPageSize.
func (d *Driver) Read(ctx context.Context, query *driver.Query) ([]driver.Record, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	if err := driver.ValidateLimit(query.Limit, constants.StripeMaxPageSize); err != nil {
		return nil, err
	}

	records, _, err := d.page(ctx, query, query.Cursor)

	return records, err
}

// ReadBatched iterates all pages with starting_after cursors.
func (d *Driver) ReadBatched(ctx context.Context, query *driver.Query) (*driver.BatchIterator, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	batched := query.Clone()
	if batched.Limit <= 0 || batched.Limit > constants.StripeMaxPageSize {
		batched.Limit = constants.StripeMaxPageSize
	}

	fetch := func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		records, hasMore, err := d.pageRaw(ctx, batched, cursor.Token)
		if err != nil {
			return nil, cursor, false, err
		}

		next := driver.Cursor{}
		if hasMore && len(records) > 0 {
			next.Token = records[len(records)-1].ID()
		}

		return records, next, hasMore && next.Token != "", nil
	}

	return driver.NewBatchIterator(fetch, driver.Cursor{Token: query.Cursor})
}

func (d *Driver) page(ctx context.Context, query *driver.Query, cursor string) ([]driver.Record, bool, error) {
	records, hasMore, err := d.pageRaw(ctx, query, cursor)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", query.Object, err)
	}

	return records, hasMore, nil
}

func (d *Driver) pageRaw(ctx context.Context, query *driver.Query, cursor string) ([]driver.Record, bool, error) {
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	if cursor != "" {
		params.Set("starting_after", cursor)
	}

	for field, values := range query.Filters {
		if len(values) > 0 {
			params.Set(field, values[0])
		}
	}

	resp, err := d.client.Get(ctx, "/v1/"+query.Object, params)
	if err != nil {
		return nil, false, err
	}

	var envelope struct {
		Data    []driver.Record `json:"data"`
		HasMore bool            `json:"has_more"`
	}

	if err := resp.JSON(&envelope); err != nil {
		return nil, false, err
	}

	return envelope.Data, envelope.HasMore, nil
}

// Create inserts a resource. Stripe expects form-encoded bodies.
func (d *Driver) Create(ctx context.Context, object string, data driver.Record) (driver.Record, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	schema, _ := d.GetFields(ctx, object)
	if err := driver.ValidateRequired(object, schema, data); err != nil {
		return nil, err
	}

	resp, err := d.client.PostForm(ctx, "/v1/"+object, encodeForm(data))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", object, err)
	}

	return decodeRecord(resp)
}

// Update modifies a resource. Stripe updates via POST to the resource URL.
func (d *Driver) Update(ctx context.Context, object, id string, data driver.Record) (driver.Record, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	resp, err := d.client.PostForm(ctx, "/v1/"+object+"/"+id, encodeForm(data))
	if err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", object, id, err)
	}

	return decodeRecord(resp)
}

// Delete removes a resource. Stripe reports the outcome in the "deleted"
// response field; that vendor truth is passed through.
func (d *Driver) Delete(ctx context.Context, object, id string) (bool, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return false, err
	}

	resp, err := d.client.Delete(ctx, "/v1/"+object+"/"+id)
	if err != nil {
		return false, fmt.Errorf("deleting %s/%s: %w", object, id, err)
	}

	var result struct {
		Deleted *bool `json:"deleted"`
	}

	if err := resp.JSON(&result); err != nil {
		return false, err
	}

	if result.Deleted != nil {
		return *result.Deleted, nil
	}

	return true, nil
}

// Close releases idle connections.
func (d *Driver) Close() error {
	d.client.Close()

	return nil
}

func decodeRecord(resp *transport.Response) (driver.Record, error) {
	var record driver.Record
	if err := resp.JSON(&record); err != nil {
		return nil, err
	}

	return record, nil
}

// encodeForm flattens a record into Stripe's form encoding. Nested maps
// become bracketed keys: metadata[color]=red.
func encodeForm(data driver.Record) url.Values {
	form := url.Values{}

	for key, value := range data {
		switch nested := value.(type) {
		case map[string]any:
			for innerKey, innerValue := range nested {
				form.Set(fmt.Sprintf("%s[%s]", key, innerKey), fmt.Sprint(innerValue))
			}
		case []any:
			for i, item := range nested {
				form.Set(fmt.Sprintf("%s[%d]", key, i), fmt.Sprint(item))
			}
		default:
			form.Set(key, fmt.Sprint(value))
		}
	}

	return form
}
