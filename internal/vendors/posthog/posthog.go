// Package posthog implements the PostHog analytics API driver: bearer
// authentication, project-scoped endpoints, and DRF-style cursor pagination
// via the "next" link.
package posthog

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
	vendorName = "posthog"

	// defaultProject addresses the project the API key belongs to.
	defaultProject = "default"
)

// Objects are the PostHog resource collections this driver addresses.
var Objects = []string{
	"batch_exports",
	"dashboards",
	"dataset_items",
	"datasets",
	"desktop_recordings",
	"endpoints",
	"error_tracking",
	"events",
	"feature_flags",
	"persons",
}

// readOnlyObjects are produced by ingestion and cannot be written to.
var readOnlyObjects = map[string]bool{
	"events":  true,
	"persons": true,
}

var schemas = map[string]driver.Schema{
	"dashboards": {
		"id":         {Type: "integer", Label: "ID"},
		"name":       {Type: "string", Label: "Name", Required: true},
		"created_at": {Type: "datetime", Label: "Created At"},
		"updated_at": {Type: "datetime", Label: "Updated At"},
	},
	"feature_flags": {
		"id":         {Type: "integer", Label: "ID"},
		"key":        {Type: "string", Label: "Key", Required: true},
		"name":       {Type: "string", Label: "Name"},
		"active":     {Type: "boolean", Label: "Active"},
		"created_at": {Type: "datetime", Label: "Created At"},
	},
	"persons": {
		"id":         {Type: "string", Label: "ID"},
		"distinct_ids": {
			Type: "array", Label: "Distinct IDs",
		},
		"properties": {Type: "object", Label: "Properties"},
		"created_at": {Type: "datetime", Label: "Created At"},
	},
	"events": {
		"id":         {Type: "string", Label: "ID"},
		"event":      {Type: "string", Label: "Event Name"},
		"distinct_id": {
			Type: "string", Label: "Distinct ID",
		},
		"properties": {Type: "object", Label: "Properties"},
		"timestamp":  {Type: "datetime", Label: "Timestamp"},
	},
}

var genericSchema = driver.Schema{
	"id":         {Type: "string", Label: "ID"},
	"created_at": {Type: "datetime", Label: "Created At"},
	"updated_at": {Type: "datetime", Label: "Updated At"},
}

// Driver is the PostHog vendor driver.
type Driver struct {
	client  *transport.Client
	meta    *vendorcache.Metadata
	project string
}

// New creates a PostHog driver from explicit configuration.
func New(cfg *driver.Config) (*Driver, error) {
	if cfg == nil {
		return nil, driver.ErrConfigRequired
	}

	key := cfg.APIKey
	if key == "" {
		key = cfg.AccessToken
	}

	if key == "" {
		return nil, driver.NewAuthenticationError("missing PostHog personal API key", nil)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = constants.PostHogBaseURL
	}

	project := cfg.ProjectID
	if project == "" {
		project = defaultProject
	}

	client := transport.NewClient(vendorName, baseURL,
		transport.BearerOptions(key, cfg)...)

	return &Driver{
		client:  client,
		meta:    vendorcache.New(vendorName, cfg.Cache),
		project: project,
	}, nil
}

// FromEnv creates a PostHog driver from POSTHOG_API_KEY, with
// POSTHOG_API_URL and POSTHOG_PROJECT_ID as optional overrides.
func FromEnv(cfg *driver.Config) (*Driver, error) {
	key := os.Getenv("POSTHOG_API_KEY")
	if key == "" {
		return nil, driver.MissingEnvError(vendorName, []string{"POSTHOG_API_KEY"})
	}

	if cfg == nil {
		cfg = &driver.Config{}
	}

	cfg.APIKey = key

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("POSTHOG_API_URL")
	}

	if cfg.ProjectID == "" {
		cfg.ProjectID = os.Getenv("POSTHOG_PROJECT_ID")
	}

	return New(cfg)
}

// Name returns "posthog".
func (d *Driver) Name() string {
	return vendorName
}

// Capabilities describes PostHog driver support.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		Read:                  true,
		Write:                 true,
		Update:                true,
		Delete:                true,
		BatchOperations:       false,
		Streaming:             true,
		Pagination:            driver.PaginationCursor,
		MaxPageSize:           constants.PostHogMaxPageSize,
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
		if schema, ok := schemas[object]; ok {
			return schema, nil
		}

		return genericSchema, nil
	})
}

// Read returns one page of records.
func (d *Driver) Read(ctx context.Context, query *driver.Query) ([]driver.Record, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	if err := driver.ValidateLimit(query.Limit, constants.PostHogMaxPageSize); err != nil {
		return nil, err
	}

	records, _, err := d.page(ctx, query, query.Cursor)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", query.Object, err)
	}

	return records, nil
}

// ReadBatched follows the "next" link until the server stops handing one
// out.
func (d *Driver) ReadBatched(ctx context.Context, query *driver.Query) (*driver.BatchIterator, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	batched := query.Clone()
	if batched.Limit <= 0 || batched.Limit > constants.PostHogMaxPageSize {
		batched.Limit = constants.PostHogMaxPageSize
	}

	fetch := func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		records, next, err := d.page(ctx, batched, cursor.Token)
		if err != nil {
			return nil, cursor, false, err
		}

		return records, driver.Cursor{Token: next}, next != "", nil
	}

	return driver.NewBatchIterator(fetch, driver.Cursor{Token: query.Cursor})
}

// page fetches one page. A cursor token is the query string of the "next"
// link from the previous response.
func (d *Driver) page(ctx context.Context, query *driver.Query, cursor string) ([]driver.Record, string, error) {
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	for field, values := range query.Filters {
		if len(values) > 0 {
			params.Set(field, values[0])
		}
	}

	if cursor != "" {
		carried, err := url.ParseQuery(cursor)
		if err != nil {
			return nil, "", driver.NewQuerySyntaxError(
				"cursor is not a valid query string",
				map[string]any{"provided": cursor})
		}

		for key, values := range carried {
			for _, value := range values {
				params.Set(key, value)
			}
		}
	}

	resp, err := d.client.Get(ctx, d.path(query.Object), params)
	if err != nil {
		return nil, "", err
	}

	var envelope struct {
		Results []driver.Record `json:"results"`
		Next    *string         `json:"next"`
	}

	if err := resp.JSON(&envelope); err != nil {
		return nil, "", err
	}

	next := ""

	if envelope.Next != nil && *envelope.Next != "" {
		parsed, err := url.Parse(*envelope.Next)
		if err == nil {
			next = parsed.RawQuery
		}
	}

	return envelope.Results, next, nil
}

// Create inserts a resource. Ingested collections are read-only.
func (d *Driver) Create(ctx context.Context, object string, data driver.Record) (driver.Record, error) {
	if err := d.requireWritable(object); err != nil {
		return nil, err
	}

	schema, _ := d.GetFields(ctx, object)
	if err := driver.ValidateRequired(object, schema, data); err != nil {
		return nil, err
	}

	resp, err := d.client.Post(ctx, d.path(object), data)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", object, err)
	}

	return decodeRecord(resp)
}

// Update modifies a resource via PATCH.
func (d *Driver) Update(ctx context.Context, object, id string, data driver.Record) (driver.Record, error) {
	if err := d.requireWritable(object); err != nil {
		return nil, err
	}

	resp, err := d.client.Patch(ctx, d.path(object)+id+"/", data)
	if err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", object, id, err)
	}

	return decodeRecord(resp)
}

// Delete removes a resource.
func (d *Driver) Delete(ctx context.Context, object, id string) (bool, error) {
	if err := d.requireWritable(object); err != nil {
		return false, err
	}

	if _, err := d.client.Delete(ctx, d.path(object)+id+"/"); err != nil {
		return false, fmt.Errorf("deleting %s/%s: %w", object, id, err)
	}

	return true, nil
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

	if readOnlyObjects[object] {
		return driver.NewNotImplementedError(
			fmt.Sprintf("posthog %s are ingested and cannot be written through the API", object),
			nil)
	}

	return nil
}

// path builds the project-scoped collection URL. PostHog requires the
// trailing slash.
func (d *Driver) path(object string) string {
	return fmt.Sprintf("/environments/%s/%s/", d.project, object)
}

func decodeRecord(resp *transport.Response) (driver.Record, error) {
	var record driver.Record
	if err := resp.JSON(&record); err != nil {
		return nil, err
	}

	return record, nil
}
