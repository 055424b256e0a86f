// Package apify implements the Apify platform API driver: bearer
// authentication, offset pagination, and the data.items response envelope.
package apify

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

const vendorName = "apify"

// Objects are the Apify resource collections this driver addresses.
var Objects = []string{
	"actors",
	"builds",
	"datasets",
	"key-value-stores",
	"request-queues",
	"runs",
	"schedules",
	"tasks",
	"webhooks",
}

// writableObjects are the collections Apify allows creating through the
// public API. Actors and runs are produced by the platform itself.
var writableObjects = []string{"schedules", "tasks", "webhooks"}

var schemas = map[string]driver.Schema{
	"actors": {
		"id":         {Type: "string", Label: "ID"},
		"name":       {Type: "string", Label: "Name", Required: true},
		"username":   {Type: "string", Label: "Owner Username"},
		"createdAt":  {Type: "datetime", Label: "Created At"},
		"modifiedAt": {Type: "datetime", Label: "Modified At"},
	},
	"runs": {
		"id":         {Type: "string", Label: "ID"},
		"actId":      {Type: "string", Label: "Actor ID"},
		"status":     {Type: "string", Label: "Status"},
		"startedAt":  {Type: "datetime", Label: "Started At"},
		"finishedAt": {Type: "datetime", Label: "Finished At"},
	},
	"datasets": {
		"id":        {Type: "string", Label: "ID"},
		"name":      {Type: "string", Label: "Name"},
		"itemCount": {Type: "integer", Label: "Item Count"},
		"createdAt": {Type: "datetime", Label: "Created At"},
	},
	"key-value-stores": {
		"id":        {Type: "string", Label: "ID"},
		"name":      {Type: "string", Label: "Name"},
		"createdAt": {Type: "datetime", Label: "Created At"},
	},
	"tasks": {
		"id":    {Type: "string", Label: "ID"},
		"actId": {Type: "string", Label: "Actor ID", Required: true},
		"name":  {Type: "string", Label: "Name", Required: true},
		"input": {Type: "object", Label: "Input"},
	},
	"schedules": {
		"id":             {Type: "string", Label: "ID"},
		"name":           {Type: "string", Label: "Name", Required: true},
		"cronExpression": {Type: "string", Label: "Cron Expression", Required: true},
		"isEnabled":      {Type: "boolean", Label: "Enabled"},
	},
	"webhooks": {
		"id":         {Type: "string", Label: "ID"},
		"eventTypes": {Type: "array", Label: "Event Types", Required: true},
		"requestUrl": {Type: "string", Label: "Request URL", Required: true},
	},
}

var genericSchema = driver.Schema{
	"id":        {Type: "string", Label: "ID"},
	"createdAt": {Type: "datetime", Label: "Created At"},
}

// Driver is the Apify vendor driver.
type Driver struct {
	client *transport.Client
	meta   *vendorcache.Metadata
}

// New creates an Apify driver from explicit configuration.
func New(cfg *driver.Config) (*Driver, error) {
	if cfg == nil {
		return nil, driver.ErrConfigRequired
	}

	token := cfg.APIKey
	if token == "" {
		token = cfg.AccessToken
	}

	if token == "" {
		return nil, driver.NewAuthenticationError("missing Apify API token", nil)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = constants.ApifyBaseURL
	}

	client := transport.NewClient(vendorName, baseURL,
		transport.BearerOptions(token, cfg)...)

	return &Driver{
		client: client,
		meta:   vendorcache.New(vendorName, cfg.Cache),
	}, nil
}

// FromEnv creates an Apify driver from APIFY_API_TOKEN, with APIFY_API_URL
// as an optional override.
func FromEnv(cfg *driver.Config) (*Driver, error) {
	token := os.Getenv("APIFY_API_TOKEN")
	if token == "" {
		return nil, driver.MissingEnvError(vendorName, []string{"APIFY_API_TOKEN"})
	}

	if cfg == nil {
		cfg = &driver.Config{}
	}

	cfg.APIKey = token

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("APIFY_API_URL")
	}

	return New(cfg)
}

// Name returns "apify".
func (d *Driver) Name() string {
	return vendorName
}

// Capabilities describes Apify driver support.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		Read:                  true,
		Write:                 true,
		Update:                true,
		Delete:                true,
		BatchOperations:       true,
		Streaming:             true,
		Pagination:            driver.PaginationOffset,
		MaxPageSize:           constants.ApifyMaxPageSize,
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

	if err := driver.ValidateLimit(query.Limit, constants.ApifyMaxPageSize); err != nil {
		return nil, err
	}

	records, _, err := d.page(ctx, query, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", query.Object, err)
	}

	return records, nil
}

// ReadBatched iterates all pages by advancing the offset. The total count
// reported in the envelope bounds the iteration.
func (d *Driver) ReadBatched(ctx context.Context, query *driver.Query) (*driver.BatchIterator, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	batched := query.Clone()
	if batched.Limit <= 0 || batched.Limit > constants.ApifyMaxPageSize {
		batched.Limit = constants.ApifyMaxPageSize
	}

	fetch := func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		records, total, err := d.page(ctx, batched, cursor.Offset)
		if err != nil {
			return nil, cursor, false, err
		}

		next := driver.Cursor{Offset: cursor.Offset + len(records)}
		hasMore := len(records) == batched.Limit && next.Offset < total

		return records, next, hasMore, nil
	}

	return driver.NewBatchIterator(fetch, driver.Cursor{Offset: query.Offset})
}

func (d *Driver) page(ctx context.Context, query *driver.Query, offset int) ([]driver.Record, int, error) {
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	if query.OrderBy != "" {
		params.Set("sortBy", query.OrderBy)
	}

	for field, values := range query.Filters {
		if len(values) > 0 {
			params.Set(field, values[0])
		}
	}

	resp, err := d.client.Get(ctx, "/"+query.Object, params)
	if err != nil {
		return nil, 0, err
	}

	var envelope struct {
		Data struct {
			Items []driver.Record `json:"items"`
			Total int             `json:"total"`
		} `json:"data"`
	}

	if err := resp.JSON(&envelope); err != nil {
		return nil, 0, err
	}

	return envelope.Data.Items, envelope.Data.Total, nil
}

// Create inserts a resource. Only schedules, tasks, and webhooks can be
// created through the API.
func (d *Driver) Create(ctx context.Context, object string, data driver.Record) (driver.Record, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	if err := driver.RequireObject(object, writableObjects); err != nil {
		return nil, driver.NewNotImplementedError(
			fmt.Sprintf("apify does not support creating %s", object),
			map[string]any{"writable_objects": writableObjects})
	}

	schema, _ := d.GetFields(ctx, object)
	if err := driver.ValidateRequired(object, schema, data); err != nil {
		return nil, err
	}

	resp, err := d.client.Post(ctx, "/"+object, data)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", object, err)
	}

	return decodeRecord(resp)
}

// Update modifies a resource via PUT.
func (d *Driver) Update(ctx context.Context, object, id string, data driver.Record) (driver.Record, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	resp, err := d.client.Put(ctx, "/"+object+"/"+id, data)
	if err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", object, id, err)
	}

	return decodeRecord(resp)
}

// Delete removes a resource. Apify returns 204 with no body on success.
func (d *Driver) Delete(ctx context.Context, object, id string) (bool, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return false, err
	}

	if _, err := d.client.Delete(ctx, "/"+object+"/"+id); err != nil {
		return false, fmt.Errorf("deleting %s/%s: %w", object, id, err)
	}

	return true, nil
}

// Close releases idle connections.
func (d *Driver) Close() error {
	d.client.Close()

	return nil
}

func decodeRecord(resp *transport.Response) (driver.Record, error) {
	var envelope struct {
		Data driver.Record `json:"data"`
	}

	if err := resp.JSON(&envelope); err != nil {
		return nil, err
	}

	if envelope.Data != nil {
		return envelope.Data, nil
	}

	var record driver.Record
	if err := resp.JSON(&record); err != nil {
		return nil, err
	}

	return record, nil
}
