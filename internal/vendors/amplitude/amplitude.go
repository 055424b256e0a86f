// Package amplitude implements the Amplitude analytics driver. Amplitude is
// ingestion-first: events go in through /batch, user properties through
// /identify, and raw events come back out of the export endpoint.
package amplitude

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/fivetwenty-io/driverkit/internal/constants"
	"github.com/fivetwenty-io/driverkit/internal/transport"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
)

const vendorName = "amplitude"

// Objects are the Amplitude collections this driver addresses.
var Objects = []string{
	"annotations",
	"events",
	"user_properties",
	"users",
}

var schemas = map[string]driver.Schema{
	"events": {
		"event_type":       {Type: "string", Label: "Event Type", Required: true},
		"user_id":          {Type: "string", Label: "User ID"},
		"device_id":        {Type: "string", Label: "Device ID"},
		"time":             {Type: "integer", Label: "Timestamp (ms)"},
		"event_properties": {Type: "object", Label: "Event Properties"},
		"user_properties":  {Type: "object", Label: "User Properties"},
	},
	"users": {
		"user_id":         {Type: "string", Label: "User ID", Required: true},
		"user_properties": {Type: "object", Label: "User Properties"},
	},
	"user_properties": {
		"user_id":   {Type: "string", Label: "User ID"},
		"device_id": {Type: "string", Label: "Device ID"},
	},
	"annotations": {
		"id":    {Type: "integer", Label: "ID"},
		"date":  {Type: "string", Label: "Date"},
		"label": {Type: "string", Label: "Label"},
	},
}

// Driver is the Amplitude vendor driver. It also implements BatchIngestor.
type Driver struct {
	client    *transport.Client
	apiKey    string
	secretKey string
}

var _ driver.BatchIngestor = (*Driver)(nil)

// New creates an Amplitude driver from explicit configuration. The secret
// key is only needed for the export endpoint.
func New(cfg *driver.Config) (*Driver, error) {
	if cfg == nil {
		return nil, driver.ErrConfigRequired
	}

	if cfg.APIKey == "" {
		return nil, driver.NewAuthenticationError("missing Amplitude API key", nil)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = constants.AmplitudeBaseURL
	}

	opts := transport.ConfigOptions(cfg)
	if cfg.HTTPTimeout == 0 {
		// Export responses can be large.
		opts = append(opts, transport.WithTimeout(constants.ExtendedHTTPTimeout))
	}

	if cfg.SecretKey != "" {
		opts = append(opts, transport.WithBasicAuth(cfg.APIKey, cfg.SecretKey))
	}

	return &Driver{
		client:    transport.NewClient(vendorName, baseURL, opts...),
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
	}, nil
}

// FromEnv creates an Amplitude driver from AMPLITUDE_API_KEY, with
// AMPLITUDE_SECRET_KEY and AMPLITUDE_BASE_URL as optional extras.
func FromEnv(cfg *driver.Config) (*Driver, error) {
	apiKey := os.Getenv("AMPLITUDE_API_KEY")
	if apiKey == "" {
		return nil, driver.MissingEnvError(vendorName, []string{"AMPLITUDE_API_KEY"})
	}

	if cfg == nil {
		cfg = &driver.Config{}
	}

	cfg.APIKey = apiKey

	if cfg.SecretKey == "" {
		cfg.SecretKey = os.Getenv("AMPLITUDE_SECRET_KEY")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("AMPLITUDE_BASE_URL")
	}

	return New(cfg)
}

// Name returns "amplitude".
func (d *Driver) Name() string {
	return vendorName
}

// Capabilities describes Amplitude driver support. There is no pagination:
// export is bounded by the time range instead.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		Read:                  true,
		Write:                 true,
		Update:                true,
		Delete:                false,
		BatchOperations:       true,
		Streaming:             false,
		Pagination:            driver.PaginationNone,
		MaxPageSize:           constants.AmplitudeMaxBatch,
		SupportsTransactions:  false,
		SupportsRelationships: false,
	}
}

// ListObjects returns the supported collections.
func (d *Driver) ListObjects(ctx context.Context) ([]string, error) {
	return append([]string(nil), Objects...), nil
}

// GetFields returns the schema for one collection.
func (d *Driver) GetFields(ctx context.Context, object string) (driver.Schema, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	return schemas[object], nil
}

// Read fetches raw events from the export endpoint, bounded by start and
// end filters in YYYYMMDDTHH form. Annotations come from their own
// endpoint.
func (d *Driver) Read(ctx context.Context, query *driver.Query) ([]driver.Record, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	switch query.Object {
	case "events":
		return d.export(ctx, query)
	case "annotations":
		return d.annotations(ctx)
	default:
		return nil, driver.NewNotImplementedError(
			fmt.Sprintf("amplitude does not expose %s for reading", query.Object), nil)
	}
}

// ReadBatched wraps Read in a single-batch iterator: the export endpoint
// has no pagination.
func (d *Driver) ReadBatched(ctx context.Context, query *driver.Query) (*driver.BatchIterator, error) {
	if err := driver.RequireObject(query.Object, Objects); err != nil {
		return nil, err
	}

	batched := query.Clone()

	fetch := func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		records, err := d.Read(ctx, batched)
		if err != nil {
			return nil, cursor, false, err
		}

		return records, cursor, false, nil
	}

	return driver.NewBatchIterator(fetch, driver.Cursor{})
}

func (d *Driver) export(ctx context.Context, query *driver.Query) ([]driver.Record, error) {
	start := firstFilter(query, "start")
	end := firstFilter(query, "end")

	if start == "" || end == "" {
		return nil, driver.NewValidationError(
			"export requires start and end filters in YYYYMMDDTHH form",
			map[string]any{"missing_fields": []string{"start", "end"}})
	}

	if d.secretKey == "" {
		return nil, driver.NewAuthenticationError(
			"export requires the Amplitude secret key", nil)
	}

	params := url.Values{}
	params.Set("start", start)
	params.Set("end", end)

	resp, err := d.client.Get(ctx, "/api/2/export", params)
	if err != nil {
		return nil, fmt.Errorf("exporting events: %w", err)
	}

	return parseExport(resp.Body)
}

func (d *Driver) annotations(ctx context.Context) ([]driver.Record, error) {
	resp, err := d.client.Get(ctx, "/api/2/annotations", nil)
	if err != nil {
		return nil, fmt.Errorf("reading annotations: %w", err)
	}

	var envelope struct {
		Data []driver.Record `json:"data"`
	}

	if err := resp.JSON(&envelope); err != nil {
		return nil, err
	}

	return envelope.Data, nil
}

// Create ingests a single event through the batch endpoint.
func (d *Driver) Create(ctx context.Context, object string, data driver.Record) (driver.Record, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	if object != "events" {
		return nil, driver.NewNotImplementedError(
			fmt.Sprintf("amplitude only supports creating events, not %s", object), nil)
	}

	if err := validateEvent(data); err != nil {
		return nil, err
	}

	if _, err := d.IngestBatch(ctx, []driver.Record{data}); err != nil {
		return nil, err
	}

	return data, nil
}

// IngestBatch uploads up to MaxBatch events in one /batch call and returns
// the number of events the server accepted.
func (d *Driver) IngestBatch(ctx context.Context, events []driver.Record) (int, error) {
	if len(events) == 0 {
		return 0, driver.NewValidationError("event batch is empty", nil)
	}

	if len(events) > constants.AmplitudeMaxBatch {
		return 0, driver.NewValidationError(
			fmt.Sprintf("event batch exceeds %d events", constants.AmplitudeMaxBatch),
			map[string]any{
				"provided": len(events),
				"maximum":  constants.AmplitudeMaxBatch,
			})
	}

	for i, event := range events {
		if err := validateEvent(event); err != nil {
			return 0, fmt.Errorf("event %d: %w", i, err)
		}
	}

	resp, err := d.client.Post(ctx, "/batch", map[string]any{
		"api_key": d.apiKey,
		"events":  events,
	})
	if err != nil {
		// The batch endpoint reports payload problems as 400s; surface
		// them as validation failures rather than query errors.
		if driver.IsQuerySyntax(err) {
			return 0, driver.NewValidationError(err.Error(), nil)
		}

		return 0, fmt.Errorf("ingesting batch: %w", err)
	}

	var result struct {
		Code           int `json:"code"`
		EventsIngested int `json:"events_ingested"`
	}

	if err := resp.JSON(&result); err != nil {
		return 0, err
	}

	if result.EventsIngested > 0 {
		return result.EventsIngested, nil
	}

	return len(events), nil
}

// Update sets user properties through the identify endpoint.
func (d *Driver) Update(ctx context.Context, object, id string, data driver.Record) (driver.Record, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return nil, err
	}

	if object != "users" {
		return nil, driver.NewNotImplementedError(
			fmt.Sprintf("amplitude only supports updating users, not %s", object), nil)
	}

	identification := map[string]any{"user_id": id}
	for key, value := range data {
		identification[key] = value
	}

	payload, err := json.Marshal(identification)
	if err != nil {
		return nil, fmt.Errorf("encoding identification: %w", err)
	}

	form := url.Values{}
	form.Set("api_key", d.apiKey)
	form.Set("identification", string(payload))

	if _, err := d.client.PostForm(ctx, "/identify", form); err != nil {
		return nil, fmt.Errorf("identifying user %s: %w", id, err)
	}

	result := driver.Record{"user_id": id}
	for key, value := range data {
		result[key] = value
	}

	return result, nil
}

// Delete is not supported: Amplitude deletions go through a separate
// asynchronous compliance API.
func (d *Driver) Delete(ctx context.Context, object, id string) (bool, error) {
	if err := driver.RequireObject(object, Objects); err != nil {
		return false, err
	}

	return false, driver.NewNotImplementedError("amplitude does not support deleting records", nil)
}

// Close releases idle connections.
func (d *Driver) Close() error {
	d.client.Close()

	return nil
}

// validateEvent enforces the ingestion contract: an event type plus at
// least one of user_id and device_id.
func validateEvent(event driver.Record) error {
	if _, ok := event["event_type"]; !ok {
		return driver.NewValidationError("event is missing event_type",
			map[string]any{"missing_fields": []string{"event_type"}})
	}

	_, hasUser := event["user_id"]
	_, hasDevice := event["device_id"]

	if !hasUser && !hasDevice {
		return driver.NewValidationError("event needs a user_id or device_id", nil)
	}

	return nil
}

// parseExport decodes export output: either a JSON array or one JSON
// object per line.
func parseExport(body []byte) ([]driver.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []driver.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decoding export: %w", err)
		}

		return records, nil
	}

	var records []driver.Record

	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record driver.Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("decoding export line: %w", err)
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning export: %w", err)
	}

	return records, nil
}

func firstFilter(query *driver.Query, field string) string {
	if values, ok := query.Filters[field]; ok && len(values) > 0 {
		return values[0]
	}

	return ""
}
