// Package odoo implements the Odoo ERP driver over the JSON-RPC external
// API. Every operation is an execute_kw call; objects are Odoo models
// discovered from ir.model and schemas come from ir.model.fields.
package odoo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/driverkit/internal/constants"
	"github.com/fivetwenty-io/driverkit/internal/transport"
	"github.com/fivetwenty-io/driverkit/internal/vendors/vendorcache"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
)

const (
	vendorName = "odoo"

	// defaultReadLimit matches the server-side default of search_read.
	defaultReadLimit = 80
)

// Driver is the Odoo vendor driver.
type Driver struct {
	client   *transport.Client
	meta     *vendorcache.Metadata
	database string
	apiKey   string
}

// New creates an Odoo driver. Base URL, database, and API key are all
// required: execute_kw carries the credentials in every call.
func New(cfg *driver.Config) (*Driver, error) {
	if cfg == nil {
		return nil, driver.ErrConfigRequired
	}

	if cfg.BaseURL == "" {
		return nil, driver.ErrBaseURLRequired
	}

	if cfg.Database == "" || cfg.APIKey == "" {
		return nil, driver.NewAuthenticationError("missing Odoo database or API key", nil)
	}

	client := transport.NewClient(vendorName, cfg.BaseURL,
		transport.ConfigOptions(cfg)...)

	return &Driver{
		client:   client,
		meta:     vendorcache.New(vendorName, cfg.Cache),
		database: cfg.Database,
		apiKey:   cfg.APIKey,
	}, nil
}

// FromEnv creates an Odoo driver from ODOO_BASE_URL, ODOO_DATABASE, and
// ODOO_API_KEY.
func FromEnv(cfg *driver.Config) (*Driver, error) {
	if cfg == nil {
		cfg = &driver.Config{}
	}

	cfg.BaseURL = os.Getenv("ODOO_BASE_URL")
	cfg.Database = os.Getenv("ODOO_DATABASE")
	cfg.APIKey = os.Getenv("ODOO_API_KEY")

	var missing []string

	if cfg.BaseURL == "" {
		missing = append(missing, "ODOO_BASE_URL")
	}

	if cfg.Database == "" {
		missing = append(missing, "ODOO_DATABASE")
	}

	if cfg.APIKey == "" {
		missing = append(missing, "ODOO_API_KEY")
	}

	if len(missing) > 0 {
		return nil, driver.MissingEnvError(vendorName, missing)
	}

	return New(cfg)
}

// Name returns "odoo".
func (d *Driver) Name() string {
	return vendorName
}

// Capabilities describes Odoo driver support.
func (d *Driver) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		Read:                  true,
		Write:                 true,
		Update:                true,
		Delete:                true,
		BatchOperations:       false,
		Streaming:             true,
		Pagination:            driver.PaginationOffset,
		MaxPageSize:           constants.OdooMaxPageSize,
		SupportsTransactions:  true,
		SupportsRelationships: true,
	}
}

// ListObjects returns all installed models, sorted by technical name.
func (d *Driver) ListObjects(ctx context.Context) ([]string, error) {
	return d.meta.Objects(ctx, func(ctx context.Context) ([]string, error) {
		rows, err := d.executeKw(ctx, "ir.model", "search_read",
			[]any{[]any{}},
			map[string]any{"fields": []string{"model"}})
		if err != nil {
			return nil, fmt.Errorf("listing models: %w", err)
		}

		records, err := decodeRows(rows)
		if err != nil {
			return nil, err
		}

		models := make([]string, 0, len(records))

		for _, record := range records {
			if model, ok := record["model"].(string); ok {
				models = append(models, model)
			}
		}

		sort.Strings(models)

		return models, nil
	})
}

// GetFields returns the schema of a model from ir.model.fields.
func (d *Driver) GetFields(ctx context.Context, object string) (driver.Schema, error) {
	return d.meta.Schema(ctx, object, func(ctx context.Context) (driver.Schema, error) {
		rows, err := d.executeKw(ctx, "ir.model.fields", "search_read",
			[]any{[]any{[]any{"model", "=", object}}},
			map[string]any{"fields": []string{"name", "ttype", "field_description", "required"}})
		if err != nil {
			return nil, fmt.Errorf("describing %s: %w", object, err)
		}

		records, err := decodeRows(rows)
		if err != nil {
			return nil, err
		}

		if len(records) == 0 {
			return nil, driver.NewObjectNotFoundError(
				fmt.Sprintf("model %q does not exist", object),
				map[string]any{"requested": object})
		}

		schema := make(driver.Schema, len(records))

		for _, record := range records {
			name, _ := record["name"].(string)
			if name == "" {
				continue
			}

			ttype, _ := record["ttype"].(string)
			label, _ := record["field_description"].(string)
			required, _ := record["required"].(bool)

			schema[name] = driver.Field{Type: ttype, Label: label, Required: required}
		}

		return schema, nil
	})
}

// Read runs search_read with a domain built from the query filters.
func (d *Driver) Read(ctx context.Context, query *driver.Query) ([]driver.Record, error) {
	if err := driver.ValidateLimit(query.Limit, constants.OdooMaxPageSize); err != nil {
		return nil, err
	}

	domain, err := buildDomain(query)
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}

	return d.searchRead(ctx, query, domain, limit, query.Offset)
}

// ReadBatched iterates search_read pages by advancing the offset until a
// short page arrives.
func (d *Driver) ReadBatched(ctx context.Context, query *driver.Query) (*driver.BatchIterator, error) {
	domain, err := buildDomain(query)
	if err != nil {
		return nil, err
	}

	batched := query.Clone()
	if batched.Limit <= 0 || batched.Limit > constants.OdooMaxPageSize {
		batched.Limit = defaultReadLimit
	}

	fetch := func(ctx context.Context, cursor driver.Cursor) ([]driver.Record, driver.Cursor, bool, error) {
		records, err := d.searchRead(ctx, batched, domain, batched.Limit, cursor.Offset)
		if err != nil {
			return nil, cursor, false, err
		}

		next := driver.Cursor{Offset: cursor.Offset + len(records)}

		return records, next, len(records) == batched.Limit, nil
	}

	return driver.NewBatchIterator(fetch, driver.Cursor{Offset: query.Offset})
}

func (d *Driver) searchRead(ctx context.Context, query *driver.Query, domain []any, limit, offset int) ([]driver.Record, error) {
	kwargs := map[string]any{"limit": limit}

	if offset > 0 {
		kwargs["offset"] = offset
	}

	if len(query.Fields) > 0 {
		kwargs["fields"] = query.Fields
	}

	if query.OrderBy != "" {
		kwargs["order"] = query.OrderBy
	}

	rows, err := d.executeKw(ctx, query.Object, "search_read", []any{domain}, kwargs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", query.Object, err)
	}

	return decodeRows(rows)
}

// Create inserts a record and reads it back: Odoo returns only the new ID.
func (d *Driver) Create(ctx context.Context, object string, data driver.Record) (driver.Record, error) {
	result, err := d.executeKw(ctx, object, "create", []any{map[string]any(data)}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", object, err)
	}

	var id int64
	if err := json.Unmarshal(result, &id); err != nil {
		return nil, driver.NewValidationError(
			fmt.Sprintf("unexpected create result for %s", object),
			map[string]any{"result": string(result)})
	}

	return d.readByID(ctx, object, id)
}

// Update writes the record and reads back the new state.
func (d *Driver) Update(ctx context.Context, object, id string, data driver.Record) (driver.Record, error) {
	numericID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	if _, err := d.executeKw(ctx, object, "write",
		[]any{[]any{numericID}, map[string]any(data)}, nil); err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", object, id, err)
	}

	return d.readByID(ctx, object, numericID)
}

// Delete unlinks the record.
func (d *Driver) Delete(ctx context.Context, object, id string) (bool, error) {
	numericID, err := parseID(id)
	if err != nil {
		return false, err
	}

	if _, err := d.executeKw(ctx, object, "unlink", []any{[]any{numericID}}, nil); err != nil {
		return false, fmt.Errorf("deleting %s/%s: %w", object, id, err)
	}

	return true, nil
}

// Close releases idle connections.
func (d *Driver) Close() error {
	d.client.Close()

	return nil
}

func (d *Driver) readByID(ctx context.Context, object string, id int64) (driver.Record, error) {
	rows, err := d.executeKw(ctx, object, "read", []any{[]any{id}}, nil)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%d: %w", object, id, err)
	}

	records, err := decodeRows(rows)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, driver.NewObjectNotFoundError(
			fmt.Sprintf("%s record %d does not exist", object, id),
			map[string]any{"requested": id})
	}

	return records[0], nil
}

// executeKw issues one JSON-RPC call and returns the raw result payload.
func (d *Driver) executeKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  "call",
		"params": map[string]any{
			"service": "object",
			"method":  "execute_kw",
			"args":    []any{d.database, d.apiKey, model, method, args, kwargs},
		},
		"id": 1,
	}

	resp, err := d.client.Post(ctx, constants.OdooCallPath, payload)
	if err != nil {
		return nil, err
	}

	var rpc struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}

	if err := resp.JSON(&rpc); err != nil {
		return nil, err
	}

	if rpc.Error != nil {
		return nil, mapRPCError(model, rpc.Error)
	}

	return rpc.Result, nil
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

// mapRPCError classifies a JSON-RPC fault by the server exception name.
func mapRPCError(model string, rpcErr *rpcError) error {
	message := rpcErr.Data.Message
	if message == "" {
		message = rpcErr.Message
	}

	details := map[string]any{
		"model":     model,
		"exception": rpcErr.Data.Name,
	}

	switch {
	case strings.Contains(rpcErr.Data.Name, "AccessDenied"),
		strings.Contains(rpcErr.Data.Name, "AccessError"):
		return driver.NewAuthenticationError(message, details)
	case strings.Contains(rpcErr.Data.Name, "ValidationError"),
		strings.Contains(rpcErr.Data.Name, "UserError"):
		return driver.NewValidationError(message, details)
	case strings.Contains(message, "doesn't exist"),
		strings.Contains(message, "does not exist"):
		return driver.NewObjectNotFoundError(message, details)
	case strings.Contains(rpcErr.Data.Name, "Invalid"):
		return driver.NewQuerySyntaxError(message, details)
	default:
		return driver.NewConnectionError(message, details)
	}
}

// buildDomain translates query filters into an Odoo search domain. A raw
// "domain" filter carries a JSON-encoded domain verbatim; other filters
// become equality terms.
func buildDomain(query *driver.Query) ([]any, error) {
	domain := []any{}

	for field, values := range query.Filters {
		if len(values) == 0 {
			continue
		}

		if field == "domain" {
			var raw []any
			if err := json.Unmarshal([]byte(values[0]), &raw); err != nil {
				return nil, driver.NewQuerySyntaxError(
					"domain filter must be a JSON array of triples",
					map[string]any{
						"provided": values[0],
						"example":  `[["name", "ilike", "acme"]]`,
					})
			}

			domain = append(domain, raw...)

			continue
		}

		domain = append(domain, []any{field, "=", values[0]})
	}

	return domain, nil
}

func decodeRows(raw json.RawMessage) ([]driver.Record, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var records []driver.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding rows: %w", err)
	}

	return records, nil
}

func parseID(id string) (int64, error) {
	numeric, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, driver.NewValidationError(
			fmt.Sprintf("record id %q is not numeric", id),
			map[string]any{"provided": id})
	}

	return numeric, nil
}
