// Package vendorcache provides read-through caching of driver metadata
// (schemas and object lists), which changes rarely and is fetched often.
package vendorcache

import (
	"context"
	"encoding/json"

	"github.com/fivetwenty-io/driverkit/internal/constants"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
)

// Metadata caches schema and object-list lookups for one vendor. A nil or
// no-op cache degrades to calling the fetch function every time.
type Metadata struct {
	vendor string
	cache  driver.Cache
}

// New creates a metadata cache. A nil cache disables caching.
func New(vendor string, cache driver.Cache) *Metadata {
	if cache == nil {
		cache = driver.NewNoOpCache()
	}

	return &Metadata{vendor: vendor, cache: cache}
}

// Schema returns the cached schema for the object, calling fetch on a miss
// and storing the result.
func (m *Metadata) Schema(ctx context.Context, object string, fetch func(context.Context) (driver.Schema, error)) (driver.Schema, error) {
	key := m.vendor + ":fields:" + object

	if entry, err := m.cache.Get(ctx, key); err == nil {
		var schema driver.Schema
		if err := json.Unmarshal(entry.Data, &schema); err == nil {
			return schema, nil
		}
	}

	schema, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(schema); err == nil {
		_ = m.cache.Set(ctx, key, driver.NewCacheEntry(data, constants.DefaultCacheTTL))
	}

	return schema, nil
}

// Objects returns the cached object list, calling fetch on a miss and
// storing the result.
func (m *Metadata) Objects(ctx context.Context, fetch func(context.Context) ([]string, error)) ([]string, error) {
	key := m.vendor + ":objects"

	if entry, err := m.cache.Get(ctx, key); err == nil {
		var objects []string
		if err := json.Unmarshal(entry.Data, &objects); err == nil {
			return objects, nil
		}
	}

	objects, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(objects); err == nil {
		_ = m.cache.Set(ctx, key, driver.NewCacheEntry(data, constants.DefaultCacheTTL))
	}

	return objects, nil
}
