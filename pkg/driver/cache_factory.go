package driver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CacheType selects a cache backend.
type CacheType string

const (
	// CacheTypeMemory is the in-process cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS is the NATS JetStream KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone disables caching.
	CacheTypeNone CacheType = "none"
)

var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrKeyNotFoundInChain   = errors.New("key not found in any cache")
)

// CacheConfig selects and configures a cache backend.
type CacheConfig struct {
	Type CacheType

	// MemoryMaxSize bounds the memory backend. Zero means the default.
	MemoryMaxSize int

	// NATS configures the NATS backend. Required when Type is nats.
	NATS *NATSKVConfig

	// TTL is the default entry lifetime for read-through cached lookups.
	TTL time.Duration
}

// DefaultCacheConfig returns a memory cache of 1000 entries with a
// 5 minute TTL, which suits schema lookups that change rarely.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:          CacheTypeMemory,
		MemoryMaxSize: 1000,
		TTL:           5 * time.Minute,
	}
}

// NewCacheFromConfig creates the configured cache backend.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		maxSize := config.MemoryMaxSize
		if maxSize <= 0 {
			maxSize = 1000
		}

		return NewMemoryCache(maxSize), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// CacheChain layers multiple caches, reading from the first that hits and
// back-filling earlier layers. Typical use is memory in front of NATS.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain creates a chain reading layers in order.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get returns the entry from the first layer holding it, populating the
// layers in front of it.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err == nil {
			for j := range i {
				_ = c.caches[j].Set(ctx, key, entry)
			}

			return entry, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrKeyNotFoundInChain, key)
}

// Set stores the entry in every layer.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Set(ctx, key, entry); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Delete removes the entry from every layer.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Clear empties every layer.
func (c *CacheChain) Clear(ctx context.Context) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Clear(ctx); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Has reports whether any layer holds a live entry.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}
