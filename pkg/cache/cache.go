// Package cache holds the runtime, static and request caches used by the
// content services.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/storage/memory/v2"
)

// Cache stores JSON-encodable values by key.
type Cache interface {
	// Get decodes the cached value into dst and reports whether it was found.
	Get(key string, dst any) (bool, error)
	Set(key string, value any, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	Close() error
}

// Helper bundles the caches an application context hands to its services.
type Helper struct {
	Runtime  Cache
	Static   Cache
	Request  Cache
	disabled bool
}

// Options configures NewHelper.
type Options struct {
	GCInterval time.Duration
}

// NewHelper returns a helper whose caches are backed by in-memory storage.
func NewHelper(opts Options) *Helper {
	if opts.GCInterval <= 0 {
		opts.GCInterval = time.Minute
	}
	return &Helper{
		Runtime: newStorageCache(opts.GCInterval),
		Static:  newStorageCache(opts.GCInterval),
		Request: newStorageCache(opts.GCInterval),
	}
}

// NewDisabledHelper returns a helper whose caches never hold anything.
func NewDisabledHelper() *Helper {
	return &Helper{Runtime: nullCache{}, Static: nullCache{}, Request: nullCache{}, disabled: true}
}

// Disabled reports whether the helper was built by NewDisabledHelper.
func (h *Helper) Disabled() bool { return h.disabled }

// ClearAll empties every cache.
func (h *Helper) ClearAll() error {
	for _, c := range []Cache{h.Runtime, h.Static, h.Request} {
		if err := c.Clear(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the storage behind every cache, even when one of them
// fails to close.
func (h *Helper) Close() error {
	var errs []error
	for _, c := range []Cache{h.Runtime, h.Static, h.Request} {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type storageCache struct {
	store *memory.Storage
}

func newStorageCache(gc time.Duration) *storageCache {
	return &storageCache{store: memory.New(memory.Config{GCInterval: gc})}
}

func (c *storageCache) Get(key string, dst any) (bool, error) {
	raw, err := c.store.Get(key)
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *storageCache) Set(key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.store.Set(key, raw, ttl)
}

func (c *storageCache) Delete(key string) error { return c.store.Delete(key) }
func (c *storageCache) Clear() error            { return c.store.Reset() }
func (c *storageCache) Close() error            { return c.store.Close() }

type nullCache struct{}

func (nullCache) Get(string, any) (bool, error)        { return false, nil }
func (nullCache) Set(string, any, time.Duration) error { return nil }
func (nullCache) Delete(string) error                  { return nil }
func (nullCache) Clear() error                         { return nil }
func (nullCache) Close() error                         { return nil }
