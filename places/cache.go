// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jcodagnone/poibench/spatial"
	"github.com/jcodagnone/poibench/utils/textutils"
)

// CacheStats counts LookupCache activity.
type CacheStats struct {
	Lookups int `json:"lookups"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Entries int `json:"entries"`
	Errors  int `json:"errors"`
}

type cacheEntry struct {
	records []PlaceRecord
	err     error
}

// LookupCache memoizes a Corroborator for the lifetime of one run. Lookups are
// keyed by the normalized name and address, so the point only matters to the
// first lookup of a key. Concurrent lookups of the same key share one request.
// Provider errors are cached as well; cancellations are not.
type LookupCache struct {
	inner Corroborator
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
	lookups int
	misses  int
}

// NewLookupCache wraps inner.
func NewLookupCache(inner Corroborator) *LookupCache {
	return &LookupCache{
		inner:   inner,
		entries: make(map[string]cacheEntry),
	}
}

// CacheKey returns the key a name and address are cached under.
func CacheKey(name, address string) string {
	return textutils.Normalize(name) + "|" + textutils.Normalize(address)
}

// Lookup implements Corroborator.
func (c *LookupCache) Lookup(ctx context.Context, name, address string, near spatial.Point) ([]PlaceRecord, error) {
	key := CacheKey(name, address)

	c.mu.Lock()
	c.lookups++
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		return slices.Clone(entry.records), entry.err
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if entry, ok := c.entries[key]; ok {
			c.mu.Unlock()

			return entry, nil
		}
		c.misses++
		c.mu.Unlock()

		records, err := c.inner.Lookup(ctx, name, address, near)
		entry := cacheEntry{records: records, err: err}

		if ctx.Err() == nil {
			c.mu.Lock()
			c.entries[key] = entry
			c.mu.Unlock()
		}

		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	entry = v.(cacheEntry)

	return slices.Clone(entry.records), entry.err
}

// Stats returns a snapshot of the counters.
func (c *LookupCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Lookups: c.lookups,
		Misses:  c.misses,
		Hits:    c.lookups - c.misses,
		Entries: len(c.entries),
	}

	for _, e := range c.entries {
		if e.err != nil {
			stats.Errors++
		}
	}

	return stats
}
