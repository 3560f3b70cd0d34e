// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

// Package cache provides the shared in-memory protection lookup.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/wardkeep/wardkeep/internal/protection"
)

// DefaultSize is the default entry bound for the record cache.
const DefaultSize = 10000

// Size is the gauge for currently cached protections.
// Use RegisterMetrics to register this with a Prometheus registry.
var Size = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "wardkeep_record_cache_size",
		Help: "Number of protections currently cached",
	},
)

// RegisterMetrics registers cache metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Size)
}

// RecordCache is a bounded LRU of live protections keyed by cache key
// (world:x:y:z). No two simultaneously cached records share a key.
// Entries are only evicted by the owning record's removal sequence or by
// LRU pressure; no other component deletes entries directly.
type RecordCache struct {
	entries *lru.Cache[string, *protection.Protection]
}

// New creates a RecordCache bounded to size entries.
func New(size int) (*RecordCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, *protection.Protection](size)
	if err != nil {
		return nil, oops.With("size", size).Wrapf(err, "create record cache")
	}
	return &RecordCache{entries: entries}, nil
}

// Put caches the record under its current cache key, replacing any
// previous entry for that key.
func (c *RecordCache) Put(p *protection.Protection) {
	c.entries.Add(p.CacheKey(), p)
	Size.Set(float64(c.entries.Len()))
}

// Fetch returns the cached record for a cache key, if present.
func (c *RecordCache) Fetch(key string) (*protection.Protection, bool) {
	return c.entries.Get(key)
}

// Evict drops the record's entry, keyed by its current cache key.
func (c *RecordCache) Evict(p *protection.Protection) {
	c.entries.Remove(p.CacheKey())
	Size.Set(float64(c.entries.Len()))
}

// Len returns the number of cached records.
func (c *RecordCache) Len() int {
	return c.entries.Len()
}
