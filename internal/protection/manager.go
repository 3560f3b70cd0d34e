// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// LookupCache extends RecordCache with keyed lookup for the manager's
// read path. The record itself only ever needs Put and Evict.
type LookupCache interface {
	RecordCache

	// Fetch returns the cached record for a cache key, if present.
	Fetch(key string) (*Protection, bool)
}

// Manager is the constructing context for protections: it loads records
// through the cache, hydrates them from the gateway, and registers new
// ones. All collaborators are explicit; records created here share the
// same Deps.
type Manager struct {
	env   *Deps
	cache LookupCache
}

// NewManager creates a Manager. The lookup cache must be the same cache
// the Deps carry, so records evict the entries the manager populated.
func NewManager(env *Deps, cache LookupCache) *Manager {
	return &Manager{env: env, cache: cache}
}

// Get loads a protection by id from the gateway and caches it.
// Returns ErrNotFound (wrapped) when no such protection exists.
func (m *Manager) Get(ctx context.Context, id int) (*Protection, error) {
	snap, err := m.env.Gateway.Load(ctx, id)
	if err != nil {
		return nil, oops.With("protection_id", id).Wrapf(err, "load protection")
	}

	p := Restore(m.env, snap)
	m.cache.Put(p)
	return p, nil
}

// At returns the live protection at the given location, consulting the
// record cache before the gateway. Returns ErrNotFound (wrapped) when the
// location is unprotected.
func (m *Manager) At(ctx context.Context, world string, x, y, z int) (*Protection, error) {
	if p, ok := m.cache.Fetch(cacheKey(world, x, y, z)); ok {
		return p, nil
	}

	snap, err := m.env.Gateway.LoadByLocation(ctx, world, x, y, z)
	if err != nil {
		return nil, oops.
			With("cache_key", cacheKey(world, x, y, z)).
			Wrapf(err, "load protection by location")
	}

	p := Restore(m.env, snap)
	m.cache.Put(p)
	return p, nil
}

// Register creates and persists a new protection owned by the given
// subject, then caches it. The persistence layer assigns the id.
func (m *Manager) Register(ctx context.Context, kind Kind, blockID int, world string, x, y, z int, owner string) (*Protection, error) {
	if !kind.Valid() {
		return nil, oops.Code("UNKNOWN_KIND").With("kind", int(kind)).Errorf("invalid protection kind tag %d", int(kind))
	}
	if owner == "" {
		return nil, oops.Code("INVALID_OWNER").Errorf("protection owner must not be empty")
	}

	now := time.Now()
	snap := Snapshot{
		Kind:         kind,
		BlockID:      blockID,
		World:        world,
		X:            x,
		Y:            y,
		Z:            z,
		Owner:        owner,
		Creation:     now.UTC().Format(time.RFC3339),
		LastAccessed: now.Unix(),
	}

	id, err := m.env.Gateway.Create(ctx, snap)
	if err != nil {
		return nil, oops.
			With("cache_key", cacheKey(world, x, y, z)).
			With("owner", owner).
			Wrapf(err, "register protection")
	}
	snap.ID = id

	p := Restore(m.env, snap)
	m.cache.Put(p)
	return p, nil
}
