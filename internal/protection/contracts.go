// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection

import (
	"context"
	"errors"
)

// ErrNotFound is returned by gateways when no protection exists for the
// requested id or location.
var ErrNotFound = errors.New("protection not found")

// EncodedRight is the wire shape of an access right inside extension data.
type EncodedRight struct {
	SubjectKind SubjectKind `json:"type"`
	SubjectName string      `json:"name"`
	Rights      int         `json:"rights"`
}

// EncodedFlag is the wire shape of a flag inside extension data.
type EncodedFlag struct {
	Type FlagType       `json:"id"`
	Data map[string]any `json:"data,omitempty"`
}

// ExtensionData is the structured payload written alongside the scalar
// fields at save time. It is an encoding target only, never a source of
// truth: the live rights and flags collections are authoritative.
type ExtensionData struct {
	Rights []EncodedRight `json:"rights,omitempty"`
	Flags  []EncodedFlag  `json:"flags,omitempty"`
}

// Snapshot is an immutable copy of a protection's persistable state,
// captured atomically under the record's lock. Gateways receive snapshots
// rather than live records so a concurrent field mutation can never
// produce a torn combination of old scalars and new extension data.
type Snapshot struct {
	ID           int
	Kind         Kind
	BlockID      int
	World        string
	X, Y, Z      int
	Owner        string
	Password     string
	Creation     string
	LastAccessed int64
	Data         ExtensionData
}

// Gateway is the persistence backend for protections. All calls may fail;
// the record does not retry internally.
type Gateway interface {
	// Load retrieves a protection snapshot by id.
	// Returns ErrNotFound when absent.
	Load(ctx context.Context, id int) (Snapshot, error)

	// LoadByLocation retrieves a protection snapshot by its coordinates.
	// Returns ErrNotFound when absent.
	LoadByLocation(ctx context.Context, world string, x, y, z int) (Snapshot, error)

	// Create persists a new protection and returns its assigned id.
	Create(ctx context.Context, snap Snapshot) (int, error)

	// Save persists an existing protection.
	Save(ctx context.Context, snap Snapshot) error

	// Remove deletes the protection row by id.
	Remove(ctx context.Context, id int) error
}

// HistoryStore persists and loads history records.
type HistoryStore interface {
	// LoadHistory returns every stored history record for a protection.
	LoadHistory(ctx context.Context, protectionID int) ([]HistorySnapshot, error)

	// SaveHistory inserts or updates a history record and returns its
	// assigned id.
	SaveHistory(ctx context.Context, snap HistorySnapshot) (int, error)
}

// SaveQueue defers protection saves to a background worker. Multiple
// enqueues of the same record before the worker drains coalesce into one
// persistence write.
type SaveQueue interface {
	// Enqueue schedules a deferred save. Idempotent while already queued.
	Enqueue(p *Protection)

	// Cancel drops any pending save for the given protection id.
	Cancel(id int)
}

// RecordCache is the shared in-memory protection lookup, keyed by cache
// key. Only the record itself evicts or replaces its own entry.
type RecordCache interface {
	// Put caches the record under its current cache key.
	Put(p *Protection)

	// Evict drops the record's entry.
	Evict(p *Protection)
}

// EventNotifier broadcasts the single pre-removal lifecycle notification.
// Fire-and-forget: observers may read the record but must not mutate it.
type EventNotifier interface {
	NotifyPreRemoval(p *Protection)
}

// Deps are the external collaborators a protection coordinates. They are
// passed in explicitly by the constructing context; there is no ambient
// singleton lookup.
type Deps struct {
	Gateway  Gateway
	History  HistoryStore
	Queue    SaveQueue
	Cache    RecordCache
	Notifier EventNotifier

	// MaterialName renders a block/material id for human-readable
	// summaries. Optional.
	MaterialName func(blockID int) string
}
