// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection

import (
	"context"
	"sync"

	"github.com/samber/oops"
)

// HistoryStatus is the lifecycle state of a history record.
// Tags are persisted by ordinal and append-only.
type HistoryStatus int

const (
	// HistoryInactive marks a settled record, e.g. a completed transaction.
	HistoryInactive HistoryStatus = 0
	// HistoryActive marks a record whose outcome is still pending.
	HistoryActive HistoryStatus = 1
)

func (s HistoryStatus) String() string {
	switch s {
	case HistoryInactive:
		return "inactive"
	case HistoryActive:
		return "active"
	default:
		return "unknown"
	}
}

// HistoryKind classifies what a history record describes.
// Tags are persisted by ordinal and append-only.
type HistoryKind int

// HistoryTransaction records an economic transaction against the protection.
const HistoryTransaction HistoryKind = 0

// HistoryRecord is an audit entry linked to exactly one protection. It is
// persisted independently of the protection once dirty.
type HistoryRecord struct {
	mu sync.Mutex

	id           int
	protectionID int
	kind         HistoryKind
	status       HistoryStatus
	x, y, z      int

	// modified is set whenever domain logic mutates the record and
	// cleared on a successful save.
	modified bool
}

// HistorySnapshot is the immutable view of a history record handed to the
// history store.
type HistorySnapshot struct {
	ID           int
	ProtectionID int
	Kind         HistoryKind
	Status       HistoryStatus
	X, Y, Z      int
}

// RestoreHistory rebuilds a history record from stored data. The record
// starts clean.
func RestoreHistory(snap HistorySnapshot) *HistoryRecord {
	return &HistoryRecord{
		id:           snap.ID,
		protectionID: snap.ProtectionID,
		kind:         snap.Kind,
		status:       snap.Status,
		x:            snap.X,
		y:            snap.Y,
		z:            snap.Z,
	}
}

// ID returns the store-assigned record id, zero until first saved.
func (h *HistoryRecord) ID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

// SetID records the store-assigned id without dirtying the record.
func (h *HistoryRecord) SetID(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.id = id
}

// ProtectionID returns the id of the owning protection.
func (h *HistoryRecord) ProtectionID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.protectionID
}

// Kind returns the record's classification.
func (h *HistoryRecord) Kind() HistoryKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kind
}

// Status returns the record's lifecycle status.
func (h *HistoryRecord) Status() HistoryStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// SetStatus updates the lifecycle status and marks the record dirty.
func (h *HistoryRecord) SetStatus(status HistoryStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == status {
		return
	}
	h.status = status
	h.modified = true
}

// Coordinates returns the x, y, z the record was taken at.
func (h *HistoryRecord) Coordinates() (x, y, z int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.x, h.y, h.z
}

// Modified reports whether the record has unsaved changes.
func (h *HistoryRecord) Modified() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.modified
}

// Snapshot captures the record's fields for persistence.
func (h *HistoryRecord) Snapshot() HistorySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HistorySnapshot{
		ID:           h.id,
		ProtectionID: h.protectionID,
		Kind:         h.kind,
		Status:       h.status,
		X:            h.x,
		Y:            h.y,
		Z:            h.z,
	}
}

// SaveNow persists the record to the history store if it is dirty, then
// clears the dirty bit. Clean records are a no-op.
func (h *HistoryRecord) SaveNow(ctx context.Context, store HistoryStore) error {
	h.mu.Lock()
	if !h.modified {
		h.mu.Unlock()
		return nil
	}
	snap := HistorySnapshot{
		ID:           h.id,
		ProtectionID: h.protectionID,
		Kind:         h.kind,
		Status:       h.status,
		X:            h.x,
		Y:            h.y,
		Z:            h.z,
	}
	h.mu.Unlock()

	id, err := store.SaveHistory(ctx, snap)
	if err != nil {
		return oops.
			With("protection_id", snap.ProtectionID).
			With("history_id", snap.ID).
			Wrapf(err, "save history record")
	}

	h.mu.Lock()
	h.id = id
	h.modified = false
	h.mu.Unlock()
	return nil
}

// NewHistory creates a history record attached to this protection at its
// current coordinates, with HistoryInactive status, and tracks it in the
// protection's history cache.
func (p *Protection) NewHistory(kind HistoryKind) *HistoryRecord {
	p.mu.Lock()
	h := &HistoryRecord{
		protectionID: p.id,
		kind:         kind,
		status:       HistoryInactive,
		x:            p.x,
		y:            p.y,
		z:            p.z,
	}
	p.mu.Unlock()

	p.CheckHistory(h)
	return h
}

// CheckHistory ensures the given history record is tracked in this
// protection's cache. Idempotent.
func (p *Protection) CheckHistory(h *HistoryRecord) {
	p.history.track(h)
}

// RelatedHistory returns every history record for this protection. On the
// first call the set is bulk-loaded from the history store, exactly once;
// later calls never reload, even if the backing store changes. The
// returned slice is a copy.
func (p *Protection) RelatedHistory(ctx context.Context) ([]*HistoryRecord, error) {
	if err := p.history.load(ctx, p); err != nil {
		return nil, err
	}
	return p.history.all(), nil
}

// RelatedHistoryByKind filters RelatedHistory by kind. Order follows the
// iteration order of the underlying set and is not stable across loads.
func (p *Protection) RelatedHistoryByKind(ctx context.Context, kind HistoryKind) ([]*HistoryRecord, error) {
	all, err := p.RelatedHistory(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*HistoryRecord
	for _, h := range all {
		if h.Kind() == kind {
			matches = append(matches, h)
		}
	}
	return matches, nil
}

// historyCache is the lazily populated set of history records for one
// protection. It loads from the history store at most once per record
// lifetime, tracked by an explicit loaded flag rather than emptiness so
// an empty first load is still terminal.
type historyCache struct {
	mu      sync.Mutex
	loaded  bool
	records []*HistoryRecord
}

func (c *historyCache) track(h *HistoryRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.records {
		if existing == h {
			return
		}
	}
	c.records = append(c.records, h)
}

// load performs the one-time bulk load, merging stored records with any
// already tracked in memory.
func (c *historyCache) load(ctx context.Context, p *Protection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}

	snaps, err := p.env.History.LoadHistory(ctx, p.ID())
	if err != nil {
		return oops.
			With("protection_id", p.ID()).
			Wrapf(err, "load related history")
	}

	HistoryLoads.Inc()

	for _, snap := range snaps {
		c.records = append(c.records, RestoreHistory(snap))
	}
	c.loaded = true
	return nil
}

func (c *historyCache) all() []*HistoryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	records := make([]*HistoryRecord, len(c.records))
	copy(records, c.records)
	return records
}
