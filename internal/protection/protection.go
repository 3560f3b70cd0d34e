// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Protection is the authoritative record for one protected resource: a
// spatially anchored, access-controlled object whose state is coordinated
// across the record cache, the deferred save queue, and the history store.
//
// A protection is ACTIVE until Remove is called, REMOVING while the
// removal sequence runs, and REMOVED permanently afterwards. Once removed
// every setter and mutating collection operation is a silent no-op; the
// in-memory state is frozen.
type Protection struct {
	env *Deps

	mu sync.Mutex

	id           int
	kind         Kind
	blockID      int
	world        string
	x, y, z      int
	owner        string
	password     string
	creation     string
	lastAccessed int64

	accessRights []AccessRight
	flags        []Flag
	history      historyCache

	// data is the encoded extension payload, refreshed from the live
	// rights and flags collections at snapshot time.
	data ExtensionData

	modified bool
	removing bool
	removed  bool
}

// New creates an empty ACTIVE protection wired to the given collaborators.
func New(env *Deps) *Protection {
	return &Protection{env: env}
}

// Restore rebuilds a protection from a stored snapshot, decoding the
// extension payload back into the rights and flags collections. The
// record starts clean.
func Restore(env *Deps, snap Snapshot) *Protection {
	p := &Protection{
		env:          env,
		id:           snap.ID,
		kind:         snap.Kind,
		blockID:      snap.BlockID,
		world:        snap.World,
		x:            snap.X,
		y:            snap.Y,
		z:            snap.Z,
		owner:        snap.Owner,
		password:     snap.Password,
		creation:     snap.Creation,
		lastAccessed: snap.LastAccessed,
	}

	for _, right := range snap.Data.Rights {
		p.accessRights = append(p.accessRights, AccessRight(right))
	}
	for _, flag := range snap.Data.Flags {
		p.flags = append(p.flags, Flag{Type: flag.Type, Data: flag.Data})
	}
	return p
}

// Accessors. Each takes the record lock so readers on the primary thread
// never observe a half-written field from a concurrent mutation.

func (p *Protection) ID() int { p.mu.Lock(); defer p.mu.Unlock(); return p.id }
func (p *Protection) Kind() Kind { p.mu.Lock(); defer p.mu.Unlock(); return p.kind }
func (p *Protection) BlockID() int { p.mu.Lock(); defer p.mu.Unlock(); return p.blockID }
func (p *Protection) World() string { p.mu.Lock(); defer p.mu.Unlock(); return p.world }
func (p *Protection) Owner() string { p.mu.Lock(); defer p.mu.Unlock(); return p.owner }
func (p *Protection) Password() string { p.mu.Lock(); defer p.mu.Unlock(); return p.password }
func (p *Protection) Creation() string { p.mu.Lock(); defer p.mu.Unlock(); return p.creation }
func (p *Protection) LastAccessed() int64 { p.mu.Lock(); defer p.mu.Unlock(); return p.lastAccessed }
func (p *Protection) Modified() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.modified }
func (p *Protection) Removed() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.removed }
func (p *Protection) Removing() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.removing }

// Coordinates returns the protection's x, y, z.
func (p *Protection) Coordinates() (x, y, z int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y, p.z
}

// set applies a field mutation under the lock. Removed records are
// frozen: the mutation is silently dropped.
func (p *Protection) set(mutate func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.removed {
		return
	}
	mutate()
	p.modified = true
}

// SetID records the persistence-assigned id.
func (p *Protection) SetID(id int) { p.set(func() { p.id = id }) }

// SetKind changes the protection kind.
func (p *Protection) SetKind(kind Kind) { p.set(func() { p.kind = kind }) }

// SetBlockID changes the content descriptor.
func (p *Protection) SetBlockID(blockID int) { p.set(func() { p.blockID = blockID }) }

// SetWorld changes the world identifier.
func (p *Protection) SetWorld(world string) { p.set(func() { p.world = world }) }

// SetOwner changes the owning subject.
func (p *Protection) SetOwner(owner string) { p.set(func() { p.owner = owner }) }

// SetPassword changes the password. Only meaningful for KindPassword but
// stored unconditionally.
func (p *Protection) SetPassword(password string) { p.set(func() { p.password = password }) }

// SetCreation changes the creation timestamp. The value is opaque to this
// layer; only equality and hashing use it.
func (p *Protection) SetCreation(creation string) { p.set(func() { p.creation = creation }) }

// SetX changes the x coordinate.
func (p *Protection) SetX(x int) { p.set(func() { p.x = x }) }

// SetY changes the y coordinate.
func (p *Protection) SetY(y int) { p.set(func() { p.y = y }) }

// SetZ changes the z coordinate.
func (p *Protection) SetZ(z int) { p.set(func() { p.z = z }) }

// SetLastAccessed updates the last-accessed timestamp, in Unix seconds.
func (p *Protection) SetLastAccessed(lastAccessed int64) {
	p.set(func() { p.lastAccessed = lastAccessed })
}

// IsOwner reports whether the given subject owns this protection.
func (p *Protection) IsOwner(subject string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return subject != "" && p.owner == subject
}

// CacheKey returns the deterministic record-cache key. It is recomputed
// on every call: world and coordinates stay mutable until removal, so a
// cached copy could go stale.
func (p *Protection) CacheKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cacheKey(p.world, p.x, p.y, p.z)
}

func cacheKey(world string, x, y, z int) string {
	return fmt.Sprintf("%s:%d:%d:%d", world, x, y, z)
}

// Equal reports whether two protections refer to the same stored record.
// The persistence layer may reuse ids after deletion, so identity spans
// the full (id, x, y, z, owner, world, creation) key rather than id alone.
func (p *Protection) Equal(other *Protection) bool {
	if other == nil {
		return false
	}
	if p == other {
		return true
	}

	a, b := p.identity(), other.identity()
	return a == b
}

// Hash returns a stable hash over the same key Equal compares. Equal
// protections hash identically.
func (p *Protection) Hash() uint64 {
	id := p.identity()
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d:%d:%d:%s:%s:%s", id.id, id.x, id.y, id.z, id.owner, id.world, id.creation)
	return h.Sum64()
}

type identityKey struct {
	id, x, y, z            int
	owner, world, creation string
}

func (p *Protection) identity() identityKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return identityKey{
		id:       p.id,
		x:        p.x,
		y:        p.y,
		z:        p.z,
		owner:    p.owner,
		world:    p.world,
		creation: p.creation,
	}
}

// Snapshot atomically captures the persistable state, including the
// freshly encoded extension payload. The dirty bit and the serialized
// collections are read under one critical section so a background save
// can never observe a torn combination.
func (p *Protection) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.encodeLocked()
	return p.snapshotLocked()
}

func (p *Protection) snapshotLocked() Snapshot {
	return Snapshot{
		ID:           p.id,
		Kind:         p.kind,
		BlockID:      p.blockID,
		World:        p.world,
		X:            p.x,
		Y:            p.y,
		Z:            p.z,
		Owner:        p.owner,
		Password:     p.password,
		Creation:     p.creation,
		LastAccessed: p.lastAccessed,
		Data:         p.data,
	}
}

// encodeLocked refreshes the extension payload from the live rights and
// flags collections. Array order is the insertion order of the underlying
// sets and is not guaranteed stable across saves.
func (p *Protection) encodeLocked() {
	rights := make([]EncodedRight, 0, len(p.accessRights))
	for _, right := range p.accessRights {
		rights = append(rights, EncodedRight(right))
	}

	flags := make([]EncodedFlag, 0, len(p.flags))
	for _, flag := range p.flags {
		flags = append(flags, EncodedFlag{Type: flag.Type, Data: flag.Data})
	}

	p.data = ExtensionData{Rights: rights, Flags: flags}
}

// Save queues the protection for a deferred save by the background
// worker. Idempotent while already queued: the queue dedupes by record
// identity. No-op on a removed protection.
func (p *Protection) Save() {
	p.mu.Lock()
	if p.removed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	Saves.WithLabelValues(SaveModeDeferred).Inc()
	p.env.Queue.Enqueue(p)
}

// SaveNow synchronously persists the protection. The extension payload is
// re-encoded, the gateway is invoked if the record is dirty and not mid-
// removal, and any dirty history records are flushed. Saving while the
// removal sequence runs is intentionally skipped: a save at that point
// would resurrect a partially deleted record.
func (p *Protection) SaveNow(ctx context.Context) error {
	p.mu.Lock()
	if p.removed {
		p.mu.Unlock()
		return nil
	}
	p.encodeLocked()
	snap := p.snapshotLocked()
	doSave := p.modified && !p.removing
	p.mu.Unlock()

	if doSave {
		if err := p.env.Gateway.Save(ctx, snap); err != nil {
			return oops.
				With("protection_id", snap.ID).
				With("cache_key", cacheKey(snap.World, snap.X, snap.Y, snap.Z)).
				Wrapf(err, "save protection")
		}
		Saves.WithLabelValues(SaveModeImmediate).Inc()
	}

	return p.flushHistory(ctx)
}

// flushHistory persists every dirty history record for this protection.
func (p *Protection) flushHistory(ctx context.Context) error {
	p.mu.Lock()
	if p.removed {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	related, err := p.RelatedHistory(ctx)
	if err != nil {
		return err
	}

	for _, h := range related {
		if !h.Modified() {
			continue
		}
		if err := h.SaveNow(ctx, p.env.History); err != nil {
			return err
		}
	}
	return nil
}

// Remove runs the removal sequence and permanently freezes the record.
// Idempotent: removing an already removed protection is a no-op.
//
// The step order is a contract. The pre-removal notification fires while
// the record still exposes its pre-removal data, history is fully flushed
// before the row is deleted, and the cache entry is evicted last so
// concurrent lookups during the sequence see a coherent (if removing)
// record rather than a hole.
func (p *Protection) Remove(ctx context.Context) error {
	p.mu.Lock()
	if p.removed {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Temporary grants never outlive the protection.
	p.RemoveTemporaryAccessRights()

	p.mu.Lock()
	p.modified = false
	p.removing = true
	p.mu.Unlock()

	// Observers get one chance to react while pre-removal state (such as
	// the password) is still readable.
	p.env.Notifier.NotifyPreRemoval(p)

	transactions, err := p.RelatedHistoryByKind(ctx, HistoryTransaction)
	if err != nil {
		return err
	}
	for _, h := range transactions {
		if h.Status() != HistoryActive {
			continue
		}
		h.SetStatus(HistoryInactive)
	}

	if err := p.flushHistory(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	p.removed = true
	id := p.id
	p.mu.Unlock()

	// A late background write must not resurrect the deleted row.
	p.env.Queue.Cancel(id)

	if err := p.env.Gateway.Remove(ctx, id); err != nil {
		return oops.
			With("protection_id", id).
			Wrapf(err, "remove protection")
	}

	p.env.Cache.Evict(p)
	Removals.Inc()
	return nil
}

// String renders a single-line human-readable summary.
func (p *Protection) String() string {
	p.mu.Lock()
	kind := p.kind
	blockID := p.blockID
	id := p.id
	owner := p.owner
	world := p.world
	x, y, z := p.x, p.y, p.z
	creation := p.creation
	lastAccessed := p.lastAccessed
	flags := make([]Flag, len(p.flags))
	copy(flags, p.flags)
	p.mu.Unlock()

	material := "Not yet cached"
	if blockID > 0 && p.env != nil && p.env.MaterialName != nil {
		material = p.env.MaterialName(blockID)
	}

	flagNames := make([]string, 0, len(flags))
	for _, flag := range flags {
		flagNames = append(flagNames, flag.Type.String())
	}

	accessed := "Not yet known"
	if lastAccessed > 0 {
		accessed = timeToWords(time.Duration(time.Now().Unix()-lastAccessed)*time.Second) + " ago"
	}

	return fmt.Sprintf("%s %s Id=%d Owner=%s Location=[%s %d,%d,%d] Created=%s Flags=%s LastAccessed=%s",
		capitalize(kind.String()), material, id, owner, world, x, y, z, creation,
		strings.Join(flagNames, ","), accessed)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// timeToWords renders a duration as its two most significant units, e.g.
// "2 days 3 hours" or "45 seconds".
func timeToWords(d time.Duration) string {
	if d < time.Second {
		return "moments"
	}

	units := []struct {
		name string
		dur  time.Duration
	}{
		{"day", 24 * time.Hour},
		{"hour", time.Hour},
		{"minute", time.Minute},
		{"second", time.Second},
	}

	parts := make([]string, 0, 2)
	for _, unit := range units {
		if len(parts) == 2 {
			break
		}
		n := int64(d / unit.dur)
		if n == 0 {
			continue
		}
		d -= time.Duration(n) * unit.dur
		label := unit.name
		if n != 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, label))
	}
	return strings.Join(parts, " ")
}
