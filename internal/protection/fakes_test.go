// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection_test

import (
	"context"
	"sync"

	"github.com/wardkeep/wardkeep/internal/protection"
)

// callLog records collaborator invocations in order, shared across the
// fakes so lifecycle ordering can be asserted.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) record(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	calls := make([]string, len(l.calls))
	copy(calls, l.calls)
	return calls
}

type fakeGateway struct {
	log *callLog

	mu      sync.Mutex
	saves   []protection.Snapshot
	removes []int
	nextID  int

	loadFn    func(id int) (protection.Snapshot, error)
	loadByLoc func(world string, x, y, z int) (protection.Snapshot, error)
	saveErr   error
	removeErr error
}

func (g *fakeGateway) Load(_ context.Context, id int) (protection.Snapshot, error) {
	if g.loadFn != nil {
		return g.loadFn(id)
	}
	return protection.Snapshot{}, protection.ErrNotFound
}

func (g *fakeGateway) LoadByLocation(_ context.Context, world string, x, y, z int) (protection.Snapshot, error) {
	if g.loadByLoc != nil {
		return g.loadByLoc(world, x, y, z)
	}
	return protection.Snapshot{}, protection.ErrNotFound
}

func (g *fakeGateway) Create(_ context.Context, snap protection.Snapshot) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	snap.ID = g.nextID
	g.saves = append(g.saves, snap)
	return g.nextID, nil
}

func (g *fakeGateway) Save(_ context.Context, snap protection.Snapshot) error {
	if g.saveErr != nil {
		return g.saveErr
	}
	g.mu.Lock()
	g.saves = append(g.saves, snap)
	g.mu.Unlock()
	if g.log != nil {
		g.log.record("gateway_save")
	}
	return nil
}

func (g *fakeGateway) Remove(_ context.Context, id int) error {
	if g.removeErr != nil {
		return g.removeErr
	}
	g.mu.Lock()
	g.removes = append(g.removes, id)
	g.mu.Unlock()
	if g.log != nil {
		g.log.record("gateway_remove")
	}
	return nil
}

func (g *fakeGateway) savedSnapshots() []protection.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	saves := make([]protection.Snapshot, len(g.saves))
	copy(saves, g.saves)
	return saves
}

type fakeHistoryStore struct {
	log *callLog

	mu     sync.Mutex
	loads  int
	saved  []protection.HistorySnapshot
	nextID int

	loadFn func(call int) ([]protection.HistorySnapshot, error)
}

func (s *fakeHistoryStore) LoadHistory(_ context.Context, _ int) ([]protection.HistorySnapshot, error) {
	s.mu.Lock()
	s.loads++
	call := s.loads
	s.mu.Unlock()
	if s.loadFn != nil {
		return s.loadFn(call)
	}
	return nil, nil
}

func (s *fakeHistoryStore) SaveHistory(_ context.Context, snap protection.HistorySnapshot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.ID == 0 {
		s.nextID++
		snap.ID = s.nextID
	}
	s.saved = append(s.saved, snap)
	if s.log != nil {
		s.log.record("history_save")
	}
	return snap.ID, nil
}

func (s *fakeHistoryStore) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func (s *fakeHistoryStore) savedSnapshots() []protection.HistorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make([]protection.HistorySnapshot, len(s.saved))
	copy(saved, s.saved)
	return saved
}

type fakeQueue struct {
	log *callLog

	mu       sync.Mutex
	enqueued []*protection.Protection
	canceled []int
}

func (q *fakeQueue) Enqueue(p *protection.Protection) {
	q.mu.Lock()
	q.enqueued = append(q.enqueued, p)
	q.mu.Unlock()
	if q.log != nil {
		q.log.record("queue_enqueue")
	}
}

func (q *fakeQueue) Cancel(id int) {
	q.mu.Lock()
	q.canceled = append(q.canceled, id)
	q.mu.Unlock()
	if q.log != nil {
		q.log.record("queue_cancel")
	}
}

type fakeCache struct {
	log *callLog

	mu      sync.Mutex
	entries map[string]*protection.Protection
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*protection.Protection)}
}

func (c *fakeCache) Put(p *protection.Protection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.CacheKey()] = p
}

func (c *fakeCache) Evict(p *protection.Protection) {
	c.mu.Lock()
	delete(c.entries, p.CacheKey())
	c.mu.Unlock()
	if c.log != nil {
		c.log.record("cache_evict")
	}
}

func (c *fakeCache) Fetch(key string) (*protection.Protection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[key]
	return p, ok
}

type fakeNotifier struct {
	log *callLog

	mu     sync.Mutex
	events []*protection.Protection
}

func (n *fakeNotifier) NotifyPreRemoval(p *protection.Protection) {
	n.mu.Lock()
	n.events = append(n.events, p)
	n.mu.Unlock()
	if n.log != nil {
		n.log.record("notify_pre_removal")
	}
}

// testEnv bundles the fakes behind a Deps for constructing records.
type testEnv struct {
	gateway  *fakeGateway
	history  *fakeHistoryStore
	queue    *fakeQueue
	cache    *fakeCache
	notifier *fakeNotifier
	log      *callLog
}

func newTestEnv() *testEnv {
	log := &callLog{}
	return &testEnv{
		gateway:  &fakeGateway{log: log},
		history:  &fakeHistoryStore{log: log},
		queue:    &fakeQueue{log: log},
		cache:    newFakeCache(),
		notifier: &fakeNotifier{log: log},
		log:      log,
	}
}

func (e *testEnv) deps() *protection.Deps {
	e.cache.log = e.log
	return &protection.Deps{
		Gateway:  e.gateway,
		History:  e.history,
		Queue:    e.queue,
		Cache:    e.cache,
		Notifier: e.notifier,
	}
}
