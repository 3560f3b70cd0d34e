// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

// Package notify distributes protection lifecycle notifications to observers.
package notify

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wardkeep/wardkeep/internal/protection"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

func newEventID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// EventType identifies the kind of lifecycle event.
type EventType string

// EventPreRemoval fires once per protection, before its terminal state is
// set: observers may still read pre-removal data such as the password.
const EventPreRemoval EventType = "pre_removal"

// Event is a lifecycle notification for one protection. Observers may
// read the referenced record but must not mutate it destructively; the
// removal sequence is still running when the event is delivered.
type Event struct {
	ID        ulid.ULID
	Type      EventType
	Timestamp time.Time

	ProtectionID int
	Kind         protection.Kind
	Owner        string
	CacheKey     string
	Record       *protection.Protection
}

// Broadcaster distributes lifecycle events to subscribers. Delivery is
// fire-and-forget: a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu   sync.RWMutex
	subs []chan Event
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe creates a channel for receiving lifecycle events.
func (b *Broadcaster) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100)
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// NotifyPreRemoval broadcasts the single pre-removal notification for a
// protection. It fires while the record still exposes pre-removal state.
func (b *Broadcaster) NotifyPreRemoval(p *protection.Protection) {
	event := Event{
		ID:           newEventID(),
		Type:         EventPreRemoval,
		Timestamp:    time.Now(),
		ProtectionID: p.ID(),
		Kind:         p.Kind(),
		Owner:        p.Owner(),
		CacheKey:     p.CacheKey(),
		Record:       p,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			slog.Warn("lifecycle event dropped: subscriber buffer full",
				"event_id", event.ID.String(),
				"event_type", string(event.Type),
				"protection_id", event.ProtectionID,
			)
		}
	}
}
