// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/wardkeep/wardkeep/internal/notify"
	"github.com/wardkeep/wardkeep/internal/protection"
)

var _ = Describe("Protection lifecycle", func() {
	var ctx context.Context
	var env *testEnv

	BeforeEach(func() {
		ctx = context.Background()
		env = newTestEnv()
	})

	Describe("Registering a protection", func() {
		It("assigns an id and caches the record", func() {
			p, err := env.manager.Register(ctx, protection.KindPrivate, 54, "world", 100, 64, -200, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ID()).To(BeNumerically(">", 0))

			cached, err := env.manager.At(ctx, "world", 100, 64, -200)
			Expect(err).NotTo(HaveOccurred())
			Expect(cached.Equal(p)).To(BeTrue())
		})

		It("round-trips access rights and flags through the store", func() {
			p, err := env.manager.Register(ctx, protection.KindPrivate, 54, "world", 1, 2, 3, "alice")
			Expect(err).NotTo(HaveOccurred())

			p.AddAccessRight(protection.AccessRight{
				SubjectKind: protection.SubjectPlayer,
				SubjectName: "bob",
				Rights:      protection.RightsPlayer,
			})
			p.AddFlag(protection.Flag{Type: protection.FlagRedstone})
			Expect(p.SaveNow(ctx)).To(Succeed())

			// A fresh load from the store must see the same grants.
			loaded, err := env.manager.Get(ctx, p.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Access(protection.SubjectPlayer, "BOB")).To(Equal(protection.RightsPlayer))
			Expect(loaded.HasFlag(protection.FlagRedstone)).To(BeTrue())
		})
	})

	Describe("Deferred saving", func() {
		It("writes queued changes on flush", func() {
			p, err := env.manager.Register(ctx, protection.KindPublic, 61, "world", 5, 5, 5, "carol")
			Expect(err).NotTo(HaveOccurred())

			p.SetOwner("dave")
			p.Save()
			Expect(env.queue.Len()).To(Equal(1))

			env.queue.Flush(ctx)
			Expect(env.queue.Len()).To(Equal(0))

			snap, err := env.store.Load(ctx, p.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Owner).To(Equal("dave"))
		})
	})

	Describe("Removing a protection", func() {
		var p *protection.Protection
		var events chan notify.Event

		BeforeEach(func() {
			var err error
			p, err = env.manager.Register(ctx, protection.KindPrivate, 54, "world", 9, 9, 9, "alice")
			Expect(err).NotTo(HaveOccurred())
			events = env.broadcaster.Subscribe()
			DeferCleanup(func() { env.broadcaster.Unsubscribe(events) })
		})

		It("deletes the row, evicts the cache and notifies observers", func() {
			h := p.NewHistory(protection.HistoryTransaction)
			h.SetStatus(protection.HistoryActive)
			Expect(p.SaveNow(ctx)).To(Succeed())

			Expect(p.Remove(ctx)).To(Succeed())
			Expect(p.Removed()).To(BeTrue())

			_, err := env.store.Load(ctx, p.ID())
			Expect(err).To(MatchError(protection.ErrNotFound))

			_, ok := env.records.Fetch(p.CacheKey())
			Expect(ok).To(BeFalse())

			var ev notify.Event
			Eventually(events).Should(Receive(&ev))
			Expect(ev.Type).To(Equal(notify.EventPreRemoval))
			Expect(ev.ProtectionID).To(Equal(p.ID()))

			// Active transaction history is deactivated, not deleted.
			snaps, err := env.store.LoadHistory(ctx, p.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(snaps).To(HaveLen(1))
			Expect(snaps[0].Status).To(Equal(protection.HistoryInactive))
		})

		It("freezes the record after removal", func() {
			Expect(p.Remove(ctx)).To(Succeed())

			before := p.Snapshot()
			p.SetOwner("mallory")
			p.AddFlag(protection.Flag{Type: protection.FlagMagnet})
			Expect(p.Snapshot()).To(Equal(before))
		})

		It("drops pending queue entries for the removed record", func() {
			p.SetOwner("eve")
			p.Save()
			Expect(env.queue.Len()).To(Equal(1))

			Expect(p.Remove(ctx)).To(Succeed())
			Expect(env.queue.Len()).To(Equal(0))

			_, err := env.store.Load(ctx, p.ID())
			Expect(err).To(MatchError(protection.ErrNotFound))
		})
	})
})
