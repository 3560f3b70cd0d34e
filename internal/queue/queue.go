// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

// Package queue provides the deferred save queue for protections.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"

	"github.com/wardkeep/wardkeep/internal/protection"
	"github.com/wardkeep/wardkeep/pkg/errutil"
)

// Default worker configuration values.
const (
	defaultFlushInterval = 10 * time.Second
	defaultRetryInitial  = 100 * time.Millisecond
	defaultMaxRetries    = 3
)

// Depth is the gauge for pending deferred saves.
// Use RegisterMetrics to register this with a Prometheus registry.
var Depth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "wardkeep_save_queue_depth",
		Help: "Number of protections pending a deferred save",
	},
)

// FlushFailures counts deferred saves that exhausted their retries.
// Use RegisterMetrics to register this with a Prometheus registry.
var FlushFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "wardkeep_save_queue_flush_failures_total",
		Help: "Total number of deferred saves that failed after retries",
	},
)

// RegisterMetrics registers queue metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Depth)
	reg.MustRegister(FlushFailures)
}

// Option configures a SaveQueue.
type Option func(*SaveQueue)

// WithFlushInterval sets how often the background worker drains the queue.
func WithFlushInterval(d time.Duration) Option {
	return func(q *SaveQueue) {
		q.flushInterval = d
	}
}

// WithLogger sets the worker's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *SaveQueue) {
		q.logger = logger
	}
}

// SaveQueue coalesces deferred protection saves and drains them from a
// background worker. Entries are deduplicated by protection id: repeated
// enqueues before a drain result in a single persistence write. Drain
// order is enqueue order.
type SaveQueue struct {
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	pending map[int]*protection.Protection
	order   []int

	wake chan struct{}
}

// New creates an empty SaveQueue. Call Run to start the worker.
func New(opts ...Option) *SaveQueue {
	q := &SaveQueue{
		flushInterval: defaultFlushInterval,
		logger:        slog.Default(),
		pending:       make(map[int]*protection.Protection),
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue schedules a deferred save for the protection. Idempotent while
// the record is already queued; the newest enqueue keeps the record's
// queue position from its first enqueue.
func (q *SaveQueue) Enqueue(p *protection.Protection) {
	id := p.ID()

	q.mu.Lock()
	if _, queued := q.pending[id]; !queued {
		q.order = append(q.order, id)
	}
	q.pending[id] = p
	Depth.Set(float64(len(q.pending)))
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Cancel drops any pending save for the given protection id. Called by
// the removal sequence so a late background write cannot resurrect a
// deleted row.
func (q *SaveQueue) Cancel(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, queued := q.pending[id]; !queued {
		return
	}
	delete(q.pending, id)
	for i, queuedID := range q.order {
		if queuedID == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	Depth.Set(float64(len(q.pending)))
}

// Len returns the number of pending saves.
func (q *SaveQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run drains the queue on every flush interval, or sooner when woken by
// an enqueue, until the context is canceled. A final drain runs on
// shutdown so accepted saves are not lost.
func (q *SaveQueue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Shutdown flush; the parent context is gone.
			q.Flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			q.Flush(ctx)
		case <-q.wake:
			q.Flush(ctx)
		}
	}
}

// Flush synchronously drains every pending save. Each record is saved
// with exponential backoff; a record that exhausts its retries is logged
// and dropped rather than blocking the rest of the queue.
func (q *SaveQueue) Flush(ctx context.Context) {
	for {
		p, ok := q.pop()
		if !ok {
			return
		}

		backoff := retry.WithMaxRetries(defaultMaxRetries, retry.NewExponential(defaultRetryInitial))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			return retry.RetryableError(p.SaveNow(ctx))
		})
		if err != nil {
			FlushFailures.Inc()
			errutil.LogError(q.logger.With("protection_id", p.ID()), "deferred save failed", err)
		}
	}
}

// pop removes and returns the oldest pending record.
func (q *SaveQueue) pop() (*protection.Protection, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.order) > 0 {
		id := q.order[0]
		q.order = q.order[1:]
		p, queued := q.pending[id]
		if !queued {
			continue
		}
		delete(q.pending, id)
		Depth.Set(float64(len(q.pending)))
		return p, true
	}
	return nil, false
}
