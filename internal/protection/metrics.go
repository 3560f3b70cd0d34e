// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package protection

import "github.com/prometheus/client_golang/prometheus"

// Save mode labels for the saves counter.
const (
	SaveModeDeferred  = "deferred"
	SaveModeImmediate = "immediate"
)

// Saves counts protection saves by mode.
// Use RegisterMetrics to register this with a Prometheus registry.
var Saves = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wardkeep_protection_saves_total",
		Help: "Total number of protection saves by mode",
	},
	[]string{"mode"},
)

// Removals counts completed protection removal sequences.
// Use RegisterMetrics to register this with a Prometheus registry.
var Removals = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "wardkeep_protection_removals_total",
		Help: "Total number of completed protection removals",
	},
)

// HistoryLoads counts lazy bulk loads from the history store.
// Use RegisterMetrics to register this with a Prometheus registry.
var HistoryLoads = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "wardkeep_history_loads_total",
		Help: "Total number of lazy history bulk loads",
	},
)

// RegisterMetrics registers protection package metrics with the given
// Prometheus registry. Call at startup to expose them on /metrics.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Saves)
	reg.MustRegister(Removals)
	reg.MustRegister(HistoryLoads)
}
