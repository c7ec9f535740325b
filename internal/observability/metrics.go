// Package observability exposes the Prometheus metrics the master emits
// about the coordination protocol itself: slave connectivity, merge health,
// and report throughput.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedSlaves is set when the pool starts to the number of slaves
	// the test spec is submitted to. It is not updated as slaves reach a
	// terminal state.
	ConnectedSlaves = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nodeload_connected_slaves",
		Help: "Number of slaves the test spec was submitted to when the pool started",
	})

	// SlaveState tracks the count of slaves in each lifecycle state.
	SlaveState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nodeload_slave_state",
		Help: "Current number of slaves in each lifecycle state",
	}, []string{"state"})

	// PingFailures tracks slaves marked error after a missed liveness probe.
	PingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeload_ping_failures_total",
		Help: "Total number of slaves marked error after a missed ping round",
	}, []string{"slave_id"})

	// MergeErrors tracks failed sketch merges, keyed by stat name.
	MergeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeload_merge_errors_total",
		Help: "Total number of stat merges that failed (e.g. incompatible histograms)",
	}, []string{"stat"})

	// ReportsEmitted tracks aggregated reports emitted by the progress window.
	ReportsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodeload_reports_emitted_total",
		Help: "Total number of aggregated reports emitted after the progress window fired",
	})

	// SamplesMerged counts the snapshots merged into a stat, by kind: one per
	// stat entry of an accepted progress report, whatever its sample count.
	SamplesMerged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeload_samples_merged_total",
		Help: "Total number of snapshots merged into a stat since the pool started",
	}, []string{"stat", "kind"})

	// StormProtectionTrips tracks progress reports dropped by the per-slave
	// token-bucket limiter.
	StormProtectionTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeload_storm_protection_trips_total",
		Help: "Total number of progress reports rejected by the per-slave rate limiter",
	}, []string{"slave_id"})

	// RunsArchived tracks completed runs successfully written to the archive.
	RunsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodeload_runs_archived_total",
		Help: "Total number of completed runs written to the archive",
	})
)
