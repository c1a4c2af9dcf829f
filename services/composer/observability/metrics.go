// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the composer
// service: search counters, node throughput, and duration histograms.
// Metrics are exposed on /metrics; all operations are thread-safe via
// Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "elf"
const composerSubsystem = "composer"

// Metrics holds all Prometheus metrics for search operations.
// Initialise once at startup via InitMetrics.
type Metrics struct {
	// SearchesStarted counts accepted search jobs.
	SearchesStarted prometheus.Counter

	// SearchesFinished counts completed jobs by outcome.
	// Labels: status (finished, aborted, error)
	SearchesFinished *prometheus.CounterVec

	// ActiveSearches tracks currently running search workers.
	ActiveSearches prometheus.Gauge

	// CompsFoundTotal counts true compositions emitted by finished jobs.
	CompsFoundTotal prometheus.Counter

	// NodesSearchedTotal counts leads generated by finished jobs.
	NodesSearchedTotal prometheus.Counter

	// NodesPerSecond is the instantaneous lead throughput of the
	// running search, sampled at each stats refresh.
	NodesPerSecond prometheus.Gauge

	// SearchDurationSeconds measures wall time per job by outcome.
	// Labels: status
	SearchDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *Metrics

// InitMetrics creates and registers all metrics on the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: composerSubsystem,
			Name:      "searches_started_total",
			Help:      "Number of search jobs accepted.",
		}),
		SearchesFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: composerSubsystem,
			Name:      "searches_finished_total",
			Help:      "Number of search jobs completed, by outcome.",
		}, []string{"status"}),
		ActiveSearches: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: composerSubsystem,
			Name:      "active_searches",
			Help:      "Search workers currently running.",
		}),
		CompsFoundTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: composerSubsystem,
			Name:      "comps_found_total",
			Help:      "True compositions found across finished jobs.",
		}),
		NodesSearchedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: composerSubsystem,
			Name:      "nodes_searched_total",
			Help:      "Leads generated across finished jobs.",
		}),
		NodesPerSecond: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: composerSubsystem,
			Name:      "nodes_per_second",
			Help:      "Instantaneous lead throughput of the running search.",
		}),
		SearchDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: composerSubsystem,
			Name:      "search_duration_seconds",
			Help:      "Wall time per search job, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
		}, []string{"status"}),
	}
	return DefaultMetrics
}
