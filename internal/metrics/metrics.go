// Package metrics defines the Prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts listing pages merged into the collection,
	// by mode and listing strategy.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratedhistory_pages_fetched_total",
		Help: "Number of listing pages fetched and merged.",
	}, []string{"mode", "strategy"})

	// FetchErrors counts failed fetches by failure class.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratedhistory_fetch_errors_total",
		Help: "Number of failed listing fetches by kind.",
	}, []string{"kind"})

	// FetchDuration observes wall-clock time per page fetch.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ratedhistory_fetch_duration_seconds",
		Help:    "Duration of listing page fetches.",
		Buckets: prometheus.DefBuckets,
	})

	// CollectionSize tracks the current size of the raw collection.
	CollectionSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ratedhistory_collection_size",
		Help: "Number of records currently held in the collection.",
	})

	// QuotaUnitsUsed counts API quota units consumed since start.
	QuotaUnitsUsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratedhistory_quota_units_total",
		Help: "API quota units consumed by remote calls.",
	})
)
