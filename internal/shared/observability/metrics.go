package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cssnav_parsing_seconds",
		Help:    "Time spent parsing a stylesheet or markup document.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	DocumentsParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cssnav_documents_parsed_total",
		Help: "Total number of documents parsed into services.",
	}, []string{"language"})

	TrackedDocuments = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cssnav_tracked_documents",
		Help: "Number of documents currently tracked per service map.",
	}, []string{"map"})

	FreshPassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cssnav_fresh_passes_total",
		Help: "Total number of passes that brought a service map up to date.",
	}, []string{"map"})

	FreshPassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cssnav_fresh_pass_seconds",
		Help:    "Time spent bringing a service map up to date.",
		Buckets: prometheus.DefBuckets,
	}, []string{"map"})

	ImportSweepEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cssnav_import_sweep_evictions_total",
		Help: "Total number of import-only documents evicted by the periodic sweep.",
	})

	LoadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cssnav_load_failures_total",
		Help: "Total number of documents that could not be read from disk.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cssnav_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
