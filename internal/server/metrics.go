package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the API.
type Metrics struct {
	SearchTotal    *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec
	ClusterRuns    *prometheus.CounterVec
	IngestTotal    prometheus.Counter
}

// NewMetrics registers the collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SearchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omoide",
			Name:      "search_requests_total",
			Help:      "Search requests by mode and outcome.",
		}, []string{"mode", "status"}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "omoide",
			Name:      "search_duration_seconds",
			Help:      "Search latency by mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		ClusterRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omoide",
			Name:      "cluster_runs_total",
			Help:      "Face clustering runs by outcome.",
		}, []string{"status"}),
		IngestTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "omoide",
			Name:      "photos_ingested_total",
			Help:      "Photos successfully ingested.",
		}),
	}
}
