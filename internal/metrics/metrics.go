package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Catalog background-work metrics. They are registered once on the default
// registry and exposed by the API and worker /metrics endpoints.
var (
	// Job metrics
	JobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "catalog_job_duration_seconds",
			Help: "Duration of catalog jobs in seconds",
		},
		[]string{"type", "status"},
	)

	// Import metrics
	ImportedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_imported_items_total",
			Help: "Feed items processed by the importer, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Rating metrics
	RatingsRefreshedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_ratings_refreshed_total",
			Help: "Ratings rewritten by the refresher",
		},
		[]string{"kind"},
	)

	// Probe metrics
	SourceProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_source_probes_total",
			Help: "Source URL probes by result",
		},
		[]string{"result"},
	)

	// Dispatch metrics
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_dispatch_total",
			Help: "Task dispatch attempts by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// Health metrics
	HealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_health_status",
			Help: "Health status of dependencies (1=ok, 0=down)",
		},
		[]string{"dependency"},
	)
)

// ObserveJob records a finished job run
func ObserveJob(jobType string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	JobDurationSeconds.WithLabelValues(jobType, status).Observe(time.Since(started).Seconds())
}

// SetHealth records a dependency's health as 1 or 0
func SetHealth(dependency string, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	HealthStatus.WithLabelValues(dependency).Set(v)
}
