// Package telemetry exposes Prometheus metrics for the recording pipeline.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	// SubmissionsTotal counts recording requests accepted into the registry.
	SubmissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aircheck_submissions_total",
		Help: "Recording requests admitted into the pipeline.",
	})

	// RejectionsTotal counts submissions refused before admission, by reason.
	RejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircheck_rejections_total",
		Help: "Recording requests rejected before admission.",
	}, []string{"reason"})

	// CompletionsTotal counts jobs that reached the completed state.
	CompletionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aircheck_completions_total",
		Help: "Jobs that finished the full pipeline.",
	})

	// FailuresTotal counts jobs failed per pipeline stage.
	FailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircheck_failures_total",
		Help: "Jobs failed, labelled by the stage in flight.",
	}, []string{"stage"})

	// CaptureRetriesTotal counts capture attempts beyond the first.
	CaptureRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aircheck_capture_retries_total",
		Help: "Stream capture attempts beyond the first.",
	})

	// ActiveJobs tracks jobs currently occupying concurrency slots.
	ActiveJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aircheck_active_jobs",
		Help: "Jobs currently admitted and not yet terminal.",
	})

	// StageDuration observes wall time per completed stage.
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aircheck_stage_duration_seconds",
		Help:    "Wall time spent per pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"stage"})
)

// Register installs the collectors into the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SubmissionsTotal,
			RejectionsTotal,
			CompletionsTotal,
			FailuresTotal,
			CaptureRetriesTotal,
			ActiveJobs,
			StageDuration,
		)
	})
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
