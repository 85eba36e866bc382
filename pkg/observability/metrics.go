// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the nbgate service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// ExecutionBuckets defines histogram buckets suited for notebook code
// executions, ranging from 10ms to 120s.
var ExecutionBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// ExecutionsTotal counts orchestrated code executions by outcome.
	// "completed" includes executions whose result text carries a
	// traceback from the executed code; "error" means the orchestration
	// itself failed.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbgate_executions_total",
			Help: "Total code executions",
		},
		[]string{"status"},
	)

	// ExecutionDuration records end-to-end Run duration in seconds.
	ExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nbgate_execution_duration_seconds",
			Help:    "Code execution duration",
			Buckets: ExecutionBuckets,
		},
	)

	// KernelEventsTotal counts kernel output events by message type.
	KernelEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbgate_kernel_events_total",
			Help: "Kernel output events",
		},
		[]string{"type"},
	)

	// SessionsStartedTotal counts kernel sessions started by this process.
	SessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nbgate_sessions_started_total",
			Help: "Kernel sessions started",
		},
	)

	// NotebookSavesTotal counts whole-document notebook saves.
	NotebookSavesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nbgate_notebook_saves_total",
			Help: "Notebook documents saved",
		},
	)

	// ImagesRenderedTotal counts image artifacts extracted from
	// display_data outputs.
	ImagesRenderedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nbgate_images_rendered_total",
			Help: "Image artifacts rendered",
		},
	)

	// RequestsTotal counts HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbgate_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nbgate_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: ExecutionBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		ExecutionsTotal,
		ExecutionDuration,
		KernelEventsTotal,
		SessionsStartedTotal,
		NotebookSavesTotal,
		ImagesRenderedTotal,
		RequestsTotal,
		RequestDuration,
	)
}
