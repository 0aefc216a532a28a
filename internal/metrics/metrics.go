// Package metrics provides Prometheus metrics for the download manager.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	downloadsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stremio_downloads_added_total",
			Help: "Download requests by outcome (new, existing, retried)",
		},
		[]string{"outcome"},
	)

	downloadsDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stremio_downloads_dispatched_total",
			Help: "DOWNLOAD_VIDEO messages posted to the worker",
		},
	)

	downloadsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stremio_downloads_finished_total",
			Help: "Downloads that reached a terminal state",
		},
		[]string{"status"},
	)

	bytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stremio_downloads_bytes_written_total",
			Help: "Bytes written to the download directory",
		},
	)

	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stremio_downloads_reconcile_duration_seconds",
			Help:    "Time to rebuild the display list from records and the directory scan",
			Buckets: prometheus.DefBuckets,
		},
	)

	directoryScanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stremio_downloads_directory_scan_errors_total",
			Help: "Failed directory scans during reconciliation",
		},
	)

	fileRemovalErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stremio_downloads_file_removal_errors_total",
			Help: "Failed best-effort file removals on delete",
		},
	)

	kvOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stremio_downloads_kv_operation_duration_seconds",
			Help:    "Embedded store operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// RecordAdd counts an AddDownload call by outcome.
func RecordAdd(outcome string) {
	downloadsAdded.WithLabelValues(outcome).Inc()
}

// RecordDispatch counts a message posted to the worker.
func RecordDispatch() {
	downloadsDispatched.Inc()
}

// RecordFinished counts a download reaching completed or failed.
func RecordFinished(status string) {
	downloadsFinished.WithLabelValues(status).Inc()
}

// AddBytesWritten adds n to the written bytes counter.
func AddBytesWritten(n int64) {
	if n > 0 {
		bytesWritten.Add(float64(n))
	}
}

// ObserveReconcile records a reconciliation duration.
func ObserveReconcile(d time.Duration) {
	reconcileDuration.Observe(d.Seconds())
}

// RecordScanError counts a failed directory scan.
func RecordScanError() {
	directoryScanErrors.Inc()
}

// RecordFileRemovalError counts a failed file removal.
func RecordFileRemovalError() {
	fileRemovalErrors.Inc()
}

// ObserveKV records the duration of one store operation.
func ObserveKV(op string, start time.Time) {
	kvOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
