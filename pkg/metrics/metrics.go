package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grnsync_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"status"}, // status: success, failed
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grnsync_run_duration_seconds",
			Help:    "Duration of one complete ingestion run in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
	)

	AttachmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grnsync_attachments_total",
			Help: "Total number of mailbox attachments seen by the harvester",
		},
		[]string{"outcome"}, // outcome: uploaded, skipped, filtered, failed
	)

	FilesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grnsync_files_ingested_total",
			Help: "Total number of discovered source files handled by the ingest stage",
		},
		[]string{"outcome"}, // outcome: processed, skipped, failed
	)

	RowsAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grnsync_rows_appended_total",
			Help: "Total number of data rows appended to the ledger",
		},
	)
)

func ObserveRun(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failed"
	}
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(duration.Seconds())
}

func AddAttachments(outcome string, n int) {
	if n <= 0 {
		return
	}
	AttachmentsTotal.WithLabelValues(outcome).Add(float64(n))
}

func AddFilesIngested(outcome string, n int) {
	if n <= 0 {
		return
	}
	FilesIngestedTotal.WithLabelValues(outcome).Add(float64(n))
}

func AddRowsAppended(n int) {
	if n <= 0 {
		return
	}
	RowsAppendedTotal.Add(float64(n))
}
