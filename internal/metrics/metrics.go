package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elastic_logger_documents_enqueued_total",
		Help: "The total number of log documents handed to a bulk indexer",
	}, []string{"backend", "severity"})

	DocumentsIndexed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elastic_logger_documents_indexed_total",
		Help: "The total number of log documents acknowledged by the backend",
	}, []string{"backend"})

	DocumentsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elastic_logger_documents_failed_total",
		Help: "The total number of log documents that could not be enqueued or indexed",
	}, []string{"backend"})

	FlushDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "elastic_logger_flush_duration_seconds",
		Help:    "The duration of bulk flushes to the backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	IngestRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elastic_logger_http_requests_total",
		Help: "Total number of log ingest HTTP requests processed",
	}, []string{"status", "method"})
)
