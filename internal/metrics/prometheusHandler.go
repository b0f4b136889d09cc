package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var ingestOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_outcomes_total",
	Help: "Per file ingest outcomes labelled by status",
}, []string{"status"})

var retrievalFilteredChunks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "retrieval_filtered_chunks_total",
	Help: "Chunks returned by the index but dropped by the permission re-check",
})

var retrievalDenied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "retrieval_denied_total",
	Help: "Queries answered with the fixed denial because no chunk was visible",
})

var deleteIndexCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "delete_index_cleanup_failures_total",
	Help: "Deletes that removed blob and metadata but left index entries behind",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CaptureIngestOutcome(status string) {
	ingestOutcomes.WithLabelValues(status).Inc()
}

func CaptureFilteredChunks(n int) {
	retrievalFilteredChunks.Add(float64(n))
}

func CaptureRetrievalDenied() {
	retrievalDenied.Inc()
}

func CaptureDeleteCleanupFailure() {
	deleteIndexCleanupFailures.Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent in ProcessRequest.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
