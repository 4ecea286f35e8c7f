// Package metrics provides Prometheus metrics for pikfront.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/s0up4200/pikfront/backend"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pikfront_backend_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"endpoint", "status"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pikfront_backend_request_duration_seconds",
			Help:    "Backend API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	pollTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pikfront_poll_ticks_total",
			Help: "Total number of task list refreshes triggered by the poller",
		},
	)

	tasksByPhase = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pikfront_tasks",
			Help: "Number of download tasks in the last fetched list, by phase",
		},
		[]string{"phase"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBackendRequest records one backend round trip. Status 0 means the
// request never got a response. It satisfies backend.Observer.
func ObserveBackendRequest(endpoint string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	backendRequestsTotal.WithLabelValues(endpoint, label).Inc()
	backendRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

var _ backend.Observer = ObserveBackendRequest

// RecordPollTick counts a poller refresh.
func RecordPollTick() {
	pollTicksTotal.Inc()
}

// SetTaskCounts publishes the per-phase task counts of a fetched list. Every
// known phase is set, so phases that emptied drop back to zero.
func SetTaskCounts(tasks []backend.Task) {
	counts := make(map[backend.Phase]int, len(backend.AllPhases))
	for i := range tasks {
		counts[tasks[i].Phase]++
	}
	for _, phase := range backend.AllPhases {
		tasksByPhase.WithLabelValues(phase.Short()).Set(float64(counts[phase]))
	}
}
