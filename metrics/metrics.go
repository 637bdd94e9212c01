package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dormhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dormhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	allocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dormhub",
			Subsystem: "ledger",
			Name:      "allocations_total",
			Help:      "Allocation ledger operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)
	roomChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dormhub",
			Subsystem: "catalog",
			Name:      "room_changes_total",
			Help:      "Room catalog mutations by outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, allocations, roomChanges)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	Register()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordAllocation counts a ledger operation; outcome is "ok" or an error kind.
func RecordAllocation(operation, outcome string) {
	Register()
	allocations.WithLabelValues(operation, outcome).Inc()
}

func RecordRoomChange(operation, outcome string) {
	Register()
	roomChanges.WithLabelValues(operation, outcome).Inc()
}
