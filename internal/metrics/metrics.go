package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salonbook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	availabilityQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_queries_total",
			Help:      "Consecutive-service availability computations.",
		},
	)

	availableStarts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "available_starts",
			Help:      "Number of start times returned per availability query.",
			Buckets:   []float64{0, 1, 5, 10, 20, 30, 47},
		},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Service instances booked.",
		},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken.",
		},
		[]string{"stage"},
	)

	syncQueueTasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_queue_tasks",
			Help:      "Google Sheets sync tasks by status.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			availabilityQueries,
			availableStarts,
			bookingsCreated,
			bookingConflicts,
			syncQueueTasks,
		)
	})
}

// IncHTTP counts a finished request.
func IncHTTP(endpoint, code string) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
}

// ObserveHTTP records request latency in seconds.
func ObserveHTTP(endpoint string, seconds float64) {
	httpDuration.WithLabelValues(endpoint).Observe(seconds)
}

// ObserveAvailability records one availability query and its result size.
func ObserveAvailability(starts int) {
	availabilityQueries.Inc()
	availableStarts.Observe(float64(starts))
}

func AddBookings(n int) {
	bookingsCreated.Add(float64(n))
}

// IncConflict counts a rejected booking. stage is "preflight" when the
// planner refused it and "commit" when the transactional check did.
func IncConflict(stage string) {
	bookingConflicts.WithLabelValues(stage).Inc()
}

// SetSyncQueue replaces the per-status task gauge. Statuses missing from
// counts drop to zero.
func SetSyncQueue(counts map[string]int) {
	syncQueueTasks.Reset()
	for status, n := range counts {
		syncQueueTasks.WithLabelValues(status).Set(float64(n))
	}
}
