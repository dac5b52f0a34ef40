package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{
	0.001, // 1ms
	0.005, // 5ms
	0.01,  // 10ms
	0.025, // 25ms
	0.05,  // 50ms
	0.1,   // 100ms
	0.25,  // 250ms
	0.5,   // 500ms
	1.0,   // 1s
	2.5,   // 2.5s
	5.0,   // 5s
}

var (
	// ReserveDuration tracks the latency of slot reservation
	ReserveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupbuy_reserve_duration_seconds",
			Help:    "Duration of reserve requests in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"status"}, // success, capacity_exceeded, closed or failure
	)

	// PickupActionDuration tracks mark and undo latency
	PickupActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupbuy_pickup_action_duration_seconds",
			Help:    "Duration of pickup mark/undo requests in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"action", "status"},
	)

	// ReservationsSwept counts expired reservations reclaimed
	ReservationsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groupbuy_reservations_swept_total",
			Help: "Number of expired unconfirmed reservations deleted",
		},
	)
)

// RecordReserveDuration records the duration of a reserve request
func RecordReserveDuration(status string, duration float64) {
	ReserveDuration.WithLabelValues(status).Observe(duration)
}

// RecordPickupActionDuration records the duration of a mark or undo request
func RecordPickupActionDuration(action, status string, duration float64) {
	PickupActionDuration.WithLabelValues(action, status).Observe(duration)
}

// RecordSwept adds reclaimed reservations to the sweep counter
func RecordSwept(n int64) {
	if n > 0 {
		ReservationsSwept.Add(float64(n))
	}
}
