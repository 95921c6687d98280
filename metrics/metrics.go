package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stadion_bot_updates_total",
			Help: "Total number of Telegram updates handled",
		},
		[]string{"kind"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stadion_bot_api_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stadion_bot_api_request_duration_seconds",
			Help:    "Backend API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stadion_bot_bookings_total",
			Help: "Booking submissions by result",
		},
		[]string{"result"},
	)

	AvailabilityAnomaliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stadion_bot_availability_anomalies_total",
			Help: "Availability responses whose booked hours were outside the timetable",
		},
	)

	OpenFlows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stadion_bot_open_booking_flows",
			Help: "Booking dialogs currently open",
		},
	)
)

func RecordUpdate(kind string) {
	UpdatesTotal.WithLabelValues(kind).Inc()
}

func RecordAPIRequest(endpoint, status string, seconds float64) {
	APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

func RecordBooking(result string) {
	BookingsTotal.WithLabelValues(result).Inc()
}

func RecordAvailabilityAnomaly() {
	AvailabilityAnomaliesTotal.Inc()
}
