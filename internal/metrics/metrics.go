package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablebook",
			Name:      "reservation_created_total",
			Help:      "Count of reservation create attempts by result.",
		},
		[]string{"result"},
	)

	reservationTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablebook",
			Name:      "reservation_transition_total",
			Help:      "Count of reservation status changes by target status.",
		},
		[]string{"status"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablebook",
			Name:      "availability_checks_total",
			Help:      "Count of single-instant availability decisions.",
		},
		[]string{"available"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablebook",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route.",
		},
		[]string{"route"},
	)

	observers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tablebook",
			Name:      "stream_observers",
			Help:      "Number of connected real-time observers.",
		},
	)

	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tablebook",
			Name:      "events_dropped_total",
			Help:      "Events not delivered to a slow or gone observer.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationCreated,
			reservationTransition,
			availabilityChecks,
			httpRequests,
			observers,
			eventsDropped,
		)
	})
}

func IncReservationCreated(result string) {
	reservationCreated.WithLabelValues(result).Inc()
}

func IncReservationTransition(status string) {
	reservationTransition.WithLabelValues(status).Inc()
}

func IncAvailabilityCheck(available bool) {
	availabilityChecks.WithLabelValues(strconv.FormatBool(available)).Inc()
}

func IncHTTP(route string) {
	httpRequests.WithLabelValues(route).Inc()
}

func ObserverConnected() {
	observers.Inc()
}

func ObserverDisconnected() {
	observers.Dec()
}

func IncEventDropped() {
	eventsDropped.Inc()
}
