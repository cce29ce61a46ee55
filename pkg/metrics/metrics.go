package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared by the API and the worker.
type Metrics struct {
	BookingsTotal           *prometheus.CounterVec
	BookingConflicts        prometheus.Counter
	CancellationsTotal      *prometheus.CounterVec
	AutoCancelSweepDuration prometheus.Histogram
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	DatabaseOperations      *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		BookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Appointments booked, labelled by initial status",
		}, []string{"status"}),
		BookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken",
		}),
		CancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Cancellations, labelled by fee outcome",
		}, []string{"fee"}),
		AutoCancelSweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "autocancel_sweep_duration_seconds",
			Help:      "Duration of the expired-appointment sweep",
		}),
		OutboxEventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Outbox events published to the broker",
		}),
		OutboxEventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Outbox events that failed to publish",
		}),
		OutboxProcessingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_latency_seconds",
			Help:      "Latency of one outbox processing batch",
		}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Database operations by name and result",
		}, []string{"operation", "result"}),
	}
	return m
}

// Register registers all collectors on the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.BookingsTotal,
		m.BookingConflicts,
		m.CancellationsTotal,
		m.AutoCancelSweepDuration,
		m.OutboxEventsProcessed,
		m.OutboxEventsFailed,
		m.OutboxProcessingLatency,
		m.DatabaseOperations,
	)
}
