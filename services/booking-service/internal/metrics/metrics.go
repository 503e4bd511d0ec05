package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slotbook"

// Metrics holds the booking service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// BookingAttempts counts Book calls by outcome (booked, slot_taken, in_past, ...).
	BookingAttempts *prometheus.CounterVec

	// AppointmentChanges counts administrative changes by action.
	AppointmentChanges *prometheus.CounterVec

	// ScanDuration is the time to read a snapshot and scan the window.
	ScanDuration prometheus.Histogram

	// MisconfiguredDays counts misconfigured dates seen by scans.
	MisconfiguredDays prometheus.Counter

	// OutboxPublished counts events written to Kafka.
	OutboxPublished prometheus.Counter

	// OutboxFailures counts failed publish batches.
	OutboxFailures prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BookingAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by result",
		}, []string{"result"}),
		AppointmentChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_changes_total",
			Help:      "Administrative appointment changes by action",
		}, []string{"action"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "availability_scan_duration_seconds",
			Help:      "Time to compute availability for a window",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		}),
		MisconfiguredDays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misconfigured_days_total",
			Help:      "Misconfigured dates encountered while scanning",
		}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox events published to Kafka",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_failures_total",
			Help:      "Failed outbox publish batches",
		}),
	}
}

func (m *Metrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.BookingAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveChange(action string) {
	if m == nil {
		return
	}
	m.AppointmentChanges.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveScan(started time.Time, misconfigured int) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(time.Since(started).Seconds())
	if misconfigured > 0 {
		m.MisconfiguredDays.Add(float64(misconfigured))
	}
}

func (m *Metrics) ObservePublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) ObservePublishFailure() {
	if m == nil {
		return
	}
	m.OutboxFailures.Inc()
}
