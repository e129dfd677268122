package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking outcomes
const (
	OutcomeBooked   = "booked"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Bookings      *prometheus.CounterVec
	SlotQueries   prometheus.Counter
	SlotsReturned prometheus.Histogram

	ReminderSweeps   *prometheus.CounterVec
	RemindersHandled *prometheus.CounterVec
	SweepDuration    prometheus.Histogram

	EmailsSent     *prometheus.CounterVec
	BrokerMessages *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// New creates all collectors and registers them with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Bookings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"source", "outcome"}),
		SlotQueries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_queries_total",
			Help:      "Availability resolver calls",
		}),
		SlotsReturned: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slots_returned",
			Help:      "Slots returned per availability query",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),

		ReminderSweeps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_sweeps_total",
			Help:      "Reminder sweep iterations by status",
		}, []string{"status"}),
		RemindersHandled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Due reminders by result",
		}, []string{"result"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_sweep_duration_seconds",
			Help:      "Time spent in one reminder sweep",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),

		EmailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Outbound emails by status",
		}, []string{"status"}),
		BrokerMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_messages_total",
			Help:      "Published broker messages by status",
		}, []string{"status"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Booking(source, outcome string) {
	if m == nil {
		return
	}
	m.Bookings.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) SlotsServed(n int) {
	if m == nil {
		return
	}
	m.SlotQueries.Inc()
	m.SlotsReturned.Observe(float64(n))
}

func (m *Metrics) Sweep(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ReminderSweeps.WithLabelValues(status).Inc()
	m.SweepDuration.Observe(d.Seconds())
}

func (m *Metrics) Reminder(result string) {
	if m == nil {
		return
	}
	m.RemindersHandled.WithLabelValues(result).Inc()
}

func (m *Metrics) Email(status string) {
	if m == nil {
		return
	}
	m.EmailsSent.WithLabelValues(status).Inc()
}

func (m *Metrics) Broker(status string) {
	if m == nil {
		return
	}
	m.BrokerMessages.WithLabelValues(status).Inc()
}

func (m *Metrics) HTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
