package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("dental", prometheus.NewRegistry())

	m.Booking("patient", OutcomeBooked)
	m.Booking("patient", OutcomeConflict)
	m.Booking("patient", OutcomeConflict)
	m.Reminder("sent")
	m.Sweep("ok", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Bookings.WithLabelValues("patient", OutcomeConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersHandled.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReminderSweeps.WithLabelValues("ok")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Booking("admin", OutcomeBooked)
		m.SlotsServed(3)
		m.Email("failed")
		m.HTTP("GET", "/health/live", "200", time.Millisecond)
	})
}
