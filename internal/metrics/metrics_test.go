package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OrderCreated()
	m.OrderCreated()
	m.StatusChanged("PENDING", "CANCELLED")
	m.ReservationFailed()
	m.UnitsReleased(3)
	m.UnitsReleased(0)
	m.PaymentOutcome("initiated")
	m.NotificationOutcome("dropped")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("PENDING", "CANCELLED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationFailure))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReleasedUnits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Payments.WithLabelValues("initiated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.StatusChanged("A", "B")
		m.ReservationFailed()
		m.UnitsReleased(1)
		m.PaymentOutcome("completed")
		m.NotificationOutcome("delivered")
	})
}
