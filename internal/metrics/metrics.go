// Package metrics holds the Prometheus collectors updated by the workflows.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pharmacy"

// Metrics groups the workflow counters.
type Metrics struct {
	OrdersCreated      prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	ReservationFailure prometheus.Counter
	ReleasedUnits      prometheus.Counter
	Payments           *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_created_total",
			Help: "Orders persisted by the order workflow.",
		}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "order_status_transitions_total",
			Help: "Order status changes by source and target status.",
		}, []string{"from", "to"}),
		ReservationFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "stock_reservation_failures_total",
			Help: "Reservations rejected for insufficient stock.",
		}),
		ReleasedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "stock_released_units_total",
			Help: "Units returned to stock.",
		}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "payments_total",
			Help: "Payment workflow outcomes.",
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_total",
			Help: "Notification deliveries by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.OrdersCreated,
		m.StatusTransitions,
		m.ReservationFailure,
		m.ReleasedUnits,
		m.Payments,
		m.Notifications,
	)
	return m
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

func (m *Metrics) StatusChanged(from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ReservationFailed() {
	if m == nil {
		return
	}
	m.ReservationFailure.Inc()
}

func (m *Metrics) UnitsReleased(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReleasedUnits.Add(float64(n))
}

// PaymentOutcome counts initiated, rejected, completed and verify_rejected payments.
func (m *Metrics) PaymentOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(outcome).Inc()
}

// NotificationOutcome counts delivered, failed and dropped notifications.
func (m *Metrics) NotificationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}
