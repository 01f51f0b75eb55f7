package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharmacy/internal/metrics"
	"pharmacy/internal/notifications"
)

// MockChannel is a mock implementation of notifications.Channel
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Deliver(ctx context.Context, event notifications.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockPublisher is a mock implementation of notifications.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	args := m.Called(ctx, routingKey, body)
	return args.Error(0)
}

// blockingChannel holds every delivery until release is closed.
type blockingChannel struct {
	release chan struct{}
	mu      sync.Mutex
	got     []notifications.Event
}

func (c *blockingChannel) Deliver(_ context.Context, event notifications.Event) error {
	<-c.release
	c.mu.Lock()
	c.got = append(c.got, event)
	c.mu.Unlock()
	return nil
}

func TestEventType_RoutingKey(t *testing.T) {
	assert.Equal(t, "order.update", notifications.OrderUpdate.RoutingKey())
	assert.Equal(t, "payment.update", notifications.PaymentUpdate.RoutingKey())
	assert.Equal(t, "prescription.update", notifications.PrescriptionUpdate.RoutingKey())
}

func TestDispatcher_DeliversToAllChannels(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	first := new(MockChannel)
	second := new(MockChannel)
	event := notifications.NewEvent("user-1", notifications.OrderUpdate, "Order Created", "Your order has been placed", "order-1")

	first.On("Deliver", mock.Anything, event).Return(nil).Once()
	second.On("Deliver", mock.Anything, event).Return(errors.New("broker down")).Once()

	d := notifications.NewDispatcher(4, 1, zap.NewNop(), m, first, second)
	d.Start()
	d.Notify(context.Background(), event)
	require.NoError(t, d.Stop(context.Background()))

	first.AssertExpectations(t)
	second.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
}

func TestDispatcher_NotifyNeverBlocksWhenFull(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	ch := &blockingChannel{release: make(chan struct{})}
	d := notifications.NewDispatcher(1, 1, zap.NewNop(), m, ch)
	d.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(context.Background(), notifications.NewEvent("u", notifications.PaymentUpdate, "t", "m", "r"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(ch.release)
	require.NoError(t, d.Stop(context.Background()))

	dropped := testutil.ToFloat64(m.Notifications.WithLabelValues("dropped"))
	assert.GreaterOrEqual(t, dropped, 8.0)
	assert.Equal(t, 10.0, dropped+float64(len(ch.got)))
}

func TestDispatcher_NotifyAfterStopDrops(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	ch := new(MockChannel)
	d := notifications.NewDispatcher(4, 1, zap.NewNop(), m, ch)
	d.Start()
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))

	d.Notify(context.Background(), notifications.NewEvent("u", notifications.OrderUpdate, "t", "m", "r"))

	ch.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")))
}

func TestPublisherChannel_Deliver(t *testing.T) {
	pub := new(MockPublisher)
	event := notifications.NewEvent("user-1", notifications.PrescriptionUpdate, "Prescription Approved", "ok", "rx-1")

	pub.On("Publish", mock.Anything, "prescription.update", mock.MatchedBy(func(body []byte) bool {
		var decoded notifications.Event
		if err := json.Unmarshal(body, &decoded); err != nil {
			return false
		}
		return decoded.ID == event.ID && decoded.Reference == "rx-1"
	})).Return(nil).Once()

	err := notifications.NewPublisherChannel(pub).Deliver(context.Background(), event)
	assert.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestPublisherChannel_DeliverError(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "order.update", mock.Anything).Return(errors.New("closed")).Once()

	err := notifications.NewPublisherChannel(pub).Deliver(context.Background(),
		notifications.NewEvent("u", notifications.OrderUpdate, "t", "m", "r"))
	assert.ErrorContains(t, err, "closed")
}

func TestLogChannel_Deliver(t *testing.T) {
	err := notifications.NewLogChannel(zap.NewNop()).Deliver(context.Background(),
		notifications.NewEvent("u", notifications.OrderUpdate, "t", "m", "r"))
	assert.NoError(t, err)
}
