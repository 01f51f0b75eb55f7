package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestProducer_Publish(t *testing.T) {
	w := new(mockWriter)
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 1 &&
			string(msgs[0].Key) == "order.update" &&
			string(msgs[0].Value) == `{"id":"1"}` &&
			string(msgs[0].Headers[0].Value) == "order.update"
	})).Return(nil).Once()
	w.On("Close").Return(nil).Once()

	p := NewProducerWithWriter(w)
	assert.NoError(t, p.Publish(context.Background(), "order.update", []byte(`{"id":"1"}`)))
	assert.NoError(t, p.Close())
	w.AssertExpectations(t)
}

func TestProducer_PublishError(t *testing.T) {
	w := new(mockWriter)
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available")).Once()

	err := NewProducerWithWriter(w).Publish(context.Background(), "payment.update", []byte("{}"))
	assert.ErrorContains(t, err, "leader not available")
}
