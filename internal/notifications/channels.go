package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// LogChannel writes each event to the structured log.
type LogChannel struct {
	log *zap.Logger
}

// NewLogChannel creates a LogChannel writing to log.
func NewLogChannel(log *zap.Logger) *LogChannel {
	return &LogChannel{log: log}
}

// Deliver logs the event at info level.
func (c *LogChannel) Deliver(_ context.Context, event Event) error {
	c.log.Info("notification",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("title", event.Title),
		zap.String("message", event.Message),
		zap.String("reference", event.Reference),
	)
	return nil
}

// Publisher sends a message body to a broker under a routing key.
// Implemented by the rabbitmq client and the kafka producer.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// PublisherChannel forwards events as JSON to a message broker.
type PublisherChannel struct {
	publisher Publisher
}

// NewPublisherChannel creates a PublisherChannel sending through p.
func NewPublisherChannel(p Publisher) *PublisherChannel {
	return &PublisherChannel{publisher: p}
}

// Deliver publishes the event under the routing key of its type.
func (c *PublisherChannel) Deliver(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification %s: %w", event.ID, err)
	}
	if err := c.publisher.Publish(ctx, event.Type.RoutingKey(), body); err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", event.ID, err)
	}
	return nil
}
