// Package notifications delivers workflow events to users without ever blocking the workflow
// that produced them.
package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a notification.
type EventType string

const (
	OrderUpdate        EventType = "ORDER_UPDATE"
	PaymentUpdate      EventType = "PAYMENT_UPDATE"
	PrescriptionUpdate EventType = "PRESCRIPTION_UPDATE"
)

// RoutingKey returns the broker routing key for the type, e.g. "order.update".
func (t EventType) RoutingKey() string {
	return strings.ToLower(strings.ReplaceAll(string(t), "_", "."))
}

// Event is a user-facing notification about a workflow state change.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Type       EventType `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Reference  string    `json:"reference"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps an id and time on a notification.
func NewEvent(userID string, typ EventType, title, message, reference string) Event {
	return Event{
		ID:         uuid.New().String(),
		UserID:     userID,
		Type:       typ,
		Title:      title,
		Message:    message,
		Reference:  reference,
		OccurredAt: time.Now().UTC(),
	}
}

// Sink accepts events from the workflows. Notify must not block and must not fail the caller.
type Sink interface {
	Notify(ctx context.Context, event Event)
}

// Channel delivers a single event to one destination.
type Channel interface {
	Deliver(ctx context.Context, event Event) error
}

// Discard is a Sink that drops every event.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}
