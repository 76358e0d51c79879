package core

import (
	"context"
	"time"
)

// Event is a domain notification published to the message broker.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// EventPublisher is any service that can publish events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}
