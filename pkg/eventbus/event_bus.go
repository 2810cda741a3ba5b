// Package eventbus carries trigger requests and message status events between the API and the worker.
package eventbus

import (
	"context"

	"github.com/dukex/automation/pkg/events"
)

// Event is anything the bus can route by type.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends events keyed for partitioning. Callers pass the tenant
// id so one tenant's events stay ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber registers one handler per event type and then starts consuming.
// Handle must be called before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a decoded *events.TriggerRequested or *events.MessageStatusChanged.
// A non-nil error asks for redelivery.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

var _ EventBus = (*WatermillEventBus)(nil)
