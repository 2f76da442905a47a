// Package pubsub provides a generic publish/subscribe event system used to
// fan registry lifecycle events out to observers (metrics, journal).
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// LoadedEvent is published once per registry when the mapping table is published.
	LoadedEvent EventType = "loaded"
	// ResolvedEvent is published when an entry is promoted to a live handler.
	ResolvedEvent EventType = "resolved"
	// FailedEvent is published when a load or a resolution fails.
	FailedEvent EventType = "failed"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}

// Channel adapts a channel returned by an earlier Subscribe call to
// Subscriber. Subscribing up front and handing the channel to a consumer
// goroutine guarantees the consumer sees every event published afterwards.
type Channel[T any] <-chan Event[T]

// Subscribe returns the wrapped channel; ctx is ignored.
func (c Channel[T]) Subscribe(context.Context) <-chan Event[T] {
	return c
}
