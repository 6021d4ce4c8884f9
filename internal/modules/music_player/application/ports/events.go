package ports

import (
	"context"
	"reflect"

	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// EventHandlerFunc reacts to one domain event. It runs on the bus's
// dispatch goroutine, so it must not block for long.
type EventHandlerFunc func(ctx context.Context, event domain.Event)

// EventPublisher queues domain events for delivery. Publish never waits for
// handlers; it fails once the bus is closed.
type EventPublisher interface {
	Publish(event domain.Event) error
}

// EventSubscriber routes events by their concrete type. eventType must
// implement domain.Event, e.g. reflect.TypeFor[domain.TrackStartedEvent]().
type EventSubscriber interface {
	Subscribe(eventType reflect.Type, handler EventHandlerFunc) error
}
