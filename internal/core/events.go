package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ems/internal/logging"
)

// Domain event types published after successful mutations.
const (
	EventEmployeeCreated   = "employee.created"
	EventEmployeeUpdated   = "employee.updated"
	EventEmployeeDeleted   = "employee.deleted"
	EventEmployeesReset    = "employees.reset"
	EventEmployeesImported = "employees.imported"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// NewEvent stamps data with a fresh id and the current time.
func NewEvent(eventType string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// EventPublisher delivers domain events to the outside world.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// EventRecorder keeps published events in memory.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *EventRecorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns what was published, oldest first.
func (r *EventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// publish sends an event; failures are logged, never returned.
func (s *Service) publish(ctx context.Context, eventType string, data any) {
	event := NewEvent(eventType, data)
	if err := s.events.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("failed to publish event",
			"event_type", eventType, "event_id", event.ID, "error", err)
	}
}
