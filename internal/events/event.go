package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dohanimedicare/medicare-platform/pkg/logging"
	"github.com/google/uuid"
)

// Lifecycle event types.
const (
	TypeAppointmentCreated       = "appointment.created"
	TypeAppointmentStatusChanged = "appointment.status_changed"
	TypeAppointmentRescheduled   = "appointment.rescheduled"
	TypeMessageReceived          = "message.received"
)

// Event is a lifecycle notification for downstream consumers.
type Event struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// New builds an event with a fresh id, marshalling payload as JSON.
func New(eventType, aggregateID string, payload any) (Event, error) {
	evt := Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("events: marshal payload: %w", err)
		}
		evt.Payload = data
	}
	return evt, nil
}

// Publisher emits lifecycle events. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// LogPublisher writes events to the log when no queue is configured.
type LogPublisher struct {
	logger *logging.Logger
}

func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	p.logger.Info("lifecycle event", "event_id", evt.ID, "type", evt.Type, "aggregate_id", evt.AggregateID)
	return nil
}
