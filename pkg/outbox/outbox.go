package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role,omitempty"`
}

// DomainEvent is the unit handed to Emit inside a business transaction.
type DomainEvent struct {
	EventType     enums.EventType
	AggregateType enums.AggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Publisher writes domain events into the outbox table inside the caller's
// transaction, so the event commits or rolls back with the business write.
type Publisher struct{}

// NewPublisher returns the default transactional outbox publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	return Emit(ctx, tx, event)
}

// Emit serializes the event into an outbox row inside tx.
func Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return fmt.Errorf("outbox: transaction required")
	}
	if event.EventType == "" {
		return fmt.Errorf("outbox: event type required")
	}
	if event.AggregateID == uuid.Nil {
		return fmt.Errorf("outbox: aggregate id required")
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("outbox: marshal event data: %w", err)
	}

	version := event.Version
	if version <= 0 {
		version = 1
	}

	envelope := PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("outbox: marshal envelope: %w", err)
	}

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}
	return tx.WithContext(ctx).Create(&row).Error
}
