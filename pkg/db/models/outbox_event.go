package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
)

// OutboxEvent is the transactional outbox row written alongside order
// mutations and drained by cmd/outbox-publisher.
type OutboxEvent struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.EventType     `gorm:"column:event_type;not null"`
	AggregateType enums.AggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID           `gorm:"column:aggregate_id;type:uuid;not null;index"`
	Payload       []byte              `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount  int                 `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string             `gorm:"column:last_error"`
	PublishedAt   *time.Time          `gorm:"column:published_at;index"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
