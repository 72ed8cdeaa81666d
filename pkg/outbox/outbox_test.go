package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestEmitWritesRowInsideTransaction(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ctx := context.Background()
	aggregateID := uuid.New()
	actorID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return NewPublisher().Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   aggregateID,
			Actor:         &ActorRef{UserID: actorID, Role: enums.ActorRoleBuyer},
			Data:          map[string]any{"grand_total_cents": 6900},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := conn.First(&row, "aggregate_id = ?", aggregateID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.ID == uuid.Nil {
		t.Fatalf("row id must be assigned at emit time")
	}
	if row.PublishedAt != nil {
		t.Fatalf("fresh rows are unpublished")
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if envelope.Version != 1 {
		t.Fatalf("expected envelope version 1, got %d", envelope.Version)
	}
	if envelope.Actor == nil || envelope.Actor.UserID != actorID {
		t.Fatalf("actor not carried into the envelope")
	}
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ctx := context.Background()

	boom := errors.New("business write failed")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected rollback error, got %v", err)
	}

	var count int64
	if err := conn.Model(&models.OutboxEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rolled-back emit must leave no rows, found %d", count)
	}
}

func TestRepositoryFetchAndResolve(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := conn.Transaction(func(tx *gorm.DB) error {
			return Emit(ctx, tx, DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
			})
		}); err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}

	rows, err := repo.FetchUnpublished(10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 unpublished rows, got %d", len(rows))
	}

	if err := repo.MarkPublished(rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := repo.MarkFailed(rows[1].ID, errors.New("broker down")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	remaining, err := repo.FetchUnpublished(10)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("published rows must drop out, got %d", len(remaining))
	}

	var failed models.OutboxEvent
	if err := conn.First(&failed, "id = ?", rows[1].ID).Error; err != nil {
		t.Fatalf("load failed row: %v", err)
	}
	if failed.AttemptCount != 1 || failed.LastError == nil {
		t.Fatalf("failure bookkeeping missing: attempts %d", failed.AttemptCount)
	}
}
