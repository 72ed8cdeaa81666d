package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"

	"github.com/mateoquintana/mercaderia-backend/pkg/config"
	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
)

type fakeRepo struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	fetchErr  error
}

func (r *fakeRepo) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if limit > len(r.pending) {
		limit = len(r.pending)
	}
	return r.pending[:limit], nil
}

func (r *fakeRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *fakeRepo) MarkFailed(id uuid.UUID, _ error) error {
	r.failed = append(r.failed, id)
	return nil
}

type recordingWriter struct {
	messages []kafka.Message
	failOn   map[string]error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		if err, ok := w.failOn[string(msg.Key)]; ok {
			return err
		}
		w.messages = append(w.messages, msg)
	}
	return nil
}

func newTestService(t *testing.T, repo *fakeRepo, writer *recordingWriter) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		Writer:     writer,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func outboxRow(eventType enums.EventType, payload string) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(payload),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	t.Parallel()

	first := outboxRow(enums.EventOrderCreated, `{"order":"a"}`)
	second := outboxRow(enums.EventOrderPaid, `{"order":"b"}`)
	repo := &fakeRepo{pending: []models.OutboxEvent{first, second}}
	writer := &recordingWriter{}
	svc := newTestService(t, repo, writer)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatalf("non-empty batch should report processed")
	}
	if len(writer.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(writer.messages))
	}
	if string(writer.messages[0].Key) != first.AggregateID.String() {
		t.Fatalf("message key should be the aggregate id")
	}
	if string(writer.messages[0].Value) != `{"order":"a"}` {
		t.Fatalf("payload should pass through untouched, got %s", writer.messages[0].Value)
	}
	var eventType string
	for _, header := range writer.messages[1].Headers {
		if header.Key == "event_type" {
			eventType = string(header.Value)
		}
	}
	if eventType != string(enums.EventOrderPaid) {
		t.Fatalf("expected event_type header %s, got %s", enums.EventOrderPaid, eventType)
	}
	if len(repo.published) != 2 || len(repo.failed) != 0 {
		t.Fatalf("expected 2 published and 0 failed, got %d/%d", len(repo.published), len(repo.failed))
	}
}

func TestProcessBatchIsolatesBrokenEvents(t *testing.T) {
	t.Parallel()

	bad := outboxRow(enums.EventOrderCreated, `{"order":"bad"}`)
	good := outboxRow(enums.EventOrderCreated, `{"order":"good"}`)
	repo := &fakeRepo{pending: []models.OutboxEvent{bad, good}}
	writer := &recordingWriter{
		failOn: map[string]error{bad.AggregateID.String(): errors.New("broker rejected message")},
	}
	svc := newTestService(t, repo, writer)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("one bad event must not abort the batch: %v", err)
	}
	if !processed {
		t.Fatalf("batch should report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != bad.ID {
		t.Fatalf("bad event should be marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != good.ID {
		t.Fatalf("good event should still publish, got %v", repo.published)
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	writer := &recordingWriter{}
	svc := newTestService(t, repo, writer)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("empty queue: %v", err)
	}
	if processed {
		t.Fatalf("empty queue should report idle")
	}
}

func TestProcessBatchPropagatesFetchErrors(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{fetchErr: errors.New("db gone")}
	svc := newTestService(t, repo, &recordingWriter{})

	if _, err := svc.processBatch(context.Background()); err == nil {
		t.Fatalf("fetch error should propagate")
	}
}

func TestNewServiceValidatesParams(t *testing.T) {
	t.Parallel()

	_, err := NewService(ServiceParams{
		Config: &config.Config{},
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err == nil {
		t.Fatalf("missing repository and writer should be rejected")
	}
}

func TestNextBackoffBounds(t *testing.T) {
	t.Parallel()

	if got := nextBackoff(defaultPollInterval, defaultPollInterval); got != 2*defaultPollInterval {
		t.Fatalf("backoff should double, got %v", got)
	}
	if got := nextBackoff(maxBackoff, defaultPollInterval); got != maxBackoff {
		t.Fatalf("backoff should cap at %v, got %v", maxBackoff, got)
	}
	if got := nextBackoff(0, defaultPollInterval); got != defaultPollInterval {
		t.Fatalf("backoff should floor at the poll interval, got %v", got)
	}
}
