package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
)

type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *memoryStore) PaymentReplayKey(gatewayPaymentID string) string {
	return "replay:" + gatewayPaymentID
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

// newIdempotentRouter wires the middleware around a counting handler at the
// order-creation route, with every request running as the same buyer.
func newIdempotentRouter(store *memoryStore, hits *atomic.Int64) http.Handler {
	router := chi.NewRouter()
	userID := uuid.NewString()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), userID, enums.ActorRoleBuyer, "")))
		})
	})
	router.Use(Idempotency(store, testLogger()))
	router.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success":true}`))
		})
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusOK)
		})
	})
	return router
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	var hits atomic.Int64
	router := newIdempotentRouter(store, &hits)

	body := `{"items":[{"offer_id":"x","qty":1}]}`
	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(first, req)

	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}
	if hits.Load() != 1 {
		t.Fatalf("handler should run once, ran %d times", hits.Load())
	}

	second := httptest.NewRecorder()
	repeat := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", strings.NewReader(body))
	repeat.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(second, repeat)

	if second.Code != http.StatusCreated {
		t.Fatalf("replay should return the stored 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("replay should restore the content type")
	}
	if hits.Load() != 1 {
		t.Fatalf("replay must not re-run the handler, ran %d times", hits.Load())
	}
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	var hits atomic.Int64
	router := newIdempotentRouter(store, &hits)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", strings.NewReader(`{"qty":1}`))
	first.Header.Set("Idempotency-Key", "key-2")
	router.ServeHTTP(httptest.NewRecorder(), first)

	rec := httptest.NewRecorder()
	conflicting := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", strings.NewReader(`{"qty":2}`))
	conflicting.Header.Set("Idempotency-Key", "key-2")
	router.ServeHTTP(rec, conflicting)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d", rec.Code)
	}
	if hits.Load() != 1 {
		t.Fatalf("conflicting request must not reach the handler")
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	var hits atomic.Int64
	router := newIdempotentRouter(store, &hits)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", strings.NewReader(`{}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing key should yield 400, got %d", rec.Code)
	}
	if hits.Load() != 0 {
		t.Fatalf("handler must not run without a key")
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	var hits atomic.Int64
	router := newIdempotentRouter(store, &hits)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("reads pass through, got %d", rec.Code)
	}
	if len(store.values) != 0 {
		t.Fatalf("reads must not persist idempotency records")
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	var hits atomic.Int64
	router := chi.NewRouter()
	router.Use(Idempotency(store, testLogger()))
	router.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusCreated)
		})
	})

	send := func(userID string) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", strings.NewReader(`{}`))
		req = req.WithContext(WithActor(req.Context(), userID, enums.ActorRoleBuyer, ""))
		req.Header.Set("Idempotency-Key", "shared-key")
		router.ServeHTTP(rec, req)
	}

	send(uuid.NewString())
	send(uuid.NewString())

	if hits.Load() != 2 {
		t.Fatalf("distinct users share no idempotency state, handler ran %d times", hits.Load())
	}
}
