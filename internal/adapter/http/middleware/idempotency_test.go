package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// memoryIdempotencyStore is an in-memory IdempotencyStore for tests.
type memoryIdempotencyStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: make(map[string][]byte)}
}

func (s *memoryIdempotencyStore) CheckAndSet(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return true, v, nil
	}
	s.values[key] = []byte("processing")
	return false, nil, nil
}

func (s *memoryIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = response
	return nil
}

func (s *memoryIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func TestIdempotencyMiddlewareReplaysResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"snapshot_id":"snap-1"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/snapshots", nil)
	req.Header.Set(IdempotencyKeyHeader, "key-1")
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req.Clone(req.Context()))
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Header().Get("X-Idempotency-Replay") != "true" {
		t.Fatal("replay header missing")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", second.Body.String(), first.Body.String())
	}
}

func TestIdempotencyMiddlewareReleasesOnFailure(t *testing.T) {
	store := newMemoryIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set(IdempotencyKeyHeader, "key-1")

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusBadGateway {
		t.Fatalf("first status = %d", first.Code)
	}

	// The failed attempt must not poison the key.
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req.Clone(req.Context()))
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}
}

func TestIdempotencyMiddlewareSkipsWithoutKey(t *testing.T) {
	store := newMemoryIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	handler.ServeHTTP(httptest.NewRecorder(), req.Clone(req.Context()))
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2 without a key", calls)
	}
}

func TestIdempotencyMiddlewareIgnoresReads(t *testing.T) {
	store := newMemoryIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))

	req := httptest.NewRequest(http.MethodGet, "/snapshots/snap-1", nil)
	req.Header.Set(IdempotencyKeyHeader, "key-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	handler.ServeHTTP(httptest.NewRecorder(), req.Clone(req.Context()))
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2 for GETs", calls)
	}
}
