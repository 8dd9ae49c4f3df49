package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cinewave/momoflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdempotencyRepo struct {
	keys map[string]*models.IdempotencyKey
}

func newFakeIdempotencyRepo() *fakeIdempotencyRepo {
	return &fakeIdempotencyRepo{keys: make(map[string]*models.IdempotencyKey)}
}

func (r *fakeIdempotencyRepo) GetIdempotencyKey(_ context.Context, key, requestPath string) (*models.IdempotencyKey, error) {
	return r.keys[key+requestPath], nil
}

func (r *fakeIdempotencyRepo) StoreIdempotencyKey(_ context.Context, idemKey *models.IdempotencyKey) error {
	r.keys[idemKey.Key+idemKey.RequestPath] = idemKey
	return nil
}

func idempotencyFixture(repo IdempotencyRepository, handlerCalls *int) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*handlerCalls++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"tx-1"}`)) //nolint:errcheck
	})
	return Idempotency(repo, slog.New(slog.DiscardHandler))(next)
}

func TestIdempotency(t *testing.T) {
	t.Run("replays the cached response for a repeated key", func(t *testing.T) {
		repo := newFakeIdempotencyRepo()
		calls := 0
		handler := idempotencyFixture(repo, &calls)

		for range 2 {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/momo", strings.NewReader(`{}`))
			req.Header.Set("Idempotency-Key", "key-1")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"id":"tx-1"}`, rec.Body.String())
		}

		assert.Equal(t, 1, calls, "the second request must be served from cache")
	})

	t.Run("marks replayed responses", func(t *testing.T) {
		repo := newFakeIdempotencyRepo()
		calls := 0
		handler := idempotencyFixture(repo, &calls)

		first := httptest.NewRequest(http.MethodPost, "/api/v1/payments/momo", strings.NewReader(`{}`))
		first.Header.Set("Idempotency-Key", "key-1")
		firstRec := httptest.NewRecorder()
		handler.ServeHTTP(firstRec, first)
		assert.Empty(t, firstRec.Header().Get("X-Idempotent-Replayed"))

		second := httptest.NewRequest(http.MethodPost, "/api/v1/payments/momo", strings.NewReader(`{}`))
		second.Header.Set("Idempotency-Key", "key-1")
		secondRec := httptest.NewRecorder()
		handler.ServeHTTP(secondRec, second)
		assert.Equal(t, "true", secondRec.Header().Get("X-Idempotent-Replayed"))
	})

	t.Run("distinct keys are independent", func(t *testing.T) {
		repo := newFakeIdempotencyRepo()
		calls := 0
		handler := idempotencyFixture(repo, &calls)

		for _, key := range []string{"key-1", "key-2"} {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/momo", strings.NewReader(`{}`))
			req.Header.Set("Idempotency-Key", key)
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		assert.Equal(t, 2, calls)
	})

	t.Run("requests without a key pass through", func(t *testing.T) {
		repo := newFakeIdempotencyRepo()
		calls := 0
		handler := idempotencyFixture(repo, &calls)

		for range 2 {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/momo", strings.NewReader(`{}`))
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		assert.Equal(t, 2, calls)
		assert.Empty(t, repo.keys)
	})

	t.Run("only configured paths are cached", func(t *testing.T) {
		repo := newFakeIdempotencyRepo()
		calls := 0
		handler := idempotencyFixture(repo, &calls)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/other", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "key-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, 1, calls)
		assert.Empty(t, repo.keys)
	})

	t.Run("error responses are not cached", func(t *testing.T) {
		repo := newFakeIdempotencyRepo()
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		handler := Idempotency(repo, slog.New(slog.DiscardHandler))(next)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/momo", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "key-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Empty(t, repo.keys, "failed requests must be retryable with the same key")
	})
}
