package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoreline/scoreline/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingMetrics struct {
	limited int
}

func (c *countingMetrics) RateLimited() { c.limited++ }

func TestMiddlewareRejectsWithRetryAfter(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), nil, Rule{Window: time.Minute, MaxRequests: 2}, nil)
	metrics := &countingMetrics{}
	mw := Middleware{Limiter: l, Logger: testLogger(), Metrics: metrics}

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		rec := do()
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 1, metrics.limited)
}

func TestMiddlewareKeysByUserWhenAuthenticated(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), nil, Rule{Window: time.Minute, MaxRequests: 1}, nil)
	mw := Middleware{Limiter: l, Logger: testLogger()}

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: userID, Role: "manager"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do(1).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(1).Code)
	assert.Equal(t, http.StatusOK, do(2).Code, "distinct users have distinct budgets")
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 2, retryAfterSeconds(1100*time.Millisecond))
	assert.Equal(t, 60, retryAfterSeconds(time.Minute))
	assert.Equal(t, 1, retryAfterSeconds(0))
}
