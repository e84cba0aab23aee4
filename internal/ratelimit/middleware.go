package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/scoreline/scoreline/internal/platform/httpx"
	"github.com/scoreline/scoreline/internal/shared"
)

// LimitedCounter is implemented by the metrics registry.
type LimitedCounter interface {
	RateLimited()
}

// Middleware applies the limiter to incoming requests. Authenticated
// requests are keyed by user id, anonymous ones by client IP.
type Middleware struct {
	Limiter *Limiter
	Logger  *slog.Logger
	Metrics LimitedCounter
}

// Handler wraps next with rate limiting.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := clientIdentifier(r)

		result, err := m.Limiter.Peek(r.Context(), identifier, r.URL.Path)
		if err != nil {
			// Store trouble must not take the API down.
			m.Logger.Error("rate limit check failed", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		writeLimitHeaders(w, m.Limiter.RuleFor(r.URL.Path), result)

		if !result.Allowed {
			if m.Metrics != nil {
				m.Metrics.RateLimited()
			}
			m.Logger.Warn("request rate limited",
				slog.String("identifier", identifier),
				slog.String("path", r.URL.Path))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests",
				"Rate limit exceeded, retry later.")
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if _, err := m.Limiter.Check(r.Context(), identifier, r.URL.Path, rec.status < http.StatusBadRequest); err != nil {
			m.Logger.Error("rate limit record failed", slog.Any("error", err))
		}
	})
}

func clientIdentifier(r *http.Request) string {
	if identity, ok := shared.IdentityFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(identity.UserID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func writeLimitHeaders(w http.ResponseWriter, rule Rule, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.MaxRequests))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
