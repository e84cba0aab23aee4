package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, rules []Rule, fallback Rule) (*Limiter, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(NewMemoryStore(), rules, fallback, nil)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheckDeniesOverLimit(t *testing.T) {
	l, _ := newTestLimiter(t, nil, Rule{Window: time.Minute, MaxRequests: 5})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Check(ctx, "ip:1.2.3.4", "/api/anything", true)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d should be admitted", i+1)
		assert.Equal(t, 4-i, res.Remaining)
	}

	res, err := l.Check(ctx, "ip:1.2.3.4", "/api/anything", true)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Minute, res.RetryAfter)
}

func TestCheckWindowReset(t *testing.T) {
	l, now := newTestLimiter(t, nil, Rule{Window: time.Minute, MaxRequests: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Check(ctx, "ip:1.2.3.4", "/x", true)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := l.Check(ctx, "ip:1.2.3.4", "/x", true)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	*now = now.Add(61 * time.Second)

	res, err = l.Check(ctx, "ip:1.2.3.4", "/x", true)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestCheckWindowResetAtExactBoundary(t *testing.T) {
	l, now := newTestLimiter(t, nil, Rule{Window: time.Minute, MaxRequests: 1})
	ctx := context.Background()

	res, err := l.Check(ctx, "ip:1.2.3.4", "/x", true)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	resetAt := res.ResetAt

	// A call at exactly the reset time starts a fresh window.
	*now = resetAt
	res, err = l.Check(ctx, "ip:1.2.3.4", "/x", true)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestCheckBlockRetryAfterDoesNotGrow(t *testing.T) {
	rule := Rule{Prefix: "/api/auth/login", Window: time.Minute, MaxRequests: 2, BlockFor: 15 * time.Minute}
	l, now := newTestLimiter(t, []Rule{rule}, DefaultRule)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Check(ctx, "ip:9.9.9.9", "/api/auth/login", false)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := l.Check(ctx, "ip:9.9.9.9", "/api/auth/login", false)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	assert.Equal(t, 15*time.Minute, res.RetryAfter)

	// Further attempts while blocked see the remaining block time,
	// never a longer one.
	*now = now.Add(5 * time.Minute)
	res, err = l.Check(ctx, "ip:9.9.9.9", "/api/auth/login", false)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 10*time.Minute, res.RetryAfter)

	*now = now.Add(11 * time.Minute)
	res, err = l.Check(ctx, "ip:9.9.9.9", "/api/auth/login", false)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "expired block admits again")
}

func TestCheckSkipSuccessful(t *testing.T) {
	rule := Rule{Prefix: "/api/auth/login", Window: time.Minute, MaxRequests: 2, SkipSuccessful: true}
	l, _ := newTestLimiter(t, []Rule{rule}, DefaultRule)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		res, err := l.Check(ctx, "user:7", "/api/auth/login", true)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining, "successful calls never consume the budget")
	}

	res, err := l.Check(ctx, "user:7", "/api/auth/login", false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestCheckSkipFailed(t *testing.T) {
	rule := Rule{Prefix: "/api/reports", Window: time.Minute, MaxRequests: 1, SkipFailed: true}
	l, _ := newTestLimiter(t, []Rule{rule}, DefaultRule)
	ctx := context.Background()

	res, err := l.Check(ctx, "user:7", "/api/reports", false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	res, err = l.Check(ctx, "user:7", "/api/reports", true)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestRuleForLongestPrefixWins(t *testing.T) {
	rules := []Rule{
		{Prefix: "/api", Window: time.Minute, MaxRequests: 100},
		{Prefix: "/api/auth", Window: time.Minute, MaxRequests: 20},
		{Prefix: "/api/auth/login", Window: time.Minute, MaxRequests: 5},
	}
	l, _ := newTestLimiter(t, rules, DefaultRule)

	assert.Equal(t, 5, l.RuleFor("/api/auth/login").MaxRequests)
	assert.Equal(t, 20, l.RuleFor("/api/auth/refresh").MaxRequests)
	assert.Equal(t, 100, l.RuleFor("/api/users").MaxRequests)
	assert.Equal(t, DefaultRule.MaxRequests, l.RuleFor("/healthz").MaxRequests)
}

func TestIdentifiersIsolated(t *testing.T) {
	l, _ := newTestLimiter(t, nil, Rule{Window: time.Minute, MaxRequests: 1})
	ctx := context.Background()

	res, err := l.Check(ctx, "user:1", "/x", true)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	res, err = l.Check(ctx, "user:1", "/x", true)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	res, err = l.Check(ctx, "user:2", "/x", true)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "one caller's limit must not affect another")
}

func TestEndpointsIsolated(t *testing.T) {
	l, _ := newTestLimiter(t, nil, Rule{Window: time.Minute, MaxRequests: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Check(ctx, "user:1", "/api/users", true)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := l.Check(ctx, "user:1", "/api/users", true)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Both endpoints fall under the same rule, but each keeps its own
	// counter.
	res, err = l.Check(ctx, "user:1", "/api/scorecards", true)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "exhausting one endpoint must not starve another")
	assert.Equal(t, 2, res.Remaining)
}

func TestPeekDoesNotCount(t *testing.T) {
	l, _ := newTestLimiter(t, nil, Rule{Window: time.Minute, MaxRequests: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Peek(ctx, "user:1", "/x")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
	}

	_, err := l.Check(ctx, "user:1", "/x", true)
	require.NoError(t, err)
	_, err = l.Check(ctx, "user:1", "/x", true)
	require.NoError(t, err)

	res, err := l.Peek(ctx, "user:1", "/x")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestResetClearsCounter(t *testing.T) {
	l, _ := newTestLimiter(t, nil, Rule{Window: time.Minute, MaxRequests: 1})
	ctx := context.Background()

	_, err := l.Check(ctx, "user:1", "/x", true)
	require.NoError(t, err)
	res, err := l.Check(ctx, "user:1", "/x", true)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, l.Reset(ctx, "user:1", "/x"))

	res, err = l.Check(ctx, "user:1", "/x", true)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Set(ctx, "lapsed", Entry{Count: 3, ResetAt: now.Add(-time.Minute)}, 0))
	require.NoError(t, store.Set(ctx, "live", Entry{Count: 1, ResetAt: now.Add(time.Minute)}, 0))
	require.NoError(t, store.Set(ctx, "blocked", Entry{
		Count: 9, ResetAt: now.Add(-time.Hour), Blocked: true, BlockUntil: now.Add(time.Hour),
	}, 0))

	removed, err := store.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, store.Len())

	_, ok, err := store.Get(ctx, "blocked")
	require.NoError(t, err)
	assert.True(t, ok, "active blocks survive the sweep")
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	entry := Entry{Count: 4, ResetAt: time.Now().Add(time.Minute).UTC()}
	require.NoError(t, store.Set(ctx, "user:1:/api", entry, time.Minute))

	got, ok, err := store.Get(ctx, "user:1:/api")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.Count, got.Count)
	assert.WithinDuration(t, entry.ResetAt, got.ResetAt, time.Second)

	require.NoError(t, store.Delete(ctx, "user:1:/api"))
	_, ok, err = store.Get(ctx, "user:1:/api")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLimiterWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewLimiter(NewRedisStore(client), nil, Rule{Window: time.Minute, MaxRequests: 2}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Check(ctx, "ip:8.8.8.8", "/x", true)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := l.Check(ctx, "ip:8.8.8.8", "/x", true)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}
