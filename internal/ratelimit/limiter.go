package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Rule describes the limit applied to endpoints under a path prefix.
type Rule struct {
	Prefix         string
	Window         time.Duration
	MaxRequests    int
	BlockFor       time.Duration
	SkipSuccessful bool
	SkipFailed     bool
}

// Result reports whether a call was admitted and the counter state
// the caller should surface to the client.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// DefaultRules mirrors the limits the platform ships with. Auth
// endpoints get the tightest budget and skip counting successful
// attempts so a legitimate login never burns the credential-stuffing
// budget.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/api/auth/login", Window: time.Minute, MaxRequests: 5, BlockFor: 15 * time.Minute, SkipSuccessful: true},
		{Prefix: "/api/gdpr", Window: time.Hour, MaxRequests: 10, BlockFor: time.Hour},
		{Prefix: "/api/evaluations/export", Window: time.Minute, MaxRequests: 10},
	}
}

// DefaultRule is the fallback applied to endpoints no prefix rule
// matches.
var DefaultRule = Rule{Window: time.Minute, MaxRequests: 100}

// Limiter enforces per-identifier fixed-window limits with optional
// block-on-exceed. All decisions for one identifier and endpoint run
// under a single lock so the read-increment-write cycle is atomic.
type Limiter struct {
	mu       sync.Mutex
	store    Store
	rules    []Rule
	fallback Rule
	logger   *slog.Logger
	now      func() time.Time
}

// NewLimiter constructs a Limiter over the given store and rules. The
// rule with the longest matching prefix wins when several apply.
func NewLimiter(store Store, rules []Rule, fallback Rule, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		store:    store,
		rules:    rules,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// RuleFor returns the rule governing endpoint.
func (l *Limiter) RuleFor(endpoint string) Rule {
	best := l.fallback
	bestLen := -1
	for _, r := range l.rules {
		if strings.HasPrefix(endpoint, r.Prefix) && len(r.Prefix) > bestLen {
			best = r
			bestLen = len(r.Prefix)
		}
	}
	return best
}

// Check admits or rejects one call from identifier to endpoint.
// success reports whether the underlying operation succeeded; rules
// with SkipSuccessful or SkipFailed use it to decide whether the call
// counts against the window at all.
func (l *Limiter) Check(ctx context.Context, identifier, endpoint string, success bool) (Result, error) {
	rule := l.RuleFor(endpoint)
	// The rule only selects the limit; each endpoint counts on its own.
	key := identifier + ":" + endpoint

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}

	// An active block rejects before any counting.
	if ok && entry.Blocked {
		if now.Before(entry.BlockUntil) {
			return Result{
				Allowed:    false,
				Remaining:  0,
				ResetAt:    entry.BlockUntil,
				RetryAfter: entry.BlockUntil.Sub(now),
			}, nil
		}
		// Block expired, start a fresh window.
		ok = false
	}

	if !ok || !now.Before(entry.ResetAt) {
		entry = Entry{Count: 0, ResetAt: now.Add(rule.Window)}
	}

	if (success && rule.SkipSuccessful) || (!success && rule.SkipFailed) {
		return Result{
			Allowed:   true,
			Remaining: remaining(rule, entry.Count),
			ResetAt:   entry.ResetAt,
		}, nil
	}

	entry.Count++

	if entry.Count > rule.MaxRequests {
		resetAt := entry.ResetAt
		retryAfter := resetAt.Sub(now)
		if rule.BlockFor > 0 {
			entry.Blocked = true
			entry.BlockUntil = now.Add(rule.BlockFor)
			resetAt = entry.BlockUntil
			retryAfter = rule.BlockFor
			if err := l.store.Set(ctx, key, entry, rule.BlockFor+time.Minute); err != nil {
				return Result{}, err
			}
			l.logger.Warn("rate limit block started",
				slog.String("identifier", identifier),
				slog.String("endpoint", endpoint),
				slog.Duration("block_for", rule.BlockFor))
		}
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter,
		}, nil
	}

	if err := l.store.Set(ctx, key, entry, entry.ResetAt.Sub(now)+time.Minute); err != nil {
		return Result{}, err
	}

	return Result{
		Allowed:   true,
		Remaining: remaining(rule, entry.Count),
		ResetAt:   entry.ResetAt,
	}, nil
}

// Peek reports the current state for identifier on endpoint without
// counting a call. The HTTP middleware uses it to reject before the
// handler runs, then records the call with Check once the outcome is
// known.
func (l *Limiter) Peek(ctx context.Context, identifier, endpoint string) (Result, error) {
	rule := l.RuleFor(endpoint)
	key := identifier + ":" + endpoint

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Allowed: true, Remaining: rule.MaxRequests, ResetAt: now.Add(rule.Window)}, nil
	}
	if entry.Blocked && now.Before(entry.BlockUntil) {
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    entry.BlockUntil,
			RetryAfter: entry.BlockUntil.Sub(now),
		}, nil
	}
	if !now.Before(entry.ResetAt) {
		return Result{Allowed: true, Remaining: rule.MaxRequests, ResetAt: now.Add(rule.Window)}, nil
	}
	if entry.Count >= rule.MaxRequests {
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    entry.ResetAt,
			RetryAfter: entry.ResetAt.Sub(now),
		}, nil
	}
	return Result{
		Allowed:   true,
		Remaining: remaining(rule, entry.Count),
		ResetAt:   entry.ResetAt,
	}, nil
}

// Reset clears the counter for identifier on endpoint. Used after an
// operator lifts a block.
func (l *Limiter) Reset(ctx context.Context, identifier, endpoint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Delete(ctx, identifier+":"+endpoint)
}

// RunSweeper evicts lapsed entries every interval until ctx is
// cancelled. Pass 0 for the default of five minutes.
func (l *Limiter) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := l.store.Sweep(ctx, l.now())
			if err != nil {
				l.logger.Error("rate limit sweep failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				l.logger.Debug("rate limit sweep", slog.Int("removed", removed))
			}
		}
	}
}

func remaining(rule Rule, count int) int {
	r := rule.MaxRequests - count
	if r < 0 {
		return 0
	}
	return r
}
