// Package ratelimit implements a fixed-window per-key request limiter.
// Each named instance (global, upload, ...) keeps its own key table, so
// the same client IP is counted independently per instance.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// retentionMargin is how long an expired entry survives before the
// sweeper removes it.
const retentionMargin = time.Minute

// Result is the outcome of a single Check call. Exhaustion is a normal
// result, not an error.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type entry struct {
	count       int
	windowStart time.Time
	resetAt     time.Time
}

// Limiter counts requests per key within a fixed window.
type Limiter struct {
	name   string
	max    int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	now func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source, for window-reset tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a named limiter allowing max requests per window.
func New(name string, max int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		name:    name,
		max:     max,
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the instance name.
func (l *Limiter) Name() string { return l.name }

// Limit returns the configured max requests per window.
func (l *Limiter) Limit() int { return l.max }

// Check records a request for key and reports whether it is allowed.
// The first request in a window (or after the window expired) re-anchors
// the entry; requests beyond max are denied with Remaining pinned at 0.
func (l *Limiter) Check(key string) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{count: 1, windowStart: now, resetAt: now.Add(l.window)}
		l.entries[key] = e
		return Result{Allowed: true, Limit: l.max, Remaining: l.max - 1, ResetAt: e.resetAt}
	}

	e.count++
	if e.count <= l.max {
		return Result{Allowed: true, Limit: l.max, Remaining: l.max - e.count, ResetAt: e.resetAt}
	}
	return Result{Allowed: false, Limit: l.max, Remaining: 0, ResetAt: e.resetAt}
}

// Sweep removes entries expired beyond the retention margin and returns
// how many were deleted.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if now.Sub(e.resetAt) > retentionMargin {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// StartSweeper sweeps expired entries every interval until ctx is
// cancelled, to bound memory under churning client keys.
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.Sweep(); n > 0 {
					slog.Debug("rate limit entries swept", "limiter", l.name, "removed", n)
				}
			}
		}
	}()
}

// RetryAfter returns the whole seconds until r.ResetAt on the limiter's
// own clock, so a test clock installed with WithClock governs both the
// window and the Retry-After value.
func (l *Limiter) RetryAfter(r Result) int {
	return r.RetryAfter(l.now())
}

// RetryAfter returns the whole seconds from now until r.ResetAt, minimum
// 1, for the Retry-After response header.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
