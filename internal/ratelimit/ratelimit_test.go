package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMonotonicity(t *testing.T) {
	l := New("test", 5, time.Minute)

	for i := 0; i < 5; i++ {
		res := l.Check("client")
		assert.True(t, res.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 5-(i+1), res.Remaining, "call %d remaining", i+1)
	}
	for i := 0; i < 3; i++ {
		res := l.Check("client")
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
	}
}

func TestCheckWindowReset(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	l := New("test", 2, time.Minute, WithClock(func() time.Time { return now }))

	l.Check("client")
	l.Check("client")
	require.False(t, l.Check("client").Allowed)

	now = now.Add(time.Minute)
	res := l.Check("client")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)
}

func TestKeyIsolation(t *testing.T) {
	l := New("test", 2, time.Minute)

	l.Check("a")
	l.Check("a")
	require.False(t, l.Check("a").Allowed)

	res := l.Check("b")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestInstanceIsolation(t *testing.T) {
	a := New("a", 1, time.Minute)
	b := New("b", 1, time.Minute)

	require.True(t, a.Check("client").Allowed)
	require.False(t, a.Check("client").Allowed)
	assert.True(t, b.Check("client").Allowed, "instances must keep disjoint key spaces")
}

func TestSweep(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	l := New("test", 5, time.Minute, WithClock(func() time.Time { return now }))

	l.Check("a")
	l.Check("b")
	require.Equal(t, 2, l.Len())

	// Inside the retention margin nothing is removed.
	now = now.Add(time.Minute + 30*time.Second)
	assert.Equal(t, 0, l.Sweep())

	now = now.Add(time.Hour)
	assert.Equal(t, 2, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestCheckConcurrent(t *testing.T) {
	const workers = 50
	l := New("test", workers, time.Minute)

	var wg sync.WaitGroup
	allowed := make(chan bool, workers*2)
	for i := 0; i < workers*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Check("client").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	// No lost increments: exactly the limit is admitted.
	assert.Equal(t, workers, count)
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	res := Result{ResetAt: now.Add(42 * time.Second)}
	assert.Equal(t, 42, res.RetryAfter(now))

	// Never below one second.
	res = Result{ResetAt: now.Add(100 * time.Millisecond)}
	assert.Equal(t, 1, res.RetryAfter(now))
	res = Result{ResetAt: now.Add(-time.Second)}
	assert.Equal(t, 1, res.RetryAfter(now))
}

func TestLimiterRetryAfterUsesOwnClock(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	l := New("test", 1, time.Minute, WithClock(func() time.Time { return now }))

	l.Check("client")
	res := l.Check("client")
	require.False(t, res.Allowed)
	assert.Equal(t, 60, l.RetryAfter(res))

	// Advancing the limiter's clock shrinks the wait; wall time is
	// irrelevant.
	now = now.Add(45 * time.Second)
	assert.Equal(t, 15, l.RetryAfter(res))
}
