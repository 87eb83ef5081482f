package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock shared by a test and its limiter.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, clock *fakeClock) *Limiter {
	t.Helper()
	l := NewLimiter(WithClock(clock.Now))
	t.Cleanup(l.Shutdown)
	return l
}

func TestCheck_EmptyIdentifier(t *testing.T) {
	l := newTestLimiter(t, newFakeClock())

	_, err := l.Check("", ClassRead)
	require.ErrorIs(t, err, ErrEmptyIdentifier)
}

func TestCheck_BurstThenReject(t *testing.T) {
	l := newTestLimiter(t, newFakeClock())

	// Generation bucket starts full at 10. Remaining counts down 9..0.
	for i := 0; i < 10; i++ {
		res, err := l.Check("user-1", ClassGeneration)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "check %d should be allowed", i+1)
		assert.Equal(t, 9-i, res.Remaining)
		assert.Equal(t, 10, res.Limit)
	}

	// 11th at the same instant is rejected.
	res, err := l.Check("user-1", ClassGeneration)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestCheck_RefillAfterWait(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < 10; i++ {
		_, err := l.Check("user-1", ClassGeneration)
		require.NoError(t, err)
	}

	res, err := l.Check("user-1", ClassGeneration)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Waiting exactly until ResetAt must yield an admitted check.
	clock.Advance(res.RetryAfter(clock.Now()))

	res, err = l.Check("user-1", ClassGeneration)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheck_RefillCapsAtMax(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	// Drain one token, then wait far longer than a full refill.
	_, err := l.Check("user-1", ClassAuth)
	require.NoError(t, err)

	clock.Advance(time.Hour)

	// Only MaxTokens checks are admitted despite the long idle period.
	for i := 0; i < 5; i++ {
		res, err := l.Check("user-1", ClassAuth)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "check %d should be allowed", i+1)
	}
	res, err := l.Check("user-1", ClassAuth)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestCheck_ClassesAndIdentifiersIsolated(t *testing.T) {
	l := newTestLimiter(t, newFakeClock())

	// Exhaust the auth bucket for user-1.
	for i := 0; i < 5; i++ {
		_, err := l.Check("user-1", ClassAuth)
		require.NoError(t, err)
	}
	res, err := l.Check("user-1", ClassAuth)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Same user, different class: unaffected.
	res, err = l.Check("user-1", ClassRead)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Different user, same class: unaffected.
	res, err = l.Check("user-2", ClassAuth)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheck_RejectedChecksDoNotDrainTokens(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < 5; i++ {
		_, err := l.Check("user-1", ClassAuth)
		require.NoError(t, err)
	}

	// Hammering a drained bucket must not push tokens below zero and
	// must not delay the eventual refill.
	var last Result
	for i := 0; i < 100; i++ {
		res, err := l.Check("user-1", ClassAuth)
		require.NoError(t, err)
		require.False(t, res.Allowed)
		last = res
	}

	clock.Advance(last.RetryAfter(clock.Now()))
	res, err := l.Check("user-1", ClassAuth)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheck_ConcurrentNoLostDecrements(t *testing.T) {
	l := newTestLimiter(t, newFakeClock())

	const workers = 50
	var wg sync.WaitGroup
	allowed := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Check("user-1", ClassGeneration)
			require.NoError(t, err)
			allowed <- res.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	admitted := 0
	for ok := range allowed {
		if ok {
			admitted++
		}
	}
	// Exactly the bucket capacity may pass at a single instant.
	assert.Equal(t, 10, admitted)
}

func TestSweep_RemovesIdleBuckets(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(WithClock(clock.Now), WithSweep(time.Minute, 10*time.Minute))
	t.Cleanup(l.Shutdown)

	for i := 0; i < 20; i++ {
		_, err := l.Check(fmt.Sprintf("ip-%d", i), ClassRead)
		require.NoError(t, err)
	}
	require.Equal(t, 20, l.BucketCount())

	// One identifier stays active past the idle cutoff.
	clock.Advance(9 * time.Minute)
	_, err := l.Check("ip-0", ClassRead)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	l.sweep()

	assert.Equal(t, 1, l.BucketCount())
}

func TestCheck_UnknownClassFallsBackToAuthLimits(t *testing.T) {
	l := newTestLimiter(t, newFakeClock())

	for i := 0; i < 5; i++ {
		res, err := l.Check("user-1", Class("bogus"))
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := l.Check("user-1", Class("bogus"))
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}
