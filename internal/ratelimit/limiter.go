// Package ratelimit implements per-identifier token-bucket admission
// control. State is process-local: with horizontal replication each
// instance enforces its own limits.
package ratelimit

import (
	"errors"
	"math"
	"sync"
	"time"
)

// Class selects which bucket configuration applies to a request.
type Class string

const (
	ClassGeneration Class = "generation"
	ClassWrite      Class = "write"
	ClassRead       Class = "read"
	ClassAuth       Class = "auth"
)

// ClassConfig is the static bucket shape for a class. Not mutated at runtime.
type ClassConfig struct {
	MaxTokens    float64
	RefillPerSec float64
}

// DefaultClasses holds the production limits: burst capacity equals the
// per-minute rate, refilled continuously.
var DefaultClasses = map[Class]ClassConfig{
	ClassGeneration: {MaxTokens: 10, RefillPerSec: 10.0 / 60.0},
	ClassWrite:      {MaxTokens: 30, RefillPerSec: 30.0 / 60.0},
	ClassRead:       {MaxTokens: 100, RefillPerSec: 100.0 / 60.0},
	ClassAuth:       {MaxTokens: 5, RefillPerSec: 5.0 / 60.0},
}

// ErrEmptyIdentifier is returned when Check is called without an identifier.
// The caller must resolve a user ID or client IP before admission control.
var ErrEmptyIdentifier = errors.New("ratelimit: empty identifier")

// Result is the admission decision for a single request.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when at least one token will be available again.
	// For allowed requests it is when the bucket refills completely.
	ResetAt time.Time
}

// RetryAfter returns the duration until a rejected request can retry.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

const (
	defaultSweepInterval = 5 * time.Minute
	defaultBucketTTL     = 10 * time.Minute
)

// Limiter is a process-local token-bucket admission controller keyed by
// (class, identifier). Buckets are created lazily at full capacity,
// refilled on every check from elapsed wall time, and swept after a TTL
// of inactivity.
type Limiter struct {
	classes map[Class]ClassConfig
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	sweepInterval time.Duration
	bucketTTL     time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithClasses replaces the default class table.
func WithClasses(classes map[Class]ClassConfig) Option {
	return func(l *Limiter) { l.classes = classes }
}

// WithSweep overrides the sweep cadence and bucket idle TTL.
func WithSweep(interval, ttl time.Duration) Option {
	return func(l *Limiter) {
		l.sweepInterval = interval
		l.bucketTTL = ttl
	}
}

// NewLimiter creates a Limiter and starts its background sweeper.
// Callers must Shutdown the limiter when done.
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{
		classes:       DefaultClasses,
		now:           time.Now,
		buckets:       make(map[string]*bucket),
		sweepInterval: defaultSweepInterval,
		bucketTTL:     defaultBucketTTL,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.wg.Add(1)
	go l.sweepLoop()

	return l
}

// Check admits or rejects one request for the identifier under the class.
// It never blocks; the only error is an empty identifier.
func (l *Limiter) Check(identifier string, class Class) (Result, error) {
	if identifier == "" {
		return Result{}, ErrEmptyIdentifier
	}

	cfg, ok := l.classes[class]
	if !ok {
		// Unknown classes fall back to the most conservative bucket.
		cfg = l.classes[ClassAuth]
	}

	now := l.now()
	key := string(class) + ":" + identifier

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: cfg.MaxTokens, lastRefill: now}
		l.buckets[key] = b
	} else {
		elapsed := now.Sub(b.lastRefill).Seconds()
		if elapsed > 0 {
			b.tokens = math.Min(cfg.MaxTokens, b.tokens+elapsed*cfg.RefillPerSec)
		}
		b.lastRefill = now
	}

	limit := int(cfg.MaxTokens)

	if b.tokens >= 1 {
		b.tokens--
		return Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: int(b.tokens),
			ResetAt:   now.Add(l.timeToFull(b.tokens, cfg)),
		}, nil
	}

	wait := math.Ceil((1 - b.tokens) / cfg.RefillPerSec)
	return Result{
		Allowed:   false,
		Limit:     limit,
		Remaining: 0,
		ResetAt:   now.Add(time.Duration(wait) * time.Second),
	}, nil
}

func (l *Limiter) timeToFull(tokens float64, cfg ClassConfig) time.Duration {
	missing := cfg.MaxTokens - tokens
	if missing <= 0 || cfg.RefillPerSec <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(missing/cfg.RefillPerSec)) * time.Second
}

// Shutdown stops the background sweeper and waits for it to exit.
func (l *Limiter) Shutdown() {
	close(l.done)
	l.wg.Wait()
}

func (l *Limiter) sweepLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops buckets that have not been touched within the TTL,
// bounding memory when identifiers are unbounded (per-IP traffic).
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-l.bucketTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// BucketCount reports the number of live buckets, for metrics and tests.
func (l *Limiter) BucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
