package engine

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/namelens/listlens/internal/errors"
)

// Default rolling window for HubSpot list lookups.
const (
	DefaultRequestsPerWindow = 100
	DefaultWindowDuration    = 10 * time.Second
	DefaultPollInterval      = 100 * time.Millisecond
)

// RateLimit represents a rolling window limit: at most RequestsPerWindow
// admissions in any trailing WindowDuration.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
	PollInterval      time.Duration
}

// DefaultLimit returns the limit used when nothing is configured.
func DefaultLimit() RateLimit {
	return RateLimit{
		RequestsPerWindow: DefaultRequestsPerWindow,
		WindowDuration:    DefaultWindowDuration,
		PollInterval:      DefaultPollInterval,
	}
}

// Validate rejects limits that would block forever.
func (l RateLimit) Validate() error {
	if l.RequestsPerWindow <= 0 {
		return apperrors.NewConfigInvalidError("rate limit requests per window must be at least 1")
	}
	if l.WindowDuration <= 0 {
		return apperrors.NewConfigInvalidError("rate limit window must be positive")
	}
	if l.PollInterval < 0 {
		return apperrors.NewConfigInvalidError("rate limit poll interval must not be negative")
	}
	return nil
}

// RateLimiterStats summarizes limiter activity.
type RateLimiterStats struct {
	Admitted int64
	Waits    int64
}

// RateLimiter gates request issuance across all workers with a single
// rolling window of admission timestamps. Acquire polls rather than waking on
// eviction; the window is short and workers are few.
type RateLimiter struct {
	limit RateLimit

	// Clock and Sleep may be replaced in tests.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	// OnWait is called each time Acquire has to back off.
	OnWait func()

	onAdmit func(time.Time)

	mu       sync.Mutex
	window   []time.Time
	admitted int64
	waits    int64
}

// NewRateLimiter validates the limit and returns a ready limiter.
func NewRateLimiter(limit RateLimit) (*RateLimiter, error) {
	if limit.PollInterval == 0 {
		limit.PollInterval = DefaultPollInterval
	}
	if err := limit.Validate(); err != nil {
		return nil, err
	}
	return &RateLimiter{
		limit:  limit,
		window: make([]time.Time, 0, limit.RequestsPerWindow),
	}, nil
}

// Limit returns the configured limit.
func (r *RateLimiter) Limit() RateLimit {
	return r.limit
}

// Acquire blocks until one more request fits in the window, then records it.
// It returns ctx.Err() if the context ends while waiting.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.tryAdmit() {
			return nil
		}

		if r.OnWait != nil {
			r.OnWait()
		}
		if err := r.sleep(ctx, r.limit.PollInterval); err != nil {
			return err
		}
	}
}

// tryAdmit runs evict, check and append as one critical section.
func (r *RateLimiter) tryAdmit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictLocked(now)

	if len(r.window) < r.limit.RequestsPerWindow {
		r.window = append(r.window, now)
		r.admitted++
		if r.onAdmit != nil {
			r.onAdmit(now)
		}
		return true
	}

	r.waits++
	return false
}

func (r *RateLimiter) evictLocked(now time.Time) {
	cutoff := now.Add(-r.limit.WindowDuration)
	drop := 0
	for drop < len(r.window) && !r.window[drop].After(cutoff) {
		drop++
	}
	if drop == 0 {
		return
	}
	remaining := copy(r.window, r.window[drop:])
	r.window = r.window[:remaining]
}

// InFlight returns the number of admissions inside the trailing window.
func (r *RateLimiter) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked(r.now())
	return len(r.window)
}

// Stats returns admission and wait counters.
func (r *RateLimiter) Stats() RateLimiterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateLimiterStats{Admitted: r.admitted, Waits: r.waits}
}

func (r *RateLimiter) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
