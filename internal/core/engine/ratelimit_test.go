package engine

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/namelens/listlens/internal/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

func TestNewRateLimiterRejectsBadLimits(t *testing.T) {
	cases := []struct {
		name  string
		limit RateLimit
	}{
		{"zero requests", RateLimit{RequestsPerWindow: 0, WindowDuration: time.Second}},
		{"negative requests", RateLimit{RequestsPerWindow: -1, WindowDuration: time.Second}},
		{"zero window", RateLimit{RequestsPerWindow: 10, WindowDuration: 0}},
		{"negative poll", RateLimit{RequestsPerWindow: 10, WindowDuration: time.Second, PollInterval: -time.Millisecond}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limiter, err := NewRateLimiter(tc.limit)
			require.Error(t, err)
			require.Nil(t, limiter)
			require.True(t, apperrors.IsConfigError(err))
		})
	}
}

func TestNewRateLimiterDefaultsPollInterval(t *testing.T) {
	limiter, err := NewRateLimiter(RateLimit{RequestsPerWindow: 1, WindowDuration: time.Second})
	require.NoError(t, err)
	require.Equal(t, DefaultPollInterval, limiter.Limit().PollInterval)
}

func TestRateLimiterWindow(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewRateLimiter(RateLimit{RequestsPerWindow: 2, WindowDuration: 10 * time.Second})
	require.NoError(t, err)
	limiter.Clock = clock.Now

	require.True(t, limiter.tryAdmit())
	clock.Advance(time.Second)
	require.True(t, limiter.tryAdmit())
	require.False(t, limiter.tryAdmit())
	require.Equal(t, 2, limiter.InFlight())

	// First admission is exactly T old at this point and falls out of the window.
	clock.Advance(9 * time.Second)
	require.Equal(t, 1, limiter.InFlight())
	require.True(t, limiter.tryAdmit())
	require.False(t, limiter.tryAdmit())

	stats := limiter.Stats()
	require.Equal(t, int64(3), stats.Admitted)
	require.Equal(t, int64(2), stats.Waits)
}

func TestRateLimiterAcquireWaitsForEviction(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewRateLimiter(RateLimit{
		RequestsPerWindow: 1,
		WindowDuration:    time.Second,
		PollInterval:      100 * time.Millisecond,
	})
	require.NoError(t, err)
	limiter.Clock = clock.Now
	limiter.Sleep = clock.Sleep

	waits := 0
	limiter.OnWait = func() { waits++ }

	start := clock.Now()
	require.NoError(t, limiter.Acquire(context.Background()))
	require.NoError(t, limiter.Acquire(context.Background()))

	require.Equal(t, 10, waits)
	require.Equal(t, time.Second, clock.Now().Sub(start))
}

func TestRateLimiterAcquireCancelled(t *testing.T) {
	limiter, err := NewRateLimiter(RateLimit{
		RequestsPerWindow: 1,
		WindowDuration:    time.Hour,
		PollInterval:      5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, limiter.Acquire(ctx))
	err = limiter.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, limiter.InFlight())
}

// requireWindowBound asserts that no trailing window holds more than limit admissions.
func requireWindowBound(t *testing.T, admissions []time.Time, limit int, window time.Duration) {
	t.Helper()

	sorted := make([]time.Time, len(admissions))
	copy(sorted, admissions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for i := 0; i+limit < len(sorted); i++ {
		gap := sorted[i+limit].Sub(sorted[i])
		require.GreaterOrEqualf(t, gap, window,
			"admissions %d..%d fall within %s of each other", i, i+limit, gap)
	}
}

func TestRateLimiterConcurrentWorkersSimulated(t *testing.T) {
	const (
		workers  = 8
		limit    = 10
		window   = time.Second
		duration = 5 * time.Second
	)

	clock := newFakeClock()
	limiter, err := NewRateLimiter(RateLimit{
		RequestsPerWindow: limit,
		WindowDuration:    window,
		PollInterval:      100 * time.Millisecond,
	})
	require.NoError(t, err)
	limiter.Clock = clock.Now
	limiter.Sleep = clock.Sleep

	var (
		mu         sync.Mutex
		admissions []time.Time
	)
	limiter.onAdmit = func(at time.Time) {
		mu.Lock()
		admissions = append(admissions, at)
		mu.Unlock()
	}

	end := clock.Now().Add(duration)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for clock.Now().Before(end) {
				if err := limiter.Acquire(context.Background()); err != nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	require.GreaterOrEqual(t, len(admissions), limit)
	requireWindowBound(t, admissions, limit, window)
}

func TestRateLimiterConcurrentWorkersRealClock(t *testing.T) {
	const (
		workers = 6
		limit   = 5
		window  = 150 * time.Millisecond
		total   = 15
	)

	limiter, err := NewRateLimiter(RateLimit{
		RequestsPerWindow: limit,
		WindowDuration:    window,
		PollInterval:      5 * time.Millisecond,
	})
	require.NoError(t, err)

	var (
		mu         sync.Mutex
		admissions []time.Time
	)
	limiter.onAdmit = func(at time.Time) {
		mu.Lock()
		admissions = append(admissions, at)
		mu.Unlock()
	}

	jobs := make(chan struct{}, total)
	for i := 0; i < total; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				assert.NoError(t, limiter.Acquire(context.Background()))
			}
		}()
	}
	wg.Wait()

	require.Len(t, admissions, total)
	// 15 admissions at 5 per window need at least two full windows.
	require.GreaterOrEqual(t, time.Since(start), 2*window)
	requireWindowBound(t, admissions, limit, window)
}
