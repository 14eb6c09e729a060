package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/namelens/listlens/internal/core"
)

// DefaultConcurrency is the worker count used when none is configured.
const DefaultConcurrency = 5

// Checker resolves one list target. Failures are reported in the result.
type Checker interface {
	Check(ctx context.Context, target core.ListTarget) *core.CheckResult
}

// Sink persists completed results. It must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, result *core.CheckResult) error
}

// RunStats summarizes a dispatcher run.
type RunStats struct {
	Total   int           `json:"total" yaml:"total"`
	Found   int           `json:"found" yaml:"found"`
	NoMatch int           `json:"no_match" yaml:"no_match"`
	Errors  int           `json:"errors" yaml:"errors"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

func (s *RunStats) add(result *core.CheckResult) {
	s.Total++
	switch result.Status {
	case core.StatusFound:
		s.Found++
	case core.StatusNoMatch:
		s.NoMatch++
	default:
		s.Errors++
	}
}

// Dispatcher fans targets out to a fixed pool of workers. Each worker checks a
// target and records the outcome before taking the next one.
type Dispatcher struct {
	Checker     Checker
	Sink        Sink
	Concurrency int
	Clock       func() time.Time

	// OnResult is called after a result has been recorded.
	OnResult func(result *core.CheckResult, elapsed time.Duration)
}

// Run checks every target and records every outcome exactly once. A failing
// check never stops the run; a failing sink does, because the outcome would
// otherwise be lost.
func (d *Dispatcher) Run(ctx context.Context, targets []core.ListTarget) (RunStats, error) {
	if d == nil || d.Checker == nil || d.Sink == nil {
		return RunStats{}, errors.New("dispatcher is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	concurrency := d.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency < 1 {
		return RunStats{}, errors.New("concurrency must be at least 1")
	}

	startedAt := d.now()
	if len(targets) == 0 {
		return RunStats{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Sink writes outlive cancellation so started items are still persisted.
	recordCtx := context.WithoutCancel(ctx)

	jobs := make(chan core.ListTarget)

	var (
		wg       sync.WaitGroup
		statsMu  sync.Mutex
		stats    RunStats
		errOnce  sync.Once
		firstErr error
	)

	setErr := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	worker := func() {
		defer wg.Done()
		for target := range jobs {
			itemStart := d.now()
			result := d.Checker.Check(ctx, target)
			if result == nil {
				result = &core.CheckResult{
					Target:  target,
					Status:  core.StatusError,
					Message: "checker returned no result",
				}
			}

			if err := d.Sink.Record(recordCtx, result); err != nil {
				setErr(fmt.Errorf("record list %s: %w", target.ListID, err))
				continue
			}

			statsMu.Lock()
			stats.add(result)
			statsMu.Unlock()

			if d.OnResult != nil {
				d.OnResult(result, d.now().Sub(itemStart))
			}
		}
	}

	if concurrency > len(targets) {
		concurrency = len(targets)
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break sendLoop
		case jobs <- target:
		}
	}
	close(jobs)
	wg.Wait()

	stats.Elapsed = d.now().Sub(startedAt)

	if firstErr != nil {
		return stats, firstErr
	}
	if err := ctx.Err(); err != nil && stats.Total < len(targets) {
		return stats, err
	}
	return stats, nil
}

func (d *Dispatcher) now() time.Time {
	if d != nil && d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}
