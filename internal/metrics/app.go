// Package metrics emits run counters through the gofulmen telemetry system.
// Every helper is a no-op until observability.InitMetrics has run.
package metrics

import (
	"time"

	"github.com/namelens/listlens/internal/core"
	"github.com/namelens/listlens/internal/observability"
)

const (
	ListChecksTotal     = "list_checks_total"
	ListCheckDuration   = "list_check_duration_ms"
	RateLimitWaitsTotal = "rate_limit_waits_total"
	RunsTotal           = "runs_total"
	RunDuration         = "run_duration_ms"
)

// RecordListCheck counts one finished list check.
func RecordListCheck(status core.Status, errorKind string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		ListChecksTotal,
		1,
		map[string]string{
			"status":     string(status),
			"error_kind": errorKind,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		ListCheckDuration,
		duration,
		map[string]string{"status": string(status)},
	)
}

// RecordRateLimitWait counts one poll spent waiting for window capacity.
func RecordRateLimitWait() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(RateLimitWaitsTotal, 1, nil)
	}
}

// RecordRun counts a completed run by outcome.
func RecordRun(success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	outcome := "success"
	if !success {
		outcome = "failure"
	}
	_ = observability.TelemetrySystem.Counter(RunsTotal, 1, map[string]string{"outcome": outcome})
	_ = observability.TelemetrySystem.Histogram(RunDuration, duration, nil)
}
