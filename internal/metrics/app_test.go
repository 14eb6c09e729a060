package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/namelens/listlens/internal/core"
	"github.com/namelens/listlens/internal/observability"
)

func TestHelpersNoopWithoutTelemetry(t *testing.T) {
	observability.ShutdownMetrics()

	assert.NotPanics(t, func() {
		RecordListCheck(core.StatusFound, "", time.Millisecond)
		RecordListCheck(core.StatusError, "status", time.Millisecond)
		RecordRateLimitWait()
		RecordRun(true, time.Second)
		RecordRun(false, time.Second)
	})
}

func TestHelpersWithTelemetry(t *testing.T) {
	if err := observability.InitMetrics("listlens-test", 0); err != nil {
		t.Skipf("metrics exporter unavailable: %v", err)
	}
	t.Cleanup(observability.ShutdownMetrics)

	assert.NotPanics(t, func() {
		RecordListCheck(core.StatusNoMatch, "", 5*time.Millisecond)
		RecordRateLimitWait()
		RecordRun(true, time.Second)
	})
	assert.Greater(t, observability.GetMetricsPort(), 0)
}
