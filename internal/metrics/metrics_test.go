package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zhenli1347/dragonfly/internal/metrics"
)

func TestMustRegisterAgainstFreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(mfs) == 0 {
		t.Errorf("Gather() returned no metric families after MustRegister")
	}
}

func TestMustRegisterTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic registering the same collectors twice")
		}
	}()
	metrics.MustRegister(reg)
}

func TestCountersObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	before := testutil.ToFloat64(metrics.ScheduleRetries)
	metrics.ScheduledTotal.WithLabelValues("fast_quickie").Inc()
	metrics.ScheduleRetries.Inc()
	metrics.OutOfMemoryTotal.Inc()
	metrics.ExecuteDuration.WithLabelValues("0").Observe(0.01)
	metrics.BlockedGauge.WithLabelValues("0").Set(1)

	if got := testutil.ToFloat64(metrics.ScheduleRetries); got != before+1 {
		t.Errorf("ScheduleRetries = %v, want %v", got, before+1)
	}
}
