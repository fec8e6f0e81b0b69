package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.SetFrameRate(50)
	m.FailsafeStage("stage1")
	m.Disarm("failsafe")
	m.ControlCycle("multirotor")
}

func TestCountersRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FailsafeStage("stage2")
	m.FailsafeStage("stage2")
	m.Disarm("failsafe")
	m.SetTpaFactor(0.9)
	m.InvalidFrame()

	if got := testutil.ToFloat64(m.failsafeStages.WithLabelValues("stage2")); got != 2 {
		t.Fatalf("stage2=%v want 2", got)
	}
	if got := testutil.ToFloat64(m.disarms.WithLabelValues("failsafe")); got != 1 {
		t.Fatalf("disarms=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.tpaFactor); got != 0.9 {
		t.Fatalf("tpa=%v want 0.9", got)
	}
	if got := testutil.ToFloat64(m.invalidFrames); got != 1 {
		t.Fatalf("invalid=%v want 1", got)
	}
}
