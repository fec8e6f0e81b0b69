package pid

import (
	"math"
	"testing"

	"github.com/BryanSouza91/flightcore/internal/filter"
)

func TestProportionalOnly(t *testing.T) {
	p := New(Gains{Kp: 2}, 1000)
	if got := p.Update(1, 0.25); got != 1.5 {
		t.Fatalf("out=%v want 1.5", got)
	}
}

func TestIntegratorAccumulatesAndLimits(t *testing.T) {
	p := New(Gains{Ki: 100, ILimit: 0.5}, 1000)
	p.Update(1, 0)
	if math.Abs(p.ITerm-0.1) > 1e-12 {
		t.Fatalf("iTerm=%v want 0.1", p.ITerm)
	}
	for i := 0; i < 100; i++ {
		p.Update(1, 0)
	}
	if p.ITerm != 0.5 {
		t.Fatalf("iTerm=%v want limit 0.5", p.ITerm)
	}
}

func TestIntegratorNeverNaN(t *testing.T) {
	p := New(Gains{Ki: 1}, 1000)
	p.Update(math.Inf(1), 0)
	if p.ITerm != 0 {
		t.Fatalf("iTerm=%v want 0 after non-finite error", p.ITerm)
	}
}

func TestDerivativeOnMeasurement(t *testing.T) {
	p := New(Gains{Kd: 0.01}, 1000)
	if got := p.Update(0, 0); got != 0 {
		t.Fatalf("first out=%v want 0", got)
	}
	// measurement rising 0.001 per sample is 1 unit/s
	got := p.Update(0, 0.001)
	if math.Abs(got-(-0.01)) > 1e-12 {
		t.Fatalf("dTerm out=%v want -0.01", got)
	}
	// a setpoint step does not reach the D term
	if got := p.Update(10, 0.001); got != 0 {
		t.Fatalf("out=%v want 0 on setpoint step", got)
	}
}

func TestFeedForwardScale(t *testing.T) {
	p := New(Gains{Kf: 0.001}, 1000)
	p.Update(0, 0)
	if got := p.Update(0.1, 0); math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("fTerm out=%v want 0.1", got)
	}
	p.FScale = 0
	if got := p.Update(0.2, 0); got != 0 {
		t.Fatalf("out=%v want 0 with FScale=0", got)
	}
}

func TestFilteredDerivative(t *testing.T) {
	p := New(Gains{Kd: 1}, 1000)
	p.DtermFilter.Configure(filter.Config{Type: filter.PT1, Freq: 50}, 1000)
	p.Update(0, 0)
	first := p.Update(0, 0.001)
	if math.Abs(first+1) > 1e-9 {
		t.Fatalf("primed derivative=%v want -1", first)
	}
	second := p.Update(0, 0.001)
	if second >= 0 || second <= -1 {
		t.Fatalf("filtered derivative=%v want within (-1,0)", second)
	}
}

func TestOutputLimit(t *testing.T) {
	p := New(Gains{Kp: 10, OLimit: 1}, 1000)
	if got := p.Update(1, 0); got != 1 {
		t.Fatalf("out=%v want 1", got)
	}
	if got := p.Update(-1, 0); got != -1 {
		t.Fatalf("out=%v want -1", got)
	}
}

func TestReset(t *testing.T) {
	p := New(Gains{Ki: 10}, 1000)
	p.Update(1, 0)
	p.Reset()
	if p.ITerm != 0 {
		t.Fatalf("iTerm=%v want 0", p.ITerm)
	}
}
