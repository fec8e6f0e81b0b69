package status

import (
	"testing"
	"time"

	"github.com/BryanSouza91/flightcore/internal/clock"
	"github.com/BryanSouza91/flightcore/internal/state"
)

type mockPin struct {
	level  bool
	writes int
}

func (p *mockPin) High() {
	p.level = true
	p.writes++
}

func (p *mockPin) Low() {
	p.level = false
	p.writes++
}

func TestSolidAndOff(t *testing.T) {
	pin := &mockPin{}
	clk := &clock.Manual{}
	led := NewLED(pin, clk)

	led.SetPattern(On)
	led.Update()
	if !pin.level || !led.IsOn() {
		t.Fatal("LED not on")
	}
	writes := pin.writes
	led.Update()
	if pin.writes != writes {
		t.Fatal("solid pattern rewrote the pin")
	}

	led.SetPattern(Off)
	led.Update()
	if pin.level {
		t.Fatal("LED not off")
	}
}

func TestFastFlashTiming(t *testing.T) {
	pin := &mockPin{}
	clk := &clock.Manual{}
	led := NewLED(pin, clk)
	led.SetPattern(FastFlash)

	clk.Advance(49 * time.Millisecond)
	led.Update()
	if pin.level {
		t.Fatal("toggled before 50ms")
	}
	clk.Advance(time.Millisecond)
	led.Update()
	if !pin.level {
		t.Fatal("not toggled at 50ms")
	}
	clk.Advance(50 * time.Millisecond)
	led.Update()
	if pin.level {
		t.Fatal("not toggled back at 100ms")
	}
}

func TestSelect(t *testing.T) {
	var in state.InputSnapshot
	cases := []struct {
		name          string
		phase         state.FailsafePhase
		rxLoss        bool
		armed, active bool
		want          Pattern
	}{
		{"no receiver", state.FailsafeIdle, false, false, false, SlowFlash},
		{"waiting", state.FailsafeIdle, false, false, true, Alternate},
		{"flying", state.FailsafeIdle, false, true, true, On},
		{"signal dropping", state.FailsafeIdle, true, true, true, Flash},
		{"failsafe", state.FailsafeLanded, true, false, true, FastFlash},
	}
	for _, c := range cases {
		in.Failsafe = c.phase
		in.RxLoss = c.rxLoss
		if got := Select(&in, c.armed, c.active); got != c.want {
			t.Errorf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}
