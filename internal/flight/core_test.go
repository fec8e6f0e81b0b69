package flight

import (
	"context"
	"testing"
	"time"

	"github.com/BryanSouza91/flightcore/internal/arming"
	"github.com/BryanSouza91/flightcore/internal/clock"
	"github.com/BryanSouza91/flightcore/internal/config"
	"github.com/BryanSouza91/flightcore/internal/event"
	"github.com/BryanSouza91/flightcore/internal/rx"
	"github.com/BryanSouza91/flightcore/internal/state"
)

type bench struct {
	clk    *clock.Manual
	mb     *rx.Mailbox
	queue  *event.Queue
	core   *Core
	sticks []uint16
}

func newBench(t *testing.T) *bench {
	t.Helper()
	cfg := config.Default()
	cfg.Receiver.Provider = config.ProviderPpm
	b := &bench{
		clk:    &clock.Manual{},
		mb:     rx.NewMailbox(),
		queue:  event.NewQueue(64),
		sticks: []uint16{1500, 1500, 1000, 1500, 1000, 1000, 1500, 1500},
	}
	dev, err := rx.Select(cfg.Receiver.Provider, rx.Ports{PPM: b.mb}, b.clk)
	if err != nil {
		t.Fatal(err)
	}
	b.core = New(cfg, Options{Device: dev, Sink: b.queue, Clock: b.clk})
	b.core.Begin()
	return b
}

// run ticks at 1kHz for d, delivering a frame every 20ms when send is set.
func (b *bench) run(d time.Duration, send bool) {
	for i := 0; i < int(d/time.Millisecond); i++ {
		b.clk.Advance(time.Millisecond)
		if send && b.clk.Micros()%20000 == 0 {
			b.mb.Put(b.sticks, false)
		}
		b.core.Tick(state.Measurement{})
		for {
			if _, ok := b.queue.Receive(); !ok {
				break
			}
		}
	}
}

func TestTickRunsOneCycle(t *testing.T) {
	b := newBench(t)
	b.core.Tick(state.Measurement{})
	e, ok := b.queue.Receive()
	if !ok || e.Type != event.PidUpdated {
		t.Fatalf("event=%v ok=%v", e.Type, ok)
	}
	if b.queue.Len() != 0 {
		t.Fatalf("queue len=%d want 0", b.queue.Len())
	}
}

func TestInertWithoutReceiver(t *testing.T) {
	cfg := config.Default()
	core := New(cfg, Options{Clock: &clock.Manual{}})
	core.Begin()
	for i := 0; i < 10; i++ {
		core.Tick(state.Measurement{})
	}
	in := core.State().Input
	if in.Us[state.Roll] != 1500 || in.Us[state.Thrust] != 1000 || in.Failsafe != state.FailsafeIdle {
		t.Fatalf("roll=%v thr=%v phase=%v", in.Us[state.Roll], in.Us[state.Thrust], in.Failsafe)
	}
	if core.Authority().IsArmed() {
		t.Fatal("armed without a receiver")
	}
}

func TestArmFlyAndFailsafe(t *testing.T) {
	b := newBench(t)
	model, ok := b.core.Authority().(*arming.Model)
	if !ok {
		t.Fatalf("authority is %T", b.core.Authority())
	}

	// switch off first, then on
	b.run(200*time.Millisecond, true)
	if model.IsArmed() {
		t.Fatal("armed with switch off")
	}
	b.sticks[4] = 1800
	b.run(100*time.Millisecond, true)
	if !model.IsArmed() {
		t.Fatal("not armed after switch on")
	}

	b.sticks[state.Roll] = 1700
	b.run(300*time.Millisecond, true)
	fs := b.core.State()
	if fs.Axis.DesiredRate[state.Roll] <= 0 {
		t.Fatalf("desired roll rate=%v", fs.Axis.DesiredRate[state.Roll])
	}
	if fs.Command.Output[state.Roll] <= 0 {
		t.Fatalf("roll output=%v", fs.Command.Output[state.Roll])
	}

	// link goes silent: default delay is 400ms
	b.run(150*time.Millisecond, false)
	if fs.Input.Failsafe != state.FailsafeRxLossDetected || !model.IsArmed() {
		t.Fatalf("phase=%v armed=%v", fs.Input.Failsafe, model.IsArmed())
	}
	if fs.Input.Us[state.Roll] != 1500 {
		t.Fatalf("roll=%v want neutral", fs.Input.Us[state.Roll])
	}
	b.run(300*time.Millisecond, false)
	if fs.Input.Failsafe != state.FailsafeLanded || model.IsArmed() {
		t.Fatalf("phase=%v armed=%v", fs.Input.Failsafe, model.IsArmed())
	}
	if model.LastDisarmReason() != arming.DisarmFailsafe {
		t.Fatalf("reason=%v", model.LastDisarmReason())
	}

	// link back with the switch still on: no re-arm until it is cycled
	b.run(200*time.Millisecond, true)
	if fs.Input.Failsafe != state.FailsafeIdle || model.IsArmed() {
		t.Fatalf("phase=%v armed=%v after recovery", fs.Input.Failsafe, model.IsArmed())
	}
}

type fixedSensor struct{ m state.Measurement }

func (s fixedSensor) Sample() state.Measurement { return s.m }

type recorder struct{ cmds []state.ActuatorCommand }

func (r *recorder) Apply(cmd state.ActuatorCommand) { r.cmds = append(r.cmds, cmd) }

func TestLoopStep(t *testing.T) {
	b := newBench(t)
	rec := &recorder{}
	meas := state.Measurement{Angle: [3]float64{0.1, 0.2, 0.3}}
	l := &Loop{Core: b.core, Interval: time.Millisecond, Sensor: fixedSensor{meas}, Actuator: rec}
	l.Step()
	l.Step()
	if len(rec.cmds) != 2 {
		t.Fatalf("applied %d commands", len(rec.cmds))
	}
	if b.core.State().Measurement != meas {
		t.Fatalf("measurement=%v", b.core.State().Measurement)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	b := newBench(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &Loop{Core: b.core, Interval: time.Millisecond}
	if err := l.Run(ctx); err != context.Canceled {
		t.Fatalf("err=%v", err)
	}
}
