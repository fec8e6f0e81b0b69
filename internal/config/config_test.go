package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/BryanSouza91/flightcore/internal/filter"
	"github.com/BryanSouza91/flightcore/internal/state"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(c.Input.Channels) != state.MaxChannels {
		t.Fatalf("channels=%d want %d", len(c.Input.Channels), state.MaxChannels)
	}
	if c.Input.Channels[int(state.Thrust)].FailsafeMode != FailsafeAuto {
		t.Fatal("throttle failsafe not auto")
	}
	if c.Input.Channels[5].FailsafeMode != FailsafeHold {
		t.Fatal("aux failsafe not hold")
	}
	if c.Input.Channels[int(state.Roll)].Deadband != 3 || c.Input.Channels[int(state.Thrust)].Deadband != 0 {
		t.Fatal("unexpected default deadband")
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	c, err := Parse([]byte(`
loop_rate: 500
debug_mode: rx_signal_loss
receiver:
  provider: ppm
input:
  interpolation_mode: manual
  interpolation_interval: 20
  filter:
    type: biquad
    freq: 30
failsafe:
  delay: 10
control:
  mixer: gimbal
pid:
  inner:
    yaw:
      p: 0.1
`))
	if err != nil {
		t.Fatal(err)
	}
	if c.LoopRate != 500 || c.Failsafe.Delay != 10 {
		t.Fatalf("loop_rate=%d delay=%d", c.LoopRate, c.Failsafe.Delay)
	}
	if c.Receiver.Provider != ProviderPpm || c.Control.Mixer != MixerGimbal {
		t.Fatalf("provider=%v mixer=%v", c.Receiver.Provider, c.Control.Mixer)
	}
	if c.Input.InterpolationMode != InterpolationManual || c.Input.InterpolationInterval != 20 {
		t.Fatalf("interpolation=%v/%d", c.Input.InterpolationMode, c.Input.InterpolationInterval)
	}
	if got := c.Input.Filter.Filter(); got.Type != filter.Biquad || got.Freq != 30 {
		t.Fatalf("filter=%+v", got)
	}
	if c.Debug() != state.DebugRxSignalLoss {
		t.Fatalf("debug=%v", c.Debug())
	}
	if c.PID.Inner.Yaw.P != 0.1 {
		t.Fatalf("yaw p=%v want 0.1", c.PID.Inner.Yaw.P)
	}
	if c.PID.Inner.Roll.P != Default().PID.Inner.Roll.P {
		t.Fatal("roll gains lost their defaults")
	}
	if c.Input.MinRc != 885 || c.Input.MaxRc != 2115 {
		t.Fatalf("rc bounds=%d/%d", c.Input.MinRc, c.Input.MaxRc)
	}
}

func TestParseShortChannelList(t *testing.T) {
	c, err := Parse([]byte(`
input:
  channels:
    - {min: 1100, mid: 1520, max: 1900, deadband: 10}
    - {deadband: 5, failsafe_mode: set, failsafe_value: 1200}
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Input.Channels) != state.MaxChannels {
		t.Fatalf("channels=%d", len(c.Input.Channels))
	}
	ch := c.Input.Channels[0]
	if ch.Min != 1100 || ch.Mid != 1520 || ch.Max != 1900 || ch.Deadband != 10 {
		t.Fatalf("ch0=%+v", ch)
	}
	ch = c.Input.Channels[1]
	if ch.Min != 1000 || ch.Mid != 1500 || ch.Max != 2000 {
		t.Fatalf("ch1 range not defaulted: %+v", ch)
	}
	if ch.FailsafeMode != FailsafeSet || ch.FailsafeValue != 1200 {
		t.Fatalf("ch1 failsafe=%v/%d", ch.FailsafeMode, ch.FailsafeValue)
	}
	if c.Input.Channels[7].FailsafeMode != FailsafeHold {
		t.Fatal("appended channel not defaulted")
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	for _, doc := range []string{
		"loop_rate: 0",
		"receiver: {provider: ibus}",
		"input: {channels: [{min: 1600, mid: 1500, max: 2000}]}",
		"input: {min_rc: 2200}",
		"input: {channel_map: AAER}",
		"input: {interpolation_mode: manual, interpolation_interval: 0}",
		"control: {tpa_scale: 150}",
		"modes: [{mode: arm, channel: 20, min: 1000, max: 2000}]",
		"debug_mode: verbose",
	} {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrInvalid) {
			t.Errorf("%q: err=%v want ErrInvalid", doc, err)
		}
	}
}

func TestChannelMap(t *testing.T) {
	m, err := ParseChannelMap("TAER1234")
	if err != nil {
		t.Fatal(err)
	}
	// throttle on device channel 0, roll on 1, pitch on 2, yaw on 3
	want := map[state.Axis]int{state.Thrust: 0, state.Roll: 1, state.Pitch: 2, state.Yaw: 3}
	for axis, dev := range want {
		if m[axis] != dev {
			t.Errorf("%v mapped to %d want %d", axis, m[axis], dev)
		}
	}
	if m[4] != 4 || m[12] != 12 {
		t.Fatalf("aux map=%v", m)
	}

	m, _ = ParseChannelMap(DefaultChannelMap)
	// AETR: yaw is the fourth letter, throttle the third
	if m[state.Yaw] != 3 || m[state.Thrust] != 2 {
		t.Fatalf("AETR map=%v", m[:4])
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flightcore.yaml")
	if err := os.WriteFile(path, []byte("input:\n  channel_map: TAER1234\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Input.Channels[int(state.Thrust)].Map != 0 || c.Input.Channels[int(state.Roll)].Map != 1 {
		t.Fatalf("map not derived: %+v", c.Input.Channels[:4])
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("crsf")
	if err != nil || p != ProviderCrsf {
		t.Fatalf("got %v, %v", p, err)
	}
	if _, err := ParseProvider("ibus"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err=%v", err)
	}
}
