// Package config holds the read-only configuration of the control core and
// loads it from YAML.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/BryanSouza91/flightcore/internal/filter"
	"github.com/BryanSouza91/flightcore/internal/state"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config is the root of the configuration tree.
type Config struct {
	LoopRate  int            `yaml:"loop_rate"` // Hz
	DebugMode DebugMode      `yaml:"debug_mode"`
	Receiver  ReceiverConfig `yaml:"receiver"`
	Input     InputConfig    `yaml:"input"`
	Failsafe  FailsafeConfig `yaml:"failsafe"`
	Control   ControlConfig  `yaml:"control"`
	PID       PIDConfig      `yaml:"pid"`
	Rates     RatesConfig    `yaml:"rates"`
	Modes     []ModeRange    `yaml:"modes"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Logging   LoggingConfig  `yaml:"logging"`
}

type ReceiverConfig struct {
	Provider Provider `yaml:"provider"`
}

// ChannelConfig is the per-channel input configuration.
type ChannelConfig struct {
	Min           int16        `yaml:"min"`
	Mid           int16        `yaml:"mid"`
	Max           int16        `yaml:"max"`
	Deadband      int16        `yaml:"deadband"`
	FailsafeMode  FailsafeMode `yaml:"failsafe_mode"`
	FailsafeValue int16        `yaml:"failsafe_value"`
	// Map is the device channel feeding this channel; derived from
	// InputConfig.ChannelMap.
	Map int `yaml:"-"`
}

type FilterConfig struct {
	Type FilterType `yaml:"type"`
	Freq float64    `yaml:"freq"` // Hz, 0 = follow the receiver frame rate
}

// Filter converts to the filter package form.
func (f FilterConfig) Filter() filter.Config {
	return filter.Config{Type: filter.Type(f.Type), Freq: f.Freq}
}

type InputConfig struct {
	// ChannelMap assigns device channels: the position of each letter in
	// the string is the device channel for that function (A roll,
	// E pitch, R yaw, T throttle, 1..8 aux).
	ChannelMap            string            `yaml:"channel_map"`
	Channels              []ChannelConfig   `yaml:"channels"`
	MinRc                 int16             `yaml:"min_rc"`
	MaxRc                 int16             `yaml:"max_rc"`
	MinCheck              int16             `yaml:"min_check"`
	InterpolationMode     InterpolationMode `yaml:"interpolation_mode"`
	InterpolationInterval int               `yaml:"interpolation_interval"` // ms
	FilterType            InputFilterType   `yaml:"filter_type"`
	Filter                FilterConfig      `yaml:"filter"`
	FilterDerivative      FilterConfig      `yaml:"filter_derivative"`
	FilterAutoFactor      int               `yaml:"filter_auto_factor"`
}

type FailsafeConfig struct {
	// Delay is the stage-2 delay in tenths of a second, clamped to 1..200.
	Delay int `yaml:"delay"`
}

type ControlConfig struct {
	Mixer                Mixer   `yaml:"mixer"`
	AngleLimit           float64 `yaml:"angle_limit"`      // deg
	AngleRateLimit       float64 `yaml:"angle_rate_limit"` // deg/s
	TpaBreakpoint        int16   `yaml:"tpa_breakpoint"`   // us
	TpaScale             int     `yaml:"tpa_scale"`        // percent
	LowThrottleZeroIterm bool    `yaml:"low_throttle_zero_iterm"`
}

type AxisPID struct {
	P       float64      `yaml:"p"`
	I       float64      `yaml:"i"`
	D       float64      `yaml:"d"`
	F       float64      `yaml:"f"`
	ILimit  float64      `yaml:"i_limit"`
	DFilter FilterConfig `yaml:"d_filter"`
}

// InnerPID holds the rate loop gains.
type InnerPID struct {
	Roll  AxisPID `yaml:"roll"`
	Pitch AxisPID `yaml:"pitch"`
	Yaw   AxisPID `yaml:"yaw"`
}

// Axis returns the gains for roll, pitch or yaw.
func (p InnerPID) Axis(a state.Axis) AxisPID {
	switch a {
	case state.Pitch:
		return p.Pitch
	case state.Yaw:
		return p.Yaw
	}
	return p.Roll
}

// OuterPID holds the angle loop gains.
type OuterPID struct {
	Roll  AxisPID `yaml:"roll"`
	Pitch AxisPID `yaml:"pitch"`
}

// Axis returns the gains for roll or pitch.
func (p OuterPID) Axis(a state.Axis) AxisPID {
	if a == state.Pitch {
		return p.Pitch
	}
	return p.Roll
}

type PIDConfig struct {
	Inner       InnerPID `yaml:"inner"`
	Outer       OuterPID `yaml:"outer"`
	OutputLimit float64  `yaml:"output_limit"`
}

type RateAxis struct {
	RcRate    float64 `yaml:"rc_rate"`
	SuperRate float64 `yaml:"super_rate"`
	Expo      float64 `yaml:"expo"`
	Limit     float64 `yaml:"limit"`
}

type RatesConfig struct {
	Roll  RateAxis `yaml:"roll"`
	Pitch RateAxis `yaml:"pitch"`
	Yaw   RateAxis `yaml:"yaw"`
}

// ModeRange activates Mode while Channel is within [Min, Max] microseconds.
type ModeRange struct {
	Mode    Mode  `yaml:"mode"`
	Channel int   `yaml:"channel"` // aux index, 0 = first aux channel
	Min     int16 `yaml:"min"`
	Max     int16 `yaml:"max"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultChannelMap is aileron, elevator, throttle, rudder, then aux.
const DefaultChannelMap = "AETR1234"

const channelLetters = "AERT12345678"

// Default returns a flyable configuration.
func Default() *Config {
	c := &Config{
		LoopRate:  1000,
		DebugMode: DebugMode(state.DebugNone),
		Receiver:  ReceiverConfig{Provider: ProviderNone},
		Input: InputConfig{
			ChannelMap:            DefaultChannelMap,
			MinRc:                 885,
			MaxRc:                 2115,
			MinCheck:              1050,
			InterpolationMode:     InterpolationAuto,
			InterpolationInterval: 26,
			FilterType:            InputInterpolation,
			Filter:                FilterConfig{Type: FilterType(filter.PT1), Freq: 0},
			FilterDerivative:      FilterConfig{Type: FilterType(filter.PT1), Freq: 0},
			FilterAutoFactor:      50,
		},
		Failsafe: FailsafeConfig{Delay: 4},
		Control: ControlConfig{
			Mixer:                MixerQuad,
			AngleLimit:           55,
			AngleRateLimit:       300,
			TpaBreakpoint:        1650,
			TpaScale:             10,
			LowThrottleZeroIterm: true,
		},
		PID: PIDConfig{
			Inner: InnerPID{
				Roll:  AxisPID{P: 0.042, I: 0.35, D: 0.0008, F: 0.0009, ILimit: 0.3, DFilter: FilterConfig{Type: FilterType(filter.PT1), Freq: 100}},
				Pitch: AxisPID{P: 0.046, I: 0.40, D: 0.0009, F: 0.0010, ILimit: 0.3, DFilter: FilterConfig{Type: FilterType(filter.PT1), Freq: 100}},
				Yaw:   AxisPID{P: 0.045, I: 0.35, F: 0.0009, ILimit: 0.3},
			},
			Outer: OuterPID{
				Roll:  AxisPID{P: 4.5, ILimit: 0.5},
				Pitch: AxisPID{P: 4.5, ILimit: 0.5},
			},
			OutputLimit: 0.66,
		},
		Rates: RatesConfig{
			Roll:  RateAxis{RcRate: 100, SuperRate: 70, Limit: 1998},
			Pitch: RateAxis{RcRate: 100, SuperRate: 70, Limit: 1998},
			Yaw:   RateAxis{RcRate: 100, SuperRate: 70, Limit: 1998},
		},
		Modes: []ModeRange{
			{Mode: ModeArm, Channel: 0, Min: 1700, Max: 2100},
			{Mode: ModeAngle, Channel: 1, Min: 1700, Max: 2100},
		},
		Metrics: MetricsConfig{Enabled: false, Listen: ":9110"},
		Logging: LoggingConfig{Level: "info"},
	}
	c.Input.Channels = make([]ChannelConfig, state.MaxChannels)
	for i := range c.Input.Channels {
		c.Input.Channels[i] = DefaultChannel(i)
	}
	c.normalize()
	return c
}

// DefaultChannel returns the default configuration of channel i.
func DefaultChannel(i int) ChannelConfig {
	ch := ChannelConfig{
		Min:          state.PwmMin,
		Mid:          state.PwmMid,
		Max:          state.PwmMax,
		FailsafeMode: FailsafeHold,
		Map:          i,
	}
	if state.IsAxis(i) {
		ch.FailsafeMode = FailsafeAuto
	}
	if state.IsStick(i) {
		ch.Deadband = 3
	}
	return ch
}

// Load reads a YAML file over the defaults and validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// normalize fills channel gaps with defaults and derives the channel map.
func (c *Config) normalize() {
	for i := range c.Input.Channels {
		ch := &c.Input.Channels[i]
		def := DefaultChannel(i)
		if ch.Min == 0 {
			ch.Min = def.Min
		}
		if ch.Mid == 0 {
			ch.Mid = def.Mid
		}
		if ch.Max == 0 {
			ch.Max = def.Max
		}
	}
	for i := len(c.Input.Channels); i < state.MaxChannels; i++ {
		c.Input.Channels = append(c.Input.Channels, DefaultChannel(i))
	}

	if m, err := ParseChannelMap(c.Input.ChannelMap); err == nil {
		for i := range c.Input.Channels {
			c.Input.Channels[i].Map = m[i]
		}
	}
}

// ParseChannelMap converts a map string into the device channel index for
// each internal channel. Channels not named in the string map to themselves.
func ParseChannelMap(s string) ([state.MaxChannels]int, error) {
	var m [state.MaxChannels]int
	for i := range m {
		m[i] = i
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) > len(channelLetters) {
		return m, errors.Wrapf(ErrInvalid, "channel_map %q longer than %d", s, len(channelLetters))
	}
	seen := map[rune]bool{}
	for pos, r := range s {
		idx := strings.IndexRune(channelLetters, r)
		if idx < 0 {
			return m, errors.Wrapf(ErrInvalid, "channel_map %q: unknown function %q", s, r)
		}
		if seen[r] {
			return m, errors.Wrapf(ErrInvalid, "channel_map %q: %q repeated", s, r)
		}
		seen[r] = true
		m[letterChannel(idx)] = pos
	}
	return m, nil
}

// letterChannel converts an index into channelLetters (AERT1..8) to the
// internal channel order (roll, pitch, yaw, thrust, aux...).
func letterChannel(idx int) int {
	switch idx {
	case 0:
		return int(state.Roll)
	case 1:
		return int(state.Pitch)
	case 2:
		return int(state.Yaw)
	case 3:
		return int(state.Thrust)
	}
	return idx
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.LoopRate <= 0 {
		return errors.Wrapf(ErrInvalid, "loop_rate %d must be positive", c.LoopRate)
	}
	if _, err := ParseChannelMap(c.Input.ChannelMap); err != nil {
		return err
	}
	if len(c.Input.Channels) > state.MaxChannels {
		return errors.Wrapf(ErrInvalid, "%d channels configured, at most %d supported", len(c.Input.Channels), state.MaxChannels)
	}
	for i, ch := range c.Input.Channels {
		if !(ch.Min < ch.Mid && ch.Mid < ch.Max) {
			return errors.Wrapf(ErrInvalid, "channel %d: want min < mid < max, got %d/%d/%d", i, ch.Min, ch.Mid, ch.Max)
		}
		if ch.Deadband < 0 {
			return errors.Wrapf(ErrInvalid, "channel %d: negative deadband", i)
		}
	}
	if c.Input.MinRc >= c.Input.MaxRc {
		return errors.Wrapf(ErrInvalid, "min_rc %d must be below max_rc %d", c.Input.MinRc, c.Input.MaxRc)
	}
	if c.Input.InterpolationMode == InterpolationManual && c.Input.InterpolationInterval <= 0 {
		return errors.Wrap(ErrInvalid, "manual interpolation needs a positive interpolation_interval")
	}
	if c.Control.TpaScale < 0 || c.Control.TpaScale > 100 {
		return errors.Wrapf(ErrInvalid, "tpa_scale %d outside 0..100", c.Control.TpaScale)
	}
	if c.Control.AngleLimit <= 0 {
		return errors.Wrapf(ErrInvalid, "angle_limit %v must be positive", c.Control.AngleLimit)
	}
	for i, m := range c.Modes {
		if m.Channel < 0 || m.Channel+int(state.Thrust)+1 >= state.MaxChannels {
			return errors.Wrapf(ErrInvalid, "modes[%d]: aux channel %d out of range", i, m.Channel)
		}
		if m.Min > m.Max {
			return errors.Wrapf(ErrInvalid, "modes[%d]: min %d above max %d", i, m.Min, m.Max)
		}
	}
	return nil
}

// LoopInterval returns the control period in seconds.
func (c *Config) LoopInterval() float64 {
	return 1 / float64(c.LoopRate)
}

// Debug returns the diagnostic mode.
func (c *Config) Debug() state.DebugMode {
	return state.DebugMode(c.DebugMode)
}
