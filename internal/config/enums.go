package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/BryanSouza91/flightcore/internal/filter"
	"github.com/BryanSouza91/flightcore/internal/state"
)

// enum decodes a YAML scalar into one of names; the index is the value.
func enum(node *yaml.Node, names []string, what string) (int, error) {
	var s string
	if err := node.Decode(&s); err != nil {
		return 0, errors.Wrapf(err, "%s", what)
	}
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalid, "line %d: unknown %s %q", node.Line, what, s)
}

// FailsafeMode selects the substitute for an out-of-range channel.
type FailsafeMode int

const (
	FailsafeAuto FailsafeMode = iota
	FailsafeHold
	FailsafeSet
	FailsafeInvalid
)

var failsafeModeNames = []string{"auto", "hold", "set", "invalid"}

func (m FailsafeMode) String() string { return name(failsafeModeNames, int(m)) }

func (m *FailsafeMode) UnmarshalYAML(node *yaml.Node) error {
	v, err := enum(node, failsafeModeNames, "failsafe_mode")
	*m = FailsafeMode(v)
	return err
}

// InterpolationMode selects how the interpolation interval is derived.
type InterpolationMode int

const (
	InterpolationOff InterpolationMode = iota
	InterpolationDefault
	InterpolationAuto
	InterpolationManual
)

var interpolationModeNames = []string{"off", "default", "auto", "manual"}

func (m InterpolationMode) String() string { return name(interpolationModeNames, int(m)) }

func (m *InterpolationMode) UnmarshalYAML(node *yaml.Node) error {
	v, err := enum(node, interpolationModeNames, "interpolation_mode")
	*m = InterpolationMode(v)
	return err
}

// InputFilterType selects interpolation or plain filtering of axis channels.
type InputFilterType int

const (
	InputInterpolation InputFilterType = iota
	InputFilter
)

var inputFilterTypeNames = []string{"interpolation", "filter"}

func (t InputFilterType) String() string { return name(inputFilterTypeNames, int(t)) }

func (t *InputFilterType) UnmarshalYAML(node *yaml.Node) error {
	v, err := enum(node, inputFilterTypeNames, "filter_type")
	*t = InputFilterType(v)
	return err
}

// Mixer selects the control topology.
type Mixer int

const (
	MixerQuad Mixer = iota
	MixerGimbal
)

var mixerNames = []string{"quad", "gimbal"}

func (m Mixer) String() string { return name(mixerNames, int(m)) }

func (m *Mixer) UnmarshalYAML(node *yaml.Node) error {
	v, err := enum(node, mixerNames, "mixer")
	*m = Mixer(v)
	return err
}

// Provider selects the receiver device.
type Provider int

const (
	ProviderNone Provider = iota
	ProviderPpm
	ProviderSbus
	ProviderCrsf
)

var providerNames = []string{"none", "ppm", "sbus", "crsf"}

func (p Provider) String() string { return name(providerNames, int(p)) }

// ParseProvider looks up a provider by its config name.
func ParseProvider(s string) (Provider, error) {
	for i, n := range providerNames {
		if n == s {
			return Provider(i), nil
		}
	}
	return ProviderNone, errors.Wrapf(ErrInvalid, "unknown receiver provider %q", s)
}

func (p *Provider) UnmarshalYAML(node *yaml.Node) error {
	v, err := enum(node, providerNames, "provider")
	*p = Provider(v)
	return err
}

// Mode is a flight mode that can be bound to an AUX channel range.
type Mode int

const (
	ModeArm Mode = iota
	ModeAngle
	ModeAirmode
	ModeFailsafe
	ModeCount
)

var modeNames = []string{"arm", "angle", "airmode", "failsafe"}

func (m Mode) String() string { return name(modeNames, int(m)) }

func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	v, err := enum(node, modeNames, "mode")
	*m = Mode(v)
	return err
}

// FilterType wraps filter.Type for YAML.
type FilterType filter.Type

func (t *FilterType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return errors.Wrap(err, "filter type")
	}
	ft, ok := filter.ParseType(s)
	if !ok {
		return errors.Wrapf(ErrInvalid, "line %d: unknown filter type %q", node.Line, s)
	}
	*t = FilterType(ft)
	return nil
}

// DebugMode wraps state.DebugMode for YAML.
type DebugMode state.DebugMode

func (m *DebugMode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return errors.Wrap(err, "debug_mode")
	}
	dm, ok := state.ParseDebugMode(s)
	if !ok {
		return errors.Wrapf(ErrInvalid, "line %d: unknown debug_mode %q", node.Line, s)
	}
	*m = DebugMode(dm)
	return nil
}

func name(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}
