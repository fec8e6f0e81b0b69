package rx

import (
	"github.com/pkg/errors"
	"tinygo.org/x/drivers"

	"github.com/BryanSouza91/flightcore/internal/clock"
	"github.com/BryanSouza91/flightcore/internal/config"
)

// Ports are the hardware endpoints a device may be built on.
type Ports struct {
	// PPM receives frames from the pulse capture.
	PPM *Mailbox
	// UART and Decoder back the serial receivers.
	UART    drivers.UART
	Decoder Decoder
}

// Select builds the device for the configured provider. ProviderNone yields
// a nil device and no error: the conditioner stays inert.
func Select(provider config.Provider, ports Ports, clk clock.Clock) (Device, error) {
	switch provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderPpm:
		if ports.PPM == nil {
			return nil, errors.New("ppm receiver needs a capture mailbox")
		}
		return NewPpm(ports.PPM, clk), nil
	case config.ProviderSbus, config.ProviderCrsf:
		if ports.UART == nil {
			return nil, errors.Errorf("%s receiver needs a uart", provider)
		}
		if ports.Decoder == nil {
			return nil, errors.Errorf("%s receiver needs a decoder", provider)
		}
		if provider == config.ProviderSbus {
			return NewSbus(ports.UART, ports.Decoder, clk), nil
		}
		return NewCrsf(ports.UART, ports.Decoder, clk), nil
	}
	return nil, errors.Errorf("unknown receiver provider %d", provider)
}
