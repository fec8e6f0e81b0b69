package rx

import (
	"time"

	"tinygo.org/x/drivers"

	"github.com/BryanSouza91/flightcore/internal/clock"
	"github.com/BryanSouza91/flightcore/internal/state"
)

// Decoder turns a serial byte stream into frames. Implementations own the
// wire format; channel values must come out in microseconds.
type Decoder interface {
	// Feed consumes one byte and reports whether it completed a frame.
	Feed(b byte) bool
	// Channels copies the last complete frame into dst and returns the
	// channel count.
	Channels(dst []uint16) int
	// FailsafeActive reports the receiver's own failsafe flag for the last
	// complete frame.
	FailsafeActive() bool
}

// maxReadsPerPoll bounds the bytes consumed per Update so a flooded port
// cannot stall the control tick.
const maxReadsPerPoll = 4

// Serial drains a UART into a Decoder without blocking.
type Serial struct {
	uart drivers.UART
	dec  Decoder
	buf  [64]byte

	channels [state.MaxChannels]uint16
	count    int
	failsafe bool
}

func NewSerial(uart drivers.UART, dec Decoder) *Serial {
	return &Serial{uart: uart, dec: dec}
}

// Poll reads whatever is buffered and reports whether at least one frame
// completed. With several frames in the buffer the last one wins.
func (s *Serial) Poll() bool {
	got := false
	for i := 0; i < maxReadsPerPoll && s.uart.Buffered() > 0; i++ {
		n, err := s.uart.Read(s.buf[:])
		for _, b := range s.buf[:n] {
			if s.dec.Feed(b) {
				s.count = s.dec.Channels(s.channels[:])
				s.failsafe = s.dec.FailsafeActive()
				got = true
			}
		}
		if err != nil || n == 0 {
			break
		}
	}
	return got
}

// serialDevice is the Device shared by the UART receivers.
type serialDevice struct {
	serial *Serial
	link   link
	count  int
}

func newSerialDevice(uart drivers.UART, dec Decoder, clk clock.Clock, count int, timeout time.Duration) serialDevice {
	return serialDevice{
		serial: NewSerial(uart, dec),
		link:   link{clk: clk, timeout: timeout.Microseconds()},
		count:  count,
	}
}

func (d *serialDevice) Update() Status {
	if d.serial.Poll() {
		return d.link.frame(d.serial.failsafe)
	}
	return d.link.silence()
}

func (d *serialDevice) Get(dst []uint16, n int) {
	copyChannels(dst, d.serial.channels[:d.count], n)
}

func (d *serialDevice) NeedAverage() bool { return false }

func (d *serialDevice) ChannelCount() int { return d.count }

const (
	SbusChannels = 16
	CrsfChannels = 16

	sbusTimeout = 50 * time.Millisecond
	crsfTimeout = 50 * time.Millisecond
)

// Sbus is an SBUS receiver on a UART.
type Sbus struct {
	serialDevice
}

func NewSbus(uart drivers.UART, dec Decoder, clk clock.Clock) *Sbus {
	return &Sbus{newSerialDevice(uart, dec, clk, SbusChannels, sbusTimeout)}
}

// Crsf is a CRSF / ExpressLRS receiver on a UART.
type Crsf struct {
	serialDevice
}

func NewCrsf(uart drivers.UART, dec Decoder, clk clock.Clock) *Crsf {
	return &Crsf{newSerialDevice(uart, dec, clk, CrsfChannels, crsfTimeout)}
}

var (
	_ Device = (*Sbus)(nil)
	_ Device = (*Crsf)(nil)
)
