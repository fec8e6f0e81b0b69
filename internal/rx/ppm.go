package rx

import (
	"time"

	"github.com/BryanSouza91/flightcore/internal/clock"
	"github.com/BryanSouza91/flightcore/internal/state"
)

const (
	PpmChannels = 8
	ppmTimeout  = 60 * time.Millisecond
)

// Ppm is a pulse-position receiver. Pulse capture runs elsewhere and
// delivers complete frames through a Mailbox.
type Ppm struct {
	mb       *Mailbox
	link     link
	channels [state.MaxChannels]uint16
}

func NewPpm(mb *Mailbox, clk clock.Clock) *Ppm {
	return &Ppm{
		mb:   mb,
		link: link{clk: clk, timeout: ppmTimeout.Microseconds()},
	}
}

func (p *Ppm) Update() Status {
	if _, failsafe, ok := p.mb.Take(&p.channels); ok {
		return p.link.frame(failsafe)
	}
	return p.link.silence()
}

func (p *Ppm) Get(dst []uint16, n int) {
	copyChannels(dst, p.channels[:PpmChannels], n)
}

// NeedAverage is true: captured pulse widths jitter by a few microseconds.
func (p *Ppm) NeedAverage() bool { return true }

func (p *Ppm) ChannelCount() int { return PpmChannels }

var _ Device = (*Ppm)(nil)
