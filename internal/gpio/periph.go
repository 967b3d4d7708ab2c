package gpio

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// periphPollTimeout bounds each WaitForEdge call so cancellation is noticed.
const periphPollTimeout = 100 * time.Millisecond

// Periph is a Source reading a periph.io input pin.
type Periph struct {
	pin gpio.PinIn
}

// NewPeriph wraps an already registered pin.
func NewPeriph(pin gpio.PinIn) *Periph {
	return &Periph{pin: pin}
}

// OpenPeriph initializes the host drivers and looks up the pin by name.
func OpenPeriph(name string) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize periph host")
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.Errorf("no GPIO pin named %q", name)
	}

	return NewPeriph(pin), nil
}

// Watch configures the pin as a pulled-up input with falling edge detection
// and calls onEdge for every edge.
func (p *Periph) Watch(ctx context.Context, onEdge func()) error {
	if err := p.pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return errors.Wrapf(err, "failed to configure %s", p.pin)
	}
	defer p.pin.In(gpio.PullUp, gpio.NoEdge)

	for ctx.Err() == nil {
		if p.pin.WaitForEdge(periphPollTimeout) {
			onEdge()
		}
	}

	return ctx.Err()
}
