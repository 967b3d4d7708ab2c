package gpio

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

// rpioPollInterval is how often the event detect status register is read.
const rpioPollInterval = 5 * time.Millisecond

// RPIO is a Source reading a BCM2835-family pin through /dev/gpiomem.
type RPIO struct {
	pin rpio.Pin
}

// NewRPIO creates a source for the given BCM pin number.
func NewRPIO(bcm int) *RPIO {
	return &RPIO{pin: rpio.Pin(bcm)}
}

// Watch maps the GPIO registers, configures the pin as a pulled-up input
// with falling edge detection and polls the detect register.
func (r *RPIO) Watch(ctx context.Context, onEdge func()) error {
	if err := rpio.Open(); err != nil {
		return errors.Wrap(err, "failed to map GPIO registers")
	}
	defer rpio.Close()

	r.pin.Input()
	r.pin.PullUp()
	r.pin.Detect(rpio.FallEdge)
	defer r.pin.Detect(rpio.NoEdge)

	ticker := time.NewTicker(rpioPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.pin.EdgeDetected() {
				onEdge()
			}
		}
	}
}
