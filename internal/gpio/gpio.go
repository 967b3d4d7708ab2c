// Package gpio provides button edge sources: physical GPIO pins through
// periph.io or go-rpio, and software sources for development and tests.
package gpio

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Source delivers falling edges of a pulled-up input. Watch calls onEdge
// serially from one goroutine and returns when ctx is canceled or the source
// fails.
type Source interface {
	Watch(ctx context.Context, onEdge func()) error
}

// Driver names a Source implementation.
type Driver string

const (
	// DriverPeriph reads the pin through periph.io.
	DriverPeriph Driver = "periph"
	// DriverRPIO reads the pin through go-rpio's memory-mapped registers.
	DriverRPIO Driver = "rpio"
	// DriverStdin treats every line read from stdin as a press.
	DriverStdin Driver = "stdin"
	// DriverNone never delivers an edge.
	DriverNone Driver = "none"
)

// Drivers lists all known drivers.
var Drivers = []Driver{DriverPeriph, DriverRPIO, DriverStdin, DriverNone}

// Valid returns true if d is a known driver.
func (d Driver) Valid() bool {
	for _, known := range Drivers {
		if d == known {
			return true
		}
	}
	return false
}

// Open opens the source for driver. pin is the pin name for periph (for
// example "GPIO17") or the BCM number for rpio; stdin is read by the stdin
// driver.
func Open(driver Driver, pin string, stdin io.Reader) (Source, error) {
	switch driver {
	case DriverPeriph:
		return OpenPeriph(pin)
	case DriverRPIO:
		n, err := ParseBCM(pin)
		if err != nil {
			return nil, err
		}
		return NewRPIO(n), nil
	case DriverStdin:
		return NewLines(stdin), nil
	case DriverNone:
		return Never{}, nil
	default:
		return nil, fmt.Errorf("unknown button driver %q", driver)
	}
}

// ParseBCM parses a BCM pin number, with or without a "GPIO" prefix.
func ParseBCM(pin string) (int, error) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(pin)), "GPIO")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 53 {
		return 0, fmt.Errorf("invalid BCM pin %q", pin)
	}
	return n, nil
}

// Never is a source without a button.
type Never struct{}

// Watch blocks until ctx is canceled.
func (Never) Watch(ctx context.Context, onEdge func()) error {
	<-ctx.Done()
	return ctx.Err()
}
