// Package sink implements the light output: something that can show a color
// on the pixel.
package sink

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"libdb.so/modeglow/internal/led"
)

// Sink shows colors on the pixel.
type Sink interface {
	// Show sets the pixel to c and returns once the frame was pushed out.
	Show(c led.RGBColor) error
	// Close releases the sink.
	Close() error
}

// Kind names a Sink implementation.
type Kind string

const (
	// KindSerial drives the pixel through the firmware over a serial port.
	KindSerial Kind = "serial"
	// KindTerminal draws the pixel on a terminal.
	KindTerminal Kind = "terminal"
	// KindNoop only remembers the last color.
	KindNoop Kind = "noop"
)

// Valid returns true if k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSerial, KindTerminal, KindNoop:
		return true
	default:
		return false
	}
}

// Terminal draws the pixel as a 24-bit ANSI colored block.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal creates a terminal sink writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Show redraws the block in place.
func (t *Terminal) Show(c led.RGBColor) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, g, b := led.Unpack(c)
	_, err := fmt.Fprintf(t.w, "\r\x1b[48;2;%d;%d;%dm      \x1b[0m %s", r, g, b, c)
	return err
}

// Close ends the line.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := io.WriteString(t.w, "\n")
	return err
}

// Noop discards colors, remembering the last one.
type Noop struct {
	logger *slog.Logger

	mu    sync.Mutex
	last  led.RGBColor
	shown int
}

// NewNoop creates a noop sink.
func NewNoop(logger *slog.Logger) *Noop {
	return &Noop{logger: logger}
}

// Show records c.
func (n *Noop) Show(c led.RGBColor) error {
	n.mu.Lock()
	n.last = c
	n.shown++
	n.mu.Unlock()

	n.logger.Debug("showing color", "color", c)
	return nil
}

// Last returns the last shown color and how many colors were shown.
func (n *Noop) Last() (led.RGBColor, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last, n.shown
}

// Close does nothing.
func (n *Noop) Close() error {
	return nil
}
