// Package mode defines the visual modes of the pixel and the cell that shares
// the current mode between the button handler and the render loop.
package mode

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Mode is a visual mode.
type Mode uint32

const (
	// Steady renders nothing and leaves the pixel as it is.
	Steady Mode = iota
	// Rainbow fades through the palette.
	Rainbow
	// Blinking alternates between off and the persisted toggle color.
	Blinking

	numModes
)

// Modes lists all modes in cycling order.
var Modes = []Mode{Steady, Rainbow, Blinking}

// Valid returns true if m is one of the defined modes.
func (m Mode) Valid() bool {
	return m < numModes
}

// Next returns the mode after m: Steady, Rainbow, Blinking, then Steady again.
func (m Mode) Next() Mode {
	return (m + 1) % numModes
}

func (m Mode) String() string {
	switch m {
	case Steady:
		return "steady"
	case Rainbow:
		return "rainbow"
	case Blinking:
		return "blinking"
	default:
		return fmt.Sprintf("Mode(%d)", uint32(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", uint32(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Parse parses a mode name as returned by String.
func Parse(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Cell holds the current mode. It is a single machine word updated
// atomically, so readers never observe a value that was not written as a
// whole. The button handler is its only writer and the render loop its only
// reader, but any number of either is safe.
type Cell struct {
	v atomic.Uint32
}

// NewCell returns a cell holding m.
func NewCell(m Mode) *Cell {
	c := &Cell{}
	c.Store(m)
	return c
}

// Load returns the current mode.
func (c *Cell) Load() Mode {
	return Mode(c.v.Load())
}

// Store replaces the current mode. It panics if m is not a defined mode.
func (c *Cell) Store(m Mode) {
	if !m.Valid() {
		panic(fmt.Sprintf("mode: storing invalid mode %d", uint32(m)))
	}
	c.v.Store(uint32(m))
}

// Advance moves the cell to the next mode and returns it.
func (c *Cell) Advance() Mode {
	for {
		old := c.v.Load()
		next := Mode(old).Next()
		if c.v.CompareAndSwap(old, uint32(next)) {
			return next
		}
	}
}
