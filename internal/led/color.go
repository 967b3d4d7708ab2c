// Package led contains the color model for the pixel: packed RGB colors,
// linear interpolation between them, palettes and frame buffers.
package led

import (
	"encoding"
	"fmt"
	"strconv"
	"strings"
)

// RGBColor is a color with 8-bit red, green and blue channels, in that order.
// This is also the order the channels are sent on the wire.
type RGBColor [3]uint8

var (
	_ encoding.TextUnmarshaler = (*RGBColor)(nil)
	_ encoding.TextMarshaler   = (*RGBColor)(nil)
)

// Off is the zero color. Showing it turns the pixel off.
var Off = RGBColor{}

// Pack packs the given channels into a color.
func Pack(r, g, b uint8) RGBColor {
	return RGBColor{r, g, b}
}

// Unpack returns the red, green and blue channels of c.
func Unpack(c RGBColor) (r, g, b uint8) {
	return c[0], c[1], c[2]
}

// FromUint32 converts a packed 0xRRGGBB value into a color. Bits above the
// lower 24 are ignored.
func FromUint32(v uint32) RGBColor {
	return RGBColor{
		uint8(v >> 16 & 0xFF),
		uint8(v >> 8 & 0xFF),
		uint8(v & 0xFF),
	}
}

// Uint32 returns the color packed as 0xRRGGBB.
func (c RGBColor) Uint32() uint32 {
	return uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
}

// R returns the red channel.
func (c RGBColor) R() uint8 { return c[0] }

// G returns the green channel.
func (c RGBColor) G() uint8 { return c[1] }

// B returns the blue channel.
func (c RGBColor) B() uint8 { return c[2] }

// IsOff returns true if all channels are zero.
func (c RGBColor) IsOff() bool {
	return c == Off
}

// String returns the color as #rrggbb.
func (c RGBColor) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// MarshalText implements encoding.TextMarshaler.
func (c RGBColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts "#rrggbb",
// "0xrrggbb" and "rrggbb".
func (c *RGBColor) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor parses a color in one of the forms accepted by UnmarshalText.
func ParseColor(s string) (RGBColor, error) {
	hex := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(hex, "#"):
		hex = hex[1:]
	case strings.HasPrefix(hex, "0x"), strings.HasPrefix(hex, "0X"):
		hex = hex[2:]
	}

	if len(hex) != 6 {
		return RGBColor{}, fmt.Errorf("invalid color %q: want 6 hex digits", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGBColor{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return FromUint32(uint32(v)), nil
}

// Lerp linearly interpolates between c1 and c2. Each channel is computed as
// c1 + t*(c2-c1) and truncated toward zero. t is clamped to [0, 1]; the
// boundaries return c1 and c2 exactly.
func Lerp(c1, c2 RGBColor, t float64) RGBColor {
	switch {
	case t <= 0:
		return c1
	case t >= 1:
		return c2
	}

	var out RGBColor
	for i := range out {
		from := float64(c1[i])
		to := float64(c2[i])
		out[i] = uint8(from + t*(to-from))
	}
	return out
}
