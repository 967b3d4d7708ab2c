package led

import "errors"

// Palette is a fixed, ordered, non-empty list of colors. Indices wrap around,
// so a palette can be walked forever.
type Palette []RGBColor

// DefaultPalette is the rainbow cycled through by default.
var DefaultPalette = Palette{
	FromUint32(0x00FF00), // green
	FromUint32(0xFF0000), // red
	FromUint32(0xFF7F00), // orange
	FromUint32(0xFFFF00), // yellow
	FromUint32(0x9400D3), // violet
	FromUint32(0x0000FF), // blue
	FromUint32(0x4B0082), // indigo
	FromUint32(0xFFFFFF), // white
}

// ErrEmptyPalette is returned when a palette has no colors.
var ErrEmptyPalette = errors.New("palette has no colors")

// NewPalette copies the given colors into a new palette.
func NewPalette(colors ...RGBColor) (Palette, error) {
	if len(colors) == 0 {
		return nil, ErrEmptyPalette
	}
	p := make(Palette, len(colors))
	copy(p, colors)
	return p, nil
}

// Len returns the number of colors in the palette.
func (p Palette) Len() int {
	return len(p)
}

// At returns the color at index i modulo the palette length. Negative indices
// count from the end.
func (p Palette) At(i int) RGBColor {
	return p[p.wrap(i)]
}

// Next returns the index following i, wrapping to 0 after the last color.
func (p Palette) Next(i int) int {
	return p.wrap(i + 1)
}

func (p Palette) wrap(i int) int {
	i %= len(p)
	if i < 0 {
		i += len(p)
	}
	return i
}
