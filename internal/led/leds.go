package led

import "unsafe"

// LEDs is a frame buffer of colors, laid out as sent in a SetPacket. The
// daemon drives a single pixel, so it is usually of length 1.
type LEDs []RGBColor

// NewLEDs creates a frame buffer of n LEDs, all off.
func NewLEDs(n int) LEDs {
	return make(LEDs, n)
}

// AsPixels returns the buffer as 3 bytes per LED. The returned slice aliases
// the buffer.
func (l LEDs) AsPixels() []uint8 {
	if len(l) == 0 {
		return nil
	}
	return unsafe.Slice((*uint8)(unsafe.Pointer(&l[0])), 3*len(l))
}

// Set sets the color of the LED at index i.
func (l LEDs) Set(i int, c RGBColor) {
	l[i] = c
}
