package render

import (
	"log/slog"
	"math"
	"time"

	"libdb.so/modeglow/internal/led"
)

// Frame is a color to show and how long to hold it before the next frame.
type Frame struct {
	Color led.RGBColor
	Hold  time.Duration
}

// Rainbow fades through a palette. Each sweep goes from the current palette
// color to the next one in a fixed number of steps; the last frame of a sweep
// is exactly the next color, which then becomes the current one.
//
// Rainbow keeps its position between calls, so a rainbow that was left
// resumes where it stopped.
type Rainbow struct {
	palette led.Palette
	steps   int
	delay   time.Duration
	logger  *slog.Logger

	cur    int
	k      int
	sweeps int
}

// NewRainbow creates a rainbow over palette. step is the interpolation step
// in (0, 1]; a sweep has round(1/step) frames, each held for delay.
func NewRainbow(palette led.Palette, step float64, delay time.Duration, logger *slog.Logger) *Rainbow {
	steps := int(math.Round(1 / step))
	if steps < 1 {
		steps = 1
	}
	return &Rainbow{
		palette: palette,
		steps:   steps,
		delay:   delay,
		logger:  logger,
	}
}

// Steps returns the number of frames in one sweep.
func (r *Rainbow) Steps() int {
	return r.steps
}

// Sweeps returns the number of completed sweeps.
func (r *Rainbow) Sweeps() int {
	return r.sweeps
}

// Next returns the next frame.
func (r *Rainbow) Next() Frame {
	next := r.palette.Next(r.cur)

	r.k++
	t := float64(r.k) / float64(r.steps)
	c := led.Lerp(r.palette.At(r.cur), r.palette.At(next), t)

	if r.k == r.steps {
		r.logger.Debug(
			"rainbow sweep done",
			"from", r.palette.At(r.cur),
			"to", r.palette.At(next))

		r.k = 0
		r.cur = next
		r.sweeps++
	}

	return Frame{Color: c, Hold: r.delay}
}

// Blink alternates between off and an on color, starting with off.
type Blink struct {
	on      led.RGBColor
	offHold time.Duration
	onHold  time.Duration
	lit     bool
}

// NewBlink creates a blink holding off for offHold and on for onHold.
func NewBlink(offHold, onHold time.Duration) *Blink {
	return &Blink{offHold: offHold, onHold: onHold}
}

// SetOn replaces the on color. The phase is kept.
func (b *Blink) SetOn(c led.RGBColor) {
	b.on = c
}

// Reset makes the next frame an off frame.
func (b *Blink) Reset() {
	b.lit = false
}

// Next returns the next frame.
func (b *Blink) Next() Frame {
	var f Frame
	if b.lit {
		f = Frame{Color: b.on, Hold: b.onHold}
	} else {
		f = Frame{Color: led.Off, Hold: b.offHold}
	}
	b.lit = !b.lit
	return f
}
