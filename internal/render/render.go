// Package render implements the render loop: the mode state machine that
// turns the current mode into frames on the pixel, and the manual toggle.
package render

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"libdb.so/modeglow/internal/events"
	"libdb.so/modeglow/internal/led"
	"libdb.so/modeglow/internal/mode"
)

// Sink shows a color on the pixel. Show returns once the color is out.
type Sink interface {
	Show(led.RGBColor) error
}

// Store persists the toggle index.
type Store interface {
	Load() int32
	Save(int32) error
}

// Config configures the render loop.
type Config struct {
	Palette led.Palette
	// Toggle holds the off (0) and on (1) toggle colors.
	Toggle [2]led.RGBColor

	RainbowStep  float64
	RainbowDelay time.Duration
	BlinkOff     time.Duration
	BlinkOn      time.Duration
	Idle         time.Duration
}

// DefaultConfig returns the default render configuration.
func DefaultConfig() Config {
	return Config{
		Palette:      led.DefaultPalette,
		Toggle:       [2]led.RGBColor{led.Off, led.FromUint32(0xFF0000)},
		RainbowStep:  0.01,
		RainbowDelay: 10 * time.Millisecond,
		BlinkOff:     200 * time.Millisecond,
		BlinkOn:      200 * time.Millisecond,
		Idle:         time.Second,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Palette.Len() == 0 {
		return led.ErrEmptyPalette
	}
	if c.RainbowStep <= 0 || c.RainbowStep > 1 {
		return errors.Errorf("rainbow step %v not in (0, 1]", c.RainbowStep)
	}
	for name, d := range map[string]time.Duration{
		"rainbow delay": c.RainbowDelay,
		"blink off":     c.BlinkOff,
		"blink on":      c.BlinkOn,
		"idle":          c.Idle,
	} {
		if d <= 0 {
			return errors.Errorf("%s duration must be positive, got %v", name, d)
		}
	}
	return nil
}

// Loop is the render loop. Run and Toggle must not be called concurrently.
type Loop struct {
	modes  *mode.Cell
	sink   Sink
	store  Store
	palette led.Palette
	toggle  [2]led.RGBColor
	idle    time.Duration

	rainbow *Rainbow
	blink   *Blink

	clock  clockwork.Clock
	bus    *events.Bus
	logger *slog.Logger

	// stale is set when the persisted index may have changed behind our back.
	stale atomic.Bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used to hold frames.
func WithClock(clock clockwork.Clock) Option {
	return func(l *Loop) { l.clock = clock }
}

// WithBus sets the bus that mode changes and toggles are published on, and
// that state file changes are received from.
func WithBus(bus *events.Bus) Option {
	return func(l *Loop) { l.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop creates a render loop.
func NewLoop(cfg Config, modes *mode.Cell, sink Sink, store Store, opts ...Option) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid render config")
	}

	l := &Loop{
		modes:   modes,
		sink:    sink,
		store:   store,
		palette: cfg.Palette,
		toggle:  cfg.Toggle,
		idle:    cfg.Idle,
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.rainbow = NewRainbow(cfg.Palette, cfg.RainbowStep, cfg.RainbowDelay, l.logger)
	l.blink = NewBlink(cfg.BlinkOff, cfg.BlinkOn)

	return l, nil
}

// Toggle flips the persisted toggle index, shows the matching toggle color
// and saves the new index. A failed save is returned; the color is shown
// regardless.
func (l *Loop) Toggle() error {
	next := int32(1)
	if l.store.Load() != 0 {
		next = 0
	}

	color := l.toggle[next]
	l.show(color)

	err := l.store.Save(next)
	if err != nil {
		err = errors.Wrapf(err, "failed to persist toggle index %d", next)
	}

	l.publish(events.ToggledEvent{
		Index:     next,
		Color:     color,
		Persisted: err == nil,
	})

	return err
}

// InvalidateOnColor makes a running Blinking mode reload its on color from
// the store before its next frame.
func (l *Loop) InvalidateOnColor() {
	l.stale.Store(true)
}

// Run renders the current mode until ctx is canceled. The mode is read once
// per frame, so a mode change takes effect once the current frame's hold
// is over.
func (l *Loop) Run(ctx context.Context) error {
	if l.bus != nil {
		unsub := l.bus.Subscribe(func(events.StateChangedEvent) { l.InvalidateOnColor() })
		defer unsub()
	}

	current := l.modes.Load()
	entered := true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m := l.modes.Load()
		if m != current {
			l.publish(events.ModeChangedEvent{From: current, To: m})
			current = m
			entered = true
		}

		hold := l.step(m, entered)
		entered = false

		if err := l.sleep(ctx, hold); err != nil {
			return err
		}
	}
}

// step renders one frame of m and returns how long to hold it.
func (l *Loop) step(m mode.Mode, entered bool) time.Duration {
	switch m {
	case mode.Rainbow:
		f := l.rainbow.Next()
		l.show(f.Color)
		return f.Hold

	case mode.Blinking:
		if entered {
			l.stale.Store(false)
			l.blink.SetOn(l.onColor())
			l.blink.Reset()
		} else if l.stale.Swap(false) {
			l.blink.SetOn(l.onColor())
		}
		f := l.blink.Next()
		l.show(f.Color)
		return f.Hold

	default:
		return l.idle
	}
}

// onColor returns the palette color at the persisted index.
func (l *Loop) onColor() led.RGBColor {
	return l.palette.At(int(l.store.Load()))
}

func (l *Loop) show(c led.RGBColor) {
	if err := l.sink.Show(c); err != nil {
		l.logger.Warn(
			"failed to show color",
			"color", c,
			"error", err)
	}
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) error {
	timer := l.clock.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func (l *Loop) publish(ev events.Event) {
	if l.bus != nil {
		l.bus.Publish(ev)
	}
}
