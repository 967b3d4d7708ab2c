package modeglow

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"libdb.so/modeglow/internal/button"
	"libdb.so/modeglow/internal/events"
	"libdb.so/modeglow/internal/gpio"
	"libdb.so/modeglow/internal/led"
	"libdb.so/modeglow/internal/mode"
	"libdb.so/modeglow/internal/render"
	"libdb.so/modeglow/internal/sink"
	"libdb.so/modeglow/internal/store"
)

// Notifier reports service state changes, such as "READY=1", to the service
// manager.
type Notifier func(state string) error

// SystemdNotifier notifies systemd through $NOTIFY_SOCKET. It does nothing
// when not running under systemd.
func SystemdNotifier(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

// Daemon is the main modeglow daemon.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger
	clock  clockwork.Clock
	modes  *mode.Cell

	stdin  io.Reader
	stdout io.Writer
	notify Notifier

	sink   sink.Sink
	store  render.Store
	source gpio.Source
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithClock sets the clock used for debouncing and frame timing.
func WithClock(clock clockwork.Clock) Option {
	return func(d *Daemon) { d.clock = clock }
}

// WithSink makes the daemon show colors on s instead of opening the
// configured sink.
func WithSink(s sink.Sink) Option {
	return func(d *Daemon) { d.sink = s }
}

// WithStore makes the daemon persist the toggle index in s instead of the
// configured state file. The state file is then not watched.
func WithStore(s render.Store) Option {
	return func(d *Daemon) { d.store = s }
}

// WithSource makes the daemon read button edges from src instead of the
// configured driver.
func WithSource(src gpio.Source) Option {
	return func(d *Daemon) { d.source = src }
}

// WithStdio sets the reader used by the stdin button driver and the writer
// used by the terminal sink.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(d *Daemon) {
		d.stdin = in
		d.stdout = out
	}
}

// WithNotifier sets how service state changes are reported.
func WithNotifier(notify Notifier) Option {
	return func(d *Daemon) { d.notify = notify }
}

// NewDaemon creates a new modeglow daemon.
func NewDaemon(cfg *Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		clock:  clockwork.NewRealClock(),
		modes:  mode.NewCell(mode.Steady),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		notify: SystemdNotifier,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Modes returns the cell holding the current mode.
func (d *Daemon) Modes() *mode.Cell {
	return d.modes
}

// Run starts the daemon. It clears the pixel, performs the boot toggle, then
// renders the current mode and handles the button until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	out, err := d.openSink()
	if err != nil {
		return err
	}
	defer out.Close()

	if err := out.Show(led.Off); err != nil {
		return errors.Wrap(err, "failed to clear pixel")
	}

	bus := events.New()
	defer bus.Close()

	unsub := d.logEvents(bus)
	defer unsub()

	st, watchPath := d.openStore()

	loop, err := render.NewLoop(d.cfg.RenderConfig(), d.modes, out, st,
		render.WithClock(d.clock),
		render.WithBus(bus),
		render.WithLogger(d.logger))
	if err != nil {
		return err
	}

	if err := loop.Toggle(); err != nil {
		d.logger.Warn(
			"boot toggle was not persisted",
			"error", err)
	}

	src, err := d.openSource()
	if err != nil {
		return err
	}

	selector := button.NewSelector(d.modes,
		button.WithClock(d.clock),
		button.WithDebounce(d.cfg.Button.Debounce.Duration()),
		button.WithCoalesce(d.cfg.Button.Coalesce))

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		return errors.Wrap(selector.Run(ctx, src), "button failed")
	})
	errg.Go(func() error {
		return loop.Run(ctx)
	})

	if watchPath != "" {
		errg.Go(func() error {
			err := store.Watch(ctx, watchPath, store.DefaultWatchDebounce, d.logger, func() {
				bus.Publish(events.StateChangedEvent{Path: watchPath})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				// The daemon works without the watcher, only less promptly.
				d.logger.Warn(
					"not watching state file",
					"path", watchPath,
					"error", err)
				return nil
			}
			return err
		})
	}

	if waiter, ok := out.(interface{ Wait(context.Context) error }); ok {
		errg.Go(func() error {
			return waiter.Wait(ctx)
		})
	}

	d.logger.Info(
		"modeglow started",
		"sink", d.cfg.Sink.Kind,
		"button", d.cfg.Button.Driver,
		"mode", d.modes.Load())

	d.notifyState(daemon.SdNotifyReady)
	defer d.notifyState(daemon.SdNotifyStopping)

	return errg.Wait()
}

// Toggle opens the sink, performs one toggle and exits.
func (d *Daemon) Toggle(ctx context.Context) error {
	out, err := d.openSink()
	if err != nil {
		return err
	}
	defer out.Close()

	st, _ := d.openStore()

	loop, err := render.NewLoop(d.cfg.RenderConfig(), d.modes, out, st,
		render.WithClock(d.clock),
		render.WithLogger(d.logger))
	if err != nil {
		return err
	}

	return loop.Toggle()
}

func (d *Daemon) openSink() (sink.Sink, error) {
	if d.sink != nil {
		return d.sink, nil
	}

	switch d.cfg.Sink.Kind {
	case sink.KindSerial:
		s, err := sink.OpenSerial(d.cfg.Sink.Device, d.cfg.Sink.Baud, d.logger,
			sink.WithAckTimeout(d.cfg.Sink.AckTimeout.Duration()))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open sink on %s", d.cfg.Sink.Device)
		}
		return s, nil
	case sink.KindTerminal:
		return sink.NewTerminal(d.stdout), nil
	case sink.KindNoop:
		return sink.NewNoop(d.logger), nil
	default:
		return nil, errors.Errorf("unknown sink kind %q", d.cfg.Sink.Kind)
	}
}

// openStore returns the store and the path to watch for outside changes, if
// any.
func (d *Daemon) openStore() (render.Store, string) {
	if d.store != nil {
		return d.store, ""
	}

	f := store.NewFile(d.cfg.State.Path, d.logger,
		store.WithNamespace(d.cfg.State.Namespace),
		store.WithKey(d.cfg.State.Key))

	if !d.cfg.State.Watch {
		return f, ""
	}
	return f, f.Path()
}

func (d *Daemon) openSource() (gpio.Source, error) {
	if d.source != nil {
		return d.source, nil
	}

	src, err := gpio.Open(d.cfg.Button.Driver, d.cfg.Button.Pin, d.stdin)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open button")
	}
	return src, nil
}

func (d *Daemon) logEvents(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.ModeChangedEvent) {
			d.logger.Info(
				"mode changed",
				"from", e.From,
				"to", e.To)
		}),
		bus.Subscribe(func(e events.ToggledEvent) {
			d.logger.Info(
				"toggled",
				"index", e.Index,
				"color", e.Color,
				"persisted", e.Persisted)
		}),
		bus.Subscribe(func(e events.StateChangedEvent) {
			d.logger.Debug(
				"state file changed",
				"path", e.Path)
		}),
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func (d *Daemon) notifyState(state string) {
	if err := d.notify(state); err != nil {
		d.logger.Debug(
			"failed to notify service manager",
			"state", state,
			"error", err)
	}
}
