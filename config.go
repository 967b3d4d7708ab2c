package modeglow

import (
	"context"
	"encoding"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	"libdb.so/modeglow/internal/gpio"
	"libdb.so/modeglow/internal/led"
	"libdb.so/modeglow/internal/logging"
	"libdb.so/modeglow/internal/render"
	"libdb.so/modeglow/internal/sink"
	"libdb.so/modeglow/internal/store"
)

// EnvPrefix is the prefix of environment variables overriding the
// configuration file, for example MODEGLOW_BUTTON_PIN.
const EnvPrefix = "MODEGLOW_"

// Config is the configuration for the modeglow daemon.
type Config struct {
	// Sink configures where the pixel is shown.
	Sink SinkConfig `toml:"sink" env:",prefix=SINK_"`
	// Button configures the mode button.
	Button ButtonConfig `toml:"button" env:",prefix=BUTTON_"`
	// State configures where the toggle index is persisted.
	State StateConfig `toml:"state" env:",prefix=STATE_"`
	// Palette is the list of colors the rainbow fades through.
	Palette []led.RGBColor `toml:"palette"`
	// Toggle holds the colors of the manual toggle.
	Toggle ToggleConfig `toml:"toggle" env:",prefix=TOGGLE_"`
	// Rainbow configures the rainbow mode.
	Rainbow RainbowConfig `toml:"rainbow" env:",prefix=RAINBOW_"`
	// Blink configures the blinking mode.
	Blink BlinkConfig `toml:"blink" env:",prefix=BLINK_"`
	// Idle is how long the steady mode waits before checking the mode again.
	Idle TOMLDuration `toml:"idle" env:"IDLE"`
	// Log configures logging.
	Log logging.Config `toml:"log" env:",prefix=LOG_"`
}

// SinkConfig is the configuration for the light output.
type SinkConfig struct {
	// Kind is one of serial, terminal or noop.
	Kind sink.Kind `toml:"kind" env:"KIND"`
	// Device is the path to the serial device of the controller.
	// This is usually /dev/ttyUSB0 or /dev/ttyACM0.
	Device string `toml:"device" env:"DEVICE"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud" env:"BAUD"`
	// AckTimeout is how long to wait for the controller to acknowledge a
	// frame.
	AckTimeout TOMLDuration `toml:"ack_timeout" env:"ACK_TIMEOUT"`
}

// ButtonConfig is the configuration for the mode button.
type ButtonConfig struct {
	// Driver is one of periph, rpio, stdin or none.
	Driver gpio.Driver `toml:"driver" env:"DRIVER"`
	// Pin is the input pin, for example GPIO17.
	Pin string `toml:"pin" env:"PIN"`
	// Debounce is how long to wait after an edge before changing the mode.
	Debounce TOMLDuration `toml:"debounce" env:"DEBOUNCE"`
	// Coalesce drops edges arriving within one debounce window of the
	// previous accepted edge.
	Coalesce bool `toml:"coalesce" env:"COALESCE"`
}

// StateConfig is the configuration for the persisted toggle index.
type StateConfig struct {
	// Path is the TOML file holding the index.
	Path string `toml:"path" env:"PATH"`
	// Namespace is the table holding the index.
	Namespace string `toml:"namespace" env:"NAMESPACE"`
	// Key is the key of the index inside the namespace.
	Key string `toml:"key" env:"KEY"`
	// Watch reloads the blinking color when the file is changed by someone
	// else.
	Watch bool `toml:"watch" env:"WATCH"`
}

// ToggleConfig holds the two colors of the manual toggle.
type ToggleConfig struct {
	Off led.RGBColor `toml:"off" env:"OFF"`
	On  led.RGBColor `toml:"on" env:"ON"`
}

// RainbowConfig is the configuration for the rainbow mode.
type RainbowConfig struct {
	// Step is the interpolation step of a sweep, in (0, 1].
	Step float64 `toml:"step" env:"STEP"`
	// Delay is how long each frame is held.
	Delay TOMLDuration `toml:"delay" env:"DELAY"`
}

// BlinkConfig is the configuration for the blinking mode.
type BlinkConfig struct {
	Off TOMLDuration `toml:"off" env:"OFF"`
	On  TOMLDuration `toml:"on" env:"ON"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	r := render.DefaultConfig()
	return &Config{
		Sink: SinkConfig{
			Kind:       sink.KindSerial,
			Device:     "/dev/ttyUSB0",
			Baud:       115200,
			AckTimeout: TOMLDuration(sink.DefaultAckTimeout),
		},
		Button: ButtonConfig{
			Driver:   gpio.DriverPeriph,
			Pin:      "GPIO17",
			Debounce: TOMLDuration(50 * time.Millisecond),
		},
		State: StateConfig{
			Path:      "/var/lib/modeglow/state.toml",
			Namespace: store.DefaultNamespace,
			Key:       store.DefaultKey,
			Watch:     true,
		},
		Palette: append([]led.RGBColor(nil), r.Palette...),
		Toggle: ToggleConfig{
			Off: r.Toggle[0],
			On:  r.Toggle[1],
		},
		Rainbow: RainbowConfig{
			Step:  r.RainbowStep,
			Delay: TOMLDuration(r.RainbowDelay),
		},
		Blink: BlinkConfig{
			Off: TOMLDuration(r.BlinkOff),
			On:  TOMLDuration(r.BlinkOn),
		},
		Idle: TOMLDuration(r.Idle),
		Log:  logging.DefaultConfig(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Sink.Kind.Valid() {
		return errors.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
	if c.Sink.Kind == sink.KindSerial {
		if c.Sink.Device == "" {
			return errors.New("serial sink needs a device")
		}
		if c.Sink.Baud <= 0 {
			return errors.Errorf("invalid baud rate %d", c.Sink.Baud)
		}
		if c.Sink.AckTimeout <= 0 {
			return errors.New("sink ack_timeout must be positive")
		}
	}

	if !c.Button.Driver.Valid() {
		return errors.Errorf("unknown button driver %q", c.Button.Driver)
	}
	if c.Button.Debounce < 0 {
		return errors.New("button debounce must not be negative")
	}
	switch c.Button.Driver {
	case gpio.DriverPeriph:
		if c.Button.Pin == "" {
			return errors.New("periph button driver needs a pin")
		}
	case gpio.DriverRPIO:
		if _, err := gpio.ParseBCM(c.Button.Pin); err != nil {
			return err
		}
	}

	if c.State.Path == "" {
		return errors.New("state path is empty")
	}
	if c.State.Namespace == "" || c.State.Key == "" {
		return errors.New("state namespace and key must not be empty")
	}

	if err := c.RenderConfig().Validate(); err != nil {
		return err
	}

	return errors.Wrap(c.Log.Validate(), "invalid log config")
}

// RenderConfig returns the render loop part of the configuration.
func (c *Config) RenderConfig() render.Config {
	return render.Config{
		Palette:      led.Palette(c.Palette),
		Toggle:       [2]led.RGBColor{c.Toggle.Off, c.Toggle.On},
		RainbowStep:  c.Rainbow.Step,
		RainbowDelay: time.Duration(c.Rainbow.Delay),
		BlinkOff:     time.Duration(c.Blink.Off),
		BlinkOn:      time.Duration(c.Blink.On),
		Idle:         time.Duration(c.Idle),
	}
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. Settings missing from
// the reader keep their default values.
func ParseConfig(r io.Reader) (*Config, error) {
	config := DefaultConfig()
	if err := toml.NewDecoder(r).Decode(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig reads the configuration file at path and applies environment
// overrides from lookup. A missing file yields the default configuration;
// found reports whether the file existed.
func LoadConfig(ctx context.Context, path string, lookup envconfig.Lookuper) (cfg *Config, found bool, err error) {
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()

		cfg, err = ParseConfig(f)
		if err != nil {
			return nil, true, errors.Wrapf(err, "failed to parse config file %s", path)
		}
		found = true

	case errors.Is(err, os.ErrNotExist):
		cfg = DefaultConfig()

	default:
		return nil, false, errors.Wrap(err, "failed to open config file")
	}

	if err := cfg.ApplyEnv(ctx, lookup); err != nil {
		return nil, found, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, found, errors.Wrap(err, "invalid configuration")
	}

	return cfg, found, nil
}

// ApplyEnv overrides the configuration with MODEGLOW_ prefixed variables
// from lookup. A nil lookup reads the process environment.
func (c *Config) ApplyEnv(ctx context.Context, lookup envconfig.Lookuper) error {
	if lookup == nil {
		lookup = envconfig.OsLookuper()
	}

	// NoInit keeps unset variables away from the text decoders of zero
	// fields, such as an off color of #000000.
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:           c,
		Lookuper:         envconfig.PrefixLookuper(EnvPrefix, lookup),
		DefaultOverwrite: true,
		DefaultNoInit:    true,
	})
	return errors.Wrap(err, "failed to apply environment")
}

// Marshal encodes the configuration as TOML. Top-level keys come first and
// everything is sorted by name.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Duration returns d as a time.Duration.
func (d TOMLDuration) Duration() time.Duration {
	return time.Duration(d)
}
