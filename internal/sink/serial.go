package sink

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"go.bug.st/serial"
	"libdb.so/modeglow/internal/led"
	"libdb.so/modeglow/ledserial"
)

// DefaultAckTimeout is how long Show waits for the controller's ack.
const DefaultAckTimeout = 100 * time.Millisecond

var (
	// ErrAckTimeout is returned when the controller does not acknowledge a
	// packet in time.
	ErrAckTimeout = errors.New("timed out waiting for controller ack")
	// ErrControllerPanicked is returned once the controller reported that it
	// cannot recover.
	ErrControllerPanicked = errors.New("controller panicked")
)

// ControllerError is an error reported by the controller.
type ControllerError struct {
	Message string
}

func (e *ControllerError) Error() string {
	return "controller reported error: " + e.Message
}

// Serial drives a single pixel through a controller speaking the ledserial
// protocol. Every Show writes a SetPacket and waits for its ack.
type Serial struct {
	port       io.ReadWriteCloser
	ackTimeout time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger

	mu   sync.Mutex
	leds led.LEDs

	packets chan ledserial.OutgoingPacket
	dead    chan struct{}
	readErr error

	closeOnce sync.Once
	closing   chan struct{}
}

// SerialOption configures a Serial sink.
type SerialOption func(*Serial)

// WithAckTimeout sets how long to wait for each ack.
func WithAckTimeout(d time.Duration) SerialOption {
	return func(s *Serial) { s.ackTimeout = d }
}

// WithSerialClock sets the clock timing ack waits.
func WithSerialClock(clock clockwork.Clock) SerialOption {
	return func(s *Serial) { s.clock = clock }
}

// OpenSerial opens the serial device and initializes the controller.
func OpenSerial(device string, baud int, logger *slog.Logger, opts ...SerialOption) (*Serial, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serial port")
	}

	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to reset read timeout")
	}

	if err := port.ResetInputBuffer(); err != nil {
		logger.Debug(
			"failed to reset serial input buffer",
			"device", device,
			"error", err)
	}

	return NewSerial(port, logger, opts...)
}

// NewSerial initializes the controller on the other end of port for a single
// pixel. It takes ownership of port, closing it if initialization fails.
func NewSerial(port io.ReadWriteCloser, logger *slog.Logger, opts ...SerialOption) (*Serial, error) {
	s := &Serial{
		port:       port,
		ackTimeout: DefaultAckTimeout,
		clock:      clockwork.NewRealClock(),
		logger:     logger,
		leds:       led.NewLEDs(1),
		packets:    make(chan ledserial.OutgoingPacket, 8),
		dead:       make(chan struct{}),
		closing:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.readPackets()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.roundTrip(ledserial.InitializePacket{
		NumLEDs: uint16(len(s.leds)),
	}); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to initialize controller")
	}

	return s, nil
}

// Show sets the pixel and waits until the controller acknowledged it.
func (s *Serial) Show(c led.RGBColor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leds.Set(0, c)
	return s.roundTrip(ledserial.SetPacket{
		Pix: s.leds.AsPixels(),
	})
}

// Wait blocks until the controller becomes unusable or ctx is canceled. It
// returns ErrControllerPanicked if the controller panicked.
func (s *Serial) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.dead:
		select {
		case <-s.closing:
			return nil
		default:
			return s.readErr
		}
	}
}

// Close closes the port and stops the reader.
func (s *Serial) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		err = s.port.Close()
		<-s.dead
	})
	return errors.Wrap(err, "failed to close serial port")
}

// roundTrip writes p and waits for its ack. s.mu must be held.
func (s *Serial) roundTrip(p ledserial.IncomingPacket) error {
	s.drain()

	s.logger.Debug(
		"writing packet",
		"type", p.Type())

	if err := ledserial.WriteIncomingPacket(s.port, p); err != nil {
		return errors.Wrapf(err, "failed to write %s packet", p.Type())
	}

	return s.awaitAck(p.Type())
}

// drain drops packets left over from earlier round trips that timed out.
func (s *Serial) drain() {
	for {
		select {
		case p := <-s.packets:
			s.logger.Debug(
				"dropping stale packet from controller",
				"type", p.Type())
		default:
			return
		}
	}
}

func (s *Serial) awaitAck(t ledserial.IncomingPacketType) error {
	timer := s.clock.NewTimer(s.ackTimeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.Chan():
			return ErrAckTimeout

		case <-s.dead:
			return s.readErr

		case p := <-s.packets:
			switch p := p.(type) {
			case ledserial.AckPacket:
				if p.IncomingPacketType == t {
					return nil
				}
				s.logger.Debug(
					"received ack for another packet",
					"acked_for", p.IncomingPacketType,
					"waiting_for", t)

			case ledserial.ErrorPacket:
				return &ControllerError{Message: p.Message}

			default:
				return errors.Errorf("received unexpected %s packet from controller", p.Type())
			}
		}
	}
}

func (s *Serial) readPackets() {
	defer close(s.dead)

	for {
		p, err := ledserial.ReadOutgoingPacket(s.port, ledserial.ReadContext{})
		if err != nil {
			select {
			case <-s.closing:
				s.readErr = errors.New("serial port closed")
				return
			default:
			}

			if errors.Is(err, ledserial.ErrChecksumMismatch) {
				s.logger.Warn("dropping corrupted packet from controller")
				continue
			}

			s.readErr = errors.Wrap(err, "failed to read packet")
			return
		}

		switch p := p.(type) {
		case ledserial.LogPacket:
			s.logger.Info(
				"received log packet from controller",
				"message", p.Message)
			continue

		case ledserial.PanicPacket:
			s.logger.Error("controller unrecoverably panicked")
			s.readErr = ErrControllerPanicked
			return
		}

		select {
		case s.packets <- p:
		case <-s.closing:
			s.readErr = errors.New("serial port closed")
			return
		}
	}
}
