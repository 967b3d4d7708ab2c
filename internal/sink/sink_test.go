package sink

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"libdb.so/modeglow/internal/led"
	"libdb.so/modeglow/ledserial"
)

// firmware emulates the controller on the other end of a pipe.
type firmware struct {
	conn net.Conn

	// respond decides the answer to each packet. It defaults to acking.
	respond func(p ledserial.IncomingPacket) []ledserial.OutgoingPacket

	mu      sync.Mutex
	numLEDs uint16
	pixels  [][]uint8
}

func startFirmware(t *testing.T, respond func(ledserial.IncomingPacket) []ledserial.OutgoingPacket) (*firmware, net.Conn) {
	t.Helper()

	host, device := net.Pipe()
	fw := &firmware{conn: device, respond: respond}
	if fw.respond == nil {
		fw.respond = ack
	}

	go fw.run()
	t.Cleanup(func() { device.Close() })

	return fw, host
}

func ack(p ledserial.IncomingPacket) []ledserial.OutgoingPacket {
	return []ledserial.OutgoingPacket{ledserial.AckPacket{IncomingPacketType: p.Type()}}
}

func (f *firmware) run() {
	for {
		f.mu.Lock()
		ctx := ledserial.ReadContext{NumLEDs: f.numLEDs}
		f.mu.Unlock()

		p, err := ledserial.ReadIncomingPacket(f.conn, ctx)
		if err != nil {
			return
		}

		f.mu.Lock()
		switch p := p.(type) {
		case ledserial.InitializePacket:
			f.numLEDs = p.NumLEDs
		case ledserial.SetPacket:
			f.pixels = append(f.pixels, append([]uint8(nil), p.Pix...))
		}
		f.mu.Unlock()

		for _, out := range f.respond(p) {
			if err := ledserial.WriteOutgoingPacket(f.conn, out); err != nil {
				return
			}
		}
	}
}

func (f *firmware) frames() [][]uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]uint8(nil), f.pixels...)
}

func TestSerialShow(t *testing.T) {
	fw, host := startFirmware(t, nil)

	s, err := NewSerial(host, slog.Default(), WithAckTimeout(time.Second))
	if err != nil {
		t.Fatal("cannot initialize:", err)
	}
	defer s.Close()

	colors := []led.RGBColor{led.Off, led.FromUint32(0xFF7F00), led.FromUint32(0x4B0082)}
	for _, c := range colors {
		if err := s.Show(c); err != nil {
			t.Fatalf("Show(%v): %v", c, err)
		}
	}

	frames := fw.frames()
	if len(frames) != len(colors) {
		t.Fatalf("firmware received %d frames, want %d", len(frames), len(colors))
	}
	for i, c := range colors {
		if !bytes.Equal(frames[i], c[:]) {
			t.Errorf("frame %d = %v, want %v", i, frames[i], c[:])
		}
	}
}

func TestSerialControllerError(t *testing.T) {
	_, host := startFirmware(t, func(p ledserial.IncomingPacket) []ledserial.OutgoingPacket {
		if p.Type() == ledserial.TypeSetPacket {
			return []ledserial.OutgoingPacket{
				ledserial.LogPacket{Message: "writing pixels"},
				ledserial.ErrorPacket{Message: "invalid number of pixels: 2"},
			}
		}
		return ack(p)
	})

	s, err := NewSerial(host, slog.Default(), WithAckTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	err = s.Show(led.FromUint32(0xFF0000))

	var cerr *ControllerError
	if !errors.As(err, &cerr) {
		t.Fatalf("Show returned %v, want a ControllerError", err)
	}
	if !strings.Contains(cerr.Message, "invalid number of pixels") {
		t.Errorf("message = %q", cerr.Message)
	}
}

func TestSerialAckTimeout(t *testing.T) {
	_, host := startFirmware(t, func(p ledserial.IncomingPacket) []ledserial.OutgoingPacket {
		if p.Type() == ledserial.TypeSetPacket {
			return nil
		}
		return ack(p)
	})

	s, err := NewSerial(host, slog.Default(), WithAckTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Show(led.Off); !errors.Is(err, ErrAckTimeout) {
		t.Fatalf("Show returned %v, want ErrAckTimeout", err)
	}
}

func TestSerialInitializeFailure(t *testing.T) {
	_, host := startFirmware(t, func(p ledserial.IncomingPacket) []ledserial.OutgoingPacket {
		return []ledserial.OutgoingPacket{ledserial.ErrorPacket{Message: "invalid number of LEDs: 0"}}
	})

	if _, err := NewSerial(host, slog.Default(), WithAckTimeout(time.Second)); err == nil {
		t.Fatal("expected initialization to fail")
	}
}

func TestSerialPanic(t *testing.T) {
	_, host := startFirmware(t, func(p ledserial.IncomingPacket) []ledserial.OutgoingPacket {
		if p.Type() == ledserial.TypeSetPacket {
			return []ledserial.OutgoingPacket{ledserial.PanicPacket{}}
		}
		return ack(p)
	})

	s, err := NewSerial(host, slog.Default(), WithAckTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Show(led.Off); !errors.Is(err, ErrControllerPanicked) {
		t.Fatalf("Show returned %v, want ErrControllerPanicked", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.Wait(ctx); !errors.Is(err, ErrControllerPanicked) {
		t.Fatalf("Wait returned %v, want ErrControllerPanicked", err)
	}
}

func TestSerialCloseEndsWait(t *testing.T) {
	_, host := startFirmware(t, nil)

	s, err := NewSerial(host, slog.Default(), WithAckTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- s.Wait(context.Background()) }()

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-waitErr:
		if err != nil {
			t.Fatalf("Wait returned %v after Close", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Close")
	}
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	if err := term.Show(led.FromUint32(0xFF7F00)); err != nil {
		t.Fatal(err)
	}
	if err := term.Close(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "\x1b[48;2;255;127;0m") {
		t.Errorf("missing truecolor escape: %q", out)
	}
	if !strings.Contains(out, "#ff7f00") || !strings.HasSuffix(out, "\n") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNoop(t *testing.T) {
	n := NewNoop(slog.Default())
	n.Show(led.FromUint32(0x00FF00))
	n.Show(led.Off)

	last, shown := n.Last()
	if last != led.Off || shown != 2 {
		t.Errorf("Last() = %v, %d", last, shown)
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindSerial, KindTerminal, KindNoop} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if Kind("hdmi").Valid() {
		t.Error("hdmi should not be valid")
	}
}
