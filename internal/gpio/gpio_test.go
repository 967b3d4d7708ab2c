package gpio

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPeriphWatch(t *testing.T) {
	pin := &gpiotest.Pin{
		N:         "GPIO17",
		Num:       17,
		EdgesChan: make(chan gpio.Level),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var edges atomic.Int32
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewPeriph(pin).Watch(ctx, func() { edges.Add(1) })
	}()

	// In drains pending edges, so only send once the pin is configured.
	waitFor(t, "pull-up", func() bool {
		pin.Lock()
		defer pin.Unlock()
		return pin.P == gpio.PullUp
	})

	for i := 0; i < 3; i++ {
		pin.EdgesChan <- gpio.Low
		pin.EdgesChan <- gpio.High
	}

	waitFor(t, "six edges", func() bool { return edges.Load() == 6 })

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestPeriphWatchNeedsEdges(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO4", Num: 4}
	err := NewPeriph(pin).Watch(context.Background(), func() {})
	if err == nil {
		t.Fatal("expected an error from a pin without edge support")
	}
}

func TestLines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var edges atomic.Int32
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewLines(strings.NewReader("\n\nnext\n")).Watch(ctx, func() { edges.Add(1) })
	}()

	waitFor(t, "three lines", func() bool { return edges.Load() == 3 })

	// EOF does not stop the source.
	select {
	case err := <-errCh:
		t.Fatalf("Watch returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	if err := <-errCh; err != context.Canceled {
		t.Fatalf("Watch returned %v", err)
	}
}

func TestChan(t *testing.T) {
	c := make(Chan)
	var edges atomic.Int32

	errCh := make(chan error, 1)
	go func() { errCh <- c.Watch(context.Background(), func() { edges.Add(1) }) }()

	c <- struct{}{}
	c <- struct{}{}
	close(c)

	if err := <-errCh; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
	if n := edges.Load(); n != 2 {
		t.Fatalf("got %d edges, want 2", n)
	}
}

func TestParseBCM(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "17", want: 17},
		{in: "GPIO17", want: 17},
		{in: "gpio4", want: 4},
		{in: "GPIO", wantErr: true},
		{in: "99", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseBCM(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBCM(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBCM(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOpenSoftDrivers(t *testing.T) {
	src, err := Open(DriverStdin, "", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*Lines); !ok {
		t.Errorf("stdin driver opened %T", src)
	}

	if _, err := Open("bluetooth", "", nil); err == nil {
		t.Error("unknown driver accepted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (Never{}).Watch(ctx, func() { t.Error("Never delivered an edge") }); err != context.Canceled {
		t.Errorf("Never.Watch returned %v", err)
	}
}
