package gpio

import (
	"bufio"
	"context"
	"io"

	"github.com/pkg/errors"
)

// Chan is a Source fed by sending on the channel.
type Chan chan struct{}

// Watch calls onEdge for every value received until ctx is canceled or the
// channel is closed.
func (c Chan) Watch(ctx context.Context, onEdge func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-c:
			if !ok {
				return nil
			}
			onEdge()
		}
	}
}

// Lines is a Source that treats each line read from r as a button press.
type Lines struct {
	r io.Reader
}

// NewLines creates a line source reading r.
func NewLines(r io.Reader) *Lines {
	return &Lines{r: r}
}

// Watch reads lines until ctx is canceled. When r reaches EOF, Watch keeps
// blocking until ctx is canceled so the daemon keeps running.
func (l *Lines) Watch(ctx context.Context, onEdge func()) error {
	lines := make(chan struct{})
	scanErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(l.r)
		for scanner.Scan() {
			select {
			case lines <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			if err != nil {
				return errors.Wrap(err, "failed to read button lines")
			}
			scanErr = nil
		case <-lines:
			onEdge()
		}
	}
}
