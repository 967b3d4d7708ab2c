// Package button turns debounced button presses into mode changes.
package button

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"libdb.so/modeglow/internal/mode"
)

// DefaultDebounce is the default debounce window.
const DefaultDebounce = 50 * time.Millisecond

// EdgeSource delivers button edges. Watch calls onEdge serially, from a
// single goroutine, until ctx is canceled.
type EdgeSource interface {
	Watch(ctx context.Context, onEdge func()) error
}

// Selector advances the shared mode once per accepted button edge.
//
// HandleEdge is called in an interrupt-like context: it does not log, does
// not touch persistence and holds no lock while it sleeps.
type Selector struct {
	modes    *mode.Cell
	clock    clockwork.Clock
	window   time.Duration
	coalesce bool

	mu           sync.Mutex
	lastAccepted time.Time
}

// Option configures a Selector.
type Option func(*Selector)

// WithClock sets the clock used for the debounce sleep.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Selector) { s.clock = clock }
}

// WithDebounce sets the debounce window.
func WithDebounce(window time.Duration) Option {
	return func(s *Selector) { s.window = window }
}

// WithCoalesce makes the selector drop edges that arrive less than one
// debounce window after the previously accepted edge.
func WithCoalesce(coalesce bool) Option {
	return func(s *Selector) { s.coalesce = coalesce }
}

// NewSelector creates a selector advancing modes.
func NewSelector(modes *mode.Cell, opts ...Option) *Selector {
	s := &Selector{
		modes:  modes,
		clock:  clockwork.NewRealClock(),
		window: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleEdge handles one button edge. It waits out the debounce window, then
// advances the mode by exactly one step. It returns false if the edge was
// dropped, either because it was coalesced into an earlier one or because
// ctx was canceled during the wait.
func (s *Selector) HandleEdge(ctx context.Context) bool {
	if s.coalesce && !s.accept() {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(s.window):
	}

	s.modes.Advance()
	return true
}

func (s *Selector) accept() bool {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastAccepted.IsZero() && now.Sub(s.lastAccepted) < s.window {
		return false
	}
	s.lastAccepted = now
	return true
}

// Run handles edges from src until ctx is canceled.
func (s *Selector) Run(ctx context.Context, src EdgeSource) error {
	return src.Watch(ctx, func() { s.HandleEdge(ctx) })
}
