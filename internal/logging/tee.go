package logging

import (
	"context"
	"log/slog"
)

// tee writes every record to the console handler and to the journal.
type tee struct {
	console slog.Handler
	journal slog.Handler
}

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	return t.console.Enabled(ctx, level) || t.journal.Enabled(ctx, level)
}

// Handle returns the console error, or the journal error if the console
// write went through.
func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if t.console.Enabled(ctx, r.Level) {
		err = t.console.Handle(ctx, r.Clone())
	}
	if t.journal.Enabled(ctx, r.Level) {
		if jerr := t.journal.Handle(ctx, r); err == nil {
			err = jerr
		}
	}
	return err
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return tee{t.console.WithAttrs(attrs), t.journal.WithAttrs(attrs)}
}

func (t tee) WithGroup(name string) slog.Handler {
	return tee{t.console.WithGroup(name), t.journal.WithGroup(name)}
}
