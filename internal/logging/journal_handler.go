package logging

import (
	"context"
	"log/slog"
	"maps"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier is the identifier journal entries are tagged with.
const SyslogIdentifier = "modeglow"

// JournalHandler is a slog.Handler that sends records to the systemd
// journal. Attributes become journal fields, with group names joined into
// the field name (a "sink" group with "device" gives SINK_DEVICE), and the
// caller is recorded in CODE_FILE, CODE_LINE and CODE_FUNC.
type JournalHandler struct {
	level  slog.Leveler
	prefix string
	fields map[string]string
	send   func(string, journal.Priority, map[string]string) error
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{
		level:  level,
		fields: map[string]string{"SYSLOG_IDENTIFIER": SyslogIdentifier},
		send:   journal.Send,
	}
}

// IsJournalAvailable checks if the systemd journal socket is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}

// stderrIsJournal reports whether stderr is already connected to the
// journal, which is the case when running as a systemd service.
var stderrIsJournal = func() bool {
	ok, _ := journal.StderrIsJournalStream()
	return ok
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := maps.Clone(h.fields)

	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fields["CODE_FILE"] = frame.File
		fields["CODE_LINE"] = strconv.Itoa(frame.Line)
		fields["CODE_FUNC"] = frame.Function
	}

	r.Attrs(func(attr slog.Attr) bool {
		putField(fields, h.prefix, attr)
		return true
	})

	return h.send(r.Message, priority(r.Level), fields)
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.fields = maps.Clone(h.fields)
	for _, attr := range attrs {
		putField(h2.fields, h.prefix, attr)
	}
	return &h2
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "_"
	return &h2
}

func priority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

func putField(fields map[string]string, prefix string, attr slog.Attr) {
	v := attr.Value.Resolve()
	if attr.Key == "" && v.Kind() != slog.KindGroup {
		return
	}

	switch v.Kind() {
	case slog.KindGroup:
		sub := prefix
		if attr.Key != "" {
			sub += attr.Key + "_"
		}
		for _, a := range v.Group() {
			putField(fields, sub, a)
		}
	case slog.KindTime:
		fields[fieldName(prefix+attr.Key)] = v.Time().Format(time.RFC3339Nano)
	default:
		fields[fieldName(prefix+attr.Key)] = v.String()
	}
}

// fieldName maps a key onto the journal's field alphabet: uppercase
// letters, digits and underscores, not starting with an underscore.
func fieldName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)

	name = strings.TrimLeft(name, "_")
	if name == "" {
		return "FIELD"
	}
	return name
}
