package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if err := (Config{Level: "info", Format: "xml"}).Validate(); err == nil {
		t.Error("xml format should be rejected")
	}
	if err := (Config{Level: "chatty"}).Validate(); err == nil {
		t.Error("unknown level should be rejected")
	}
}

func TestNewRespectsLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "mode", "rainbow")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"mode":"rainbow"`) {
		t.Errorf("unexpected json output: %s", out)
	}
}

type journalEntry struct {
	message  string
	priority journal.Priority
	fields   map[string]string
}

func capturingJournal(level slog.Leveler) (*JournalHandler, *[]journalEntry) {
	var sent []journalEntry
	h := NewJournalHandler(level)
	h.send = func(msg string, p journal.Priority, fields map[string]string) error {
		sent = append(sent, journalEntry{msg, p, fields})
		return nil
	}
	return h, &sent
}

func TestJournalHandlerFields(t *testing.T) {
	h, sent := capturingJournal(slog.LevelInfo)
	logger := slog.New(h).WithGroup("sink").With("device", "/dev/ttyUSB0")

	logger.Debug("hidden")
	logger.Warn("slow ack",
		slog.Group("blink", slog.Duration("on", 200*time.Millisecond)),
		"value", 1)

	if len(*sent) != 1 {
		t.Fatalf("sent %d entries, want 1", len(*sent))
	}

	e := (*sent)[0]
	if e.message != "slow ack" || e.priority != journal.PriWarning {
		t.Errorf("got message %q priority %v", e.message, e.priority)
	}

	want := map[string]string{
		"SYSLOG_IDENTIFIER": SyslogIdentifier,
		"SINK_DEVICE":       "/dev/ttyUSB0",
		"SINK_BLINK_ON":     "200ms",
		"SINK_VALUE":        "1",
	}
	for k, v := range want {
		if e.fields[k] != v {
			t.Errorf("%s = %q, want %q", k, e.fields[k], v)
		}
	}
	if !strings.Contains(e.fields["CODE_FUNC"], "TestJournalHandlerFields") {
		t.Errorf("CODE_FUNC = %q", e.fields["CODE_FUNC"])
	}
}

func TestTeeWritesConsoleAndJournal(t *testing.T) {
	var console bytes.Buffer
	j, sent := capturingJournal(slog.LevelWarn)

	h := tee{
		console: slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelDebug}),
		journal: j,
	}
	logger := slog.New(h).With("component", "render")

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("tee should be enabled when the console is")
	}

	logger.Debug("frame")
	logger.Warn("show failed")

	out := console.String()
	if !strings.Contains(out, "frame") || !strings.Contains(out, "show failed") {
		t.Errorf("console output: %s", out)
	}
	if len(*sent) != 1 || (*sent)[0].fields["COMPONENT"] != "render" {
		t.Errorf("journal entries: %+v", *sent)
	}
}

func TestFieldName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"mode", "MODE"},
		{"ack-timeout", "ACK_TIMEOUT"},
		{"sink_device", "SINK_DEVICE"},
		{"_private", "PRIVATE"},
		{"-", "FIELD"},
	}
	for _, tt := range tests {
		if got := fieldName(tt.key); got != tt.want {
			t.Errorf("fieldName(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
