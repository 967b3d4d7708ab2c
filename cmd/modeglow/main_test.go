package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "modeglow.toml")
	cfg := "[state]\npath = \"" + filepath.ToSlash(filepath.Join(dir, "state.toml")) + "\"\n\n[log]\nlevel = \"error\"\njournal = false\n"

	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStateCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "state", "-c", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "0" {
		t.Errorf("initial state = %q, want 0", out)
	}

	if _, err := execute(t, "state", "set", "1", "-c", cfg); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, "state", "-c", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "1" {
		t.Errorf("state after set = %q, want 1", out)
	}

	if _, err := execute(t, "state", "set", "on", "-c", cfg); err == nil {
		t.Error("non-numeric index accepted")
	}
}

func TestConfigCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "config", "-c", cfg)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"[sink]", `kind = "serial"`, "state.toml", `level = "error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("config output misses %s:\n%s", want, out)
		}
	}
}

func TestSetupVerbose(t *testing.T) {
	oldConfig, oldVerbose := config, verbose
	t.Cleanup(func() { config, verbose = oldConfig, oldVerbose })

	config = writeConfig(t)

	verbose = false
	_, logger, err := setup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn enabled with level = error")
	}

	verbose = true
	cfg, logger, err := setup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("-v did not enable debug logging")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}
