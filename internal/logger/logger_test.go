package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONOutputWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithWriter(Options{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	Component(l, "player").Info().Str("guild", "42").Msg("track started")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["component"] != "player" || line["guild"] != "42" || line["message"] != "track started" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithWriter(Options{Level: "WARN", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestRejectsUnknownSettings(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected invalid level error")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected invalid format error")
	}
}

func TestWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	var buf bytes.Buffer
	l, err := newWithWriter(Options{Format: "json", File: path}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info().Msg("to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("log file missing entry: %s", data)
	}
}
