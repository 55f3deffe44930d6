package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

func TestNewWithWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	l.With("trace", "abc").Info("poll done", "sector", "norte")

	line := buf.String()
	if got := gjson.Get(line, "message").String(); got != "poll done" {
		t.Errorf("message = %q, want %q", got, "poll done")
	}
	if got := gjson.Get(line, "trace").String(); got != "abc" {
		t.Errorf("trace = %q, want %q", got, "abc")
	}
	if got := gjson.Get(line, "sector").String(); got != "norte" {
		t.Errorf("sector = %q, want %q", got, "norte")
	}
}

func TestNewWithWriter_Err(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel)

	l.Err(errors.New("boom"), "failed")

	if got := gjson.Get(buf.String(), "error").String(); got != "boom" {
		t.Errorf("error = %q, want %q", got, "boom")
	}
	if got := gjson.Get(buf.String(), "level").String(); got != "error" {
		t.Errorf("level = %q, want error", got)
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got %q", buf.String())
	}
}

func TestNew_ConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Writer: []string{"console"}, Console: &buf})

	l.Info("hello", "sector", "sul")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "sul") {
		t.Errorf("console output missing fields: %q", out)
	}
}

func TestNew_FileWriterWithoutPathIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", Writer: []string{"file", "console"}, Console: &buf})

	l.Info("still logs")

	if !strings.Contains(buf.String(), "still logs") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}

func TestNew_FileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seatwatch.log")
	l := New(Options{Level: "info", Writer: []string{"file"}, File: path})

	l.Info("to file")
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.Err(errors.New("x"), "x")
	if l.With("k", "v") == nil {
		t.Fatal("With() returned nil")
	}
}
