package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"ERR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"something", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Fatalf("parseLevel(%q)=%v, want %v", c.in, got, c.want)
		}
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("X", "val")
	if v := getenv("X", "def"); v != "val" {
		t.Fatalf("getenv returned %q, want 'val'", v)
	}
	if v := getenv("Y", "def"); v != "def" {
		t.Fatalf("getenv returned %q, want 'def'", v)
	}
}

func TestInitAndL(t *testing.T) {
	_ = os.Unsetenv("LOG_LEVEL")
	_ = os.Unsetenv("LOG_PRETTY")
	Init()
	if L() == nil {
		t.Fatalf("L() returned nil")
	}

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	Init()
	if L().GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", L().GetLevel())
	}
}

// Ensure L() never returns nil and initializes level if not set
func TestLoggerAccessor_NotNil(t *testing.T) {
	base = zerolog.Logger{}
	lg := L()
	if lg == nil {
		t.Fatalf("logger is nil")
	}
	if lg.GetLevel() == zerolog.NoLevel {
		t.Fatalf("logger level not initialized")
	}
}

func TestComponent(t *testing.T) {
	lg := Component("walker")
	if lg == nil {
		t.Fatalf("component logger is nil")
	}
	// A component logger must still honor the configured level.
	if lg.GetLevel() == zerolog.NoLevel {
		t.Fatalf("component logger level not initialized")
	}
}

// Component loggers are chained directly at call sites (Warn().Msg(...)), so
// the returned logger must tag events with the component name.
func TestComponent_TagsEvents(t *testing.T) {
	var buf bytes.Buffer
	old := base
	t.Cleanup(func() { base = old })
	base = zerolog.New(&buf)

	Component("walker").Warn().Msg("leaf resolution panicked")

	out := buf.String()
	if !strings.Contains(out, `"component":"walker"`) {
		t.Fatalf("expected component tag, got %s", out)
	}
	if !strings.Contains(out, "leaf resolution panicked") {
		t.Fatalf("expected message, got %s", out)
	}
}
