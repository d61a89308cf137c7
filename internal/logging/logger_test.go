package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	NewComponentLogger(logger, "distributor").Info("switching profile",
		String(FieldProfile, "Spanish"),
	)

	out := buf.String()
	if !strings.Contains(out, "[distributor]") {
		t.Fatalf("expected bracketed component in output, got %q", out)
	}
	if !strings.Contains(out, "profile=Spanish") {
		t.Fatalf("expected profile attr in output, got %q", out)
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should not repeat as key=value: %q", out)
	}
}

func TestConsoleHandlerQuotesSpacedValues(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Warn("deck missing", String(FieldDeck, "My Vocabulary"))

	if !strings.Contains(buf.String(), `deck="My Vocabulary"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		" info  ": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
