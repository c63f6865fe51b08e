// File path: internal/common/log_test.go
package common

import (
	"errors"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLogEntriesFiltersByLevelAndLimit(t *testing.T) {
	SetLevel("debug")
	defer SetLevel("info")
	log := Logger()
	log.Debug("logtest: debug line")
	log.Info("logtest: info line", "files", 3)
	log.Warn("logtest: warn line", "error", errors.New("boom"))

	warnings := LogEntries(LogQuery{MinLevel: "warn"})
	if len(warnings) == 0 {
		t.Fatalf("expected captured warnings")
	}
	for _, entry := range warnings {
		if entry.Level != "warn" && entry.Level != "error" {
			t.Fatalf("unexpected level %q in warn query", entry.Level)
		}
	}
	last := warnings[len(warnings)-1]
	if last.Message != "logtest: warn line" {
		t.Fatalf("unexpected last warning %q", last.Message)
	}
	if last.Component != "logtest" {
		t.Fatalf("expected component derived from message, got %q", last.Component)
	}
	if last.Attributes["error"] != "boom" {
		t.Fatalf("expected error attribute to be rendered, got %#v", last.Attributes["error"])
	}

	latest := LogEntries(LogQuery{Limit: 2})
	if len(latest) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(latest))
	}
	if latest[0].Message != "logtest: info line" || latest[1].Message != "logtest: warn line" {
		t.Fatalf("unexpected tail: %+v", latest)
	}
}
