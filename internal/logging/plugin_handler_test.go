package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newTestPluginLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	return slog.New(NewPluginHandler(buf, lvl))
}

func TestPluginHandlerFramesLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPluginLogger(&buf, slog.LevelDebug)

	logger.Error("inference failed")
	logger.Warn("scene has no files")
	logger.Info("transcription completed")
	logger.Debug("resolved server url")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 framed lines, got %d: %q", len(lines), buf.String())
	}
	for i, want := range []byte{'e', 'w', 'i', 'd'} {
		line := lines[i]
		if len(line) < 3 || line[0] != frameStart || line[2] != frameEnd {
			t.Fatalf("line %d not framed: %q", i, line)
		}
		if line[1] != want {
			t.Fatalf("line %d level marker = %q, want %q", i, line[1], want)
		}
	}
}

func TestPluginHandlerCollapsesNewlines(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPluginLogger(&buf, slog.LevelInfo)

	logger.Info("first\nsecond")

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Fatalf("expected a single framed line, got %d newlines: %q", got, buf.String())
	}
	if !strings.Contains(buf.String(), "first second") {
		t.Fatalf("newline not collapsed: %q", buf.String())
	}
}

func TestPluginHandlerHonorsThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPluginLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record emitted below threshold: %q", buf.String())
	}
}
