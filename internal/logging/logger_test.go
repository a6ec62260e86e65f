package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"trace", LevelTrace},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantTrace bool
	}{
		{"info", false, false},
		{"debug", true, false},
		{"trace", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)
			logger.Debug("debug message")
			logger.Log(context.Background(), LevelTrace, "trace message")

			if got := strings.Contains(buf.String(), "debug message"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(buf.String(), "trace message"); got != tt.wantTrace {
				t.Errorf("trace logged = %v, want %v", got, tt.wantTrace)
			}
		})
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("trace", &buf).Log(context.Background(), LevelTrace, "world")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Fatalf("expected TRACE label, got %q", buf.String())
	}
}
