package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestComponentTagsOutput(t *testing.T) {
	Init("info", "json")

	var buf bytes.Buffer
	l := Component("auth").Output(&buf)
	l.Info().Msg("session established")

	out := buf.String()
	if !strings.Contains(out, `"component":"auth"`) {
		t.Errorf("expected component field in output, got %q", out)
	}
	if !strings.Contains(out, `"message":"session established"`) {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"FATAL", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
