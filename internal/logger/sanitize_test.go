package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{"plain text untouched", "hello world", 100, "hello world"},
		{"control characters stripped", "a\x00b\x1bc", 100, "abc"},
		{"newlines kept", "line\nbreak", 100, "line\nbreak"},
		{"invalid utf8 dropped", "ok\xffok", 100, "okok"},
		{"empty input", "", 100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.maxLength); got != tt.want {
				t.Errorf("SanitizeString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeStringTruncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 50)
	got := SanitizeString(long, 10)
	if got != strings.Repeat("x", 10)+"..." {
		t.Errorf("SanitizeString = %q, want 10 chars plus ellipsis", got)
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("SanitizeError(nil) = %q, want empty", got)
	}
	if got := SanitizeError(errors.New("db: \x00bad")); got != "db: bad" {
		t.Errorf("SanitizeError = %q, want control characters stripped", got)
	}
}

func TestSanitizeRawPayloadCapsLength(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("y", MaxRawPayloadLength+100)
	got := SanitizeRawPayload(long)
	if len(got) != MaxRawPayloadLength+3 {
		t.Errorf("len = %d, want %d", len(got), MaxRawPayloadLength+3)
	}
}
