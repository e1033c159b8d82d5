package text_test

import (
	"testing"

	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/text"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Plain text", input: "hello", expected: "hello"},
		{name: "Surrounding whitespace", input: "  hi there \n", expected: "hi there"},
		{name: "Inner spacing kept", input: "hi   there", expected: "hi   there"},
		{name: "CRLF line endings", input: "line1\r\nline2\rline3", expected: "line1\nline2\nline3"},
		{name: "Control characters", input: "he\x00ll\x07o\x7F", expected: "hello"},
		{name: "Zero width space", input: "sa\u200Blam", expected: "salam"},
		{name: "BOM prefix", input: "\uFEFFping", expected: "ping"},
		{name: "ZWNJ preserved", input: "می\u200Cخواهم", expected: "می\u200Cخواهم"},
		{name: "Non-breaking space", input: "a\u00A0b", expected: "a b"},
		{name: "Only invisible", input: "\u200B\u200E", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := text.Clean(tt.input); got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCleanRequired(t *testing.T) {
	t.Parallel()

	if _, err := text.CleanRequired("trigger", " \u200B "); !apperrors.IsValidation(err) {
		t.Fatalf("CleanRequired() error = %v, want validation error", err)
	}

	got, err := text.CleanRequired("trigger", " hi ")
	if err != nil {
		t.Fatalf("CleanRequired() unexpected error: %v", err)
	}
	if got != "hi" {
		t.Errorf("CleanRequired() = %q, want %q", got, "hi")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "Short", input: "abc", maxLen: 10, want: "abc"},
		{name: "Exact", input: "abcdef", maxLen: 6, want: "abcdef"},
		{name: "Cut", input: "abcdefghij", maxLen: 8, want: "abcde..."},
		{name: "Tiny limit", input: "abcdef", maxLen: 2, want: "..."},
		{name: "Multibyte boundary", input: "سلام دنیا", maxLen: 6, want: "س..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := text.Truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
