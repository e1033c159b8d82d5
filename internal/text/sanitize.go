package text

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/Par123456/selfcursor/internal/errors"
)

// Clean normalizes line endings, removes invisible and control characters
// and trims surrounding whitespace. Inner spacing is preserved because
// exact-match triggers compare against raw incoming text.
func Clean(input string) string {
	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = invisibleReplacer.Replace(s)
	s = controlCharsRegex.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}

// CleanRequired is Clean that rejects input which is empty afterwards.
func CleanRequired(field, input string) (string, error) {
	s := Clean(input)
	if s == "" {
		return "", apperrors.NewValidationError(field+" must not be empty", nil)
	}

	return s, nil
}

// Truncate shortens s to at most maxLen bytes without splitting a rune,
// appending "..." when something was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}

	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut] + "..."
}
