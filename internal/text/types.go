// Package text cleans owner-supplied command arguments before they are
// stored as auto-reply triggers or responses.
package text

import (
	"regexp"
	"strings"
)

var (
	// controlCharsRegex matches ASCII control characters (including DEL 0x7F)
	// other than tab and newline.
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	// invisibleReplacer strips format characters that make two visually equal
	// triggers compare unequal. ZWNJ (U+200C) is kept: it is part of normal
	// Persian orthography.
	invisibleReplacer = strings.NewReplacer(
		"\u2060", "", // Word Joiner
		"\uFEFF", "", // Byte Order Mark
		"\u00AD", "", // Soft Hyphen
		"\u200E", "", // Left-to-Right Mark
		"\u200F", "", // Right-to-Left Mark
		"\u200B", "", // Zero Width Space
		"\u2028", "\n", // Line Separator
		"\u2029", "\n", // Paragraph Separator
		"\u00A0", " ", // Non-breaking Space
	)
)
