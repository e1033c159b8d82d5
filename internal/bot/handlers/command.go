package handlers

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/Par123456/selfcursor/internal/telegram"
)

// Command is an owner command parsed once from the message text.
type Command struct {
	// Name is lower-cased, without prefix or @botname suffix.
	Name string
	// Args are the whitespace-separated arguments.
	Args []string
	// Raw is everything after the name with surrounding space trimmed.
	Raw string

	Msg telegram.Incoming
}

// Parser recognises commands by prefix.
type Parser struct {
	prefixes []string
}

// NewParser returns a parser for prefixes. Longer prefixes are tried first
// so that "//" wins over "/".
func NewParser(prefixes []string) Parser {
	sorted := slices.Clone(prefixes)
	slices.SortStableFunc(sorted, func(a, b string) int { return cmp.Compare(len(b), len(a)) })
	return Parser{prefixes: sorted}
}

// Parse splits text into a command. It reports false for text that does
// not start with a prefix followed directly by a name.
func (p Parser) Parse(text string) (Command, bool) {
	text = strings.TrimSpace(text)

	for _, prefix := range p.prefixes {
		rest, ok := strings.CutPrefix(text, prefix)
		if !ok {
			continue
		}

		name, raw := rest, ""
		if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
			name, raw = rest[:i], rest[i:]
		}
		name, _, _ = strings.Cut(name, "@")
		if name == "" || !isCommandName(name) {
			return Command{}, false
		}

		return Command{
			Name: strings.ToLower(name),
			Args: strings.Fields(raw),
			Raw:  strings.TrimSpace(raw),
		}, true
	}
	return Command{}, false
}

func isCommandName(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return unicode.IsLetter([]rune(s)[0])
}
