package handlers_test

import (
	"slices"
	"testing"

	"github.com/Par123456/selfcursor/internal/bot/handlers"
)

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	p := handlers.NewParser([]string{".", "/", "//"})

	tests := []struct {
		name     string
		text     string
		wantOK   bool
		wantName string
		wantArgs []string
		wantRaw  string
	}{
		{name: "Bare command", text: ".ping", wantOK: true, wantName: "ping", wantArgs: nil, wantRaw: ""},
		{name: "Arguments", text: ".afk  gone   fishing ", wantOK: true, wantName: "afk", wantArgs: []string{"gone", "fishing"}, wantRaw: "gone   fishing"},
		{name: "Bot suffix", text: "/status@my_bot", wantOK: true, wantName: "status"},
		{name: "Case folded", text: ".AFK", wantOK: true, wantName: "afk"},
		{name: "Longest prefix first", text: "//help", wantOK: true, wantName: "help"},
		{name: "Multiline raw", text: ".autoreply add hi | line1\nline2", wantOK: true, wantName: "autoreply", wantArgs: []string{"add", "hi", "|", "line1", "line2"}, wantRaw: "add hi | line1\nline2"},
		{name: "No prefix", text: "hello", wantOK: false},
		{name: "Prefix only", text: ".", wantOK: false},
		{name: "Space after prefix", text: ". afk", wantOK: false},
		{name: "Number after prefix", text: ".5 km away", wantOK: false},
		{name: "Ellipsis", text: "...", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd, ok := p.Parse(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if cmd.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", cmd.Name, tt.wantName)
			}
			if tt.wantArgs != nil && !slices.Equal(cmd.Args, tt.wantArgs) {
				t.Errorf("Args = %q, want %q", cmd.Args, tt.wantArgs)
			}
			if tt.wantRaw != "" && cmd.Raw != tt.wantRaw {
				t.Errorf("Raw = %q, want %q", cmd.Raw, tt.wantRaw)
			}
		})
	}
}
