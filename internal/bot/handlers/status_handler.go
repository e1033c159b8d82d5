package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Par123456/selfcursor/internal/autoreply"
)

// NewStatusHandler returns a handler for the status command.
func NewStatusHandler(deps HandlerDeps) HandlerFunc {
	return statusHandler{deps}.Handle
}

type statusHandler struct {
	deps HandlerDeps
}

func (h statusHandler) Handle(ctx context.Context, cmd Command) {
	log := h.deps.Logger.With("handler", "status")
	h.deps.respond(ctx, log, cmd, FormatStatus(h.deps.Engine.Status(), h.deps.Started, time.Now()))
}

// FormatStatus renders an engine snapshot for the owner.
func FormatStatus(st autoreply.Status, started, now time.Time) string {
	var b strings.Builder

	if st.Afk.Active {
		fmt.Fprintf(&b, "💤 AFK for %s", autoreply.Elapsed(st.Afk.Since, now))
		if st.Afk.Reason != "" {
			fmt.Fprintf(&b, ": %s", st.Afk.Reason)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("🟢 Not AFK\n")
	}

	state := "on"
	if !st.RulesEnabled {
		state = "off"
	}
	fmt.Fprintf(&b, "🤖 Auto-replies: %s (%s rules)\n", state, humanize.Comma(int64(st.Rules)))
	fmt.Fprintf(&b, "🔕 Ignored chats: %s\n", humanize.Comma(int64(st.IgnoredChats)))
	fmt.Fprintf(&b, "⏱️ Throttled chats: %s", humanize.Comma(int64(st.Throttled)))
	if !started.IsZero() {
		fmt.Fprintf(&b, "\n⏳ Up since %s", humanize.RelTime(started, now, "ago", "from now"))
	}
	return b.String()
}
