package handlers

import (
	"context"
	"fmt"
	"strings"
)

// NewHelpHandler returns a handler for the help command. registered is read
// at call time, so it may still be filled after this returns.
func NewHelpHandler(deps HandlerDeps, registered map[string]RegisteredHandler) HandlerFunc {
	return helpHandler{deps: deps, registered: registered}.Handle
}

// helpHandler processes the help command using injected dependencies.
type helpHandler struct {
	deps       HandlerDeps
	registered map[string]RegisteredHandler
}

func (h helpHandler) Handle(ctx context.Context, cmd Command) {
	log := h.deps.Logger.With("handler", "help")
	log.InfoContext(ctx, "Handling help command", "chat_id", cmd.Msg.Ref.ChatID)

	prefix := "."
	if len(h.deps.Config.Commands.Prefixes) > 0 {
		prefix = h.deps.Config.Commands.Prefixes[0]
	}

	var b strings.Builder
	b.WriteString("📖 Commands:")
	for _, name := range sortedNames(h.registered) {
		reg := h.registered[name]
		fmt.Fprintf(&b, "\n%s%s\n  %s", prefix, reg.Usage, reg.Description)
	}

	h.deps.respond(ctx, log, cmd, b.String())
}
