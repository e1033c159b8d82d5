package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Par123456/selfcursor/internal/telegram"
)

// Router dispatches owner messages to the registered commands.
type Router struct {
	deps     HandlerDeps
	log      *slog.Logger
	parser   Parser
	handlers map[string]HandlerFunc
	unknown  HandlerFunc
}

// NewRouter wraps every registered handler with its middleware once.
func NewRouter(deps HandlerDeps, registered map[string]RegisteredHandler) *Router {
	log := deps.Logger.With("component", "command_router")

	r := &Router{
		deps:     deps,
		log:      log,
		parser:   NewParser(deps.Config.Commands.Prefixes),
		handlers: make(map[string]HandlerFunc, len(registered)),
	}

	for name, reg := range registered {
		if reg.Handler == nil {
			log.Warn("Skipping registration for nil handler", "command", name)
			continue
		}
		r.handlers[name] = applyMiddleware(reg.Handler, reg.Middleware)
		log.Debug("Registered command", "command", name, "middleware_count", len(reg.Middleware))
	}
	r.unknown = applyMiddleware(r.handleUnknown, []Middleware{OwnerOnly(deps)})

	log.Info("Registered owner commands", "count", len(r.handlers))
	return r
}

// applyMiddleware wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice is the outermost.
func applyMiddleware(handler HandlerFunc, mw []Middleware) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// Dispatch runs the command in msg and reports whether msg was consumed as
// a command. Unknown names written into ordinary chats are not consumed, so
// text like ".5 km" stays an ordinary message; unknown names sent to the
// bot directly get an answer.
func (r *Router) Dispatch(ctx context.Context, msg telegram.Incoming) bool {
	cmd, ok := r.parser.Parse(msg.Text)
	if !ok {
		return false
	}
	cmd.Msg = msg

	handler, ok := r.handlers[cmd.Name]
	if !ok {
		if !msg.Control {
			return false
		}
		handler = r.unknown
	}

	r.log.DebugContext(ctx, "Dispatching command", "command", cmd.Name, "chat_id", msg.Ref.ChatID)
	handler(ctx, cmd)
	return true
}

func (r *Router) handleUnknown(ctx context.Context, cmd Command) {
	r.deps.respond(ctx, r.log, cmd, fmt.Sprintf(r.deps.Config.Messages.UnknownCommand, cmd.Name))
}
