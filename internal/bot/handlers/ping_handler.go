package handlers

import (
	"context"
	"fmt"
	"time"
)

// NewPingHandler returns a handler for the ping command. The reported
// latency is the round trip of the acknowledgement itself.
func NewPingHandler(deps HandlerDeps) HandlerFunc {
	return pingHandler{deps}.Handle
}

type pingHandler struct {
	deps HandlerDeps
}

func (h pingHandler) Handle(ctx context.Context, cmd Command) {
	log := h.deps.Logger.With("handler", "ping")

	start := time.Now()
	sendCtx, cancel := context.WithTimeout(ctx, h.deps.Config.Telegram.SendTimeout)
	defer cancel()

	if err := h.deps.Gateway.Acknowledge(sendCtx, cmd.Msg.Ref, fmt.Sprintf(h.deps.Config.Messages.Pong, "…")); err != nil {
		log.ErrorContext(ctx, "Failed to send pong", "error", err)
		return
	}
	latency := time.Since(start).Round(time.Millisecond)

	log.DebugContext(ctx, "Ping round trip", "latency", latency)
	h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.Pong, latency))
}
