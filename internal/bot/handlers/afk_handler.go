package handlers

import (
	"context"
	"fmt"

	"github.com/Par123456/selfcursor/internal/autoreply"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/text"
)

// NewAfkHandler returns a handler for the afk command.
func NewAfkHandler(deps HandlerDeps) HandlerFunc {
	return afkHandler{deps}.Handle
}

type afkHandler struct {
	deps HandlerDeps
}

func (h afkHandler) Handle(ctx context.Context, cmd Command) {
	log := h.deps.Logger.With("handler", "afk")

	reason := text.Clean(cmd.Raw)
	state, err := h.deps.Engine.SetAfk(ctx, reason)
	if err != nil {
		h.deps.fail(ctx, log, cmd, err)
		return
	}

	shown := state.Reason
	if shown == "" {
		shown = h.deps.Config.Afk.DefaultReason
	}
	log.InfoContext(ctx, "Owner went AFK", "reason", shown)
	h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.AfkSet, shown))
}

// NewUnafkHandler returns a handler for the unafk command.
func NewUnafkHandler(deps HandlerDeps) HandlerFunc {
	return unafkHandler{deps}.Handle
}

type unafkHandler struct {
	deps HandlerDeps
}

func (h unafkHandler) Handle(ctx context.Context, cmd Command) {
	log := h.deps.Logger.With("handler", "unafk")

	away, err := h.deps.Engine.ClearAfk(ctx)
	if apperrors.IsNotFound(err) {
		h.deps.respond(ctx, log, cmd, h.deps.Config.Messages.NotAfk)
		return
	}
	if err != nil {
		h.deps.fail(ctx, log, cmd, err)
		return
	}

	h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.AfkCleared, autoreply.FormatDuration(away)))
}
