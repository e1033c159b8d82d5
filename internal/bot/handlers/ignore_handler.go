package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/telegram"
)

// NewIgnoreHandler returns the afkignore handler, or afkunignore when
// ignore is false.
func NewIgnoreHandler(deps HandlerDeps, ignore bool) HandlerFunc {
	return ignoreHandler{deps: deps, ignore: ignore}.Handle
}

type ignoreHandler struct {
	deps   HandlerDeps
	ignore bool
}

func (h ignoreHandler) Handle(ctx context.Context, cmd Command) {
	log := h.deps.Logger.With("handler", "ignore", "ignore", h.ignore)

	var target string
	if len(cmd.Args) > 0 {
		target = cmd.Args[0]
	}
	chatID, err := h.deps.resolveChat(ctx, cmd.Msg.Ref.ChatID, target)
	if err != nil {
		h.deps.fail(ctx, log, cmd, err)
		return
	}

	msgs := h.deps.Config.Messages
	if h.ignore {
		changed, err := h.deps.Engine.Ignore(ctx, chatID)
		if err != nil {
			h.deps.fail(ctx, log, cmd, err)
			return
		}
		if !changed {
			h.deps.respond(ctx, log, cmd, fmt.Sprintf(msgs.AlreadyIgnored, chatID))
			return
		}
		h.deps.respond(ctx, log, cmd, fmt.Sprintf(msgs.ChatIgnored, chatID))
		return
	}

	changed, err := h.deps.Engine.Unignore(ctx, chatID)
	if err != nil {
		h.deps.fail(ctx, log, cmd, err)
		return
	}
	if !changed {
		h.deps.respond(ctx, log, cmd, fmt.Sprintf(msgs.NotIgnored, chatID))
		return
	}
	h.deps.respond(ctx, log, cmd, fmt.Sprintf(msgs.ChatUnignored, chatID))
}

// resolveChat turns an optional chat argument into a marked chat ID.
// No argument means current; digits are taken as an ID and anything else
// is looked up as a username.
func (d HandlerDeps) resolveChat(ctx context.Context, current int64, arg string) (int64, error) {
	if arg == "" {
		return current, nil
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if id == 0 {
			return 0, apperrors.NewValidationError("chat id must not be 0", nil)
		}
		return id, nil
	}

	entity, err := d.resolveUsername(ctx, arg)
	if err != nil {
		return 0, err
	}
	return entity.ID, nil
}

func (d HandlerDeps) resolveUsername(ctx context.Context, arg string) (telegram.Entity, error) {
	username := strings.TrimPrefix(arg, "@")
	if username == "" {
		return telegram.Entity{}, apperrors.NewValidationError("empty username", nil)
	}

	resolveCtx, cancel := d.resolveTimeout(ctx)
	defer cancel()

	entity, err := d.Gateway.ResolveEntity(resolveCtx, telegram.EntityQuery{Username: username})
	if err != nil {
		if apperrors.IsCollaborator(err) {
			d.Logger.WarnContext(ctx, "Failed to resolve username", "username", username, "error", err)
			return telegram.Entity{}, apperrors.NewNotFoundError("could not find @" + username)
		}
		return telegram.Entity{}, err
	}
	return entity, nil
}
