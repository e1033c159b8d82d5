package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Par123456/selfcursor/internal/autoreply"
	"github.com/Par123456/selfcursor/internal/config"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/telegram"
)

// HandlerDeps provides dependencies for owner command handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Engine  *autoreply.Engine
	Gateway telegram.Gateway
	Started time.Time
}

// respond answers the command within the configured send timeout.
func (d HandlerDeps) respond(ctx context.Context, log *slog.Logger, cmd Command, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, d.Config.Telegram.SendTimeout)
	defer cancel()

	if err := d.Gateway.Acknowledge(sendCtx, cmd.Msg.Ref, text); err != nil {
		log.ErrorContext(ctx, "Failed to send command response", "error", err, "chat_id", cmd.Msg.Ref.ChatID)
	}
}

// fail renders err for the owner. Validation and not-found errors are
// shown as-is, authorization errors are dropped without a reply and
// anything else becomes the general error text.
func (d HandlerDeps) fail(ctx context.Context, log *slog.Logger, cmd Command, err error) {
	var (
		validationErr *apperrors.ValidationError
		notFoundErr   *apperrors.NotFoundError
	)

	switch {
	case apperrors.IsAuthorization(err):
		log.WarnContext(ctx, "Dropping unauthorized command", "command", cmd.Name, "user_id", cmd.Msg.SenderID)
	case errors.As(err, &validationErr):
		log.InfoContext(ctx, "Rejected command input", "command", cmd.Name, "reason", validationErr.Reason())
		d.respond(ctx, log, cmd, "⚠️ "+validationErr.Reason())
	case errors.As(err, &notFoundErr):
		d.respond(ctx, log, cmd, "ℹ️ "+notFoundErr.Message())
	case errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(ctx, "Command timed out", "command", cmd.Name)
		d.respond(ctx, log, cmd, d.Config.Messages.GeneralError)
	default:
		log.ErrorContext(ctx, "Command failed", "command", cmd.Name, "error", err)
		d.respond(ctx, log, cmd, d.Config.Messages.GeneralError)
	}
}

// resolveTimeout bounds entity lookups made while handling a command.
func (d HandlerDeps) resolveTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.Config.Telegram.ResolveTimeout)
}
