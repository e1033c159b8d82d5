package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Par123456/selfcursor/internal/autoreply"
	"github.com/Par123456/selfcursor/internal/bot/handlers"
	"github.com/Par123456/selfcursor/internal/config"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/telegram"
)

// Pipeline turns every incoming message into at most one command run or
// one automatic reply.
type Pipeline struct {
	logger  *slog.Logger
	cfg     *config.Config
	engine  *autoreply.Engine
	gateway telegram.Gateway
	router  *handlers.Router
}

// NewPipeline creates the message pipeline.
func NewPipeline(
	logger *slog.Logger,
	cfg *config.Config,
	engine *autoreply.Engine,
	gateway telegram.Gateway,
	router *handlers.Router,
) *Pipeline {
	return &Pipeline{
		logger:  logger.With("component", "pipeline"),
		cfg:     cfg,
		engine:  engine,
		gateway: gateway,
		router:  router,
	}
}

// Handle is the telegram.Handler passed to the gateway.
func (p *Pipeline) Handle(ctx context.Context, msg telegram.Incoming) {
	if msg.Outgoing || msg.Control {
		if p.router.Dispatch(ctx, msg) {
			return
		}
		if msg.Outgoing {
			p.ownerSpoke(ctx, msg)
		}
		return
	}

	if msg.SenderID != 0 && msg.SenderID == p.gateway.OwnerID() {
		return
	}

	in, err := p.describe(ctx, msg)
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to describe incoming message, skipping",
			"chat_id", msg.Ref.ChatID, "message_id", msg.Ref.MessageID, "error", err)
		return
	}

	action := p.engine.Decide(in)
	if action.Kind == autoreply.NoAction {
		return
	}
	p.execute(ctx, msg, action)
}

// ownerSpoke handles an ordinary message written by the owner.
func (p *Pipeline) ownerSpoke(ctx context.Context, msg telegram.Incoming) {
	p.engine.ResetThrottle(msg.Ref.ChatID)

	if !p.cfg.Afk.AutoClear || !p.engine.Afk().Active {
		return
	}

	away, err := p.engine.ClearAfk(ctx)
	if apperrors.IsNotFound(err) {
		return
	}
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to clear AFK after owner activity", "error", err)
		return
	}
	p.logger.InfoContext(ctx, "AFK cleared by owner activity", "chat_id", msg.Ref.ChatID, "duration", away)

	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.Telegram.SendTimeout)
	defer cancel()
	text := fmt.Sprintf(p.cfg.Messages.AfkCleared, autoreply.FormatDuration(away))
	if _, err := p.gateway.Send(sendCtx, p.gateway.OwnerID(), text); err != nil {
		p.logger.WarnContext(ctx, "Failed to notify owner about AFK auto-clear", "error", err)
	}
}

// describe builds the engine's view of msg. Sender type and reply author
// are looked up through the gateway only when the message text alone
// cannot decide them.
func (p *Pipeline) describe(ctx context.Context, msg telegram.Incoming) (autoreply.Message, error) {
	in := autoreply.Message{
		ChatID:           msg.Ref.ChatID,
		MessageID:        msg.Ref.MessageID,
		SenderID:         msg.SenderID,
		Text:             msg.Text,
		IsPrivate:        msg.IsPrivate,
		IsGroup:          msg.IsGroup,
		IsMentionOfOwner: msg.IsMention,
	}

	resolveCtx, cancel := context.WithTimeout(ctx, p.cfg.Telegram.ResolveTimeout)
	defer cancel()

	if msg.SenderID != 0 {
		sender, err := p.gateway.ResolveEntity(resolveCtx, telegram.EntityQuery{ID: msg.SenderID})
		switch {
		case err == nil:
			in.SenderIsBot = sender.IsBot
		case apperrors.IsNotFound(err):
			// Unknown senders are treated as people.
		default:
			return autoreply.Message{}, fmt.Errorf("failed to resolve sender %d: %w", msg.SenderID, err)
		}
	}

	if msg.ReplyTo == nil {
		return in, nil
	}

	author := msg.ReplyToSenderID
	if author == 0 && msg.IsGroup && !msg.IsMention && p.canAnswer(msg.Ref.ChatID) {
		var err error
		author, err = p.gateway.MessageAuthor(resolveCtx, *msg.ReplyTo)
		if err != nil && !apperrors.IsNotFound(err) {
			return autoreply.Message{}, fmt.Errorf("failed to look up replied message: %w", err)
		}
	}
	in.IsReplyToOwner = author != 0 && author == p.gateway.OwnerID()

	return in, nil
}

// canAnswer reports whether the engine could respond in chatID at all, so
// a group reply's author is worth fetching.
func (p *Pipeline) canAnswer(chatID int64) bool {
	st := p.engine.Status()
	if st.RulesEnabled && st.Rules > 0 {
		return true
	}
	return st.Afk.Active && !p.engine.IsIgnored(chatID)
}

// execute performs action as a reply to msg. Sends are bounded by the
// send timeout and never retried.
func (p *Pipeline) execute(ctx context.Context, msg telegram.Incoming, action autoreply.Action) {
	log := p.logger.With("chat_id", msg.Ref.ChatID, "message_id", msg.Ref.MessageID, "action", action.Kind)

	if action.Text != "" {
		sendCtx, cancel := context.WithTimeout(ctx, p.cfg.Telegram.SendTimeout)
		_, err := p.gateway.Reply(sendCtx, msg.Ref, action.Text)
		cancel()
		if err != nil {
			log.WarnContext(ctx, "Failed to send automatic reply", "error", err)
			return
		}
	}

	if action.Media != "" {
		sendCtx, cancel := context.WithTimeout(ctx, p.cfg.Telegram.SendTimeout)
		_, err := p.gateway.ReplyMedia(sendCtx, msg.Ref, action.Media)
		cancel()
		if err != nil {
			log.WarnContext(ctx, "Failed to send automatic media reply", "error", err)
			return
		}
	}

	log.InfoContext(ctx, "Sent automatic reply", "rule_id", action.RuleID)
}
