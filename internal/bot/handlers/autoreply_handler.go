package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/Par123456/selfcursor/internal/autoreply"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/text"
)

const (
	responseSeparator = "|"
	listPreviewLen    = 60
)

// NewAutoReplyHandler returns a handler for the autoreply command and its
// subcommands.
func NewAutoReplyHandler(deps HandlerDeps) HandlerFunc {
	return autoReplyHandler{deps}.Handle
}

type autoReplyHandler struct {
	deps HandlerDeps
}

func (h autoReplyHandler) Handle(ctx context.Context, cmd Command) {
	log := h.deps.Logger.With("handler", "autoreply")

	if len(cmd.Args) == 0 {
		h.deps.fail(ctx, log, cmd, apperrors.NewValidationError("usage: autoreply add|exact|peer|del|delpeer|list|clear|on|off|enable|disable", nil))
		return
	}

	sub := strings.ToLower(cmd.Args[0])
	body := afterFirstField(cmd.Raw)

	switch sub {
	case "add":
		h.add(ctx, log, cmd, body, autoreply.MatchSubstring, autoreply.GlobalScope)
	case "exact":
		h.add(ctx, log, cmd, body, autoreply.MatchExact, autoreply.GlobalScope)
	case "peer":
		scope, rest, err := h.peerScope(ctx, body)
		if err != nil {
			h.deps.fail(ctx, log, cmd, err)
			return
		}
		h.add(ctx, log, cmd, rest, autoreply.MatchSubstring, scope)
	case "del", "remove":
		h.remove(ctx, log, cmd, body, autoreply.GlobalScope)
	case "delpeer":
		scope, rest, err := h.peerScope(ctx, body)
		if err != nil {
			h.deps.fail(ctx, log, cmd, err)
			return
		}
		h.remove(ctx, log, cmd, rest, scope)
	case "list":
		h.list(ctx, log, cmd)
	case "clear":
		n, err := h.deps.Engine.ClearRules(ctx)
		if err != nil {
			h.deps.fail(ctx, log, cmd, err)
			return
		}
		h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.RulesCleared, n))
	case "on", "off":
		h.switchAll(ctx, log, cmd, sub == "on")
	case "enable", "disable":
		h.toggle(ctx, log, cmd, body, sub == "enable")
	default:
		h.deps.fail(ctx, log, cmd, apperrors.NewValidationError(fmt.Sprintf("unknown autoreply subcommand %q", sub), nil))
	}
}

func (h autoReplyHandler) add(ctx context.Context, log *slog.Logger, cmd Command, body string, match autoreply.MatchKind, scope autoreply.Scope) {
	trigger, response, hasSeparator := strings.Cut(body, responseSeparator)
	trigger = strings.TrimSpace(trigger)
	response = strings.TrimSpace(response)

	in := autoreply.RuleInput{
		Trigger:      trigger,
		Match:        match,
		ResponseText: response,
		Scope:        scope,
	}

	if response == "" && cmd.Msg.ReplyTo != nil {
		captureCtx, cancel := context.WithTimeout(ctx, h.deps.Config.Telegram.SendTimeout)
		media, err := h.deps.Gateway.CaptureMedia(captureCtx, *cmd.Msg.ReplyTo)
		cancel()
		if err != nil {
			h.deps.fail(ctx, log, cmd, err)
			return
		}
		in.ResponseMedia = media
	} else if !hasSeparator {
		h.deps.fail(ctx, log, cmd, apperrors.NewValidationError("separate trigger and response with \"|\", or reply to a media message", nil))
		return
	}

	rule, err := h.deps.Engine.AddRule(ctx, in)
	if err != nil {
		h.deps.fail(ctx, log, cmd, err)
		return
	}

	h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.RuleAdded, rule.Trigger, rule.Match, rule.Scope))
}

func (h autoReplyHandler) remove(ctx context.Context, log *slog.Logger, cmd Command, trigger string, scope autoreply.Scope) {
	trigger = text.Clean(trigger)
	if trigger == "" {
		h.deps.fail(ctx, log, cmd, apperrors.NewValidationError("trigger must not be empty", nil))
		return
	}

	n, err := h.deps.Engine.RemoveRule(ctx, trigger, scope)
	if err != nil {
		h.deps.fail(ctx, log, cmd, err)
		return
	}
	if n == 0 {
		h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.RuleNotFound, trigger))
		return
	}
	h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.RuleRemoved, n, trigger))
}

func (h autoReplyHandler) list(ctx context.Context, log *slog.Logger, cmd Command) {
	var b strings.Builder
	for rule := range h.deps.Engine.ListRules() {
		fmt.Fprintf(&b, "\n#%d %q [%s, %s] → %s", rule.ID, rule.Trigger, rule.Match, rule.Scope, describeResponse(rule))
		if !rule.Enabled {
			b.WriteString(" (off)")
		}
	}

	if b.Len() == 0 {
		h.deps.respond(ctx, log, cmd, h.deps.Config.Messages.RulesEmpty)
		return
	}

	header := h.deps.Config.Messages.RulesHeader
	if !h.deps.Engine.Status().RulesEnabled {
		header += "\n" + h.deps.Config.Messages.RulesOff
	}
	h.deps.respond(ctx, log, cmd, header+b.String())
}

func (h autoReplyHandler) switchAll(ctx context.Context, log *slog.Logger, cmd Command, on bool) {
	if err := h.deps.Engine.SetRulesEnabled(ctx, on); err != nil {
		h.deps.fail(ctx, log, cmd, err)
		return
	}
	if on {
		h.deps.respond(ctx, log, cmd, h.deps.Config.Messages.RulesOn)
		return
	}
	h.deps.respond(ctx, log, cmd, h.deps.Config.Messages.RulesOff)
}

func (h autoReplyHandler) toggle(ctx context.Context, log *slog.Logger, cmd Command, trigger string, enabled bool) {
	trigger = text.Clean(trigger)
	if trigger == "" {
		h.deps.fail(ctx, log, cmd, apperrors.NewValidationError("trigger must not be empty", nil))
		return
	}

	err := h.deps.Engine.SetRuleEnabled(ctx, trigger, autoreply.GlobalScope, enabled)
	if apperrors.IsNotFound(err) {
		h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.RuleNotFound, trigger))
		return
	}
	if err != nil {
		h.deps.fail(ctx, log, cmd, err)
		return
	}

	if enabled {
		h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.RuleEnabled, trigger))
		return
	}
	h.deps.respond(ctx, log, cmd, fmt.Sprintf(h.deps.Config.Messages.RuleDisabled, trigger))
}

// peerScope consumes the leading user argument of body.
func (h autoReplyHandler) peerScope(ctx context.Context, body string) (autoreply.Scope, string, error) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return autoreply.Scope{}, "", apperrors.NewValidationError("missing user: give an id or @username", nil)
	}

	peerID, err := h.deps.resolveChat(ctx, 0, fields[0])
	if err != nil {
		return autoreply.Scope{}, "", err
	}
	return autoreply.PeerScope(peerID), afterFirstField(body), nil
}

func describeResponse(rule autoreply.Rule) string {
	switch {
	case rule.ResponseText != "" && rule.ResponseMedia != "":
		return text.Truncate(rule.ResponseText, listPreviewLen) + " + media"
	case rule.ResponseMedia != "":
		return "media"
	default:
		return text.Truncate(rule.ResponseText, listPreviewLen)
	}
}

// afterFirstField drops the first whitespace-separated field of s and
// returns the rest trimmed, keeping inner line breaks.
func afterFirstField(s string) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(s[i:])
}
