package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Par123456/selfcursor/internal/autoreply"
	"github.com/Par123456/selfcursor/internal/autoreply/autoreplytest"
	"github.com/Par123456/selfcursor/internal/bot/handlers"
	"github.com/Par123456/selfcursor/internal/config"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/telegram"
	"github.com/Par123456/selfcursor/internal/telegram/telegramtest"
)

const (
	testOwner  = int64(42)
	testFriend = int64(100)
	testBot    = int64(200)
	testGroup  = int64(-300)
)

func newTestPipeline(t *testing.T, autoClear bool) (*Pipeline, *telegramtest.Gateway, *autoreply.Engine) {
	t.Helper()

	cfg := &config.Config{
		Telegram: config.TelegramConfig{SendTimeout: time.Second, ResolveTimeout: time.Second},
		Afk:      config.AfkConfig{DefaultReason: "busy", Cooldown: 15 * time.Minute, AutoClear: autoClear},
		Commands: config.CommandsConfig{Prefixes: []string{"."}},
		Messages: config.DefaultMessages,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := autoreply.New(autoreplytest.NewMemStore(), autoreply.Config{
		Cooldown:       cfg.Afk.Cooldown,
		NoticeTemplate: "away: {reason}",
	}, logger)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	gw := telegramtest.New(testOwner)
	gw.AddEntity(telegram.Entity{ID: testFriend, Kind: telegram.EntityUser})
	gw.AddEntity(telegram.Entity{ID: testBot, Kind: telegram.EntityUser, IsBot: true})

	deps := handlers.HandlerDeps{Logger: logger, Config: cfg, Engine: engine, Gateway: gw}
	router := handlers.NewRouter(deps, handlers.RegisterAllCommands(deps))

	return NewPipeline(logger, cfg, engine, gw, router), gw, engine
}

func goAfk(t *testing.T, e *autoreply.Engine) {
	t.Helper()
	if _, err := e.SetAfk(context.Background(), "lunch"); err != nil {
		t.Fatalf("SetAfk() unexpected error: %v", err)
	}
}

func private(from int64, id int, text string) telegram.Incoming {
	return telegram.Incoming{
		Ref:       telegram.MessageRef{ChatID: from, MessageID: id},
		SenderID:  from,
		Text:      text,
		IsPrivate: true,
	}
}

func outgoing(chatID int64, id int, text string) telegram.Incoming {
	return telegram.Incoming{
		Ref:      telegram.MessageRef{ChatID: chatID, MessageID: id},
		SenderID: testOwner,
		Text:     text,
		Outgoing: true,
	}
}

func kinds(sent []telegramtest.Sent) []string {
	out := make([]string, 0, len(sent))
	for _, s := range sent {
		out = append(out, s.Kind)
	}
	return out
}

func TestPipeline_AfkNotice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, gw, engine := newTestPipeline(t, false)

	p.Handle(ctx, private(testFriend, 1, "hi"))
	if sent := gw.Sent(); len(sent) != 0 {
		t.Fatalf("reply while present: %+v", sent)
	}

	goAfk(t, engine)

	p.Handle(ctx, private(testFriend, 2, "hello?"))
	sent := gw.Sent()
	if len(sent) != 1 || sent[0].Kind != "reply" || sent[0].Text != "away: lunch" {
		t.Fatalf("sent = %+v, want one AFK notice", sent)
	}
	if sent[0].Ref != (telegram.MessageRef{ChatID: testFriend, MessageID: 2}) {
		t.Errorf("notice replied to %+v", sent[0].Ref)
	}

	gw.Reset()
	p.Handle(ctx, private(testFriend, 3, "still there?"))
	if sent := gw.Sent(); len(sent) != 0 {
		t.Errorf("throttled chat got replies: %+v", sent)
	}

	// An ordinary owner message resets the throttle for that chat.
	p.Handle(ctx, outgoing(testFriend, 4, "one sec"))
	if !engine.Afk().Active {
		t.Error("AFK cleared although auto-clear is off")
	}
	p.Handle(ctx, private(testFriend, 5, "ok"))
	if sent := gw.Sent(); len(sent) != 1 || sent[0].Kind != "reply" {
		t.Errorf("sent after owner message = %+v, want a fresh notice", sent)
	}
}

func TestPipeline_AutoClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, gw, engine := newTestPipeline(t, true)
	goAfk(t, engine)

	p.Handle(ctx, outgoing(testFriend, 1, "back"))

	if engine.Afk().Active {
		t.Fatal("AFK still active after owner message")
	}
	sent := gw.Sent()
	if len(sent) != 1 || sent[0].Kind != "send" || sent[0].Ref.ChatID != testOwner {
		t.Fatalf("sent = %+v, want one note to the owner", sent)
	}
	if !strings.HasPrefix(sent[0].Text, "👋 Welcome back!") {
		t.Errorf("note = %q", sent[0].Text)
	}

	gw.Reset()
	p.Handle(ctx, outgoing(testFriend, 2, "again"))
	if sent := gw.Sent(); len(sent) != 0 {
		t.Errorf("second owner message sent %+v, want nothing", sent)
	}
}

func TestPipeline_CommandsAreNotDecided(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, gw, engine := newTestPipeline(t, true)

	p.Handle(ctx, outgoing(testGroup, 1, ".afk nap"))
	if !engine.Afk().Active {
		t.Fatal(".afk did not set AFK")
	}
	if got := kinds(gw.Sent()); len(got) != 1 || got[0] != "ack" {
		t.Errorf("sent kinds = %v, want [ack]", got)
	}

	// Plain text in the bot chat is neither a command nor owner activity.
	gw.Reset()
	control := private(testOwner, 2, "hello bot")
	control.Control = true
	p.Handle(ctx, control)
	if sent := gw.Sent(); len(sent) != 0 {
		t.Errorf("control text produced %+v", sent)
	}
	if !engine.Afk().Active {
		t.Error("control text cleared AFK")
	}
}

func TestPipeline_GroupMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, gw, engine := newTestPipeline(t, false)
	goAfk(t, engine)

	ownerMsg := telegram.MessageRef{ChatID: testGroup, MessageID: 10}
	otherMsg := telegram.MessageRef{ChatID: testGroup, MessageID: 11}
	gw.SetAuthor(ownerMsg, testOwner)
	gw.SetAuthor(otherMsg, testFriend)

	group := func(id int, replyTo *telegram.MessageRef, mention bool) telegram.Incoming {
		return telegram.Incoming{
			Ref:       telegram.MessageRef{ChatID: testGroup, MessageID: id},
			SenderID:  testFriend,
			Text:      "hey",
			IsGroup:   true,
			IsMention: mention,
			ReplyTo:   replyTo,
		}
	}

	tests := []struct {
		name      string
		msg       telegram.Incoming
		wantReply bool
	}{
		{name: "Plain group message", msg: group(20, nil, false), wantReply: false},
		{name: "Reply to someone else", msg: group(21, &otherMsg, false), wantReply: false},
		{name: "Reply to unknown message", msg: group(22, &telegram.MessageRef{ChatID: testGroup, MessageID: 99}, false), wantReply: false},
		{name: "Reply to owner", msg: group(23, &ownerMsg, false), wantReply: true},
		{name: "Mention", msg: group(24, nil, true), wantReply: true},
	}

	// Steps share the throttle, so each positive case resets it first.
	for _, tt := range tests {
		gw.Reset()
		engine.ResetThrottle(testGroup)
		p.Handle(ctx, tt.msg)
		if got := len(gw.Sent()) == 1; got != tt.wantReply {
			t.Errorf("%s: replied = %v, want %v (%+v)", tt.name, got, tt.wantReply, gw.Sent())
		}
	}

	// Embedded reply authors skip the lookup.
	gw.Reset()
	engine.ResetThrottle(testGroup)
	msg := group(30, &telegram.MessageRef{ChatID: testGroup, MessageID: 77}, false)
	msg.ReplyToSenderID = testOwner
	p.Handle(ctx, msg)
	if len(gw.Sent()) != 1 {
		t.Errorf("embedded reply author: sent = %+v, want a notice", gw.Sent())
	}
}

func TestPipeline_SkipsBotsAndOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, gw, engine := newTestPipeline(t, false)
	goAfk(t, engine)

	p.Handle(ctx, private(testBot, 1, "beep"))
	p.Handle(ctx, private(testOwner, 2, "note to self"))

	if sent := gw.Sent(); len(sent) != 0 {
		t.Errorf("sent = %+v, want nothing", sent)
	}
}

func TestPipeline_RuleResponses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, gw, engine := newTestPipeline(t, false)

	if _, err := engine.AddRule(ctx, autoreply.RuleInput{
		Trigger:       "price",
		Match:         autoreply.MatchSubstring,
		ResponseText:  "10$",
		ResponseMedia: "photo:list",
	}); err != nil {
		t.Fatalf("AddRule() unexpected error: %v", err)
	}

	p.Handle(ctx, private(testFriend, 1, "what is the price?"))
	if got := kinds(gw.Sent()); len(got) != 2 || got[0] != "reply" || got[1] != "media" {
		t.Fatalf("sent kinds = %v, want [reply media]", got)
	}
	if media := gw.Sent()[1].Media; media != "photo:list" {
		t.Errorf("media = %q", media)
	}

	// A failed send is dropped without retry.
	gw.Reset()
	gw.FailSends(apperrors.NewCollaboratorError("send", errors.New("FLOOD_WAIT")))
	p.Handle(ctx, private(testFriend, 2, "price?"))
	gw.FailSends(nil)
	if sent := gw.Sent(); len(sent) != 0 {
		t.Errorf("sent after failure = %+v", sent)
	}
}

func TestPipeline_LookupFailureSkipsMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, gw, engine := newTestPipeline(t, false)
	goAfk(t, engine)

	gw.FailLookups(apperrors.NewCollaboratorError("resolve", context.DeadlineExceeded))
	p.Handle(ctx, private(testFriend, 1, "hi"))
	if sent := gw.Sent(); len(sent) != 0 {
		t.Errorf("sent = %+v, want nothing", sent)
	}
	if got := engine.Status().Throttled; got != 0 {
		t.Errorf("Throttled = %d, want 0", got)
	}
}

func TestPipeline_GroupReplyAuthorLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, gw, engine := newTestPipeline(t, false)

	ownerMsg := telegram.MessageRef{ChatID: testGroup, MessageID: 10}
	gw.SetAuthor(ownerMsg, testOwner)

	replyToOwner := func(id int) telegram.Incoming {
		return telegram.Incoming{
			Ref:      telegram.MessageRef{ChatID: testGroup, MessageID: id},
			SenderID: testFriend,
			Text:     "this is a thing",
			IsGroup:  true,
			ReplyTo:  &ownerMsg,
		}
	}

	// Present, no rules: nothing could answer, so the author is not fetched.
	p.Handle(ctx, replyToOwner(20))
	if n := gw.AuthorLookups(); n != 0 {
		t.Errorf("author lookups while idle = %d, want 0", n)
	}

	// AFK in an ignored chat is still idle.
	goAfk(t, engine)
	if _, err := engine.Ignore(ctx, testGroup); err != nil {
		t.Fatalf("Ignore() unexpected error: %v", err)
	}
	p.Handle(ctx, replyToOwner(21))
	if n := gw.AuthorLookups(); n != 0 {
		t.Errorf("author lookups in ignored chat = %d, want 0", n)
	}
	if sent := gw.Sent(); len(sent) != 0 {
		t.Fatalf("sent = %+v, want nothing", sent)
	}

	// A rule makes the author relevant again.
	if _, err := engine.AddRule(ctx, autoreply.RuleInput{
		Trigger:      "hi",
		Match:        autoreply.MatchSubstring,
		ResponseText: "hello!",
	}); err != nil {
		t.Fatalf("AddRule() unexpected error: %v", err)
	}
	p.Handle(ctx, replyToOwner(22))
	if n := gw.AuthorLookups(); n != 1 {
		t.Errorf("author lookups with a rule = %d, want 1", n)
	}
	if sent := gw.Sent(); len(sent) != 1 || sent[0].Text != "hello!" {
		t.Errorf("sent = %+v, want the rule response", sent)
	}
}

func TestPipeline_GroupRulesNeedMentionOrReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, gw, engine := newTestPipeline(t, false)

	if _, err := engine.AddRule(ctx, autoreply.RuleInput{
		Trigger:      "hi",
		Match:        autoreply.MatchSubstring,
		ResponseText: "hello!",
	}); err != nil {
		t.Fatalf("AddRule() unexpected error: %v", err)
	}

	for id := 1; id <= 3; id++ {
		p.Handle(ctx, telegram.Incoming{
			Ref:      telegram.MessageRef{ChatID: testGroup, MessageID: id},
			SenderID: testFriend,
			Text:     "this is a thing",
			IsGroup:  true,
		})
	}
	if sent := gw.Sent(); len(sent) != 0 {
		t.Fatalf("unaddressed group messages got replies: %+v", sent)
	}

	p.Handle(ctx, telegram.Incoming{
		Ref:       telegram.MessageRef{ChatID: testGroup, MessageID: 4},
		SenderID:  testFriend,
		Text:      "@owner this is a thing",
		IsGroup:   true,
		IsMention: true,
	})
	if sent := gw.Sent(); len(sent) != 1 || sent[0].Text != "hello!" {
		t.Errorf("mention: sent = %+v, want the rule response", sent)
	}
}
