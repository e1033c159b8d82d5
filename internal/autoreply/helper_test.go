package autoreply_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/Par123456/selfcursor/internal/autoreply"
	"github.com/Par123456/selfcursor/internal/autoreply/autoreplytest"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T, cooldown time.Duration) (*autoreply.Engine, *autoreplytest.MemStore, *fakeClock) {
	t.Helper()

	store := autoreplytest.NewMemStore()
	clock := &fakeClock{now: time.Date(2025, 3, 6, 22, 30, 0, 0, time.UTC)}
	engine := autoreply.New(store, autoreply.Config{
		Cooldown: cooldown,
		Now:      clock.Now,
	}, nil)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return engine, store, clock
}

func mustAddRule(t *testing.T, e *autoreply.Engine, in autoreply.RuleInput) autoreply.Rule {
	t.Helper()
	r, err := e.AddRule(context.Background(), in)
	if err != nil {
		t.Fatalf("AddRule(%q) unexpected error: %v", in.Trigger, err)
	}
	return r
}

func privateMsg(chatID int64, messageID int, text string) autoreply.Message {
	return autoreply.Message{
		ChatID:    chatID,
		MessageID: messageID,
		SenderID:  chatID,
		Text:      text,
		IsPrivate: true,
	}
}

func collectRules(e *autoreply.Engine) []autoreply.Rule {
	return slices.Collect(e.ListRules())
}
