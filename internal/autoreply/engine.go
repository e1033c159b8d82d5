package autoreply

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	defaultReason         = "No reason given."
	defaultNoticeTemplate = "I'm away from keyboard right now.\nReason: {reason}\nAway for: {duration}\nI'll get back to you as soon as I return."
)

// Config tunes the engine. Zero values fall back to sensible defaults
// except Cooldown, where zero means a notice stays throttled until the
// throttle is reset.
type Config struct {
	Cooldown       time.Duration
	DefaultReason  string
	NoticeTemplate string
	Now            func() time.Time
}

// Engine owns the AFK state, ignore list, rule set and notification
// throttle. It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	store    Store
	logger   *slog.Logger
	validate *validator.Validate

	cooldown       time.Duration
	defaultReason  string
	noticeTemplate string
	now            func() time.Time

	afk      AfkState
	ignored  map[int64]struct{}
	rules    []Rule // creation order
	settings Settings
	throttle throttle
}

// New creates an engine with empty state. Call Load to populate it from
// the store.
func New(store Store, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.DefaultReason == "" {
		cfg.DefaultReason = defaultReason
	}
	if cfg.NoticeTemplate == "" {
		cfg.NoticeTemplate = defaultNoticeTemplate
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		store:          store,
		logger:         logger.With("component", "autoreply"),
		validate:       validator.New(),
		cooldown:       cfg.Cooldown,
		defaultReason:  cfg.DefaultReason,
		noticeTemplate: cfg.NoticeTemplate,
		now:            cfg.Now,
		ignored:        make(map[int64]struct{}),
		settings:       DefaultSettings,
		throttle:       make(throttle),
	}
}

// Load replaces in-memory state with what the store holds.
func (e *Engine) Load(ctx context.Context) error {
	state, err := e.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load auto-reply state: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.afk = state.Afk
	if !e.afk.Active {
		e.afk = AfkState{}
	}
	e.ignored = make(map[int64]struct{}, len(state.Ignored))
	for _, id := range state.Ignored {
		e.ignored[id] = struct{}{}
	}
	e.rules = slices.Clone(state.Rules)
	slices.SortStableFunc(e.rules, compareCreation)
	e.settings = state.Settings
	e.throttle = make(throttle)

	e.logger.InfoContext(ctx, "Auto-reply state loaded",
		"afk", e.afk.Active,
		"ignored_chats", len(e.ignored),
		"rules", len(e.rules),
		"rules_enabled", e.settings.RulesEnabled)
	return nil
}

// Decide returns the automatic response for msg. It performs no I/O; the
// only state it mutates is the notification throttle, when it returns
// SendAfkNotice.
func (e *Engine) Decide(msg Message) Action {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg.SenderIsBot {
		return Action{Kind: NoAction}
	}
	// Group chatter that neither mentions nor answers the owner is never
	// answered, by rules or by the AFK notice.
	if !msg.IsPrivate && !msg.IsMentionOfOwner && !msg.IsReplyToOwner {
		return Action{Kind: NoAction}
	}

	// The ignore list silences AFK notices only; keyword rules still fire.
	_, ignored := e.ignored[msg.ChatID]

	if e.settings.RulesEnabled {
		if rule, ok := e.matchRule(msg); ok {
			return Action{
				Kind:   SendRuleResponse,
				Text:   rule.ResponseText,
				Media:  rule.ResponseMedia,
				RuleID: rule.ID,
			}
		}
	}

	if ignored || !e.afk.Active {
		return Action{Kind: NoAction}
	}

	now := e.now()
	if e.throttle.suppressed(msg.ChatID, msg.MessageID, now, e.cooldown) {
		return Action{Kind: NoAction}
	}
	e.throttle.record(msg.ChatID, msg.MessageID, now)

	return Action{Kind: SendAfkNotice, Text: e.noticeLocked(now)}
}

// matchRule applies peer-scoped rules first, then global ones.
func (e *Engine) matchRule(msg Message) (Rule, bool) {
	if msg.SenderID != 0 {
		if r, ok := bestMatch(e.rules, msg.Text, PeerScope(msg.SenderID)); ok {
			return r, true
		}
	}
	return bestMatch(e.rules, msg.Text, GlobalScope)
}

// bestMatch picks an exact match if one exists, otherwise the substring
// rule with the longest trigger. rules is in creation order, so the strict
// comparison keeps the oldest rule on a tie.
func bestMatch(rules []Rule, text string, scope Scope) (Rule, bool) {
	for _, r := range rules {
		if r.Enabled && r.Scope == scope && r.Match == MatchExact && r.Trigger == text {
			return r, true
		}
	}

	var (
		best    Rule
		bestLen = -1
	)
	for _, r := range rules {
		if !r.Enabled || r.Scope != scope || r.Match != MatchSubstring {
			continue
		}
		if r.Trigger == "" || !strings.Contains(text, r.Trigger) {
			continue
		}
		if n := utf8.RuneCountInString(r.Trigger); n > bestLen {
			best, bestLen = r, n
		}
	}
	return best, bestLen >= 0
}

// Afk returns the current AFK state.
func (e *Engine) Afk() AfkState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.afk
}

// IsIgnored reports whether AFK notices are suppressed in chatID.
func (e *Engine) IsIgnored(chatID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.ignored[chatID]
	return ok
}

// Status returns a diagnostics snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Status{
		Afk:          e.afk,
		IgnoredChats: len(e.ignored),
		Rules:        len(e.rules),
		RulesEnabled: e.settings.RulesEnabled,
		Throttled:    len(e.throttle),
	}
}

// ResetThrottle forgets the last notice sent to chatID, typically because
// the owner has spoken there.
func (e *Engine) ResetThrottle(chatID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.throttle, chatID)
}

// PruneThrottle drops entries whose cool-down has elapsed and returns how
// many were removed.
func (e *Engine) PruneThrottle() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.throttle.prune(e.now(), e.cooldown)
}

func compareCreation(a, b Rule) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}
