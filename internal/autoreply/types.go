// Package autoreply implements the decision engine that chooses, for every
// incoming message, between staying silent, sending an AFK notice and
// firing an owner-configured auto-reply rule.
package autoreply

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MatchKind selects how a rule trigger is compared against message text.
type MatchKind int

const (
	// MatchExact fires when the whole message text equals the trigger.
	MatchExact MatchKind = iota
	// MatchSubstring fires when the trigger appears anywhere in the text.
	MatchSubstring
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchSubstring:
		return "substring"
	default:
		return "unknown"
	}
}

// ParseMatchKind is the inverse of MatchKind.String.
func ParseMatchKind(s string) (MatchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return MatchExact, nil
	case "substring", "contains":
		return MatchSubstring, nil
	default:
		return 0, fmt.Errorf("unknown match kind %q", s)
	}
}

// Scope is either global (zero value) or bound to a single sender.
type Scope struct {
	PeerID int64
}

// GlobalScope applies a rule to every sender.
var GlobalScope = Scope{}

// PeerScope restricts a rule to messages from one sender.
func PeerScope(peerID int64) Scope {
	return Scope{PeerID: peerID}
}

func (s Scope) IsGlobal() bool {
	return s.PeerID == 0
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "peer:" + strconv.FormatInt(s.PeerID, 10)
}

// ParseScope accepts "global", "peer:<id>" or a bare numeric id.
func ParseScope(s string) (Scope, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "global") {
		return GlobalScope, nil
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "peer:"), 10, 64)
	if err != nil || id == 0 {
		return GlobalScope, fmt.Errorf("invalid scope %q", s)
	}
	return PeerScope(id), nil
}

// MediaRef is an opaque handle understood by the messaging gateway that
// captured it. Empty means no media.
type MediaRef string

// Rule is one configured automated response.
type Rule struct {
	ID            int64
	Trigger       string
	Match         MatchKind
	ResponseText  string
	ResponseMedia MediaRef
	Scope         Scope
	Enabled       bool
	CreatedAt     time.Time
}

// RuleInput is the owner-supplied part of a new rule.
type RuleInput struct {
	Trigger       string    `validate:"required"`
	Match         MatchKind `validate:"min=0,max=1"`
	ResponseText  string    `validate:"required_without=ResponseMedia"`
	ResponseMedia MediaRef  `validate:"required_without=ResponseText"`
	Scope         Scope
}

// AfkState records whether the account owner is away. Since is meaningful
// only while Active is true.
type AfkState struct {
	Active bool
	Reason string
	Since  time.Time
}

// Settings holds engine-wide switches persisted alongside the rules.
type Settings struct {
	RulesEnabled bool
}

// DefaultSettings is used when the store has never saved settings.
var DefaultSettings = Settings{RulesEnabled: true}

// State is everything the engine loads from its store at start-up.
type State struct {
	Afk      AfkState
	Ignored  []int64
	Rules    []Rule
	Settings Settings
}

// Store persists engine state. Every call happens synchronously from an
// owner command; a returned error aborts the command without touching
// in-memory state.
type Store interface {
	LoadState(ctx context.Context) (State, error)
	SaveAfk(ctx context.Context, state AfkState) error
	SaveIgnoreList(ctx context.Context, chatIDs []int64) error
	// SaveRule inserts or updates the rule keyed by (trigger, scope) and
	// sets rule.ID.
	SaveRule(ctx context.Context, rule *Rule) error
	DeleteRule(ctx context.Context, trigger string, scope Scope) (int, error)
	ClearRules(ctx context.Context) (int, error)
	SaveSettings(ctx context.Context, settings Settings) error
}

// Message is the engine's view of one incoming message. Messages sent by
// the owner never reach Decide.
type Message struct {
	ChatID    int64
	MessageID int
	SenderID  int64
	Text      string

	IsPrivate        bool
	IsGroup          bool
	IsMentionOfOwner bool
	IsReplyToOwner   bool
	SenderIsBot      bool
}

// ActionKind enumerates the possible outcomes of Decide.
type ActionKind int

const (
	NoAction ActionKind = iota
	SendAfkNotice
	SendRuleResponse
)

func (k ActionKind) String() string {
	switch k {
	case NoAction:
		return "no_action"
	case SendAfkNotice:
		return "afk_notice"
	case SendRuleResponse:
		return "rule_response"
	default:
		return "unknown"
	}
}

// Action is the result of Decide. Text and Media are set according to Kind;
// RuleID identifies the rule behind a SendRuleResponse.
type Action struct {
	Kind   ActionKind
	Text   string
	Media  MediaRef
	RuleID int64
}

// Status is a read-only snapshot for diagnostics.
type Status struct {
	Afk          AfkState
	IgnoredChats int
	Rules        int
	RulesEnabled bool
	Throttled    int
}
