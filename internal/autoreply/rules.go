package autoreply

import (
	"context"
	"errors"
	"iter"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Par123456/selfcursor/internal/errors"
	"github.com/Par123456/selfcursor/internal/text"
)

// SetAfk marks the owner as away from now on. Calling it while already AFK
// overwrites the reason and the start time.
func (e *Engine) SetAfk(ctx context.Context, reason string) (AfkState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := AfkState{
		Active: true,
		Reason: text.Clean(reason),
		Since:  e.now(),
	}
	if err := e.store.SaveAfk(ctx, state); err != nil {
		return e.afk, apperrors.NewCollaboratorError("failed to save afk state", err)
	}

	e.afk = state
	clear(e.throttle)
	e.logger.InfoContext(ctx, "AFK enabled", "reason", state.Reason)
	return state, nil
}

// ClearAfk ends the AFK period and returns how long it lasted. If the owner
// was not AFK it returns a NotFoundError and changes nothing.
func (e *Engine) ClearAfk(ctx context.Context) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.afk.Active {
		return 0, apperrors.NewNotFoundError("not afk")
	}
	if err := e.store.SaveAfk(ctx, AfkState{}); err != nil {
		return 0, apperrors.NewCollaboratorError("failed to save afk state", err)
	}

	away := e.now().Sub(e.afk.Since)
	e.afk = AfkState{}
	clear(e.throttle)
	e.logger.InfoContext(ctx, "AFK disabled", "duration", away)
	return away, nil
}

// Ignore stops AFK notices in chatID. It reports whether the list changed.
func (e *Engine) Ignore(ctx context.Context, chatID int64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.ignored[chatID]; ok {
		return false, nil
	}
	next := maps.Clone(e.ignored)
	next[chatID] = struct{}{}
	if err := e.store.SaveIgnoreList(ctx, sortedKeys(next)); err != nil {
		return false, apperrors.NewCollaboratorError("failed to save ignore list", err)
	}

	e.ignored = next
	e.logger.InfoContext(ctx, "Chat added to AFK ignore list", "chat_id", chatID)
	return true, nil
}

// Unignore re-enables AFK notices in chatID. It reports whether the list
// changed.
func (e *Engine) Unignore(ctx context.Context, chatID int64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.ignored[chatID]; !ok {
		return false, nil
	}
	next := maps.Clone(e.ignored)
	delete(next, chatID)
	if err := e.store.SaveIgnoreList(ctx, sortedKeys(next)); err != nil {
		return false, apperrors.NewCollaboratorError("failed to save ignore list", err)
	}

	e.ignored = next
	e.logger.InfoContext(ctx, "Chat removed from AFK ignore list", "chat_id", chatID)
	return true, nil
}

// IgnoredChats returns the ignore list in ascending order.
func (e *Engine) IgnoredChats() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedKeys(e.ignored)
}

// AddRule validates and stores a new rule. It fails with a ValidationError
// when the trigger is empty, there is no response payload, or a rule with
// the same trigger already exists in the same scope.
func (e *Engine) AddRule(ctx context.Context, in RuleInput) (Rule, error) {
	in.Trigger = text.Clean(in.Trigger)
	in.ResponseText = text.Clean(in.ResponseText)
	in.ResponseMedia = MediaRef(strings.TrimSpace(string(in.ResponseMedia)))

	if err := e.validate.Struct(in); err != nil {
		return Rule{}, apperrors.NewValidationError(describeValidation(err), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if slices.ContainsFunc(e.rules, func(r Rule) bool {
		return r.Trigger == in.Trigger && r.Scope == in.Scope
	}) {
		return Rule{}, apperrors.NewValidationError("a rule for this trigger already exists in "+in.Scope.String()+" scope", nil)
	}

	rule := Rule{
		Trigger:       in.Trigger,
		Match:         in.Match,
		ResponseText:  in.ResponseText,
		ResponseMedia: in.ResponseMedia,
		Scope:         in.Scope,
		Enabled:       true,
		CreatedAt:     e.now(),
	}
	if err := e.store.SaveRule(ctx, &rule); err != nil {
		return Rule{}, apperrors.NewCollaboratorError("failed to save rule", err)
	}

	e.rules = append(e.rules, rule)
	e.logger.InfoContext(ctx, "Auto-reply rule added",
		"rule_id", rule.ID, "trigger", rule.Trigger, "match", rule.Match.String(), "scope", rule.Scope.String())
	return rule, nil
}

// RemoveRule deletes the rule(s) with trigger in scope and returns how many
// were removed. Zero is not an error.
func (e *Engine) RemoveRule(ctx context.Context, trigger string, scope Scope) (int, error) {
	trigger = text.Clean(trigger)

	e.mu.Lock()
	defer e.mu.Unlock()

	matches := func(r Rule) bool { return r.Trigger == trigger && r.Scope == scope }
	if !slices.ContainsFunc(e.rules, matches) {
		return 0, nil
	}

	n, err := e.store.DeleteRule(ctx, trigger, scope)
	if err != nil {
		return 0, apperrors.NewCollaboratorError("failed to delete rule", err)
	}

	before := len(e.rules)
	e.rules = slices.DeleteFunc(e.rules, matches)
	removed := before - len(e.rules)
	if n != removed {
		e.logger.WarnContext(ctx, "Store and memory disagree on removed rules", "store", n, "memory", removed)
	}
	e.logger.InfoContext(ctx, "Auto-reply rule removed", "trigger", trigger, "scope", scope.String(), "count", removed)
	return removed, nil
}

// ClearRules deletes every rule and returns how many there were.
func (e *Engine) ClearRules(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.ClearRules(ctx); err != nil {
		return 0, apperrors.NewCollaboratorError("failed to clear rules", err)
	}

	n := len(e.rules)
	e.rules = nil
	e.logger.InfoContext(ctx, "All auto-reply rules cleared", "count", n)
	return n, nil
}

// ListRules returns a sequence over the rules in creation order. Each
// iteration takes a fresh snapshot, so the sequence can be ranged over
// repeatedly and never observes a half-applied change.
func (e *Engine) ListRules() iter.Seq[Rule] {
	return func(yield func(Rule) bool) {
		e.mu.Lock()
		snapshot := slices.Clone(e.rules)
		e.mu.Unlock()

		for _, r := range snapshot {
			if !yield(r) {
				return
			}
		}
	}
}

// SetRuleEnabled toggles a single rule. It returns a NotFoundError when no
// rule matches.
func (e *Engine) SetRuleEnabled(ctx context.Context, trigger string, scope Scope, enabled bool) error {
	trigger = text.Clean(trigger)

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := slices.IndexFunc(e.rules, func(r Rule) bool { return r.Trigger == trigger && r.Scope == scope })
	if idx < 0 {
		return apperrors.NewNotFoundError("no rule for trigger " + trigger)
	}
	if e.rules[idx].Enabled == enabled {
		return nil
	}

	updated := e.rules[idx]
	updated.Enabled = enabled
	if err := e.store.SaveRule(ctx, &updated); err != nil {
		return apperrors.NewCollaboratorError("failed to save rule", err)
	}

	e.rules[idx] = updated
	return nil
}

// SetRulesEnabled switches rule evaluation on or off as a whole.
func (e *Engine) SetRulesEnabled(ctx context.Context, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.settings
	next.RulesEnabled = enabled
	if err := e.store.SaveSettings(ctx, next); err != nil {
		return apperrors.NewCollaboratorError("failed to save settings", err)
	}

	e.settings = next
	e.logger.InfoContext(ctx, "Auto-reply rules switched", "enabled", enabled)
	return nil
}

func sortedKeys(m map[int64]struct{}) []int64 {
	return slices.Sorted(maps.Keys(m))
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid rule"
	}

	switch fe := verrs[0]; fe.Field() {
	case "Trigger":
		return "trigger must not be empty"
	case "ResponseText", "ResponseMedia":
		return "a rule needs a response text or media"
	case "Match":
		return "unknown match kind"
	default:
		return "invalid " + strings.ToLower(fe.Field())
	}
}
