package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Par123456/selfcursor/internal/autoreply"
)

const settingRulesEnabled = "rules_enabled"

// Store is the persistent side of the auto-responder plus the housekeeping
// the scheduler needs.
type Store interface {
	autoreply.Store

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store on top of sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadState reads AFK state, ignore list, rules and settings in one
// transaction.
func (s *sqlxStore) LoadState(ctx context.Context) (autoreply.State, error) {
	if ctx.Err() != nil {
		return autoreply.State{}, ctx.Err()
	}

	state := autoreply.State{Settings: autoreply.DefaultSettings}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for loading state", "error", err)
		return state, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	var afk afkRow
	err = tx.GetContext(ctx, &afk, `SELECT active, reason, since, updated_at FROM afk_state WHERE id = 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No AFK state stored yet")
	case err != nil:
		s.logger.ErrorContext(ctx, "Error loading AFK state", "error", err)
		return state, fmt.Errorf("failed to load afk state: %w", err)
	case afk.Active:
		state.Afk = autoreply.AfkState{Active: true, Reason: afk.Reason, Since: afk.Since.Time}
	}

	if err := tx.SelectContext(ctx, &state.Ignored, `SELECT chat_id FROM ignored_chats ORDER BY chat_id`); err != nil {
		s.logger.ErrorContext(ctx, "Error loading ignore list", "error", err)
		return state, fmt.Errorf("failed to load ignore list: %w", err)
	}

	var rows []ruleRow
	query := `SELECT id, trigger_text, match_kind, response_text, response_media, peer_id, enabled, created_at, updated_at
	          FROM auto_reply_rules
	          ORDER BY created_at ASC, id ASC`
	if err := tx.SelectContext(ctx, &rows, query); err != nil {
		s.logger.ErrorContext(ctx, "Error loading auto-reply rules", "error", err)
		return state, fmt.Errorf("failed to load rules: %w", err)
	}
	state.Rules = make([]autoreply.Rule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toRule()
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed auto-reply rule", "rule_id", row.ID, "error", err)
			continue
		}
		state.Rules = append(state.Rules, rule)
	}

	var settings []settingRow
	if err := tx.SelectContext(ctx, &settings, `SELECT key, value FROM settings`); err != nil {
		s.logger.ErrorContext(ctx, "Error loading settings", "error", err)
		return state, fmt.Errorf("failed to load settings: %w", err)
	}
	for _, kv := range settings {
		if kv.Key != settingRulesEnabled {
			continue
		}
		enabled, err := strconv.ParseBool(kv.Value)
		if err != nil {
			s.logger.WarnContext(ctx, "Ignoring malformed setting", "key", kv.Key, "value", kv.Value)
			continue
		}
		state.Settings.RulesEnabled = enabled
	}

	s.logger.DebugContext(ctx, "Successfully loaded auto-reply state",
		"rules", len(state.Rules), "ignored_chats", len(state.Ignored))
	return state, nil
}

// SaveAfk upserts the singleton AFK row.
func (s *sqlxStore) SaveAfk(ctx context.Context, state autoreply.AfkState) error {
	row := afkRow{
		Active:    state.Active,
		Reason:    state.Reason,
		Since:     sql.NullTime{Time: state.Since.UTC(), Valid: state.Active && !state.Since.IsZero()},
		UpdatedAt: s.now(),
	}

	query := `
        INSERT INTO afk_state (id, active, reason, since, updated_at)
        VALUES (1, :active, :reason, :since, :updated_at)
        ON CONFLICT (id) DO UPDATE SET
            active = excluded.active,
            reason = excluded.reason,
            since = excluded.since,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving AFK state", "active", state.Active, "error", err)
		return fmt.Errorf("failed to save afk state: %w", err)
	}
	return nil
}

// SaveIgnoreList makes ignored_chats hold exactly chatIDs, keeping the
// creation time of entries that stay.
func (s *sqlxStore) SaveIgnoreList(ctx context.Context, chatIDs []int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving ignore list", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	if len(chatIDs) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ignored_chats`); err != nil {
			s.logger.ErrorContext(ctx, "Error clearing ignore list", "error", err)
			return fmt.Errorf("failed to clear ignore list: %w", err)
		}
	} else {
		query, args, err := sqlx.In(`DELETE FROM ignored_chats WHERE chat_id NOT IN (?)`, chatIDs)
		if err != nil {
			return fmt.Errorf("failed to build ignore list query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			s.logger.ErrorContext(ctx, "Error pruning ignore list", "error", err)
			return fmt.Errorf("failed to prune ignore list: %w", err)
		}

		now := s.now()
		for _, id := range chatIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO ignored_chats (chat_id, created_at) VALUES (?, ?)`, id, now); err != nil {
				s.logger.ErrorContext(ctx, "Error adding chat to ignore list", "chat_id", id, "error", err)
				return fmt.Errorf("failed to add chat %d to ignore list: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit ignore list transaction", "error", err)
		return fmt.Errorf("failed to commit ignore list: %w", err)
	}
	return nil
}

// SaveRule inserts the rule or updates the one with the same trigger and
// scope, then copies the row id back into rule.ID.
func (s *sqlxStore) SaveRule(ctx context.Context, rule *autoreply.Rule) error {
	if rule == nil {
		return errors.New("cannot save nil rule")
	}
	if rule.Trigger == "" {
		return errors.New("rule must have a non-empty trigger")
	}

	row := ruleRowFrom(rule, s.now())
	if row.CreatedAt.IsZero() {
		row.CreatedAt = row.UpdatedAt
	}

	query := `
        INSERT INTO auto_reply_rules
            (trigger_text, match_kind, response_text, response_media, peer_id, enabled, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (trigger_text, peer_id) DO UPDATE SET
            match_kind = excluded.match_kind,
            response_text = excluded.response_text,
            response_media = excluded.response_media,
            enabled = excluded.enabled,
            updated_at = excluded.updated_at
        RETURNING id;
    `
	var id int64
	err := s.db.GetContext(ctx, &id, query,
		row.Trigger, row.MatchKind, row.ResponseText, row.ResponseMedia,
		row.PeerID, row.Enabled, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving auto-reply rule",
			"trigger", rule.Trigger, "scope", rule.Scope.String(), "error", err)
		return fmt.Errorf("failed to save rule %q: %w", rule.Trigger, err)
	}

	rule.ID = id
	s.logger.DebugContext(ctx, "Saved auto-reply rule", "rule_id", id, "trigger", rule.Trigger)
	return nil
}

// DeleteRule removes the rule with trigger in scope and reports how many
// rows went away.
func (s *sqlxStore) DeleteRule(ctx context.Context, trigger string, scope autoreply.Scope) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM auto_reply_rules WHERE trigger_text = ? AND peer_id = ?`, trigger, scope.PeerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting auto-reply rule", "trigger", trigger, "error", err)
		return 0, fmt.Errorf("failed to delete rule %q: %w", trigger, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read affected rows after deleting rule", "error", err)
		return 0, nil
	}
	return int(n), nil
}

// ClearRules deletes every rule.
func (s *sqlxStore) ClearRules(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM auto_reply_rules`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error clearing auto-reply rules", "error", err)
		return 0, fmt.Errorf("failed to clear rules: %w", err)
	}
	n, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Cleared auto-reply rules", "count", n)
	return int(n), nil
}

// SaveSettings stores engine-wide switches as key/value rows.
func (s *sqlxStore) SaveSettings(ctx context.Context, settings autoreply.Settings) error {
	query := `
        INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
    `
	if _, err := s.db.ExecContext(ctx, query,
		settingRulesEnabled, strconv.FormatBool(settings.RulesEnabled), s.now()); err != nil {
		s.logger.ErrorContext(ctx, "Error saving settings", "error", err)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// RunSQLMaintenance runs VACUUM. SQLite refuses VACUUM inside a
// transaction, so it goes straight to the pool.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

// rollback is deferred after BeginTxx; it is a no-op once the transaction
// has been committed.
func (s *sqlxStore) rollback(ctx context.Context, tx *sqlx.Tx) {
	if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
		s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
	}
}
