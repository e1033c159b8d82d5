package database

import (
	"database/sql"
	"time"

	"github.com/Par123456/selfcursor/internal/autoreply"
)

// afkRow is the single row of afk_state.
type afkRow struct {
	Active    bool         `db:"active"`
	Reason    string       `db:"reason"`
	Since     sql.NullTime `db:"since"`
	UpdatedAt time.Time    `db:"updated_at"`
}

// ruleRow mirrors auto_reply_rules. PeerID 0 marks a global rule.
type ruleRow struct {
	ID            int64     `db:"id"`
	Trigger       string    `db:"trigger_text"`
	MatchKind     string    `db:"match_kind"`
	ResponseText  string    `db:"response_text"`
	ResponseMedia string    `db:"response_media"`
	PeerID        int64     `db:"peer_id"`
	Enabled       bool      `db:"enabled"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type settingRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func (r ruleRow) toRule() (autoreply.Rule, error) {
	kind, err := autoreply.ParseMatchKind(r.MatchKind)
	if err != nil {
		return autoreply.Rule{}, err
	}
	return autoreply.Rule{
		ID:            r.ID,
		Trigger:       r.Trigger,
		Match:         kind,
		ResponseText:  r.ResponseText,
		ResponseMedia: autoreply.MediaRef(r.ResponseMedia),
		Scope:         autoreply.PeerScope(r.PeerID),
		Enabled:       r.Enabled,
		CreatedAt:     r.CreatedAt,
	}, nil
}

func ruleRowFrom(rule *autoreply.Rule, now time.Time) ruleRow {
	return ruleRow{
		ID:            rule.ID,
		Trigger:       rule.Trigger,
		MatchKind:     rule.Match.String(),
		ResponseText:  rule.ResponseText,
		ResponseMedia: string(rule.ResponseMedia),
		PeerID:        rule.Scope.PeerID,
		Enabled:       rule.Enabled,
		CreatedAt:     rule.CreatedAt.UTC(),
		UpdatedAt:     now,
	}
}
