// Package config loads the self-bot configuration from defaults, an optional
// YAML file, a .env file and SELFBOT_* environment variables, and validates
// the result.
package config

import "time"

// Backend names accepted in telegram.backend.
const (
	BackendMTProto = "mtproto"
	BackendBotAPI  = "botapi"
)

// Config is the complete application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Afk       AfkConfig       `mapstructure:"afk"`
	Commands  CommandsConfig  `mapstructure:"commands"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls the slog handler and optional rotated log file.
type LogConfig struct {
	Level          string `mapstructure:"level"            validate:"oneof=debug info warn error"`
	Format         string `mapstructure:"format"           validate:"oneof=json text"`
	File           string `mapstructure:"file"`
	FileMaxSizeMB  int    `mapstructure:"file_max_size_mb" validate:"min=1"`
	FileMaxBackups int    `mapstructure:"file_max_backups" validate:"min=0"`
	FileMaxAgeDays int    `mapstructure:"file_max_age_days" validate:"min=0"`
}

// TelegramConfig selects and configures the messaging gateway.
type TelegramConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=mtproto botapi"`

	// MTProto user session.
	APIID            int    `mapstructure:"api_id"             validate:"required_if=Backend mtproto"`
	APIHash          string `mapstructure:"api_hash"           validate:"required_if=Backend mtproto"`
	Phone            string `mapstructure:"phone"              validate:"required_if=Backend mtproto"`
	Password         string `mapstructure:"password"`
	SessionPath      string `mapstructure:"session_path"       validate:"required_if=Backend mtproto"`
	UpdatesStatePath string `mapstructure:"updates_state_path"`

	// Bot API business connection.
	BotToken string `mapstructure:"bot_token" validate:"required_if=Backend botapi"`
	OwnerID  int64  `mapstructure:"owner_id"  validate:"required_if=Backend botapi,min=0"`

	SendTimeout    time.Duration `mapstructure:"send_timeout"    validate:"min=1s,max=5m"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout" validate:"min=1s,max=5m"`
	RateLimit      time.Duration `mapstructure:"rate_limit"      validate:"min=0"`
	RateBurst      int           `mapstructure:"rate_burst"      validate:"min=1"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AfkConfig tunes AFK notices.
type AfkConfig struct {
	DefaultReason  string        `mapstructure:"default_reason"  validate:"required"`
	Cooldown       time.Duration `mapstructure:"cooldown"        validate:"min=0"`
	AutoClear      bool          `mapstructure:"auto_clear"`
	NoticeTemplate string        `mapstructure:"notice_template" validate:"required"`
}

// CommandsConfig controls owner command parsing.
type CommandsConfig struct {
	Prefixes []string `mapstructure:"prefixes" validate:"min=1,dive,required"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures one scheduled task. Schedule is a cron expression
// with an optional seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds owner-facing reply texts. Texts containing a %
// verb are formatted with the documented arguments.
type MessagesConfig struct {
	AfkSet         string `mapstructure:"afk_set"         validate:"required"` // %s reason
	AfkCleared     string `mapstructure:"afk_cleared"     validate:"required"` // %s duration
	NotAfk         string `mapstructure:"not_afk"         validate:"required"`
	ChatIgnored    string `mapstructure:"chat_ignored"    validate:"required"` // %d chat
	AlreadyIgnored string `mapstructure:"already_ignored" validate:"required"` // %d chat
	ChatUnignored  string `mapstructure:"chat_unignored"  validate:"required"` // %d chat
	NotIgnored     string `mapstructure:"not_ignored"     validate:"required"` // %d chat
	RuleAdded      string `mapstructure:"rule_added"      validate:"required"` // %s trigger, %s match, %s scope
	RuleRemoved    string `mapstructure:"rule_removed"    validate:"required"` // %d count, %s trigger
	RuleNotFound   string `mapstructure:"rule_not_found"  validate:"required"` // %s trigger
	RulesCleared   string `mapstructure:"rules_cleared"   validate:"required"` // %d count
	RulesEmpty     string `mapstructure:"rules_empty"     validate:"required"`
	RulesHeader    string `mapstructure:"rules_header"    validate:"required"`
	RulesOn        string `mapstructure:"rules_on"        validate:"required"`
	RulesOff       string `mapstructure:"rules_off"       validate:"required"`
	RuleEnabled    string `mapstructure:"rule_enabled"    validate:"required"` // %s trigger
	RuleDisabled   string `mapstructure:"rule_disabled"   validate:"required"` // %s trigger
	Pong           string `mapstructure:"pong"            validate:"required"` // %s latency
	UnknownCommand string `mapstructure:"unknown_command" validate:"required"` // %s command
	GeneralError   string `mapstructure:"general_error"   validate:"required"`
}
