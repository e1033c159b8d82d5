package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultConfigPath = "config.yaml"
	EnvPrefix         = "SELFBOT"

	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultLogFileMaxSizeMB  = 10
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28

	DefaultBackend          = BackendMTProto
	DefaultSessionPath      = "session/session.json"
	DefaultUpdatesStatePath = "session/updates.bolt.db"
	DefaultSendTimeout      = 15 * time.Second
	DefaultResolveTimeout   = 10 * time.Second
	DefaultRateLimit        = 100 * time.Millisecond
	DefaultRateBurst        = 5

	DefaultDBPath = "data/selfbot.db"

	DefaultAfkReason      = "No reason given."
	DefaultAfkCooldown    = 15 * time.Minute
	DefaultAfkAutoClear   = false
	DefaultNoticeTemplate = "I'm away from keyboard right now.\nReason: {reason}\nAway for: {duration}\nI'll get back to you as soon as I return."
)

// DefaultPrefixes are the owner command prefixes.
var DefaultPrefixes = []string{".", "/"}

// DefaultTasks schedules database VACUUM nightly and throttle pruning every
// five minutes.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance": {Enabled: true, Schedule: "0 0 3 * * *"},
	"throttle_prune":  {Enabled: true, Schedule: "0 */5 * * * *"},
}

// DefaultMessages are the owner-facing reply texts.
var DefaultMessages = MessagesConfig{
	AfkSet:         "💤 AFK enabled.\nReason: %s",
	AfkCleared:     "👋 Welcome back! You were away for %s.",
	NotAfk:         "ℹ️ You are not AFK.",
	ChatIgnored:    "🔕 AFK notices disabled in chat %d.",
	AlreadyIgnored: "ℹ️ Chat %d is already ignored.",
	ChatUnignored:  "🔔 AFK notices enabled in chat %d.",
	NotIgnored:     "ℹ️ Chat %d is not ignored.",
	RuleAdded:      "✅ Auto-reply added for %q (%s, %s).",
	RuleRemoved:    "🗑️ Removed %d auto-reply rule(s) for %q.",
	RuleNotFound:   "ℹ️ No auto-reply rule for %q.",
	RulesCleared:   "🗑️ Removed %d auto-reply rule(s).",
	RulesEmpty:     "ℹ️ No auto-reply rules configured.",
	RulesHeader:    "📋 Auto-reply rules:",
	RulesOn:        "✅ Auto-replies are now on.",
	RulesOff:       "⏸️ Auto-replies are now off.",
	RuleEnabled:    "✅ Rule %q enabled.",
	RuleDisabled:   "⏸️ Rule %q disabled.",
	Pong:           "🏓 Pong! %s",
	UnknownCommand: "❓ Unknown command %q. Send .help for the list.",
	GeneralError:   "❌ Something went wrong. Check the logs.",
}

// setDefaults registers every key so that environment variables can
// override keys that are absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", "")
	v.SetDefault("log.file_max_size_mb", DefaultLogFileMaxSizeMB)
	v.SetDefault("log.file_max_backups", DefaultLogFileMaxBackups)
	v.SetDefault("log.file_max_age_days", DefaultLogFileMaxAgeDays)

	v.SetDefault("telegram.backend", DefaultBackend)
	v.SetDefault("telegram.api_id", 0)
	v.SetDefault("telegram.api_hash", "")
	v.SetDefault("telegram.phone", "")
	v.SetDefault("telegram.password", "")
	v.SetDefault("telegram.session_path", DefaultSessionPath)
	v.SetDefault("telegram.updates_state_path", DefaultUpdatesStatePath)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.owner_id", 0)
	v.SetDefault("telegram.send_timeout", DefaultSendTimeout)
	v.SetDefault("telegram.resolve_timeout", DefaultResolveTimeout)
	v.SetDefault("telegram.rate_limit", DefaultRateLimit)
	v.SetDefault("telegram.rate_burst", DefaultRateBurst)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("afk.default_reason", DefaultAfkReason)
	v.SetDefault("afk.cooldown", DefaultAfkCooldown)
	v.SetDefault("afk.auto_clear", DefaultAfkAutoClear)
	v.SetDefault("afk.notice_template", DefaultNoticeTemplate)

	v.SetDefault("commands.prefixes", DefaultPrefixes)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	v.SetDefault("messages.afk_set", DefaultMessages.AfkSet)
	v.SetDefault("messages.afk_cleared", DefaultMessages.AfkCleared)
	v.SetDefault("messages.not_afk", DefaultMessages.NotAfk)
	v.SetDefault("messages.chat_ignored", DefaultMessages.ChatIgnored)
	v.SetDefault("messages.already_ignored", DefaultMessages.AlreadyIgnored)
	v.SetDefault("messages.chat_unignored", DefaultMessages.ChatUnignored)
	v.SetDefault("messages.not_ignored", DefaultMessages.NotIgnored)
	v.SetDefault("messages.rule_added", DefaultMessages.RuleAdded)
	v.SetDefault("messages.rule_removed", DefaultMessages.RuleRemoved)
	v.SetDefault("messages.rule_not_found", DefaultMessages.RuleNotFound)
	v.SetDefault("messages.rules_cleared", DefaultMessages.RulesCleared)
	v.SetDefault("messages.rules_empty", DefaultMessages.RulesEmpty)
	v.SetDefault("messages.rules_header", DefaultMessages.RulesHeader)
	v.SetDefault("messages.rules_on", DefaultMessages.RulesOn)
	v.SetDefault("messages.rules_off", DefaultMessages.RulesOff)
	v.SetDefault("messages.rule_enabled", DefaultMessages.RuleEnabled)
	v.SetDefault("messages.rule_disabled", DefaultMessages.RuleDisabled)
	v.SetDefault("messages.pong", DefaultMessages.Pong)
	v.SetDefault("messages.unknown_command", DefaultMessages.UnknownCommand)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
}
