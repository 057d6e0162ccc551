// Package constants defines shared constants used across the wiggum codebase.
package constants

import "os"

// File permissions
const (
	DirMode  os.FileMode = 0755
	FileMode os.FileMode = 0644
)

// Environment variables owned by wiggum
const (
	EnvConfigDir          = "WIGGUM_CONFIG"
	EnvDebug              = "WIGGUM_DEBUG"
	EnvAllowProtected     = "WIGGUM_ALLOW_PROTECTED"
	EnvCheckpointInterval = "WIGGUM_CHECKPOINT_INTERVAL"
	EnvDesktopNotify      = "WIGGUM_DESKTOP_NOTIFY"
	EnvNotifyDisable      = "WIGGUM_NOTIFY_DISABLE"
	EnvNtfyTopic          = "WIGGUM_NTFY_TOPIC"
	EnvPushoverUser       = "WIGGUM_PUSHOVER_USER"
	EnvPushoverToken      = "WIGGUM_PUSHOVER_TOKEN"
	EnvDiscordWebhook     = "WIGGUM_DISCORD_WEBHOOK"
	EnvSlackWebhook       = "WIGGUM_SLACK_WEBHOOK"
	EnvCostAlert          = "WIGGUM_COST_ALERT"
	EnvCostDailyAlert     = "WIGGUM_COST_DAILY_ALERT"
)

// Environment variables set by the Claude Code host
const (
	EnvProjectDir = "CLAUDE_PROJECT_DIR"
	EnvSessionID  = "CLAUDE_SESSION_ID"
	EnvTaskName   = "CLAUDE_TASK_NAME"
	EnvTranscript = "CLAUDE_TRANSCRIPT"
)

// Application paths
const (
	AppName            = "wiggum"
	XDGConfigSubdir    = ".config"
	ClaudeConfigDir    = ".claude"
	ClaudeSettingsFile = "settings.json"
	ConfigFileName     = "config.toml"
	LogsSubdir         = "logs"
	ContextSubdir      = "context"
)

// Local state files under .claude/
const (
	LoopStateFile       = "ralph-loop.local.md"
	IdentityStateFile   = "terminal-identity.local.json"
	CheckpointStateFile = "checkpoint-state.local.json"
)

// Log files under .claude/logs/
const (
	LogPrompts       = "prompts.log"
	LogBash          = "bash.log"
	LogAssistant     = "assistant_output.log"
	LogToolFailures  = "tool_failures.jsonl"
	LogFailureDiag   = "tool_failures.log"
	LogToolAudit     = "tool-audit.log"
	LogNotifications = "notifications.log"
	LogCostTracker   = "cost-tracker.log"
)
