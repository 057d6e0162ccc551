package cmd

import (
	"wiggum/internal/autofmt"
	"wiggum/internal/checkpoint"
	"wiggum/internal/cost"
	"wiggum/internal/guard"
	"wiggum/internal/identity"
	"wiggum/internal/inject"
	"wiggum/internal/notify"
	"wiggum/internal/protect"
	"wiggum/internal/session"
	"wiggum/internal/turnaudit"
)

func init() {
	rootCmd.AddCommand(
		hookCommand("guard", "PreToolUse hook: deny dangerous Bash and browser commands", guard.Process),
		hookCommand("protect", "PreToolUse hook: block edits to protected files", protect.Process),
		hookCommand("fmt", "PostToolUse hook: run configured formatters on edited files", autofmt.Process),
		hookCommand("notify", "Notification hook: forward permission and idle prompts", notify.Process),
		hookCommand("identity", "UserPromptSubmit hook: name the terminal session", identity.Process),
		hookCommand("inject", "UserPromptSubmit hook: add task context to prompts", inject.Process),
		hookCommand("persist", "Stop hook: persist session state to .claude/context", session.Process),
		hookCommand("checkpoint", "Stop hook: emit a continuation block every N rounds", checkpoint.Process),
		hookCommand("cost", "Stop hook: record token usage and spend", cost.Process),
		hookCommand("audit", "Stop hook: summarize the turn's tool calls", turnaudit.Process),
	)
}
