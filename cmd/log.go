package cmd

import (
	"github.com/spf13/cobra"

	"wiggum/internal/hookio"
	"wiggum/internal/logger"
	"wiggum/internal/project"
	"wiggum/internal/sessionlog"
	"wiggum/internal/transcript"
)

var logCmd = &cobra.Command{
	Use:    "log",
	Short:  "Session logging hooks: prompt, bash, assistant, failure",
	Hidden: true,
}

func init() {
	logCmd.AddCommand(
		hookCommand("prompt", "UserPromptSubmit hook: record the prompt", logPrompt),
		hookCommand("bash", "PostToolUse hook: record the Bash command", logBash),
		hookCommand("assistant", "Stop hook: record the assistant's last output", logAssistant),
		hookCommand("failure", "PostToolUse hook: record a failed tool call", logFailure),
	)
	rootCmd.AddCommand(logCmd)
}

// The log hooks never block; a write failure is a debug line, not an
// answer.

func logPrompt(p hookio.Payload) hookio.Result {
	text := p.PromptText()
	if text == "" {
		return hookio.Result{}
	}
	if err := sessionlog.Prompt(text); err != nil {
		logger.Debug("failed to record prompt", "error", err)
	}
	return hookio.Result{}
}

func logBash(p hookio.Payload) hookio.Result {
	if p.ToolName != "Bash" {
		return hookio.Result{}
	}
	args := p.Args()
	if args.Command == "" {
		return hookio.Result{}
	}
	if err := sessionlog.Bash(args.Command, args.Description); err != nil {
		logger.Debug("failed to record bash command", "error", err)
	}
	return hookio.Result{}
}

func logAssistant(p hookio.Payload) hookio.Result {
	text := lastAssistantText(p)
	if text == "" {
		return hookio.Result{}
	}
	if err := sessionlog.Assistant(p.Session(), p.HookEventName, text); err != nil {
		logger.Debug("failed to record assistant output", "error", err)
	}
	return hookio.Result{}
}

func logFailure(p hookio.Payload) hookio.Result {
	if !p.ToolFailed() {
		return hookio.Result{}
	}
	if err := sessionlog.Failure(p); err != nil {
		logger.Debug("failed to record tool failure", "error", err)
	}
	return hookio.Result{}
}

func lastAssistantText(p hookio.Payload) string {
	if p.TranscriptPath == "" {
		return ""
	}
	return transcript.LastAssistantText(project.ExpandHome(p.TranscriptPath))
}
