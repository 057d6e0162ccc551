package hookio

import (
	"encoding/json"

	"wiggum/internal/logger"
)

// Result tells a hook command how to answer the host: process exit code,
// JSON for stdout, and a diagnostic for stderr. The zero Result allows
// silently.
type Result struct {
	ExitCode int
	Output   string
	Message  string
}

// PermissionOutput is the PreToolUse response envelope.
type PermissionOutput struct {
	HookSpecificOutput PermissionDecision `json:"hookSpecificOutput"`
}

// PermissionDecision carries the allow/ask/deny verdict for a tool call.
type PermissionDecision struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason"`
}

// StopOutput is the Stop-hook response used to keep a session running.
// Decision "block" plus exit code 2 makes the host feed Prompt back in as
// the next user turn.
type StopOutput struct {
	Decision     string `json:"decision"`
	Reason       string `json:"reason"`
	OutputToUser string `json:"outputToUser,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
}

// ContextOutput carries additionalContext back from UserPromptSubmit and
// SessionStart hooks.
type ContextOutput struct {
	HookSpecificOutput AdditionalContext `json:"hookSpecificOutput"`
}

// AdditionalContext is injected into the model's context for the next turn.
type AdditionalContext struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// FormatDecision returns the PreToolUse JSON for the given verdict. The
// hardcoded fallback keeps the contract intact even if marshalling breaks.
func FormatDecision(decision, reason string) string {
	output := PermissionOutput{
		HookSpecificOutput: PermissionDecision{
			HookEventName:            EventPreToolUse,
			PermissionDecision:       decision,
			PermissionDecisionReason: reason,
		},
	}
	data, err := json.Marshal(output)
	if err != nil {
		logger.Debug("failed to marshal permission output", "error", err)
		return `{"hookSpecificOutput":{"hookEventName":"PreToolUse","permissionDecision":"ask","permissionDecisionReason":"internal error"}}`
	}
	return string(data)
}

// FormatDeny returns the PreToolUse deny JSON.
func FormatDeny(reason string) string {
	return FormatDecision(DecisionDeny, reason)
}

// FormatAllow returns the PreToolUse allow JSON.
func FormatAllow(reason string) string {
	return FormatDecision(DecisionAllow, reason)
}

// FormatStopBlock returns the Stop JSON that blocks the stop and feeds
// prompt back in as the next user turn.
func FormatStopBlock(reason, outputToUser, prompt string) string {
	output := StopOutput{
		Decision:     "block",
		Reason:       reason,
		OutputToUser: outputToUser,
		Prompt:       prompt,
	}
	data, err := json.Marshal(output)
	if err != nil {
		logger.Debug("failed to marshal stop output", "error", err)
		return ""
	}
	return string(data)
}

// FormatContext returns the additionalContext JSON for event (one of
// EventUserPromptSubmit or EventSessionStart).
func FormatContext(event, context string) string {
	output := ContextOutput{
		HookSpecificOutput: AdditionalContext{
			HookEventName:     event,
			AdditionalContext: context,
		},
	}
	data, err := json.Marshal(output)
	if err != nil {
		logger.Debug("failed to marshal context output", "error", err)
		return ""
	}
	return string(data)
}
