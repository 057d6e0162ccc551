package sessionlog

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"wiggum/internal/constants"
	"wiggum/internal/hookio"
	"wiggum/internal/project"
)

// maxAssistantChars caps how much of an assistant response lands in the
// transcript tail log.
const maxAssistantChars = 20000

// Prompt records a submitted user prompt.
func Prompt(prompt string) error {
	log := New(filepath.Join(project.LogsDir(), constants.LogPrompts))
	return log.AppendString(fmt.Sprintf("%s\n%s\n---\n", Timestamp(), prompt))
}

// Bash records a Bash tool invocation and its description.
func Bash(command, description string) error {
	log := New(filepath.Join(project.LogsDir(), constants.LogBash))
	return log.AppendString(fmt.Sprintf("%s | %s | %s\n", Timestamp(), command, description))
}

// Assistant records the tail of an assistant response, truncated to keep
// the log readable.
func Assistant(sessionID, event, text string) error {
	if r := []rune(text); len(r) > maxAssistantChars {
		text = string(r[:maxAssistantChars]) + "\n...[truncated]..."
	}
	log := New(filepath.Join(project.LogsDir(), constants.LogAssistant))
	return log.AppendString(fmt.Sprintf("%s | session=%s | event=%s\n%s\n\n---\n\n",
		Timestamp(), sessionID, event, text))
}

// failureRecord is one tool_failures.jsonl line. The full raw payload is
// kept so failures can be triaged without reproducing them.
type failureRecord struct {
	TS             string          `json:"ts"`
	HookEventName  string          `json:"hook_event_name"`
	ToolName       string          `json:"tool_name,omitempty"`
	Cwd            string          `json:"cwd,omitempty"`
	PermissionMode string          `json:"permission_mode,omitempty"`
	Payload        json.RawMessage `json:"payload"`
}

// Failure records a failed tool invocation. A payload that is not valid
// JSON leaves a line in the diagnostic log instead.
func Failure(p hookio.Payload) error {
	var probe any
	if err := json.Unmarshal(p.Raw, &probe); err != nil {
		diag := New(filepath.Join(project.LogsDir(), constants.LogFailureDiag))
		return diag.AppendString(fmt.Sprintf("%s invalid JSON: %v\n", Timestamp(), err))
	}

	event := p.HookEventName
	if event == "" {
		event = "PostToolUseFailure"
	}
	log := New(filepath.Join(project.LogsDir(), constants.LogToolFailures))
	return log.AppendJSON(failureRecord{
		TS:             Timestamp(),
		HookEventName:  event,
		ToolName:       p.ToolName,
		Cwd:            p.Cwd,
		PermissionMode: p.PermissionMode,
		Payload:        json.RawMessage(p.Raw),
	})
}
