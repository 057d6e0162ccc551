// Package hookio implements the stdin/stdout contract between the Claude
// Code host and wiggum's hook commands.
//
// The host writes one JSON payload to a hook's stdin and reads the verdict
// from the exit code: 0 allows the action, 2 blocks it. Some events also
// accept a structured JSON object on stdout. Hooks fail open: a payload we
// cannot read or decode behaves like an empty one and the hook exits 0.
//
// See: https://docs.anthropic.com/en/docs/claude-code/hooks
package hookio

import (
	"encoding/json"
	"io"
	"os"

	"wiggum/internal/constants"
	"wiggum/internal/logger"
)

// Hook event names the host sends in hook_event_name.
const (
	EventPreToolUse       = "PreToolUse"
	EventPostToolUse      = "PostToolUse"
	EventUserPromptSubmit = "UserPromptSubmit"
	EventNotification     = "Notification"
	EventStop             = "Stop"
	EventSubagentStop     = "SubagentStop"
	EventSessionStart     = "SessionStart"
	EventSessionEnd       = "SessionEnd"
)

// Permission decisions for PreToolUse responses.
const (
	DecisionAllow = "allow"
	DecisionAsk   = "ask"
	DecisionDeny  = "deny"
)

// Exit codes understood by the host.
const (
	ExitAllow = 0
	ExitBlock = 2
)

// Payload is the JSON object the host writes to a hook's stdin. Fields are
// event-specific; absent fields decode to zero values.
type Payload struct {
	SessionID        string          `json:"session_id"`
	TranscriptPath   string          `json:"transcript_path"`
	Cwd              string          `json:"cwd"`
	PermissionMode   string          `json:"permission_mode"`
	HookEventName    string          `json:"hook_event_name"`
	ToolName         string          `json:"tool_name"`
	ToolInput        json.RawMessage `json:"tool_input"`
	ToolResponse     json.RawMessage `json:"tool_response"`
	ToolUseID        string          `json:"tool_use_id"`
	Prompt           string          `json:"prompt"`
	UserPrompt       string          `json:"user_prompt"`
	Message          string          `json:"message"`
	Title            string          `json:"title"`
	NotificationType string          `json:"notification_type"`
	Source           string          `json:"source"`
	StopHookActive   bool            `json:"stop_hook_active"`

	// Raw is the undecoded payload as read from stdin, kept for audit and
	// failure records. It is set even when decoding fails.
	Raw []byte `json:"-"`
}

// ToolArgs are the tool_input fields wiggum hooks inspect. Each tool
// populates its own subset; unknown fields are ignored.
type ToolArgs struct {
	Command      string `json:"command"`
	Description  string `json:"description"`
	FilePath     string `json:"file_path"`
	NotebookPath string `json:"notebook_path"`
	Content      string `json:"content"`
	URL          string `json:"url"`
	Prompt       string `json:"prompt"`
	SubagentType string `json:"subagent_type"`
	Edits        []Edit `json:"edits"`
}

// Edit is one entry of a MultiEdit tool_input. Path is populated from
// either of the key spellings hosts have used.
type Edit struct {
	FilePath string `json:"file_path"`
	Path     string `json:"path"`
}

// Read decodes one payload from r. A payload that cannot be read or parsed
// yields the zero Payload. The host writes payloads whole, so the read is
// unbounded; a Write call's file content can run to megabytes.
func Read(r io.Reader) Payload {
	data, err := io.ReadAll(r)
	if err != nil {
		logger.Debug("failed to read hook payload", "error", err)
		return Payload{}
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		logger.Debug("failed to decode hook payload", "error", err)
		return Payload{Raw: data}
	}
	p.Raw = data
	return p
}

// ReadStdin decodes one payload from standard input.
func ReadStdin() Payload {
	return Read(os.Stdin)
}

// Args decodes the payload's tool_input. Broken tool_input decodes to the
// zero ToolArgs.
func (p Payload) Args() ToolArgs {
	var a ToolArgs
	if len(p.ToolInput) == 0 {
		return a
	}
	if err := json.Unmarshal(p.ToolInput, &a); err != nil {
		logger.Debug("failed to decode tool_input", "error", err)
		return ToolArgs{}
	}
	return a
}

// ToolFailed reports whether tool_response records a failed call. Tools
// spell this differently: an is_error flag, a false success flag, an
// interrupted run, or a non-empty error field.
func (p Payload) ToolFailed() bool {
	if len(p.ToolResponse) == 0 {
		return false
	}
	var r struct {
		IsError     *bool           `json:"is_error"`
		Success     *bool           `json:"success"`
		Interrupted bool            `json:"interrupted"`
		Error       json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(p.ToolResponse, &r); err != nil {
		return false
	}
	if r.IsError != nil && *r.IsError {
		return true
	}
	if r.Success != nil && !*r.Success {
		return true
	}
	if r.Interrupted {
		return true
	}
	return len(r.Error) > 0 && string(r.Error) != "null" && string(r.Error) != `""`
}

// PromptText returns the submitted prompt text under whichever key the
// host used.
func (p Payload) PromptText() string {
	if p.UserPrompt != "" {
		return p.UserPrompt
	}
	return p.Prompt
}

// Session returns the payload session id, falling back to the host
// environment when the payload omits it.
func (p Payload) Session() string {
	if p.SessionID != "" {
		return p.SessionID
	}
	return os.Getenv(constants.EnvSessionID)
}

// Emit writes v as one JSON line on stdout. Marshal failures are logged and
// swallowed; the caller's exit code is the verdict that matters.
func Emit(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Debug("failed to marshal hook output", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := os.Stdout.Write(data); err != nil {
		logger.Debug("failed to write hook output", "error", err)
	}
}

// Truncate shortens s to at most max bytes on a rune boundary, appending an
// ellipsis marker when anything was cut.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
