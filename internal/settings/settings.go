// Package settings merges wiggum's hook registrations into a project's
// .claude/settings.json. The merge is additive: existing keys, matchers,
// and hooks from other tools are preserved, and registrations already
// present are not duplicated.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"wiggum/internal/constants"
	"wiggum/internal/hookio"
)

// Hook is one command registration.
type Hook struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// Matcher groups hooks behind a tool-name matcher. An empty matcher
// applies to every tool of the event.
type Matcher struct {
	Matcher string `json:"matcher,omitempty"`
	Hooks   []Hook `json:"hooks"`
}

const editMatcher = "Write|Edit|MultiEdit|NotebookEdit"

func command(args string) Hook {
	return Hook{Type: "command", Command: constants.AppName + " " + args}
}

func guarded(args string, timeout int) Hook {
	h := command(args)
	h.Timeout = timeout
	return h
}

// Registrations returns the full hook set, keyed by event name.
func Registrations() map[string][]Matcher {
	return map[string][]Matcher{
		hookio.EventPreToolUse: {
			{Matcher: "Bash", Hooks: []Hook{guarded("guard", 10)}},
			{Matcher: editMatcher, Hooks: []Hook{guarded("protect", 10)}},
		},
		hookio.EventPostToolUse: {
			{Matcher: "Bash", Hooks: []Hook{command("log bash")}},
			{Matcher: editMatcher, Hooks: []Hook{command("fmt")}},
			{Hooks: []Hook{command("log failure")}},
		},
		hookio.EventUserPromptSubmit: {
			{Hooks: []Hook{
				command("log prompt"),
				command("identity"),
				command("inject"),
			}},
		},
		hookio.EventStop: {
			{Hooks: []Hook{
				command("loop"),
				command("log assistant"),
				command("audit"),
				command("persist"),
				command("checkpoint"),
				command("cost"),
			}},
		},
		hookio.EventNotification: {
			{Hooks: []Hook{command("notify")}},
		},
	}
}

// Merge folds registrations into an existing settings document and
// returns the updated JSON. An empty document starts from scratch.
func Merge(existing []byte, reg map[string][]Matcher) ([]byte, error) {
	doc := map[string]any{}
	if len(bytes.TrimSpace(existing)) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
	}

	hooks, ok := doc["hooks"].(map[string]any)
	if !ok {
		hooks = map[string]any{}
	}
	for event, matchers := range reg {
		entries, _ := hooks[event].([]any)
		for _, m := range matchers {
			entries = mergeMatcher(entries, m)
		}
		hooks[event] = entries
	}
	doc["hooks"] = hooks

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return append(out, '\n'), nil
}

// mergeMatcher appends m, or unions its hooks into an existing entry with
// the same matcher.
func mergeMatcher(entries []any, m Matcher) []any {
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["matcher"].(string)
		if name != m.Matcher {
			continue
		}
		hooksList, _ := entry["hooks"].([]any)
		for _, h := range m.Hooks {
			if !hasCommand(hooksList, h.Command) {
				hooksList = append(hooksList, toAny(h))
			}
		}
		entry["hooks"] = hooksList
		return entries
	}
	return append(entries, toAny(m))
}

func hasCommand(hooksList []any, command string) bool {
	for _, h := range hooksList {
		entry, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if c, _ := entry["command"].(string); c == command {
			return true
		}
	}
	return false
}

// toAny round-trips a typed value into the generic JSON shape the merge
// works in.
func toAny(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// Apply merges the registrations into projectDir's settings file, creating
// it when missing.
func Apply(projectDir string) error {
	dir := filepath.Join(projectDir, constants.ClaudeConfigDir)
	if err := os.MkdirAll(dir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, constants.ClaudeSettingsFile)
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	merged, err := Merge(existing, Registrations())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, merged, constants.FileMode); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
