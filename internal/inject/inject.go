// Package inject builds just-in-time context for user prompts. Keyword
// triggers map to reference snippets, continuation phrases point the
// assistant at the most recent task's context directory, and an optional
// standing directive rides along on substantive (non-question) prompts.
package inject

import (
	"fmt"
	"strings"

	"wiggum/internal/config"
	"wiggum/internal/hookio"
	"wiggum/internal/project"
	"wiggum/internal/session"
)

// Snippets returns the context lines whose trigger keyword appears in the
// prompt, in trigger order, deduplicated.
func Snippets(prompt string, cfg config.InjectConfig) []string {
	lower := strings.ToLower(prompt)
	seen := make(map[string]bool)
	var snippets []string
	for _, trigger := range cfg.Triggers {
		if !strings.Contains(lower, strings.ToLower(trigger.Keyword)) {
			continue
		}
		for _, line := range trigger.Context {
			if seen[line] {
				continue
			}
			seen[line] = true
			snippets = append(snippets, line)
		}
	}
	return snippets
}

// ContinuationDir returns the most recently modified task directory under
// .claude/context when the prompt contains a continuation phrase, or ""
// when it doesn't or no context exists yet.
func ContinuationDir(prompt string, cfg config.InjectConfig, projectDir string) string {
	lower := strings.ToLower(prompt)
	for _, kw := range cfg.ContinuationKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return session.LatestDir(projectDir)
		}
	}
	return ""
}

// isQuestion reports whether the prompt reads as a question rather than a
// work request: it ends with "?", opens with an interrogative, or is too
// short to be a task.
func isQuestion(prompt string, d config.DirectiveConfig) bool {
	trimmed := strings.TrimSpace(strings.ToLower(prompt))
	if len([]rune(trimmed)) < d.MinLength {
		return true
	}
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return true
	}
	for _, starter := range d.SkipStarters {
		if fields[0] == starter {
			return true
		}
	}
	return false
}

// directive returns the standing instruction when it applies to this
// prompt: enabled, not a question, and the prompt does not already mention
// the agent being directed.
func directive(prompt string, d config.DirectiveConfig) string {
	if !d.Enabled || d.Instruction == "" {
		return ""
	}
	if isQuestion(prompt, d) {
		return ""
	}
	lower := strings.ToLower(prompt)
	for _, mention := range d.SkipMentions {
		if strings.Contains(lower, strings.ToLower(mention)) {
			return ""
		}
	}
	return strings.TrimSpace(d.Instruction)
}

// Build assembles the full injection for a prompt, or "" when nothing
// applies.
func Build(prompt string, cfg config.InjectConfig, projectDir string) string {
	snippets := Snippets(prompt, cfg)
	if cfg.MaxSnippets > 0 && len(snippets) > cfg.MaxSnippets {
		snippets = snippets[:cfg.MaxSnippets]
	}
	continuation := ContinuationDir(prompt, cfg, projectDir)
	instruction := directive(prompt, cfg.Directive)

	if len(snippets) == 0 && continuation == "" && instruction == "" {
		return ""
	}

	var parts []string
	if len(snippets) > 0 {
		parts = append(parts, "**Relevant Context:**")
		for _, s := range snippets {
			parts = append(parts, "- "+s)
		}
	}
	if continuation != "" {
		if len(parts) > 0 {
			parts = append(parts, "")
		}
		parts = append(parts, fmt.Sprintf("**Previous session state found at:** `%s`", continuation))
		parts = append(parts, "Read plan.md, context.md, and tasks.md to resume.")
	}
	if instruction != "" {
		if len(parts) > 0 {
			parts = append(parts, "")
		}
		parts = append(parts, instruction)
	}
	return strings.Join(parts, "\n")
}

// Process answers a UserPromptSubmit event with additional context, or
// stays silent when the prompt triggers nothing.
func Process(p hookio.Payload) hookio.Result {
	prompt := p.PromptText()
	if prompt == "" {
		return hookio.Result{}
	}

	injection := Build(prompt, config.Get().Inject, project.Dir())
	if injection == "" {
		return hookio.Result{}
	}
	return hookio.Result{
		Output: hookio.FormatContext(hookio.EventUserPromptSubmit, injection),
	}
}
