// Package session persists working state across sessions in the
// three-file pattern: plan.md holds the architectural plan, context.md
// accumulates learnings plus a session history, and tasks.md tracks the
// granular checklist. The Stop hook keeps the files alive and stamps each
// session's end into context.md.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wiggum/internal/config"
	"wiggum/internal/constants"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
	"wiggum/internal/project"
	"wiggum/internal/transcript"
)

// The three context files.
const (
	FilePlan    = "plan.md"
	FileContext = "context.md"
	FileTasks   = "tasks.md"
)

// summaryLimit caps how much transcript text lands in the session history.
const summaryLimit = 500

const planTemplate = `# Plan

## Goal
[One-sentence objective]

## Approach
[Key technical decisions]

## Scope
- In scope: ...
- Out of scope: ...

## Milestones
1. [ ] ...
2. [ ] ...
3. [ ] ...
`

const contextTemplate = `# Context

## Key Learnings
- ...

## Decisions Made
- ...

## Gotchas
- ...

## File Map
- ...

---
## Session History
`

const tasksTemplate = `# Tasks

## Current
- [ ] ...

## Blocked
- [ ] ...

## Completed
- [x] ...

## Deferred
- [ ] ...
`

var templates = map[string]string{
	FilePlan:    planTemplate,
	FileContext: contextTemplate,
	FileTasks:   tasksTemplate,
}

// TaskName returns the label for the current task's context directory:
// the CLAUDE_TASK_NAME override, else the first eight characters of the
// session id, else "current".
func TaskName(sessionID string) string {
	if name := os.Getenv(constants.EnvTaskName); name != "" {
		return name
	}
	if sessionID != "" {
		if len(sessionID) > 8 {
			return sessionID[:8]
		}
		return sessionID
	}
	return "current"
}

// Dir returns the context directory for one task.
func Dir(projectDir, task string) string {
	return filepath.Join(projectDir, constants.ClaudeConfigDir, constants.ContextSubdir, task)
}

// EnsureFiles creates the context directory and any of the three files
// that are missing, from their templates. Existing files are left alone.
func EnsureFiles(dir string) error {
	if err := os.MkdirAll(dir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}
	for name, tmpl := range templates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(tmpl), constants.FileMode); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// LatestDir returns the most recently modified task directory under
// .claude/context, or "" when no task has context yet.
func LatestDir(projectDir string) string {
	base := filepath.Join(projectDir, constants.ClaudeConfigDir, constants.ContextSubdir)
	entries, err := os.ReadDir(base)
	if err != nil {
		return ""
	}
	var latest string
	var latestMod time.Time
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = entry.Name()
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return ""
	}
	return filepath.Join(base, latest)
}

// AppendSummary stamps a dated session block onto context.md.
func AppendSummary(dir, summary string) error {
	path := filepath.Join(dir, FileContext)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", FileContext, err)
	}
	defer f.Close()

	stamp := time.Now().Format("2006-01-02 15:04")
	if _, err := fmt.Fprintf(f, "\n### Session %s\n%s\n", stamp, summary); err != nil {
		return fmt.Errorf("failed to append summary: %w", err)
	}
	return nil
}

// Mirror copies the three context files from dir into dstDir, creating it
// as needed. Missing sources are skipped.
func Mirror(dir, dstDir string) error {
	if err := os.MkdirAll(dstDir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create mirror directory: %w", err)
	}
	for name := range templates {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(dstDir, name), data, constants.FileMode); err != nil {
			return fmt.Errorf("failed to mirror %s: %w", name, err)
		}
	}
	return nil
}

// Process answers a Stop event: make sure the three files exist, append
// the session summary, and mirror the set when a mirror dir is
// configured. Always allows.
func Process(p hookio.Payload) hookio.Result {
	task := TaskName(p.Session())
	dir := Dir(project.Dir(), task)

	if err := EnsureFiles(dir); err != nil {
		logger.Debug("failed to ensure context files", "error", err)
		return hookio.Result{}
	}

	summary := "Session ended."
	if text := transcript.LastAssistantText(project.ExpandHome(p.TranscriptPath)); text != "" {
		summary = "Session ended. Brief: " + truncate(text, summaryLimit)
	}
	if err := AppendSummary(dir, summary); err != nil {
		logger.Debug("failed to append session summary", "error", err)
	}

	if mirror := config.Get().Persist.MirrorDir; mirror != "" {
		dst := filepath.Join(project.ExpandHome(mirror), task)
		if err := Mirror(dir, dst); err != nil {
			logger.Debug("failed to mirror context files", "error", err)
		}
	}

	return hookio.Result{Message: "Session state persisted to: " + dir}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
