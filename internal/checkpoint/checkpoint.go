// Package checkpoint counts assistant rounds and, every N stops, emits a
// paste-ready continuation block so a /clear does not lose the working
// state. The block is assembled from the current task's context files and
// the loop state.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"wiggum/internal/config"
	"wiggum/internal/constants"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
	"wiggum/internal/project"
	"wiggum/internal/ralph"
	"wiggum/internal/session"
)

// State is the persisted round counter.
type State struct {
	RoundCount int `json:"round_count"`
}

// Store reads and writes the checkpoint counter file.
type Store struct {
	path string
}

// NewStore returns the store for a project's counter file.
func NewStore(projectDir string) *Store {
	return &Store{path: filepath.Join(projectDir, constants.ClaudeConfigDir, constants.CheckpointStateFile)}
}

// Path returns the counter file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored state, or the zero state when the file is
// missing or unreadable.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return State{}
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}
	}
	return state
}

// Save persists the state, creating the parent directory as needed.
func (s *Store) Save(state State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), constants.DirMode); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint state: %w", err)
	}
	if err := os.WriteFile(s.path, data, constants.FileMode); err != nil {
		return fmt.Errorf("failed to write checkpoint state: %w", err)
	}
	return nil
}

// Interval returns the checkpoint cadence: the env override when set to a
// positive integer, else the configured value.
func Interval() int {
	if v := os.Getenv(constants.EnvCheckpointInterval); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return config.Get().Checkpoint.Interval
}

// Summary is everything the continuation block needs.
type Summary struct {
	Goal      string
	Completed []string
	Remaining []string
	Context   string
	LoopInfo  string
}

// Gather collects the summary from the latest context directory and the
// loop state. Missing pieces stay empty.
func Gather(projectDir string) Summary {
	var s Summary

	if ctxDir := session.LatestDir(projectDir); ctxDir != "" {
		s.Goal = planGoal(readFile(filepath.Join(ctxDir, session.FilePlan)))
		s.Context = truncate(strings.TrimSpace(readFile(filepath.Join(ctxDir, session.FileContext))), 500)
		s.Completed, s.Remaining = ExtractTasks(readFile(filepath.Join(ctxDir, session.FileTasks)))
	}

	if state, err := ralph.NewStore(projectDir).Load(); err == nil && state != nil && state.Active {
		s.LoopInfo = fmt.Sprintf("iteration %d/%d", state.Iteration, state.MaxIterations)
	}
	return s
}

// ExtractTasks splits a markdown checklist into checked and unchecked
// item texts.
func ExtractTasks(content string) (checked, unchecked []string) {
	for _, line := range strings.Split(content, "\n") {
		stripped := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(stripped, "- [x]"), strings.HasPrefix(stripped, "- [X]"):
			checked = append(checked, strings.TrimSpace(stripped[5:]))
		case strings.HasPrefix(stripped, "- [ ]"):
			unchecked = append(unchecked, strings.TrimSpace(stripped[5:]))
		}
	}
	return checked, unchecked
}

// planGoal pulls the first non-empty line of plan.md, heading markers
// stripped.
func planGoal(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line != "" {
			return line
		}
	}
	return ""
}

// Render builds the checkpoint block for round count.
func Render(count int, s Summary) string {
	bar := strings.Repeat("=", 50)
	dash := strings.Repeat("-", 30)

	lines := []string{
		"",
		bar,
		fmt.Sprintf(" CONTEXT CHECKPOINT (round %d)", count),
		bar,
	}
	if s.Goal != "" {
		lines = append(lines, "TASK: "+s.Goal)
	}
	if len(s.Completed) > 0 {
		lines = append(lines, "COMPLETED: "+joinFirst(s.Completed, 5))
	}
	if len(s.Remaining) > 0 {
		lines = append(lines, "REMAINING: "+joinFirst(s.Remaining, 5))
	}
	if s.Context != "" {
		lines = append(lines, "KEY CONTEXT: "+truncate(s.Context, 200))
	}
	if s.LoopInfo != "" {
		lines = append(lines, "RALPH LOOP: "+s.LoopInfo)
	}

	lines = append(lines, "", dash+" PASTE AFTER /clear "+dash, "Use the autopilot subagent.", "")
	if s.Goal != "" {
		lines = append(lines, "1) GOAL: "+s.Goal)
	}
	if len(s.Remaining) > 0 {
		lines = append(lines, "2) DEFINITION OF DONE: "+joinFirst(s.Remaining, 10))
	}
	if s.Context != "" {
		lines = append(lines, "3) CONTEXT: "+truncate(s.Context, 300))
	}
	if len(s.Completed) > 0 {
		lines = append(lines, "4) DETAILS: Already done: "+joinFirst(s.Completed, 5))
	}
	lines = append(lines, dash+" END "+dash, "")

	return strings.Join(lines, "\n")
}

// Process answers a Stop event: bump the round counter, and at every
// interval boundary reset it and emit the continuation block. Never
// blocks.
func Process(p hookio.Payload) hookio.Result {
	store := NewStore(project.Dir())
	state := store.Load()
	state.RoundCount++
	count := state.RoundCount

	if count < Interval() {
		if err := store.Save(state); err != nil {
			logger.Debug("failed to save checkpoint state", "error", err)
		}
		return hookio.Result{}
	}

	state.RoundCount = 0
	if err := store.Save(state); err != nil {
		logger.Debug("failed to save checkpoint state", "error", err)
	}

	return hookio.Result{Message: Render(count, Gather(project.Dir()))}
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, "; ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
