// Package turnaudit summarizes the tools the assistant used in its latest
// turn. On Stop it reads the transcript, counts tool calls, lists files
// read and modified, spawned agents, and errors, and appends a TURN block
// to .claude/logs/tool-audit.log.
package turnaudit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"wiggum/internal/constants"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
	"wiggum/internal/project"
	"wiggum/internal/sessionlog"
	"wiggum/internal/transcript"
)

// ToolCount is one tool's call count within the turn.
type ToolCount struct {
	Name  string
	Count int
}

// FileChange is a modified file and the tool that touched it.
type FileChange struct {
	Path string
	Tool string
}

// Agent is a spawned subagent and its truncated description.
type Agent struct {
	Type        string
	Description string
}

// Summary categorizes a turn's tool blocks.
type Summary struct {
	ToolCounts    []ToolCount
	FilesRead     []string
	FilesModified []FileChange
	AgentsSpawned []Agent
	Errors        []string
}

// toolInput is the slice of tool arguments the summary cares about.
type toolInput struct {
	FilePath     string `json:"file_path"`
	SubagentType string `json:"subagent_type"`
	Description  string `json:"description"`
	Prompt       string `json:"prompt"`
}

// Build categorizes the blocks of one turn.
func Build(blocks []transcript.Block) Summary {
	var s Summary
	counts := make(map[string]int)
	var order []string

	for _, b := range blocks {
		switch b.Type {
		case "tool_use":
			name := b.Name
			if name == "" {
				name = "unknown"
			}
			if counts[name] == 0 {
				order = append(order, name)
			}
			counts[name]++

			var in toolInput
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &in); err != nil {
					continue
				}
			}
			switch name {
			case "Read":
				if in.FilePath != "" {
					s.FilesRead = append(s.FilesRead, in.FilePath)
				}
			case "Edit", "Write", "MultiEdit":
				if in.FilePath != "" {
					s.FilesModified = append(s.FilesModified, FileChange{Path: in.FilePath, Tool: name})
				}
			case "Task":
				desc := in.Description
				if desc == "" {
					desc = in.Prompt
				}
				s.AgentsSpawned = append(s.AgentsSpawned, Agent{Type: in.SubagentType, Description: truncate(desc, 60)})
			}

		case "tool_result":
			if !b.IsError {
				continue
			}
			s.Errors = append(s.Errors, truncate(b.ResultText(), 80))
		}
	}

	s.ToolCounts = make([]ToolCount, 0, len(order))
	for _, name := range order {
		s.ToolCounts = append(s.ToolCounts, ToolCount{Name: name, Count: counts[name]})
	}
	sort.SliceStable(s.ToolCounts, func(i, j int) bool {
		return s.ToolCounts[i].Count > s.ToolCounts[j].Count
	})
	return s
}

// Format renders the summary as one TURN block.
func Format(ts time.Time, s Summary, costLine string) string {
	lines := []string{fmt.Sprintf("═══ TURN [%s] ═══", stamp(ts))}

	if len(s.ToolCounts) > 0 {
		parts := make([]string, 0, len(s.ToolCounts))
		for _, tc := range s.ToolCounts {
			parts = append(parts, fmt.Sprintf("%s(%d)", tc.Name, tc.Count))
		}
		lines = append(lines, "Tools used: "+strings.Join(parts, ", "))
	}
	if len(s.FilesRead) > 0 {
		parts := make([]string, 0, len(s.FilesRead))
		for _, p := range s.FilesRead {
			parts = append(parts, shortPath(p))
		}
		lines = append(lines, "Files read: "+strings.Join(parts, ", "))
	}
	if len(s.FilesModified) > 0 {
		parts := make([]string, 0, len(s.FilesModified))
		for _, fc := range s.FilesModified {
			parts = append(parts, fmt.Sprintf("%s (%s)", shortPath(fc.Path), fc.Tool))
		}
		lines = append(lines, "Files modified: "+strings.Join(parts, ", "))
	}
	if len(s.AgentsSpawned) > 0 {
		parts := make([]string, 0, len(s.AgentsSpawned))
		for _, a := range s.AgentsSpawned {
			parts = append(parts, fmt.Sprintf("%s(%q)", a.Type, a.Description))
		}
		lines = append(lines, "Agents spawned: "+strings.Join(parts, ", "))
	}
	for _, err := range s.Errors {
		lines = append(lines, "Errors: "+err)
	}
	if costLine != "" {
		lines = append(lines, "Cost: "+costLine)
	}
	return strings.Join(lines, "\n")
}

// RecentCostEntry returns the newest cost log line with its leading
// timestamp stripped, or "".
func RecentCostEntry(projectDir string) string {
	data, err := os.ReadFile(filepath.Join(projectDir, constants.ClaudeConfigDir, constants.LogsSubdir, constants.LogCostTracker))
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return ""
	}
	if _, rest, ok := strings.Cut(last, "] "); ok {
		return rest
	}
	return last
}

// Process answers a Stop event: summarize the latest turn and append it to
// the tool audit log. Turns without tool calls are skipped. Always allows.
func Process(p hookio.Payload) hookio.Result {
	path := os.Getenv(constants.EnvTranscript)
	if path == "" {
		path = p.TranscriptPath
	}
	if path == "" {
		return hookio.Result{}
	}
	path = project.ExpandHome(path)

	log := sessionlog.New(filepath.Join(project.LogsDir(), constants.LogToolAudit))

	if _, err := os.Stat(path); err != nil {
		logError(log, "Transcript not found: "+path)
		return hookio.Result{}
	}

	blocks, err := transcript.LatestTurnBlocks(path)
	if err != nil {
		logError(log, "Failed to parse transcript: "+err.Error())
		return hookio.Result{}
	}
	if len(blocks) == 0 {
		return hookio.Result{}
	}

	summary := Build(blocks)
	if len(summary.ToolCounts) == 0 {
		return hookio.Result{}
	}

	formatted := Format(time.Now(), summary, RecentCostEntry(project.Dir()))
	if err := log.AppendString(formatted + "\n\n"); err != nil {
		logger.Debug("failed to append tool audit log", "error", err)
	}
	return hookio.Result{}
}

func logError(log *sessionlog.Log, message string) {
	line := fmt.Sprintf("[%s] ERROR: %s\n", stamp(time.Now()), message)
	if err := log.AppendString(line); err != nil {
		logger.Debug("failed to append tool audit log", "error", err)
	}
}

func stamp(ts time.Time) string {
	return ts.UTC().Format("2006-01-02T15:04:05Z")
}

// shortPath keeps the last three path components.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) < 3 || len(parts) <= 3 {
		return path
	}
	return filepath.Join(kept[len(kept)-3:]...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
