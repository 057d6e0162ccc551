package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"wiggum/internal/checkpoint"
	"wiggum/internal/config"
	"wiggum/internal/constants"
	"wiggum/internal/cost"
	"wiggum/internal/identity"
	"wiggum/internal/project"
	"wiggum/internal/ralph"
	"wiggum/internal/session"
)

var (
	statusTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(12)
	statusActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show loop, session, and cost status for this project",
	Long: `Status summarizes what wiggum knows about the current project: the
terminal name, Ralph loop state, checkpoint cadence, the latest persisted
session context, the most recent log activity, and today's spend.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	projectDir := project.Dir()

	lines := []string{
		statusTitleStyle.Render("wiggum — " + projectDir),
		"",
		statusLine("Terminal", terminalStatus(projectDir)),
		statusLine("Loop", loopStatus(projectDir)),
		statusLine("Checkpoint", checkpointStatus(projectDir)),
		statusLine("Session", sessionStatus(projectDir)),
		statusLine("Logs", logsStatus(projectDir)),
		statusLine("Cost today", costStatus(projectDir)),
	}

	fmt.Println(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return nil
}

func statusLine(label, value string) string {
	return statusLabelStyle.Render(label) + " " + value
}

func terminalStatus(projectDir string) string {
	name := identity.CurrentName(projectDir)
	if name == "" {
		return statusMutedStyle.Render("no name assigned yet")
	}
	return name
}

func loopStatus(projectDir string) string {
	state, err := ralph.NewStore(projectDir).Load()
	if err != nil {
		return statusWarnStyle.Render("unreadable state file")
	}
	if state == nil {
		return statusMutedStyle.Render("no loop started")
	}
	if state.Active {
		line := statusActiveStyle.Render(
			fmt.Sprintf("active — iteration %d/%d", state.Iteration, state.MaxIterations))
		if task := firstLine(state.Body); task != "" {
			line += statusMutedStyle.Render(" (" + task + ")")
		}
		return line
	}
	if state.EndReason != "" {
		return statusMutedStyle.Render(fmt.Sprintf("ended after iteration %d/%d (%s)",
			state.Iteration, state.MaxIterations, state.EndReason))
	}
	return statusMutedStyle.Render("inactive")
}

func checkpointStatus(projectDir string) string {
	state := checkpoint.NewStore(projectDir).Load()
	interval := checkpoint.Interval()
	line := fmt.Sprintf("round %d/%d", state.RoundCount, interval)
	if state.RoundCount >= interval-1 {
		return statusWarnStyle.Render(line + " — checkpoint due next stop")
	}
	return line
}

func sessionStatus(projectDir string) string {
	dir := session.LatestDir(projectDir)
	if dir == "" {
		return statusMutedStyle.Render("no persisted context")
	}
	return filepath.Base(dir) + statusMutedStyle.Render(" ("+dir+")")
}

// logsStatus names the most recently written log and shows its tail, so a
// glance answers "what did the hooks last do here".
func logsStatus(projectDir string) string {
	dir := filepath.Join(projectDir, constants.ClaudeConfigDir, constants.LogsSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return statusMutedStyle.Render("no logs yet")
	}

	var newest string
	var newestAt time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest, newestAt = entry.Name(), info.ModTime()
		}
	}
	if newest == "" {
		return statusMutedStyle.Render("no logs yet")
	}

	line := newest
	if tail := lastLogLine(filepath.Join(dir, newest)); tail != "" {
		line += statusMutedStyle.Render(" — " + truncate(tail, 60))
	}
	return line
}

// lastLogLine returns the final non-empty line of path, reading at most
// the last 4 KiB.
func lastLogLine(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return ""
	}
	off := info.Size() - 4096
	if off < 0 {
		off = 0
	}
	buf := make([]byte, info.Size()-off)
	n, _ := f.ReadAt(buf, off)

	lines := strings.Split(string(buf[:n]), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func costStatus(projectDir string) string {
	logPath := filepath.Join(projectDir, constants.ClaudeConfigDir, constants.LogsSubdir, constants.LogCostTracker)
	day := time.Now().UTC().Format("2006-01-02")
	total := cost.DailyTotal(logPath, day)
	if total == 0 {
		return statusMutedStyle.Render("no usage recorded")
	}
	line := fmt.Sprintf("$%.2f", total)
	if threshold := config.Get().Cost.DailyAlert; threshold > 0 && total > threshold {
		return statusWarnStyle.Render(line + fmt.Sprintf(" — over the $%.2f daily alert", threshold))
	}
	return line
}
