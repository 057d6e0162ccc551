// Package project resolves paths inside the Claude Code project a hook was
// invoked for. The host exports CLAUDE_PROJECT_DIR; when it is unset the
// working directory is the project root.
package project

import (
	"os"
	"path/filepath"
	"strings"

	"wiggum/internal/constants"
)

// Dir returns the project root directory.
func Dir() string {
	if dir := os.Getenv(constants.EnvProjectDir); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// ClaudeDir returns the project-local .claude directory.
func ClaudeDir() string {
	return filepath.Join(Dir(), constants.ClaudeConfigDir)
}

// LogsDir returns the append-only log directory (.claude/logs).
func LogsDir() string {
	return filepath.Join(ClaudeDir(), constants.LogsSubdir)
}

// ExpandHome replaces a leading ~ with the user's home directory. Paths
// without a tilde prefix are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
