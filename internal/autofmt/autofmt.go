// Package autofmt runs the configured formatter over files an edit tool
// just touched. A formatter applies when the file extension matches, the
// project carries its required marker files, and the binary is installed.
// Formatting is best-effort: failures are logged and never block.
package autofmt

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"wiggum/internal/config"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
	"wiggum/internal/project"
	"wiggum/internal/protect"
	"wiggum/internal/shell"
)

// Match returns the first formatter claiming the file's extension, or nil.
func Match(path string, cfg config.FormatConfig) *config.Formatter {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil
	}
	for i := range cfg.Formatters {
		for _, e := range cfg.Formatters[i].Extensions {
			if strings.ToLower(e) == ext {
				return &cfg.Formatters[i]
			}
		}
	}
	return nil
}

// Eligible reports whether the project satisfies the formatter's
// preconditions: every Requires file exists, and at least one RequiresAny
// file exists when that list is non-empty.
func Eligible(f config.Formatter, projectDir string) bool {
	for _, name := range f.Requires {
		if _, err := os.Stat(filepath.Join(projectDir, name)); err != nil {
			return false
		}
	}
	if len(f.RequiresAny) == 0 {
		return true
	}
	for _, name := range f.RequiresAny {
		if _, err := os.Stat(filepath.Join(projectDir, name)); err == nil {
			return true
		}
	}
	return false
}

// Argv builds the formatter command line, substituting {file} with the
// edited path. A template without the placeholder gets the path appended.
func Argv(f config.Formatter, file string) ([]string, error) {
	words, err := shell.Fields(f.Command)
	if err != nil {
		return nil, err
	}
	substituted := false
	argv := make([]string, 0, len(words)+1)
	for _, w := range words {
		if strings.Contains(w, "{file}") {
			w = strings.ReplaceAll(w, "{file}", file)
			substituted = true
		}
		argv = append(argv, w)
	}
	if !substituted {
		argv = append(argv, file)
	}
	return argv, nil
}

// Run executes the formatter on file from the project root, discarding
// output.
func Run(ctx context.Context, f config.Formatter, file, projectDir string) error {
	argv, err := Argv(f, file)
	if err != nil || len(argv) == 0 {
		return err
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = projectDir
	return cmd.Run()
}

// Process answers a PostToolUse event for the edit tools by formatting
// each touched file that a configured formatter claims. Always allows.
func Process(p hookio.Payload) hookio.Result {
	if !protect.IsEditTool(p.ToolName) {
		return hookio.Result{}
	}

	cfg := config.Get().Format
	projectDir := project.Dir()
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	for _, path := range protect.ExtractPaths(p) {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		f := Match(path, cfg)
		if f == nil || !Eligible(*f, projectDir) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := Run(ctx, *f, path, projectDir)
		cancel()
		if err != nil {
			logger.Debug("formatter failed", "formatter", f.Name, "file", path, "error", err)
		}
	}
	return hookio.Result{}
}
