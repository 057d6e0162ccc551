// Package protect blocks edits to sensitive paths and to files carrying
// sentinel markers. It answers PreToolUse for the editing tools: a match
// exits 2 with the deny JSON and a multi-line diagnostic on stderr,
// everything else is allowed silently.
package protect

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"wiggum/internal/audit"
	"wiggum/internal/config"
	"wiggum/internal/constants"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
	"wiggum/internal/project"
)

// AuditVersion tags protect entries in the audit log.
const AuditVersion = 1

// markerScanLimit bounds how much of a file is scanned for sentinel
// markers.
const markerScanLimit = 50_000

// editTools are the tool names whose file arguments the hook screens.
var editTools = map[string]bool{
	"Write":        true,
	"Edit":         true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// IsEditTool reports whether name is a file-modifying tool.
func IsEditTool(name string) bool {
	return editTools[name]
}

// ExtractPaths returns the file paths named by an edit tool's input, in
// order, deduplicated.
func ExtractPaths(p hookio.Payload) []string {
	args := p.Args()

	var paths []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			paths = append(paths, s)
		}
	}
	add(args.FilePath)
	add(args.NotebookPath)
	for _, e := range args.Edits {
		if e.FilePath != "" {
			add(e.FilePath)
		} else {
			add(e.Path)
		}
	}

	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// ProjectRelative converts path to project-relative slash form when it
// lies under projectDir. Paths outside the project are normalized to
// slash form with leading "./" noise stripped, so the globs still see
// them.
func ProjectRelative(path, projectDir string) string {
	if abs, err := filepath.Abs(path); err == nil {
		if base, err := filepath.Abs(projectDir); err == nil {
			rel, err := filepath.Rel(base, abs)
			if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return filepath.ToSlash(rel)
			}
		}
	}
	return strings.TrimLeft(filepath.ToSlash(filepath.Clean(path)), "./")
}

// Allowed reports whether rel matches one of the allow patterns. Allow
// patterns are checked before the protected globs and exempt the path.
func Allowed(rel string, allow []string) bool {
	for _, pat := range allow {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// ProtectedGlob returns the first protected glob matching rel, unless an
// allow pattern exempts it.
func ProtectedGlob(rel string, cfg config.ProtectConfig) (string, bool) {
	if Allowed(rel, cfg.Allow) {
		return "", false
	}
	for _, pat := range cfg.Globs {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return pat, true
		}
	}
	return "", false
}

// IsCodeFile reports whether the file's extension is one the sentinel
// scan covers. Docs and config files are left alone.
func IsCodeFile(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// SentinelMarker scans the start of a code file for a protection marker
// and returns the matched text. Files that do not exist yet, or cannot be
// read, carry no marker.
func SentinelMarker(path string, cfg config.ProtectConfig) (string, bool) {
	if !IsCodeFile(path, cfg.CodeExtensions) {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, markerScanLimit))
	if err != nil {
		return "", false
	}

	content := string(data)
	for _, m := range cfg.Markers {
		if found := m.Matcher.Find(content); found != "" {
			return found, true
		}
	}
	return "", false
}

// Process screens one edit payload. Every named path is evaluated so the
// audit entry lists them all; the first protected one decides the
// verdict. Setting WIGGUM_ALLOW_PROTECTED=1 skips the hook entirely.
func Process(p hookio.Payload) hookio.Result {
	if os.Getenv(constants.EnvAllowProtected) == "1" {
		return hookio.Result{}
	}
	if !editTools[p.ToolName] {
		return hookio.Result{}
	}
	paths := ExtractPaths(p)
	if len(paths) == 0 {
		return hookio.Result{}
	}

	start := time.Now()
	cfg := config.Get().Protect
	projectDir := project.Dir()

	var res hookio.Result
	var segments []audit.Segment
	for _, path := range paths {
		rel := ProjectRelative(path, projectDir)

		if glob, ok := ProtectedGlob(rel, cfg); ok {
			logger.Debug("blocked protected path", "path", rel, "glob", glob)
			segments = append(segments, audit.Segment{
				Command: rel,
				Rejection: &audit.Rejection{
					Code:    audit.CodeProtectedPath,
					Pattern: glob,
				},
			})
			if res.ExitCode == 0 {
				res = denyResult(globMessage(rel),
					fmt.Sprintf("path '%s' matches protected pattern '%s'", rel, glob))
			}
			continue
		}

		abs := filepath.Join(projectDir, filepath.FromSlash(rel))
		if marker, ok := SentinelMarker(abs, cfg); ok {
			logger.Debug("blocked sentinel-marked file", "path", rel, "marker", marker)
			segments = append(segments, audit.Segment{
				Command: rel,
				Rejection: &audit.Rejection{
					Code:   audit.CodeSentinelMarker,
					Detail: marker,
				},
			})
			if res.ExitCode == 0 {
				res = denyResult(markerMessage(rel, marker),
					fmt.Sprintf("file '%s' contains protected-code marker '%s'", rel, marker))
			}
			continue
		}

		segments = append(segments, audit.Segment{Command: rel, Approved: true})
	}

	logDecision(p, segments, res, start)
	return res
}

func denyResult(message, reason string) hookio.Result {
	return hookio.Result{
		ExitCode: hookio.ExitBlock,
		Output:   hookio.FormatDeny(reason),
		Message:  message,
	}
}

func globMessage(rel string) string {
	return strings.Join([]string{
		fmt.Sprintf("Blocked edit to protected file: %s", rel),
		"wiggum blocks .env*, secret material, and common prod config paths.",
		fmt.Sprintf("To override temporarily: export %s=1 (then restart the session).", constants.EnvAllowProtected),
		"Or adjust the [protect] globs in config.toml.",
	}, "\n")
}

func markerMessage(rel, marker string) string {
	return strings.Join([]string{
		fmt.Sprintf("Blocked edit to sentinel-protected file: %s", rel),
		fmt.Sprintf("File contains '%s' marker indicating protected code.", marker),
		"This code requires explicit approval before modification.",
		fmt.Sprintf("To override temporarily: export %s=1 (then restart the session).", constants.EnvAllowProtected),
		"See .claude/docs/sentinel-zones.md for documentation.",
	}, "\n")
}

// logDecision writes the audit entry for one protect run. The first path
// is the target; per-path detail rides in the segments.
func logDecision(p hookio.Payload, segments []audit.Segment, res hookio.Result, start time.Time) {
	target := ""
	if len(segments) > 0 {
		target = segments[0].Command
	}
	var configError string
	if err := config.InitError(); err != nil {
		configError = err.Error()
	}
	audit.Log(audit.Entry{
		Version:     AuditVersion,
		SessionID:   p.Session(),
		ToolUseID:   p.ToolUseID,
		Tool:        p.ToolName,
		Target:      target,
		Approved:    res.ExitCode == 0,
		Segments:    segments,
		DurationMs:  float64(time.Since(start).Microseconds()) / 1000.0,
		Cwd:         p.Cwd,
		Input:       string(p.Raw),
		Output:      res.Output,
		ConfigPath:  config.Path(),
		ConfigError: configError,
	})
}
