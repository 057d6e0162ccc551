package guard

import (
	"strings"
	"time"

	"wiggum/internal/audit"
	"wiggum/internal/config"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
)

// ToolBash is the tool name the command guard inspects.
const ToolBash = "Bash"

// AuditVersion tags guard entries in the audit log.
const AuditVersion = 1

// Process runs the full PreToolUse guard over one payload: browser checks
// first (they cover both openclaw CLI commands and MCP browser tools), then
// the Bash deny rules. Tools the guard does not cover are allowed silently,
// with no output at all: the guard vetoes, it never approves.
func Process(p hookio.Payload) hookio.Result {
	start := time.Now()
	args := p.Args()

	if text := browserText(p, args); text != "" {
		if v := CheckBrowser(p.ToolName, text); v.Denied {
			logDecision(p, text, v, start)
			return deny(v)
		}
	}

	if p.ToolName != ToolBash {
		logger.Debug("not a Bash command", "tool", p.ToolName)
		return hookio.Result{}
	}
	if strings.TrimSpace(args.Command) == "" {
		return hookio.Result{}
	}

	v := CheckCommand(args.Command)
	logDecision(p, args.Command, v, start)
	if v.Denied {
		return deny(v)
	}
	return hookio.Result{}
}

// browserText is the text the browser rules match against: for MCP tools
// the tool name plus the raw tool_input so URL and element patterns see
// both, otherwise the Bash command line.
func browserText(p hookio.Payload, args hookio.ToolArgs) string {
	if strings.HasPrefix(p.ToolName, "mcp__") && len(p.ToolInput) > 0 {
		return p.ToolName + " " + string(p.ToolInput)
	}
	return args.Command
}

func deny(v Verdict) hookio.Result {
	return hookio.Result{
		ExitCode: hookio.ExitBlock,
		Output:   hookio.FormatDeny(v.Reason),
		Message:  v.Message,
	}
}

// logDecision writes the audit entry for one guard run.
func logDecision(p hookio.Payload, cmd string, v Verdict, start time.Time) {
	var output string
	if v.Denied {
		output = hookio.FormatDeny(v.Reason)
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
		Target:      cmd,
		Approved:    !v.Denied,
		Segments:    v.Segments,
		DurationMs:  float64(time.Since(start).Microseconds()) / 1000.0,
		Cwd:         p.Cwd,
		Input:       string(p.Raw),
		Output:      output,
		ConfigPath:  config.Path(),
		ConfigError: configError,
	})
}
