package guard

import (
	"fmt"
	"strings"

	"wiggum/internal/audit"
	"wiggum/internal/config"
	"wiggum/internal/logger"
)

// CheckBrowser screens browser automation: navigation to payment,
// checkout, or billing URLs, plus a small set of always-denied actions.
// The gate is either the command pattern against cmd (openclaw CLI runs)
// or the tool pattern against toolName (MCP browser servers); read-only
// operations and non-browser tools pass through untouched.
func CheckBrowser(toolName, cmd string) Verdict {
	cfg := config.Get()
	var v Verdict

	if !browserGated(cfg.Browser, toolName, cmd) {
		return v
	}

	nav := cfg.Browser.NavigatePattern
	if nav.Matcher != nil && nav.Matcher.MatchString(cmd) {
		for _, p := range cfg.Browser.URLPatterns {
			if !p.Matcher.MatchString(cmd) {
				continue
			}
			logger.Debug("denied browser navigation", "pattern", p.Pattern, "command", cmd)
			v.Denied = true
			v.Message = fmt.Sprintf("BLOCKED: Navigation to payment/checkout URL detected. Pattern: %s", p.Pattern)
			v.Reason = "navigation to payment/checkout URL"
			v.Segments = []audit.Segment{{
				Command: cmd,
				Rejection: &audit.Rejection{
					Code:    audit.CodePaymentURL,
					Pattern: p.Pattern,
				},
			}}
			return v
		}
	}

	for _, action := range cfg.Browser.Actions {
		if !action.Pattern.Matcher.MatchString(cmd) {
			continue
		}
		logger.Debug("denied browser action", "reason", action.Reason, "command", cmd)
		v.Denied = true
		v.Message = "BLOCKED: " + action.Reason
		v.Reason = action.Reason
		v.Segments = []audit.Segment{{
			Command: cmd,
			Rejection: &audit.Rejection{
				Code:    audit.CodeBrowserAction,
				Pattern: action.Pattern.Pattern,
				Detail:  action.Reason,
			},
		}}
		return v
	}
	return v
}

// browserGated picks the gate by transport: MCP tool calls (namespaced
// mcp__<server>__<tool>) gate on the tool name alone, so command patterns
// can never fire on JSON content; everything else gates on the command.
func browserGated(b config.BrowserConfig, toolName, cmd string) bool {
	if strings.HasPrefix(toolName, "mcp__") {
		return b.ToolPattern.Matcher != nil && b.ToolPattern.Matcher.MatchString(toolName)
	}
	return b.CommandPattern.Matcher != nil && b.CommandPattern.Matcher.MatchString(cmd)
}
