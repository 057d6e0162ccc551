// Package guard implements the PreToolUse command filter: named deny rules
// over Bash commands, with chain splitting and wrapper stripping so a
// denied command cannot hide behind `true && …` or `timeout 30 …`, and
// payment-flow checks over browser automation commands.
//
// The guard only vetoes. A command no rule matches exits 0 and leaves the
// decision to the host's own permission flow.
package guard

import (
	"fmt"
	"strings"

	"wiggum/internal/audit"
	"wiggum/internal/config"
	"wiggum/internal/logger"
	"wiggum/internal/patterns"
	"wiggum/internal/shell"
)

// DenyMatch identifies the deny rule that fired.
type DenyMatch struct {
	Name        string
	Pattern     string
	SupplyChain bool
}

// Verdict is the outcome of one guard check plus the audit detail that
// justifies it.
type Verdict struct {
	Denied   bool
	Match    *DenyMatch
	Message  string // stderr diagnostic; empty when allowed
	Reason   string // permissionDecisionReason for a deny
	Segments []audit.Segment
}

// CheckDeny returns the first deny rule matching text, honoring each rule's
// allow exceptions.
func CheckDeny(text string, rules []config.DenyRule) *DenyMatch {
	for _, r := range rules {
		if !r.Pattern.Matcher.MatchString(text) {
			continue
		}
		if allowed(text, r.Allow) {
			continue
		}
		return &DenyMatch{
			Name:        r.Pattern.Name,
			Pattern:     r.Pattern.Pattern,
			SupplyChain: r.SupplyChain,
		}
	}
	return nil
}

func allowed(text string, allow []patterns.Pattern) bool {
	for _, a := range allow {
		if a.Matcher.MatchString(text) {
			return true
		}
	}
	return false
}

// CheckCommand screens one Bash command. The raw text is matched first so
// rules that span pipes and chains (curl | sh) see the whole line; then
// every chain segment is matched with benign wrappers stripped. All
// segments are evaluated so the audit entry carries each violation, not
// just the first.
func CheckCommand(cmd string) Verdict {
	cfg := config.Get()
	var v Verdict
	if strings.TrimSpace(cmd) == "" {
		return v
	}

	if m := CheckDeny(cmd, cfg.DenyRules); m != nil {
		logger.Debug("denied raw command", "rule", m.Name, "command", cmd)
		v.record(m, audit.Segment{Command: cmd})
		return v
	}

	segs, err := shell.SplitCommandChain(cmd)
	if err != nil {
		// The raw text was already screened; record the parse failure and
		// let the command through.
		logger.Debug("unparseable command", "command", cmd)
		v.Segments = append(v.Segments, audit.Segment{
			Command:   cmd,
			Approved:  true,
			Rejection: &audit.Rejection{Code: audit.CodeUnparseable, Detail: "parse error"},
		})
		return v
	}

	v.screen(segs, cfg)

	// Substituted commands run before the visible one, so $(sudo …) must
	// not slip past rules anchored at the start of a segment. Each body is
	// screened like a top-level chain.
	if shell.HasCommandSubstitution(cmd) {
		for _, body := range shell.SubstitutionBodies(cmd) {
			if inner, err := shell.SplitCommandChain(body); err == nil {
				v.screen(inner, cfg)
			}
		}
	}
	return v
}

// screen checks each segment with benign wrappers stripped and appends its
// audit record.
func (v *Verdict) screen(segs []string, cfg *config.Config) {
	for _, seg := range segs {
		core, wrappers := shell.StripWrappers(seg, cfg.WrapperPatterns)
		m := CheckDeny(core, cfg.DenyRules)
		if m == nil {
			v.Segments = append(v.Segments, audit.Segment{
				Command:  seg,
				Approved: true,
				Wrappers: wrappers,
			})
			continue
		}
		logger.Debug("denied segment", "rule", m.Name, "segment", seg, "core", core)
		v.record(m, audit.Segment{Command: seg, Wrappers: wrappers})
	}
}

// record marks the verdict denied by m, keeps the first match as the
// reported one, and appends the audit segment for it.
func (v *Verdict) record(m *DenyMatch, seg audit.Segment) {
	v.Denied = true
	if v.Match == nil {
		v.Match = m
		v.Message = m.blockedLine()
		v.Reason = fmt.Sprintf("command matches deny rule '%s'", m.Name)
	}
	seg.Approved = false
	seg.Rejection = &audit.Rejection{
		Code:    audit.CodeDenyMatch,
		Name:    m.Name,
		Pattern: m.Pattern,
	}
	v.Segments = append(v.Segments, seg)
}

// blockedLine is the stderr diagnostic for a denied command.
func (m *DenyMatch) blockedLine() string {
	if m.SupplyChain {
		return fmt.Sprintf("BLOCKED: '%s' - add to the allowlist in config.toml if trusted", m.Name)
	}
	return fmt.Sprintf("BLOCKED: '%s' command not allowed. Pattern: %s", m.Name, m.Pattern)
}
