package shell

import (
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// substitutionPattern matches command substitution syntax
var substitutionPattern = regexp.MustCompile(`\$\(|` + "`")

// byteRange represents a range of bytes in a string
type byteRange struct {
	start, end int
}

// findQuotedHeredocRanges parses a command and returns byte ranges of heredoc
// content where the delimiter is quoted (single or double quotes). Quoted
// heredocs don't perform shell expansion, so backticks and $() inside them are
// literal text, not command substitution.
func findQuotedHeredocRanges(cmd string) []byteRange {
	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		return nil
	}

	var ranges []byteRange
	syntax.Walk(prog, func(node syntax.Node) bool {
		redir, ok := node.(*syntax.Redirect)
		if !ok {
			return true
		}

		// Check if this is a heredoc operator (<< or <<-)
		if redir.Op != syntax.Hdoc && redir.Op != syntax.DashHdoc {
			return true
		}

		if redir.Word == nil || len(redir.Word.Parts) == 0 {
			return true
		}

		isQuoted := false
		for _, part := range redir.Word.Parts {
			switch part.(type) {
			case *syntax.SglQuoted, *syntax.DblQuoted:
				isQuoted = true
			}
		}

		if isQuoted && redir.Hdoc != nil {
			start := int(redir.Hdoc.Pos().Offset())
			end := int(redir.Hdoc.End().Offset())
			if start < end && start >= 0 && end <= len(cmd) {
				ranges = append(ranges, byteRange{start: start, end: end})
			}
		}

		return true
	})

	return ranges
}

// SubstitutionBodies returns the command text inside each $(…) or backtick
// substitution, at any nesting depth. Quoted-heredoc content is literal text
// to the parser, so nothing is extracted from it.
func SubstitutionBodies(cmd string) []string {
	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		return nil
	}

	printer := syntax.NewPrinter()
	var bodies []string
	syntax.Walk(prog, func(node syntax.Node) bool {
		sub, ok := node.(*syntax.CmdSubst)
		if !ok {
			return true
		}
		var buf strings.Builder
		for i, stmt := range sub.Stmts {
			if i > 0 {
				buf.WriteString("; ")
			}
			printer.Print(&buf, stmt)
		}
		if s := strings.TrimSpace(buf.String()); s != "" {
			bodies = append(bodies, s)
		}
		return true
	})
	return bodies
}

// HasCommandSubstitution reports whether the command contains $( or backtick
// substitution outside quoted heredocs, where those characters are literal.
func HasCommandSubstitution(cmd string) bool {
	excludeRanges := findQuotedHeredocRanges(cmd)

	// If no heredocs, do the simple check
	if len(excludeRanges) == 0 {
		return substitutionPattern.MatchString(cmd)
	}

	matches := substitutionPattern.FindAllStringIndex(cmd, -1)
	if matches == nil {
		return false
	}

	// Any match outside the excluded ranges counts
	for _, match := range matches {
		matchStart := match[0]
		inExcludedRange := false
		for _, r := range excludeRanges {
			if matchStart >= r.start && matchStart < r.end {
				inExcludedRange = true
				break
			}
		}
		if !inExcludedRange {
			return true
		}
	}

	return false
}
