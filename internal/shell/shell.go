// Package shell breaks Bash tool commands into the pieces the command guard
// inspects: chain segments, wrapper prefixes, and command substitutions.
package shell

import (
	"errors"
	"strings"

	mvdanshell "mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"

	"wiggum/internal/patterns"
)

// ErrUnparseable is returned when a command cannot be parsed.
var ErrUnparseable = errors.New("unparseable command")

// Fields splits a command line into argv words using shell quoting and
// expansion rules. Returns ErrUnparseable for malformed input.
func Fields(cmd string) ([]string, error) {
	words, err := mvdanshell.Fields(cmd, nil)
	if err != nil {
		return nil, ErrUnparseable
	}
	return words, nil
}

// SplitCommandChain splits command into segments on &&, ||, ;, |, & using a
// proper shell parser. This handles quoted strings, redirections, and other
// shell syntax correctly. Returns ErrUnparseable if the command cannot be
// parsed; callers that must stay fail-open treat the raw command as a single
// segment in that case.
func SplitCommandChain(cmd string) ([]string, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, nil
	}

	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		return nil, ErrUnparseable
	}

	var segments []string
	printer := syntax.NewPrinter()

	// Walk the AST to extract individual commands
	for _, stmt := range prog.Stmts {
		extractCommands(stmt.Cmd, printer, &segments)
	}

	return segments, nil
}

// extractCommands recursively extracts simple commands from a shell AST node.
func extractCommands(node syntax.Command, printer *syntax.Printer, segments *[]string) {
	if node == nil {
		return
	}

	switch cmd := node.(type) {
	case *syntax.CallExpr:
		appendPrinted(cmd, printer, segments)

	case *syntax.BinaryCmd:
		extractCommands(cmd.X.Cmd, printer, segments)
		extractCommands(cmd.Y.Cmd, printer, segments)

	case *syntax.Subshell:
		for _, stmt := range cmd.Stmts {
			extractCommands(stmt.Cmd, printer, segments)
		}

	case *syntax.Block:
		for _, stmt := range cmd.Stmts {
			extractCommands(stmt.Cmd, printer, segments)
		}

	case *syntax.IfClause:
		for clause := cmd; clause != nil; clause = clause.Else {
			for _, stmt := range clause.Cond {
				extractCommands(stmt.Cmd, printer, segments)
			}
			for _, stmt := range clause.Then {
				extractCommands(stmt.Cmd, printer, segments)
			}
		}

	case *syntax.WhileClause:
		for _, stmt := range cmd.Cond {
			extractCommands(stmt.Cmd, printer, segments)
		}
		for _, stmt := range cmd.Do {
			extractCommands(stmt.Cmd, printer, segments)
		}

	case *syntax.ForClause:
		for _, stmt := range cmd.Do {
			extractCommands(stmt.Cmd, printer, segments)
		}

	case *syntax.CaseClause:
		for _, item := range cmd.Items {
			for _, stmt := range item.Stmts {
				extractCommands(stmt.Cmd, printer, segments)
			}
		}

	case *syntax.TimeClause:
		if cmd.Stmt != nil {
			extractCommands(cmd.Stmt.Cmd, printer, segments)
		}

	case *syntax.CoprocClause:
		if cmd.Stmt != nil {
			extractCommands(cmd.Stmt.Cmd, printer, segments)
		}

	case *syntax.FuncDecl:
		if cmd.Body != nil {
			extractCommands(cmd.Body.Cmd, printer, segments)
		}

	default:
		// DeclClause, LetClause, ArithmCmd, TestClause and anything new:
		// print the node verbatim as one segment
		appendPrinted(cmd, printer, segments)
	}
}

func appendPrinted(node syntax.Command, printer *syntax.Printer, segments *[]string) {
	var buf strings.Builder
	printer.Print(&buf, node)
	if s := strings.TrimSpace(buf.String()); s != "" {
		*segments = append(*segments, s)
	}
}

// StripWrappers strips safe wrapper prefixes from a command.
// Returns (core_cmd, list_of_wrapper_names)
func StripWrappers(cmd string, wrapperPatterns []patterns.Pattern) (string, []string) {
	var wrappers []string
	changed := true
	for changed {
		changed = false
		for _, p := range wrapperPatterns {
			if n := p.Matcher.Prefix(cmd); n > 0 {
				wrappers = append(wrappers, p.Name)
				cmd = cmd[n:]
				changed = true
				break
			}
		}
	}
	return strings.TrimSpace(cmd), wrappers
}
