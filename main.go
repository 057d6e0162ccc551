// wiggum - Claude Code lifecycle hooks: command guard, Ralph loop, session tooling
//
// Each subcommand is a short-lived hook process: it reads the event payload
// as JSON on stdin and answers through its exit code (0 allows, 2 blocks)
// and optional JSON on stdout. The Stop hook drives the Ralph iteration
// loop; the rest guard commands and file edits, inject prompt context, and
// keep per-project session logs.
//
// Register the hooks in .claude/settings.json:
//
//	wiggum init --claude
//
// Test a hook by piping an event at it:
//
//	echo '{"tool_name": "Bash", "tool_input": {"command": "rm -rf /"}}' | wiggum guard
package main

import (
	"os"

	"wiggum/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
