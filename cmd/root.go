// Package cmd implements the CLI commands for wiggum.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wiggum/internal/audit"
	"wiggum/internal/config"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
)

var (
	// Global flags
	verbose    bool
	dryRun     bool
	noAuditLog bool
)

// exitCode is the code Execute returns after a successful command run.
// Hook commands set it to 2 to block a tool call or a stop.
var exitCode int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wiggum",
	Short: "Claude Code lifecycle hooks: command guard, Ralph loop, session tooling",
	Long: `Wiggum is a set of Claude Code event hooks behind one binary. Each hook
reads the event JSON from stdin and answers through its exit code (0 allow,
2 block) and optional JSON on stdout.

The core is the Ralph loop: a Stop hook that keeps resubmitting a task
prompt until its completion promise appears, the iteration budget runs out,
or the agent goes idle. Around it sit a Bash command guard, file
protection, session logs, notifications, terminal identity, context
injection and checkpointing, cost tracking, and auto-formatting.

Run 'wiggum init --claude' to register every hook in .claude/settings.json:

  "hooks": {
    "PreToolUse": [{
      "matcher": "Bash",
      "hooks": [{"type": "command", "command": "wiggum guard"}]
    }]
  }`,
	SilenceUsage: true,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	audit.Close()
	if err != nil {
		return 1
	}
	return exitCode
}

func init() {
	// Initialize before running any command
	cobra.OnInitialize(initApp)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Report hook verdicts on stderr without JSON output or blocking")
	rootCmd.PersistentFlags().BoolVar(&noAuditLog, "no-audit-log", false, "Disable audit logging")
}

// initApp initializes the application (logger, config, audit)
func initApp() {
	logger.Init(logger.Options{Verbose: verbose})
	config.Init()
	audit.Init("", noAuditLog)
}

// emit writes a hook result to the process streams and records its exit
// code. In dry-run mode the verdict is reported but nothing blocks.
func emit(res hookio.Result) {
	if dryRun {
		if res.ExitCode == hookio.ExitBlock {
			detail := res.Message
			if detail == "" {
				detail = res.Output
			}
			fmt.Fprintf(os.Stderr, "WOULD BLOCK:\n%s\n", detail)
		} else {
			fmt.Fprintln(os.Stderr, "WOULD ALLOW")
		}
		return
	}
	if res.Output != "" {
		fmt.Println(res.Output)
	}
	if res.Message != "" {
		fmt.Fprintln(os.Stderr, res.Message)
	}
	exitCode = res.ExitCode
}

// hookCommand builds the cobra command for one stdin-driven hook. Hook
// commands are hidden: they exist for .claude/settings.json, not people.
func hookCommand(use, short string, process func(hookio.Payload) hookio.Result) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Hidden:        true,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			emit(process(hookio.ReadStdin()))
		},
	}
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// IsDryRun returns whether dry-run mode is enabled
func IsDryRun() bool {
	return dryRun
}
