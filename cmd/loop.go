package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wiggum/internal/config"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
	"wiggum/internal/project"
	"wiggum/internal/ralph"
)

var (
	loopMaxIterations int
	loopPromise       string
	loopForce         bool
)

var loopCmd = &cobra.Command{
	Use:   "loop",
	Short: "Ralph loop: keep resubmitting a task until it completes",
	Long: `Without a subcommand, loop runs as the Stop hook: it reads the Stop event
from stdin, evaluates the active loop, and either lets the session stop
(exit 0) or blocks the stop and feeds the task prompt back in (exit 2).

The subcommands manage the loop state file (.claude/ralph-loop.local.md):
start activates a loop, stop deactivates it, status shows where it stands.`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	Run:           runLoopHook,
}

var loopStartCmd = &cobra.Command{
	Use:   "start <task>...",
	Short: "Activate a loop with the given task prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLoopStart,
}

var loopStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Deactivate the current loop",
	Args:  cobra.NoArgs,
	RunE:  runLoopStop,
}

var loopStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current loop state",
	Args:  cobra.NoArgs,
	RunE:  runLoopStatus,
}

func init() {
	loopStartCmd.Flags().IntVar(&loopMaxIterations, "max-iterations", 0, "Iteration budget (default from config)")
	loopStartCmd.Flags().StringVar(&loopPromise, "promise", "", "Completion promise text (default from config)")
	loopStartCmd.Flags().BoolVarP(&loopForce, "force", "f", false, "Replace an already active loop")

	loopCmd.AddCommand(loopStartCmd, loopStopCmd, loopStatusCmd)
	rootCmd.AddCommand(loopCmd)
}

func newLoopController() *ralph.Controller {
	return ralph.NewController(ralph.NewStore(project.Dir()), config.Get().Loop.IdleThreshold)
}

// runLoopHook is the Stop-hook path. Internal errors never block the stop.
func runLoopHook(cmd *cobra.Command, args []string) {
	p := hookio.ReadStdin()

	res, err := newLoopController().Evaluate(project.ExpandHome(p.TranscriptPath))
	if err != nil {
		logger.Error("loop evaluation failed", "error", err)
		fmt.Fprintf(os.Stderr, "Ralph loop error: %v\n", err)
		return
	}

	var result hookio.Result
	switch {
	case res.Decision == ralph.Continue:
		result.ExitCode = hookio.ExitBlock
		result.Output = hookio.FormatStopBlock(res.Reason, res.OutputToUser, res.Prompt)
		result.Message = res.OutputToUser
	case res.Status != "":
		result.Message = res.Status
	}
	emit(result)
}

func runLoopStart(cmd *cobra.Command, args []string) error {
	body := strings.TrimSpace(strings.Join(args, " "))
	if body == "" {
		return fmt.Errorf("a task prompt is required")
	}

	cfg := config.Get().Loop
	maxIterations := loopMaxIterations
	if maxIterations <= 0 {
		maxIterations = cfg.MaxIterations
	}
	promise := loopPromise
	if promise == "" {
		promise = cfg.CompletionPromise
	}

	state, err := newLoopController().Start(body, maxIterations, promise, loopForce)
	if err != nil {
		return err
	}

	fmt.Printf("Ralph loop started: iteration %d/%d, promise %q\n",
		state.Iteration, state.MaxIterations, state.CompletionPromise)
	fmt.Printf("State file: %s\n", ralph.NewStore(project.Dir()).Path())
	return nil
}

func runLoopStop(cmd *cobra.Command, args []string) error {
	state, err := newLoopController().Stop()
	if err != nil {
		return err
	}
	if state == nil {
		fmt.Println("No loop state found.")
		return nil
	}
	fmt.Printf("Loop deactivated after iteration %d/%d (end reason: %s).\n",
		state.Iteration, state.MaxIterations, state.EndReason)
	return nil
}

func runLoopStatus(cmd *cobra.Command, args []string) error {
	state, err := ralph.NewStore(project.Dir()).Load()
	if err != nil {
		return err
	}
	if state == nil {
		fmt.Println("No loop state. Start one with 'wiggum loop start <task>'.")
		return nil
	}

	fmt.Printf("Active:     %v\n", state.Active)
	fmt.Printf("Iteration:  %d/%d\n", state.Iteration, state.MaxIterations)
	fmt.Printf("Promise:    %s\n", state.CompletionPromise)
	if state.StartedAt != "" {
		fmt.Printf("Started:    %s\n", state.StartedAt)
	}
	if state.LastRunAt != "" {
		fmt.Printf("Last run:   %s\n", state.LastRunAt)
	}
	if state.EndReason != "" {
		fmt.Printf("End reason: %s (%s)\n", state.EndReason, state.EndedAt)
	}
	if state.ConsecutiveIdle > 0 {
		fmt.Printf("Idle runs:  %d\n", state.ConsecutiveIdle)
	}
	if first := firstLine(state.Body); first != "" {
		fmt.Printf("Task:       %s\n", first)
	}
	return nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
