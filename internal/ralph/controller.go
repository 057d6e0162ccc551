package ralph

import (
	"fmt"
	"strings"
	"time"

	"wiggum/internal/transcript"
)

// Decision is the verdict the Stop hook acts on.
type Decision int

const (
	// Allow lets the session stop.
	Allow Decision = iota
	// Continue blocks the stop and resubmits the task prompt.
	Continue
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Continue:
		return "continue"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Result is the outcome of one loop evaluation.
type Result struct {
	Decision      Decision
	Iteration     int
	MaxIterations int
	// EndReason is set when this evaluation deactivated the loop
	EndReason string
	// Prompt is the task body to resubmit when continuing
	Prompt string
	// Status is a diagnostic line for stderr; empty when silently allowing
	Status string
	// Reason and OutputToUser fill the Stop JSON when continuing
	Reason       string
	OutputToUser string
}

// Controller drives loop evaluation for the Stop hook and manages the loop
// lifecycle for the CLI.
type Controller struct {
	store         *Store
	idleThreshold int
	now           func() time.Time
}

// NewController returns a controller over the given store. idleThreshold is
// the number of consecutive idle responses that ends the loop; values under
// one fall back to three.
func NewController(store *Store, idleThreshold int) *Controller {
	if idleThreshold <= 0 {
		idleThreshold = 3
	}
	return &Controller{store: store, idleThreshold: idleThreshold, now: time.Now}
}

func (c *Controller) timestamp() string {
	return c.now().UTC().Format(time.RFC3339)
}

// Start activates a new loop with the given task prompt. An already active
// loop is refused unless force is set.
func (c *Controller) Start(body string, maxIterations int, promise string, force bool) (*State, error) {
	existing, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Active && !force {
		return nil, fmt.Errorf("a loop is already active (iteration %d/%d)",
			existing.Iteration, existing.MaxIterations)
	}

	state := &State{
		Active:            true,
		Iteration:         1,
		MaxIterations:     maxIterations,
		CompletionPromise: promise,
		StartedAt:         c.timestamp(),
		Body:              strings.TrimSpace(body),
	}
	state.applyDefaults()
	if err := c.store.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Stop deactivates the current loop and records why. Returns the final
// state, or nil when no state file exists.
func (c *Controller) Stop() (*State, error) {
	state, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	if state.Active {
		if err := c.deactivate(state, EndStopped); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// Evaluate runs one Stop-hook pass: check the termination conditions in
// order and either deactivate the loop or advance it one iteration.
//
// A missing state file, an inactive loop, or any internal error all allow
// the stop; the loop never turns an error into a blocked exit.
func (c *Controller) Evaluate(transcriptPath string) (Result, error) {
	state, err := c.store.Load()
	if err != nil {
		return Result{}, err
	}
	if state == nil || !state.Active {
		return Result{}, nil
	}

	res := Result{
		Iteration:     state.Iteration,
		MaxIterations: state.MaxIterations,
	}

	// The budget check comes before the transcript: a loop at its cap ends
	// even when the transcript is unavailable.
	if state.Iteration >= state.MaxIterations {
		res.EndReason = EndMaxIterations
		res.Status = fmt.Sprintf("Ralph loop reached max iterations (%d). Deactivating.", state.MaxIterations)
		return res, c.deactivate(state, EndMaxIterations)
	}

	if transcriptPath != "" {
		lastOutput := transcript.LastAssistantText(transcriptPath)

		if PromiseFulfilled(lastOutput, state.CompletionPromise) {
			res.EndReason = EndPromiseFulfilled
			res.Status = fmt.Sprintf("Ralph loop completed: Promise '%s' fulfilled.", state.CompletionPromise)
			return res, c.deactivate(state, EndPromiseFulfilled)
		}

		// An unreadable transcript reads as an empty response, which
		// counts as idle.
		if IsIdle(lastOutput) {
			state.ConsecutiveIdle++
			if state.ConsecutiveIdle >= c.idleThreshold {
				res.EndReason = EndIdleDetected
				res.Status = fmt.Sprintf("Ralph loop detected idle agent (%d consecutive). Auto-exiting.", state.ConsecutiveIdle)
				return res, c.deactivate(state, EndIdleDetected)
			}
		} else {
			state.ConsecutiveIdle = 0
		}
	}

	state.Iteration++
	state.LastRunAt = c.timestamp()
	if err := c.store.Save(state); err != nil {
		return Result{}, err
	}

	res.Decision = Continue
	res.Iteration = state.Iteration
	res.Prompt = state.Body
	res.Reason = fmt.Sprintf("Ralph loop continuing (%d/%d)", state.Iteration, state.MaxIterations)
	res.OutputToUser = fmt.Sprintf("🔄 Ralph Loop: Iteration %d/%d", state.Iteration, state.MaxIterations)
	return res, nil
}

func (c *Controller) deactivate(state *State, reason string) error {
	state.Active = false
	state.EndedAt = c.timestamp()
	state.EndReason = reason
	return c.store.Save(state)
}
