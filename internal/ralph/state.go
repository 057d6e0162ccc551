// Package ralph implements the Ralph Wiggum iteration loop: a Stop hook
// that blocks session exit and resubmits a stored task prompt until the
// agent declares completion, goes idle, or runs out of iterations.
//
// Loop state lives in .claude/ralph-loop.local.md as YAML frontmatter over
// a free-text body. The body is the task prompt resubmitted each iteration.
package ralph

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"wiggum/internal/constants"
)

// End reasons persisted in the end_reason frontmatter key.
const (
	EndMaxIterations    = "max_iterations"
	EndPromiseFulfilled = "promise_fulfilled"
	EndIdleDetected     = "idle_detected"
	EndStopped          = "stopped"
)

// State is the loop state persisted in the state file frontmatter. Extra
// preserves frontmatter keys this version does not know about, so older
// and newer writers can share the file.
type State struct {
	Active            bool   `yaml:"active"`
	Iteration         int    `yaml:"iteration"`
	MaxIterations     int    `yaml:"max_iterations"`
	CompletionPromise string `yaml:"completion_promise"`
	ConsecutiveIdle   int    `yaml:"consecutive_idle"`
	StartedAt         string `yaml:"started_at,omitempty"`
	LastRunAt         string `yaml:"last_run_at,omitempty"`
	EndedAt           string `yaml:"ended_at,omitempty"`
	EndReason         string `yaml:"end_reason,omitempty"`

	Extra map[string]any `yaml:",inline"`

	// Body is the task prompt below the frontmatter.
	Body string `yaml:"-"`
}

// applyDefaults fills unset numeric and promise fields the way every state
// reader expects them.
func (s *State) applyDefaults() {
	if s.Iteration == 0 {
		s.Iteration = 1
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 20
	}
	if s.CompletionPromise == "" {
		s.CompletionPromise = "DONE"
	}
}

// Parse decodes a state file into frontmatter and body. Content without a
// frontmatter block parses as an inactive state whose body is the whole
// file.
func Parse(data []byte) (*State, error) {
	state := &State{}
	content := string(data)

	if strings.HasPrefix(content, "---") {
		parts := strings.SplitN(content, "---", 3)
		if len(parts) >= 3 {
			if err := yaml.Unmarshal([]byte(parts[1]), state); err != nil {
				return nil, fmt.Errorf("failed to parse loop state frontmatter: %w", err)
			}
			state.Body = strings.TrimSpace(parts[2])
			state.applyDefaults()
			return state, nil
		}
	}

	state.Body = strings.TrimSpace(content)
	state.applyDefaults()
	return state, nil
}

// Encode renders the state back to frontmatter + body form.
func (s *State) Encode() ([]byte, error) {
	fm, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode loop state: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(s.Body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Store reads and writes the loop state file for one project.
type Store struct {
	path string
}

// NewStore returns a store for the given project directory.
func NewStore(projectDir string) *Store {
	return &Store{
		path: filepath.Join(projectDir, constants.ClaudeConfigDir, constants.LoopStateFile),
	}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing file returns (nil, nil): no loop has
// been started and none should be created.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read loop state: %w", err)
	}
	return Parse(data)
}

// Save writes the state file, creating the .claude directory if needed.
func (s *Store) Save(state *State) error {
	data, err := state.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), constants.DirMode); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, constants.FileMode); err != nil {
		return fmt.Errorf("failed to write loop state: %w", err)
	}
	return nil
}

// Remove deletes the state file. Missing files are not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove loop state: %w", err)
	}
	return nil
}
