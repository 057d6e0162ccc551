// Package identity names terminal sessions. Each session gets a memorable
// adjective-animal name derived from its session id, persisted under
// .claude/ so other hooks (notifications, status) can label output from
// this terminal when several run side by side.
package identity

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"wiggum/internal/constants"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
	"wiggum/internal/project"
)

// Identity is the persisted record for one terminal session.
type Identity struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Name derives the session name from the session id. The same id always
// maps to the same name, so a lost state file does not rename a terminal.
func Name(sessionID string) string {
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	sum := h.Sum64()
	adj := adjectives[sum%uint64(len(adjectives))]
	animal := animals[(sum/uint64(len(adjectives)))%uint64(len(animals))]
	return adj + "-" + animal
}

// Store reads and writes the identity file for one project directory.
type Store struct {
	path string
}

// NewStore returns a store for the given project directory.
func NewStore(projectDir string) *Store {
	return &Store{
		path: filepath.Join(projectDir, constants.ClaudeConfigDir, constants.IdentityStateFile),
	}
}

// Path returns the identity file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the identity file. A missing file returns (nil, nil).
func (s *Store) Load() (*Identity, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("failed to parse identity: %w", err)
	}
	return &id, nil
}

// Save writes the identity file, creating the .claude directory if needed.
func (s *Store) Save(id *Identity) error {
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(s.path), constants.DirMode); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, constants.FileMode); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	return nil
}

// CurrentName returns the persisted terminal name for projectDir, or ""
// when no identity has been assigned. Corrupt files read as absent.
func CurrentName(projectDir string) string {
	id, err := NewStore(projectDir).Load()
	if err != nil || id == nil {
		return ""
	}
	return id.Name
}

// Process answers a UserPromptSubmit event. The first prompt of a session
// assigns and persists the name, sets the terminal title when stderr is a
// terminal, and surfaces the name as additional context; later prompts in
// the same session are no-ops.
func Process(p hookio.Payload) hookio.Result {
	store := NewStore(project.Dir())
	sid := p.Session()

	existing, err := store.Load()
	if err != nil {
		logger.Debug("unreadable identity file, reassigning", "error", err)
	}
	if existing != nil {
		if existing.SessionID == sid {
			return hookio.Result{}
		}
		// Without a session id we cannot tell terminals apart; keep the
		// name already assigned rather than churn on every prompt.
		if sid == "" {
			return hookio.Result{}
		}
	}

	key := sid
	if key == "" {
		key = uuid.New().String()
	}
	name := Name(key)

	id := &Identity{
		SessionID: key,
		Name:      name,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z",
	}
	if err := store.Save(id); err != nil {
		logger.Debug("failed to save identity", "error", err)
		return hookio.Result{}
	}

	message := "\U0001F916 Terminal: " + name
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		// OSC 0 sets the terminal title
		message = "\x1b]0;Claude: " + name + "\a" + message
	}

	return hookio.Result{
		Output:  hookio.FormatContext(hookio.EventUserPromptSubmit, "Terminal session name: "+name),
		Message: message,
	}
}
