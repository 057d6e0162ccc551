package identity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wiggum/internal/constants"
	"wiggum/internal/hookio"
)

func TestName(t *testing.T) {
	tests := []struct {
		sessionID string
		want      string
	}{
		{"test-session", "phantom-moose"},
		{"sess-1", "ivory-condor"},
		{"sess-2", "cosmic-lemur"},
		{"abc123", "sonic-cobra"},
	}

	for _, tt := range tests {
		if got := Name(tt.sessionID); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.sessionID, got, tt.want)
		}
		// Same id, same name
		if again := Name(tt.sessionID); again != tt.want {
			t.Errorf("Name(%q) not stable: %q", tt.sessionID, again)
		}
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	wantPath := filepath.Join(dir, ".claude", "terminal-identity.local.json")
	if store.Path() != wantPath {
		t.Errorf("Path() = %q, want %q", store.Path(), wantPath)
	}

	id, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if id != nil {
		t.Fatalf("Load() on missing file = %+v, want nil", id)
	}

	saved := &Identity{SessionID: "sess-1", Name: "ivory-condor", CreatedAt: "2026-01-16T10:00:00.000000Z"}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil || *loaded != *saved {
		t.Errorf("Load() = %+v, want %+v", loaded, saved)
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(); err == nil {
		t.Error("Load() on corrupt file should error")
	}
}

func TestCurrentName(t *testing.T) {
	dir := t.TempDir()
	if name := CurrentName(dir); name != "" {
		t.Errorf("CurrentName() with no file = %q, want empty", name)
	}

	store := NewStore(dir)
	if err := store.Save(&Identity{SessionID: "s", Name: "cosmic-lemur"}); err != nil {
		t.Fatal(err)
	}
	if name := CurrentName(dir); name != "cosmic-lemur" {
		t.Errorf("CurrentName() = %q, want cosmic-lemur", name)
	}
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(constants.EnvProjectDir, dir)
	t.Setenv(constants.EnvSessionID, "")

	res := Process(readPayload(`{"session_id":"sess-1","hook_event_name":"UserPromptSubmit"}`))
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Output, "Terminal session name: ivory-condor") {
		t.Errorf("output = %q, want context with name", res.Output)
	}
	if !strings.Contains(res.Message, "Terminal: ivory-condor") {
		t.Errorf("message = %q, want banner", res.Message)
	}

	id, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if id == nil || id.Name != "ivory-condor" || id.SessionID != "sess-1" {
		t.Errorf("persisted identity = %+v", id)
	}

	// Second prompt in the same session is a no-op
	res = Process(readPayload(`{"session_id":"sess-1"}`))
	if res.Output != "" || res.Message != "" {
		t.Errorf("repeat prompt should be silent, got output %q message %q", res.Output, res.Message)
	}

	// A new session id gets a fresh name
	res = Process(readPayload(`{"session_id":"sess-2"}`))
	if !strings.Contains(res.Message, "Terminal: cosmic-lemur") {
		t.Errorf("message = %q, want new name", res.Message)
	}
}

func TestProcessNoSessionID(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(constants.EnvProjectDir, dir)
	t.Setenv(constants.EnvSessionID, "")

	res := Process(readPayload(`{}`))
	if res.Message == "" {
		t.Fatal("first prompt should assign a name even without a session id")
	}

	id, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if id == nil || id.SessionID == "" {
		t.Fatal("identity should persist a generated session key")
	}

	// Later prompts without a session id keep the assigned name
	res = Process(readPayload(`{}`))
	if res.Message != "" {
		t.Errorf("repeat prompt should be silent, got %q", res.Message)
	}
}

func readPayload(input string) hookio.Payload {
	return hookio.Read(strings.NewReader(input))
}
