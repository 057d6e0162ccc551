package turnaudit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wiggum/internal/constants"
	"wiggum/internal/hookio"
	"wiggum/internal/transcript"
)

func TestBuild(t *testing.T) {
	blocks := []transcript.Block{
		{Type: "tool_use", Name: "Bash", ID: "b1", Input: json.RawMessage(`{"command":"go vet ./..."}`)},
		{Type: "tool_use", Name: "Read", ID: "r1", Input: json.RawMessage(`{"file_path":"/proj/internal/app/main.go"}`)},
		{Type: "tool_use", Name: "Bash", ID: "b2", Input: json.RawMessage(`{"command":"ls"}`)},
		{Type: "tool_use", Name: "Edit", ID: "e1", Input: json.RawMessage(`{"file_path":"/proj/internal/app/loader.go"}`)},
		{Type: "tool_use", Name: "Task", ID: "t1", Input: json.RawMessage(`{"subagent_type":"reviewer","description":"check the diff"}`)},
		{Type: "tool_result", ToolUseID: "b2", IsError: true, Content: json.RawMessage(`"command not found: frobnicate"`)},
		{Type: "tool_result", ToolUseID: "r1", Content: json.RawMessage(`"package app"`)},
	}

	s := Build(blocks)

	wantCounts := []ToolCount{
		{Name: "Bash", Count: 2},
		{Name: "Read", Count: 1},
		{Name: "Edit", Count: 1},
		{Name: "Task", Count: 1},
	}
	if len(s.ToolCounts) != len(wantCounts) {
		t.Fatalf("ToolCounts = %v, want %v", s.ToolCounts, wantCounts)
	}
	for i, want := range wantCounts {
		if s.ToolCounts[i] != want {
			t.Errorf("ToolCounts[%d] = %v, want %v", i, s.ToolCounts[i], want)
		}
	}

	if len(s.FilesRead) != 1 || s.FilesRead[0] != "/proj/internal/app/main.go" {
		t.Errorf("FilesRead = %v", s.FilesRead)
	}
	if len(s.FilesModified) != 1 || s.FilesModified[0] != (FileChange{Path: "/proj/internal/app/loader.go", Tool: "Edit"}) {
		t.Errorf("FilesModified = %v", s.FilesModified)
	}
	if len(s.AgentsSpawned) != 1 || s.AgentsSpawned[0] != (Agent{Type: "reviewer", Description: "check the diff"}) {
		t.Errorf("AgentsSpawned = %v", s.AgentsSpawned)
	}
	if len(s.Errors) != 1 || s.Errors[0] != "command not found: frobnicate" {
		t.Errorf("Errors = %v", s.Errors)
	}
}

func TestBuildTruncates(t *testing.T) {
	longDesc := strings.Repeat("d", 70)
	longErr := strings.Repeat("e", 100)
	blocks := []transcript.Block{
		{Type: "tool_use", Name: "Task", Input: json.RawMessage(`{"subagent_type":"worker","prompt":"` + longDesc + `"}`)},
		{Type: "tool_result", IsError: true, Content: json.RawMessage(`"` + longErr + `"`)},
	}

	s := Build(blocks)
	if got := s.AgentsSpawned[0].Description; got != strings.Repeat("d", 57)+"..." {
		t.Errorf("description = %q (len %d), want 57 chars + ellipsis", got, len(got))
	}
	if got := s.Errors[0]; got != strings.Repeat("e", 77)+"..." {
		t.Errorf("error = %q (len %d), want 77 chars + ellipsis", got, len(got))
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2026, 8, 25, 14, 3, 5, 0, time.UTC)
	s := Summary{
		ToolCounts:    []ToolCount{{Name: "Bash", Count: 2}, {Name: "Read", Count: 1}},
		FilesRead:     []string{"/proj/internal/app/main.go"},
		FilesModified: []FileChange{{Path: "/proj/internal/app/loader.go", Tool: "Edit"}},
		AgentsSpawned: []Agent{{Type: "reviewer", Description: "check the diff"}},
		Errors:        []string{"exit status 1"},
	}

	got := Format(ts, s, "session=s1 in=10 out=5 cache=0 cost=$0.0100")
	want := strings.Join([]string{
		"═══ TURN [2026-08-25T14:03:05Z] ═══",
		"Tools used: Bash(2), Read(1)",
		"Files read: internal/app/main.go",
		"Files modified: internal/app/loader.go (Edit)",
		`Agents spawned: reviewer("check the diff")`,
		"Errors: exit status 1",
		"Cost: session=s1 in=10 out=5 cache=0 cost=$0.0100",
	}, "\n")
	if got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatSparse(t *testing.T) {
	ts := time.Date(2026, 8, 25, 14, 3, 5, 0, time.UTC)
	got := Format(ts, Summary{ToolCounts: []ToolCount{{Name: "Bash", Count: 1}}}, "")
	want := "═══ TURN [2026-08-25T14:03:05Z] ═══\nTools used: Bash(1)"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestShortPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/proj/internal/guard/guard.go", "internal/guard/guard.go"},
		{"/a/b/c.go", "a/b/c.go"},
		{"a/b/c.go", "a/b/c.go"},
		{"main.go", "main.go"},
		{"/etc/hosts", "/etc/hosts"},
	}
	for _, tt := range tests {
		if got := shortPath(tt.path); got != tt.want {
			t.Errorf("shortPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRecentCostEntry(t *testing.T) {
	proj := t.TempDir()
	if got := RecentCostEntry(proj); got != "" {
		t.Errorf("RecentCostEntry() = %q with no log, want empty", got)
	}

	logDir := filepath.Join(proj, ".claude", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "[2026-08-25T09:00:00Z] session=a in=1 out=1 cache=0 cost=$0.2500\n" +
		"[2026-08-25T11:00:00Z] session=b in=2 out=2 cache=0 cost=$0.7500\n"
	if err := os.WriteFile(filepath.Join(logDir, constants.LogCostTracker), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	want := "session=b in=2 out=2 cache=0 cost=$0.7500"
	if got := RecentCostEntry(proj); got != want {
		t.Errorf("RecentCostEntry() = %q, want %q", got, want)
	}
}

func TestProcess(t *testing.T) {
	proj := t.TempDir()
	t.Setenv(constants.EnvProjectDir, proj)
	t.Setenv(constants.EnvTranscript, "")

	transcriptPath := filepath.Join(t.TempDir(), "transcript.jsonl")
	lines := strings.Join([]string{
		`{"role":"user","content":"tidy the loader"}`,
		`{"role":"assistant","content":[{"type":"tool_use","name":"Read","id":"r1","input":{"file_path":"/proj/internal/app/loader.go"}}]}`,
		`{"role":"assistant","content":[{"type":"tool_use","name":"Edit","id":"e1","input":{"file_path":"/proj/internal/app/loader.go"}}]}`,
		`{"role":"assistant","content":[{"type":"text","text":"done"}]}`,
	}, "\n") + "\n"
	if err := os.WriteFile(transcriptPath, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}

	result := Process(readPayload(`{"session_id":"s1","hook_event_name":"Stop","transcript_path":"` + transcriptPath + `"}`))
	if result.ExitCode != 0 || result.Message != "" {
		t.Fatalf("Process() = %+v, want silent allow", result)
	}

	data, err := os.ReadFile(filepath.Join(proj, ".claude", "logs", constants.LogToolAudit))
	if err != nil {
		t.Fatalf("audit log not written: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"═══ TURN [",
		"Tools used: Read(1), Edit(1)",
		"Files read: internal/app/loader.go",
		"Files modified: internal/app/loader.go (Edit)",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("audit log missing %q:\n%s", want, content)
		}
	}
	if !strings.HasSuffix(content, "\n\n") {
		t.Errorf("audit log not blank-line terminated: %q", content)
	}
}

func TestProcessNoToolCalls(t *testing.T) {
	proj := t.TempDir()
	t.Setenv(constants.EnvProjectDir, proj)
	t.Setenv(constants.EnvTranscript, "")

	transcriptPath := filepath.Join(t.TempDir(), "transcript.jsonl")
	if err := os.WriteFile(transcriptPath, []byte(`{"role":"assistant","content":"all done"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	Process(readPayload(`{"session_id":"s1","hook_event_name":"Stop","transcript_path":"` + transcriptPath + `"}`))
	if _, err := os.Stat(filepath.Join(proj, ".claude", "logs", constants.LogToolAudit)); !os.IsNotExist(err) {
		t.Error("audit log written for a turn without tool calls")
	}
}

func TestProcessMissingTranscript(t *testing.T) {
	proj := t.TempDir()
	t.Setenv(constants.EnvProjectDir, proj)
	t.Setenv(constants.EnvTranscript, "")

	Process(readPayload(`{"session_id":"s1","hook_event_name":"Stop","transcript_path":"/nope/missing.jsonl"}`))

	data, err := os.ReadFile(filepath.Join(proj, ".claude", "logs", constants.LogToolAudit))
	if err != nil {
		t.Fatalf("error line not written: %v", err)
	}
	if !strings.Contains(string(data), "ERROR: Transcript not found: /nope/missing.jsonl") {
		t.Errorf("audit log = %q", string(data))
	}
}

func readPayload(input string) hookio.Payload {
	return hookio.Read(strings.NewReader(input))
}
