package sessionlog

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"wiggum/internal/hookio"
)

func TestAppendCreatesDirAndFile(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "logs", "test.log")

	l := New(logPath)
	if err := l.AppendString("first line\n"); err != nil {
		t.Fatalf("AppendString() error = %v", err)
	}
	if err := l.AppendString("second line\n"); err != nil {
		t.Fatalf("AppendString() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "first line\nsecond line\n" {
		t.Errorf("log content = %q, want appended lines", string(data))
	}
}

func TestAppendJSON(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.jsonl")

	l := New(logPath)
	if err := l.AppendJSON(map[string]string{"key": "value"}); err != nil {
		t.Fatalf("AppendJSON() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	line := strings.TrimSpace(string(data))

	var record map[string]string
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if record["key"] != "value" {
		t.Errorf("record key = %q, want %q", record["key"], "value")
	}
}

func TestRotation(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	l := NewWithMaxSize(logPath, 10)
	if err := l.AppendString("0123456789ABCDEF\n"); err != nil {
		t.Fatalf("AppendString() error = %v", err)
	}
	// Above the threshold now, so the next write rotates first.
	if err := l.AppendString("fresh\n"); err != nil {
		t.Fatalf("AppendString() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "fresh\n" {
		t.Errorf("log content after rotation = %q, want %q", string(data), "fresh\n")
	}

	matches, err := filepath.Glob(logPath + ".*.gz")
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("rotated files = %d, want 1", len(matches))
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	rotated, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(rotated) != "0123456789ABCDEF\n" {
		t.Errorf("rotated content = %q, want original data", string(rotated))
	}
}

func TestRotationDisabled(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	l := NewWithMaxSize(logPath, 0)
	for i := 0; i < 10; i++ {
		if err := l.AppendString("0123456789\n"); err != nil {
			t.Fatalf("AppendString() error = %v", err)
		}
	}

	matches, _ := filepath.Glob(logPath + ".*.gz")
	if len(matches) != 0 {
		t.Errorf("rotated files = %d, want 0 with rotation disabled", len(matches))
	}
}

func TestPrompt(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CLAUDE_PROJECT_DIR", tmpDir)

	if err := Prompt("Fix the flaky test in storage"); err != nil {
		t.Fatalf("Prompt() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ".claude", "logs", "prompts.log"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Fix the flaky test in storage\n---\n") {
		t.Errorf("prompts.log = %q, missing prompt entry", content)
	}
}

func TestBash(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CLAUDE_PROJECT_DIR", tmpDir)

	if err := Bash("go test ./...", "Run all tests"); err != nil {
		t.Fatalf("Bash() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ".claude", "logs", "bash.log"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), " | go test ./... | Run all tests\n") {
		t.Errorf("bash.log = %q, missing command entry", string(data))
	}
}

func TestAssistant(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CLAUDE_PROJECT_DIR", tmpDir)

	if err := Assistant("sess-1234", "Stop", "Finished the refactor."); err != nil {
		t.Fatalf("Assistant() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ".claude", "logs", "assistant_output.log"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "session=sess-1234 | event=Stop\n") {
		t.Errorf("assistant log header missing: %q", content)
	}
	if !strings.Contains(content, "Finished the refactor.\n\n---\n\n") {
		t.Errorf("assistant log body missing: %q", content)
	}
}

func TestAssistantTruncates(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CLAUDE_PROJECT_DIR", tmpDir)

	long := strings.Repeat("x", maxAssistantChars+100)
	if err := Assistant("sess", "Stop", long); err != nil {
		t.Fatalf("Assistant() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ".claude", "logs", "assistant_output.log"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "...[truncated]...") {
		t.Error("expected truncation marker in assistant log")
	}
	if strings.Contains(content, strings.Repeat("x", maxAssistantChars+1)) {
		t.Error("assistant log kept more than the cap")
	}
}

func TestFailure(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CLAUDE_PROJECT_DIR", tmpDir)

	raw := []byte(`{"hook_event_name":"PostToolUseFailure","tool_name":"Bash","cwd":"/work"}`)
	p := hookio.Read(strings.NewReader(string(raw)))

	if err := Failure(p); err != nil {
		t.Fatalf("Failure() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ".claude", "logs", "tool_failures.jsonl"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var record struct {
		TS            string          `json:"ts"`
		HookEventName string          `json:"hook_event_name"`
		ToolName      string          `json:"tool_name"`
		Cwd           string          `json:"cwd"`
		Payload       json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &record); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if record.HookEventName != "PostToolUseFailure" {
		t.Errorf("hook_event_name = %q", record.HookEventName)
	}
	if record.ToolName != "Bash" {
		t.Errorf("tool_name = %q", record.ToolName)
	}
	if record.Cwd != "/work" {
		t.Errorf("cwd = %q", record.Cwd)
	}
	if string(record.Payload) != string(raw) {
		t.Errorf("payload = %s, want raw payload preserved", record.Payload)
	}
}

func TestFailureInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CLAUDE_PROJECT_DIR", tmpDir)

	p := hookio.Read(strings.NewReader("not json at all"))
	if err := Failure(p); err != nil {
		t.Fatalf("Failure() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ".claude", "logs", "tool_failures.log"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "invalid JSON") {
		t.Errorf("diagnostic log = %q, want invalid JSON note", string(data))
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".claude", "logs", "tool_failures.jsonl")); !os.IsNotExist(err) {
		t.Error("tool_failures.jsonl should not be written for invalid payloads")
	}
}
