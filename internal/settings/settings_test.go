package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("merged settings not valid JSON: %v\n%s", err, data)
	}
	return doc
}

func eventEntries(t *testing.T, doc map[string]any, event string) []any {
	t.Helper()
	hooks, ok := doc["hooks"].(map[string]any)
	if !ok {
		t.Fatalf("no hooks key in %v", doc)
	}
	entries, ok := hooks[event].([]any)
	if !ok {
		t.Fatalf("no %s entries in %v", event, hooks)
	}
	return entries
}

func commandsFor(t *testing.T, doc map[string]any, event string) []string {
	t.Helper()
	var commands []string
	for _, e := range eventEntries(t, doc, event) {
		entry := e.(map[string]any)
		for _, h := range entry["hooks"].([]any) {
			commands = append(commands, h.(map[string]any)["command"].(string))
		}
	}
	return commands
}

func TestMergeIntoEmpty(t *testing.T) {
	merged, err := Merge(nil, Registrations())
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	doc := decode(t, merged)

	pre := commandsFor(t, doc, "PreToolUse")
	if len(pre) != 2 {
		t.Fatalf("PreToolUse commands = %v, want guard and protect", pre)
	}
	for _, want := range []string{"wiggum guard", "wiggum protect"} {
		found := false
		for _, c := range pre {
			if c == want {
				found = true
			}
		}
		if !found {
			t.Errorf("PreToolUse missing %q: %v", want, pre)
		}
	}

	stop := commandsFor(t, doc, "Stop")
	if stop[0] != "wiggum loop" {
		t.Errorf("Stop commands = %v, want wiggum loop first", stop)
	}
}

func TestMergeIdempotent(t *testing.T) {
	first, err := Merge(nil, Registrations())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Merge(first, Registrations())
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("second merge changed the document:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestMergePreservesUnrelatedKeys(t *testing.T) {
	existing := `{
  "model": "opus",
  "permissions": {"allow": ["Bash(ls:*)"]},
  "hooks": {
    "PreToolUse": [
      {"matcher": "Bash", "hooks": [{"type": "command", "command": "other-tool check"}]}
    ],
    "SessionStart": [
      {"hooks": [{"type": "command", "command": "other-tool boot"}]}
    ]
  }
}`
	merged, err := Merge([]byte(existing), Registrations())
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	doc := decode(t, merged)

	if doc["model"] != "opus" {
		t.Errorf("model = %v, want opus", doc["model"])
	}
	if _, ok := doc["permissions"].(map[string]any); !ok {
		t.Error("permissions key lost")
	}

	pre := commandsFor(t, doc, "PreToolUse")
	wantPre := map[string]bool{"other-tool check": false, "wiggum guard": false, "wiggum protect": false}
	for _, c := range pre {
		if _, ok := wantPre[c]; ok {
			wantPre[c] = true
		}
	}
	for c, seen := range wantPre {
		if !seen {
			t.Errorf("PreToolUse missing %q: %v", c, pre)
		}
	}

	// The Bash matcher entry was unioned, not duplicated.
	bashEntries := 0
	for _, e := range eventEntries(t, doc, "PreToolUse") {
		if m, _ := e.(map[string]any)["matcher"].(string); m == "Bash" {
			bashEntries++
		}
	}
	if bashEntries != 1 {
		t.Errorf("Bash matcher entries = %d, want 1", bashEntries)
	}

	session := commandsFor(t, doc, "SessionStart")
	if len(session) != 1 || session[0] != "other-tool boot" {
		t.Errorf("SessionStart commands = %v, want untouched", session)
	}
}

func TestMergeRejectsInvalidJSON(t *testing.T) {
	if _, err := Merge([]byte("{broken"), Registrations()); err == nil {
		t.Error("Merge() on invalid JSON, want error")
	}
}

func TestApply(t *testing.T) {
	proj := t.TempDir()
	if err := Apply(proj); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	path := filepath.Join(proj, ".claude", "settings.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("settings not written: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("settings file not newline-terminated")
	}
	doc := decode(t, data)
	if got := commandsFor(t, doc, "Notification"); len(got) != 1 || got[0] != "wiggum notify" {
		t.Errorf("Notification commands = %v", got)
	}

	// Second apply leaves the file stable.
	if err := Apply(proj); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	again, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(data) {
		t.Error("second Apply() changed the file")
	}
}
