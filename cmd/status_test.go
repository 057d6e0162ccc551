package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wiggum/internal/constants"
	"wiggum/internal/ralph"
	"wiggum/internal/testutil"
)

func setupStatusTest(t *testing.T) string {
	t.Helper()
	resetGlobalState()

	projectDir := t.TempDir()
	t.Setenv(constants.EnvProjectDir, projectDir)
	t.Setenv(constants.EnvCheckpointInterval, "")

	cleanup := testutil.SetupTestConfig(t, "")
	t.Cleanup(cleanup)
	t.Cleanup(resetGlobalState)

	return projectDir
}

func TestRunStatusEmptyProject(t *testing.T) {
	projectDir := setupStatusTest(t)

	output, _ := captureOutput(t, func() {
		if err := runStatus(statusCmd, nil); err != nil {
			t.Errorf("runStatus() error = %v", err)
		}
	})

	if !strings.Contains(output, "wiggum — "+projectDir) {
		t.Errorf("expected project header, got: %s", output)
	}
	for _, want := range []string{
		"no name assigned yet",
		"no loop started",
		"round 0/10",
		"no persisted context",
		"no logs yet",
		"no usage recorded",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in status output, got: %s", want, output)
		}
	}
}

func TestRunStatusActiveLoop(t *testing.T) {
	projectDir := setupStatusTest(t)

	if err := ralph.NewStore(projectDir).Save(&ralph.State{
		Active:            true,
		Iteration:         2,
		MaxIterations:     15,
		CompletionPromise: "DONE",
		Body:              "Migrate the billing jobs\n\nDetails below.",
	}); err != nil {
		t.Fatal(err)
	}

	output, _ := captureOutput(t, func() {
		if err := runStatus(statusCmd, nil); err != nil {
			t.Errorf("runStatus() error = %v", err)
		}
	})

	if !strings.Contains(output, "active — iteration 2/15") {
		t.Errorf("expected active loop line, got: %s", output)
	}
	if !strings.Contains(output, "Migrate the billing jobs") {
		t.Errorf("expected task excerpt, got: %s", output)
	}
}

func TestRunStatusEndedLoop(t *testing.T) {
	projectDir := setupStatusTest(t)

	if err := ralph.NewStore(projectDir).Save(&ralph.State{
		Active:        false,
		Iteration:     15,
		MaxIterations: 15,
		EndReason:     ralph.EndMaxIterations,
		Body:          "done task",
	}); err != nil {
		t.Fatal(err)
	}

	output, _ := captureOutput(t, func() {
		runStatus(statusCmd, nil)
	})

	if !strings.Contains(output, "ended after iteration 15/15 (max_iterations)") {
		t.Errorf("expected ended loop line, got: %s", output)
	}
}

func TestRunStatusDailyCost(t *testing.T) {
	projectDir := setupStatusTest(t)

	day := time.Now().UTC().Format("2006-01-02")
	logDir := filepath.Join(projectDir, ".claude", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		t.Fatal(err)
	}
	lines := fmt.Sprintf(
		"[%sT09:00:00Z] session=abc in=100 out=50 cache=0 cost=$1.2300\n"+
			"[%sT10:00:00Z] session=abc in=200 out=80 cache=0 cost=$2.0000\n",
		day, day)
	if err := os.WriteFile(filepath.Join(logDir, "cost-tracker.log"), []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}

	output, _ := captureOutput(t, func() {
		runStatus(statusCmd, nil)
	})

	if !strings.Contains(output, "$3.23") {
		t.Errorf("expected summed daily cost, got: %s", output)
	}
	if !strings.Contains(output, "cost-tracker.log") {
		t.Errorf("expected the newest log named in the Logs line, got: %s", output)
	}
	if !strings.Contains(output, "out=80") {
		t.Errorf("expected the newest log's tail, got: %s", output)
	}
}
