package main

import (
	"strings"
	"testing"

	"wiggum/internal/config"
	"wiggum/internal/constants"
	"wiggum/internal/guard"
	"wiggum/internal/hookio"
	"wiggum/internal/ralph"
	"wiggum/internal/shell"
)

// benchConfig compiles the embedded defaults in memory, without touching
// the host config directory.
func benchConfig(b *testing.B) *config.Config {
	b.Helper()
	cfg, err := config.LoadConfig(config.GetDefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	return cfg
}

// setupGlobalConfig points the global config at a temp dir for benchmarks
// that go through config.Get.
func setupGlobalConfig(b *testing.B) {
	b.Helper()
	b.Setenv(constants.EnvConfigDir, b.TempDir())
	config.Reset()
	config.Init()
	b.Cleanup(config.Reset)
}

// BenchmarkSplitCommandChain benchmarks command chain splitting
func BenchmarkSplitCommandChain(b *testing.B) {
	benchmarks := []struct {
		name string
		cmd  string
	}{
		{"simple", "git status"},
		{"chained", "git add . && git commit -m 'test' && git push"},
		{"piped", "cat file.txt | grep foo | wc -l"},
		{"complex", "VAR=value timeout 30 pytest -v tests/ && echo done"},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _ = shell.SplitCommandChain(bm.cmd)
			}
		})
	}
}

// BenchmarkStripWrappers benchmarks wrapper stripping
func BenchmarkStripWrappers(b *testing.B) {
	cfg := benchConfig(b)

	benchmarks := []struct {
		name string
		cmd  string
	}{
		{"no_wrapper", "pytest -v"},
		{"single_wrapper", "timeout 30 pytest -v"},
		{"double_wrapper", "env timeout 30 pytest -v"},
		{"nice_with_flag", "nice -n 10 make build"},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _ = shell.StripWrappers(bm.cmd, cfg.WrapperPatterns)
			}
		})
	}
}

// BenchmarkCheckDeny benchmarks deny rule matching, including the
// backtracking supply-chain rules
func BenchmarkCheckDeny(b *testing.B) {
	cfg := benchConfig(b)

	benchmarks := []struct {
		name string
		cmd  string
	}{
		{"denied_simple", "rm -rf /tmp/build"},
		{"denied_anchored", "sudo systemctl restart nginx"},
		{"denied_supply_chain", "npx create-react-app demo"},
		{"allowed", "git status"},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = guard.CheckDeny(bm.cmd, cfg.DenyRules)
			}
		})
	}
}

// BenchmarkGuardProcess benchmarks the full PreToolUse pass, payload parse
// included
func BenchmarkGuardProcess(b *testing.B) {
	setupGlobalConfig(b)

	benchmarks := []struct {
		name  string
		input string
	}{
		{"allowed", `{"tool_name":"Bash","tool_input":{"command":"git status"}}`},
		{"denied", `{"tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`},
		{"chained", `{"tool_name":"Bash","tool_input":{"command":"git status && git log --oneline"}}`},
		{"non_bash", `{"tool_name":"Read","tool_input":{"file_path":"/tmp/test"}}`},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = guard.Process(hookio.Read(strings.NewReader(bm.input)))
			}
		})
	}
}

// BenchmarkLoopStateParse benchmarks the loop state frontmatter parser
func BenchmarkLoopStateParse(b *testing.B) {
	data := []byte(`---
active: true
iteration: 7
max_iterations: 20
completion_promise: DONE
consecutive_idle: 1
started_at: "2026-08-20T11:04:05Z"
last_run_at: "2026-08-20T11:32:11Z"
---

Migrate the billing jobs to the new queue and keep the tests green.
`)

	for i := 0; i < b.N; i++ {
		if _, err := ralph.Parse(data); err != nil {
			b.Fatal(err)
		}
	}
}
