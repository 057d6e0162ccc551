// Package testutil provides shared test utilities for wiggum tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"wiggum/internal/config"
	"wiggum/internal/constants"
)

// SetupTestConfig creates a temporary config directory with test
// configuration and initializes the config package from it. Returns a
// cleanup function that should be deferred.
func SetupTestConfig(t *testing.T, configContent string) func() {
	t.Helper()

	tmpDir := t.TempDir()
	os.Setenv(constants.EnvConfigDir, tmpDir)

	if configContent != "" {
		configPath := filepath.Join(tmpDir, constants.ConfigFileName)
		if err := os.WriteFile(configPath, []byte(configContent), constants.FileMode); err != nil {
			t.Fatal(err)
		}
	}

	config.Reset()
	config.Init()

	return func() {
		os.Unsetenv(constants.EnvConfigDir)
		config.Reset()
	}
}

// MinimalTestConfig is a small rule set for guard tests.
const MinimalTestConfig = `
[[wrappers.simple]]
name = "wrapper"
commands = ["time", "nohup", "env"]

[[wrappers.command]]
command = "timeout"
flags = ["-k <arg>", "<arg>"]

[[deny.regex]]
pattern = '(?i)\brm\s+-rf\b'
name = "rm -rf"

[[deny.regex]]
pattern = '(?i)^\s*sudo\s+'
name = "sudo"

[[deny.regex]]
pattern = '(?i)\bgit\s+commit\b'
name = "git commit"

[[deny.regex]]
pattern = '(?i)\bcurl\b.*\|\s*(sh|bash|zsh|python|python3|perl|ruby)\b'
name = "curl pipe to interpreter"

[[deny.supply_chain]]
pattern = '(?i)^\s*npx\s+'
name = "npx (supply-chain risk)"
allow = ['(?i)^npx\s+prettier\b']

[browser]
command_pattern = '(?i)\bopenclaw\s+browser\b'
tool_pattern = '(?i)^mcp__(browser|playwright)__'
navigate_pattern = '(?i)(openclaw\s+browser\s+navigate\b|^mcp__\w+__browser_navigate\b)'
url_patterns = ['(?i)checkout', '(?i)stripe\.com']

[[browser.action]]
pattern = '(?i)openclaw\s+browser\s+submit\b'
reason = "form submission (use click on specific buttons instead)"
`
