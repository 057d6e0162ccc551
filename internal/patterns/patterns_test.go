package patterns

import (
	"regexp"
	"testing"
)

func TestBuildFlagPattern(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"positional arg", "<arg>", `(\S+\s+)?`},
		{"simple flag", "-f", `(-f\s+)?`},
		{"flag with arg", "-f <arg>", `(-f\s*\S+\s+)?`},
		{"long flag with arg", "-C <arg>", `(-C\s*\S+\s+)?`},
		{"long name flag", "--verbose", `(--verbose\s+)?`},
		{"long name with arg", "--config <arg>", `(--config\s*\S+\s+)?`},
		{"whitespace trimming", "  -f  ", `(-f\s+)?`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFlagPattern(tt.input)
			if got != tt.expected {
				t.Errorf("BuildFlagPattern(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildFlagPattern_Regex(t *testing.T) {
	// The generated fragments have to work as real regex
	tests := []struct {
		name    string
		flag    string
		input   string
		matches bool
	}{
		{"empty allows anything", "", "anything", true},
		{"positional matches word", "<arg>", "value ", true},
		{"positional matches empty", "<arg>", "", true},
		{"simple flag matches", "-f", "-f ", true},
		{"simple flag matches optional", "-f", "-f", true},
		{"flag with arg compact", "-n <arg>", "-n10 ", true},
		{"flag with arg spaced", "-n <arg>", "-n 10 ", true},
		{"flag with arg optional", "-n <arg>", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := BuildFlagPattern(tt.flag)
			if pattern == "" {
				return
			}
			re := regexp.MustCompile("^" + pattern)
			got := re.MatchString(tt.input)
			if got != tt.matches {
				t.Errorf("Pattern %q matching %q = %v, want %v", pattern, tt.input, got, tt.matches)
			}
		})
	}
}

func TestBuildSimplePattern(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		expected string
	}{
		{"simple command", "shutdown", `^shutdown\b`},
		{"command with hyphen", "my-cmd", `^my-cmd\b`}, // hyphen not escaped (only special in char classes)
		{"single char", "a", `^a\b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSimplePattern(tt.cmd)
			if got != tt.expected {
				t.Errorf("BuildSimplePattern(%q) = %q, want %q", tt.cmd, got, tt.expected)
			}
		})
	}
}

func TestBuildSimplePattern_Regex(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		input   string
		matches bool
	}{
		{"exact match", "shutdown", "shutdown", true},
		{"with args", "shutdown", "shutdown -h now", true},
		{"prefix only", "shutdown", "shutdowner", false},
		{"word boundary works", "python", "python3", false},
		{"at start only", "shutdown", "echo shutdown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MustCompile(BuildSimplePattern(tt.cmd), tt.cmd)
			got := p.Matcher.MatchString(tt.input)
			if got != tt.matches {
				t.Errorf("Pattern %q matching %q = %v, want %v", p.Pattern, tt.input, got, tt.matches)
			}
		})
	}
}

func TestBuildSubcommandPattern(t *testing.T) {
	tests := []struct {
		name        string
		cmd         string
		subcommands []string
		flags       []string
		expected    string
	}{
		{
			name:        "simple subcommands",
			cmd:         "git",
			subcommands: []string{"push", "reset"},
			flags:       nil,
			expected:    `^git\s+(push|reset)\b`,
		},
		{
			name:        "single subcommand",
			cmd:         "git",
			subcommands: []string{"clean"},
			flags:       nil,
			expected:    `^git\s+(clean)\b`,
		},
		{
			name:        "with flag",
			cmd:         "git",
			subcommands: []string{"push"},
			flags:       []string{"-C <arg>"},
			expected:    `^git\s+(-C\s*\S+\s+)?(push)\b`,
		},
		{
			name:        "multiple flags",
			cmd:         "git",
			subcommands: []string{"push"},
			flags:       []string{"-C <arg>", "-n <arg>"},
			expected:    `^git\s+(-C\s*\S+\s+)?(-n\s*\S+\s+)?(push)\b`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSubcommandPattern(tt.cmd, tt.subcommands, tt.flags)
			if got != tt.expected {
				t.Errorf("BuildSubcommandPattern() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBuildWrapperPattern(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		flags    []string
		expected string
	}{
		{"no flags", "env", nil, `^env\s+`},
		{"with positional arg", "timeout", []string{"<arg>"}, `^timeout\s+(\S+\s+)?`},
		{"with flag arg", "nice", []string{"-n <arg>"}, `^nice\s+(-n\s*\S+\s+)?`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildWrapperPattern(tt.cmd, tt.flags)
			if got != tt.expected {
				t.Errorf("BuildWrapperPattern() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCompileEngineSelection(t *testing.T) {
	t.Run("RE2 pattern uses go engine", func(t *testing.T) {
		p, err := Compile(`^git\s+push\b`, "git push")
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if _, ok := p.Matcher.(goMatcher); !ok {
			t.Errorf("expected goMatcher, got %T", p.Matcher)
		}
	})

	t.Run("lookahead falls back to backtracking engine", func(t *testing.T) {
		p, err := Compile(`^npm\s+install\s+(?!--save-dev)`, "npm non-dev install")
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if _, ok := p.Matcher.(backtrackMatcher); !ok {
			t.Errorf("expected backtrackMatcher, got %T", p.Matcher)
		}
		if !p.Matcher.MatchString("npm install leftpad") {
			t.Error("expected lookahead pattern to match plain install")
		}
		if p.Matcher.MatchString("npm install --save-dev @types/node") {
			t.Error("expected lookahead pattern to skip --save-dev install")
		}
	})

	t.Run("invalid in both engines", func(t *testing.T) {
		if _, err := Compile(`[invalid`, "bad"); err == nil {
			t.Error("Compile() should return error for invalid pattern")
		}
	})
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustCompile() should panic for invalid pattern")
		}
	}()
	MustCompile(`[invalid`, "bad")
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		input   string
		want    int
	}{
		{"anchored match", `^timeout\s+`, "timeout 30 make", 8},
		{"no match", `^timeout\s+`, "make all", -1},
		{"mid-string match rejected", `foo`, "a foo b", -1},
		{"lookahead prefix", `^sudo\s+(?!apt\b)`, "sudo rm x", 5},
		{"lookahead prefix blocked", `^sudo\s+(?!apt\b)`, "sudo apt update", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MustCompile(tt.pattern, tt.name)
			if got := p.Matcher.Prefix(tt.input); got != tt.want {
				t.Errorf("Prefix(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestPatternMatch(t *testing.T) {
	p := MustCompile(`^git\s+(push|reset)\b`, "git write ops")

	tests := []struct {
		input   string
		matches bool
	}{
		{"git push", true},
		{"git reset", true},
		{"git reset --hard HEAD", true},
		{"git status", false},
		{"git", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := p.Matcher.MatchString(tt.input)
			if got != tt.matches {
				t.Errorf("Pattern matching %q = %v, want %v", tt.input, got, tt.matches)
			}
		})
	}
}
