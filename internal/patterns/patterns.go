// Package patterns provides functions for building and compiling the regex
// rules wiggum matches shell commands and URLs against.
//
// Rules compile under the standard RE2 engine when they can. Rules that need
// lookaround (the package-manager supply-chain checks) fall back to the
// backtracking regexp2 engine with a match timeout so a pathological pattern
// can never hang a hook.
package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// backtrackTimeout bounds a single regexp2 match attempt.
const backtrackTimeout = time.Second

// Matcher is the regex behavior rules need. Satisfied by both engines
// through thin adapters.
type Matcher interface {
	// MatchString reports whether s contains a match.
	MatchString(s string) bool
	// Find returns the text of the first match in s, or "" when there is
	// none.
	Find(s string) string
	// Prefix returns the byte length of a match anchored at the start of s,
	// or -1 when s does not start with the pattern.
	Prefix(s string) int
	// String returns the pattern source.
	String() string
}

// Pattern holds a compiled rule and its description.
type Pattern struct {
	Matcher Matcher
	Name    string
	Type    string // simple, subcommand, command, regex
	Pattern string // original pattern string
}

type goMatcher struct {
	re *regexp.Regexp
}

func (m goMatcher) MatchString(s string) bool {
	return m.re.MatchString(s)
}

func (m goMatcher) Find(s string) string {
	return m.re.FindString(s)
}

func (m goMatcher) Prefix(s string) int {
	loc := m.re.FindStringIndex(s)
	if loc == nil || loc[0] != 0 {
		return -1
	}
	return loc[1]
}

func (m goMatcher) String() string {
	return m.re.String()
}

type backtrackMatcher struct {
	re *regexp2.Regexp
}

func (m backtrackMatcher) MatchString(s string) bool {
	ok, err := m.re.MatchString(s)
	if err != nil {
		// timeout counts as no match
		return false
	}
	return ok
}

func (m backtrackMatcher) Find(s string) string {
	match, err := m.re.FindStringMatch(s)
	if err != nil || match == nil {
		return ""
	}
	return match.String()
}

func (m backtrackMatcher) Prefix(s string) int {
	match, err := m.re.FindStringMatch(s)
	if err != nil || match == nil || match.Index != 0 {
		return -1
	}
	// regexp2 indexes runes, not bytes
	return len(string([]rune(s)[:match.Length]))
}

func (m backtrackMatcher) String() string {
	return m.re.String()
}

// BuildFlagPattern converts a flag specification to a regex pattern.
// "-f" becomes "(-f\s+)?"
// "-f <arg>" becomes "(-f\s*\S+\s+)?" (allows -f10 or -f 10)
// "<arg>" becomes "(\S+\s+)?" (positional argument)
// "" (empty) becomes "" (allows bare command)
func BuildFlagPattern(flag string) string {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return ""
	}
	if flag == "<arg>" {
		return `(\S+\s+)?`
	}
	if strings.HasSuffix(flag, " <arg>") {
		flagName := strings.TrimSuffix(flag, " <arg>")
		// Allow optional space between flag and argument (e.g., -n10 or -n 10)
		return `(` + regexp.QuoteMeta(flagName) + `\s*\S+\s+)?`
	}
	return `(` + regexp.QuoteMeta(flag) + `\s+)?`
}

// BuildSimplePattern creates a regex for a simple command (any args allowed).
// "shutdown" becomes "^shutdown\b"
func BuildSimplePattern(cmd string) string {
	return `^` + regexp.QuoteMeta(cmd) + `\b`
}

// BuildSubcommandPattern creates a regex for a command with subcommands and
// optional flags. cmd="git", subcommands=["push","reset"], flags=["-C <arg>"]
// becomes "^git\s+(-C\s*\S+\s+)?(push|reset)\b"
func BuildSubcommandPattern(cmd string, subcommands []string, flags []string) string {
	var flagPatterns string
	for _, f := range flags {
		flagPatterns += BuildFlagPattern(f)
	}

	escaped := make([]string, len(subcommands))
	for i, sub := range subcommands {
		escaped[i] = regexp.QuoteMeta(sub)
	}
	subPattern := strings.Join(escaped, "|")

	return `^` + regexp.QuoteMeta(cmd) + `\s+` + flagPatterns + `(` + subPattern + `)\b`
}

// BuildWrapperPattern creates a regex for a wrapper command prefix.
// "timeout" with flags=["<arg>"] becomes "^timeout\s+(\S+\s+)?"
func BuildWrapperPattern(cmd string, flags []string) string {
	var flagPatterns string
	for _, f := range flags {
		flagPatterns += BuildFlagPattern(f)
	}
	if len(flags) > 0 {
		return `^` + regexp.QuoteMeta(cmd) + `\s+` + flagPatterns
	}
	return `^` + regexp.QuoteMeta(cmd) + `\s+`
}

// Compile compiles a pattern string into a Pattern with the given name,
// choosing the engine the pattern requires.
func Compile(pattern, name string) (Pattern, error) {
	if re, err := regexp.Compile(pattern); err == nil {
		return Pattern{Matcher: goMatcher{re}, Name: name, Pattern: pattern}, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return Pattern{}, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = backtrackTimeout
	return Pattern{Matcher: backtrackMatcher{re}, Name: name, Pattern: pattern}, nil
}

// MustCompile is like Compile but panics if the pattern is invalid.
// Only used for built-in patterns.
func MustCompile(pattern, name string) Pattern {
	p, err := Compile(pattern, name)
	if err != nil {
		panic(err)
	}
	return p
}
