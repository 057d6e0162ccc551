// Package config handles configuration loading and parsing for wiggum.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"wiggum/internal/constants"
	"wiggum/internal/logger"
	"wiggum/internal/patterns"
)

//go:embed config.toml
var defaultConfig []byte

// Config holds the parsed configuration for every hook.
type Config struct {
	// WrapperPatterns are benign prefixes stripped from command segments
	// before the deny rules run
	WrapperPatterns []patterns.Pattern
	// DenyRules are matched against the raw command and every parsed
	// segment; first match wins
	DenyRules []DenyRule
	// Browser guards browser automation commands
	Browser BrowserConfig
	// Protect guards file edits
	Protect ProtectConfig

	Loop       LoopConfig
	Checkpoint CheckpointConfig
	Cost       CostConfig
	Notify     NotifyConfig
	Persist    PersistConfig
	Inject     InjectConfig
	Format     FormatConfig
}

// DenyRule is a compiled deny pattern with optional allow exceptions that
// exempt trusted commands from the rule.
type DenyRule struct {
	Pattern patterns.Pattern
	Allow   []patterns.Pattern
	// SupplyChain marks package-manager rules whose denial should point
	// at the allowlist rather than the pattern
	SupplyChain bool
}

// BrowserConfig holds the compiled browser guard rules.
type BrowserConfig struct {
	// CommandPattern selects the Bash commands the browser guard inspects
	CommandPattern patterns.Pattern
	// ToolPattern selects tool names (MCP browser servers) to inspect
	ToolPattern patterns.Pattern
	// NavigatePattern selects navigation commands whose URLs are checked
	NavigatePattern patterns.Pattern
	// URLPatterns deny navigation when any of them matches
	URLPatterns []patterns.Pattern
	// Actions deny specific browser operations outright
	Actions []BrowserAction
}

// BrowserAction is a denied browser operation and the reason reported back.
type BrowserAction struct {
	Pattern patterns.Pattern
	Reason  string
}

// ProtectConfig holds the file protection rules.
type ProtectConfig struct {
	// Allow globs are checked before Globs and exempt matching paths
	Allow []string
	// Globs are doublestar patterns for protected paths
	Globs []string
	// Markers are matched in the first 50 KiB of code files
	Markers []patterns.Pattern
	// CodeExtensions limits marker scanning to source files
	CodeExtensions []string
}

// LoopConfig holds defaults for `wiggum loop start`.
type LoopConfig struct {
	MaxIterations     int    `toml:"max_iterations"`
	CompletionPromise string `toml:"completion_promise"`
	IdleThreshold     int    `toml:"idle_threshold"`
}

// CheckpointConfig controls the context checkpoint cadence.
type CheckpointConfig struct {
	Interval int `toml:"interval"`
}

// CostConfig controls usage polling and alert thresholds (dollars).
type CostConfig struct {
	UsageCommand []string `toml:"usage_command"`
	SessionAlert float64  `toml:"session_alert"`
	DailyAlert   float64  `toml:"daily_alert"`
}

// PersistConfig controls session persistence. A non-empty MirrorDir gets a
// copy of the three context files after each stop.
type PersistConfig struct {
	MirrorDir string `toml:"mirror_dir"`
}

// NotifyConfig holds notification backend settings. Environment variables
// override non-empty values at send time.
type NotifyConfig struct {
	NtfyServer     string `toml:"ntfy_server"`
	NtfyTopic      string `toml:"ntfy_topic"`
	PushoverUser   string `toml:"pushover_user"`
	PushoverToken  string `toml:"pushover_token"`
	DiscordWebhook string `toml:"discord_webhook"`
	SlackWebhook   string `toml:"slack_webhook"`
	Desktop        bool   `toml:"desktop"`
}

// InjectConfig holds the prompt context injection rules.
type InjectConfig struct {
	MaxSnippets          int             `toml:"max_snippets"`
	ContinuationKeywords []string        `toml:"continuation_keywords"`
	Directive            DirectiveConfig `toml:"directive"`
	Triggers             []Trigger       `toml:"trigger"`
}

// DirectiveConfig is a standing instruction injected into substantive
// prompts. Questions and short prompts are skipped.
type DirectiveConfig struct {
	Enabled      bool     `toml:"enabled"`
	Instruction  string   `toml:"instruction"`
	MinLength    int      `toml:"min_length"`
	SkipStarters []string `toml:"skip_starters"`
	SkipMentions []string `toml:"skip_mentions"`
}

// Trigger maps a prompt keyword to context snippets.
type Trigger struct {
	Keyword string   `toml:"keyword"`
	Context []string `toml:"context"`
}

// FormatConfig holds the auto-format rules.
type FormatConfig struct {
	TimeoutSeconds int         `toml:"timeout_seconds"`
	Formatters     []Formatter `toml:"formatter"`
}

// Formatter describes one formatter invocation. The command runs when the
// edited file's extension matches, every path in Requires exists under the
// project root, and at least one path in RequiresAny exists (when set).
type Formatter struct {
	Name        string   `toml:"name"`
	Command     string   `toml:"command"`
	Extensions  []string `toml:"extensions"`
	Requires    []string `toml:"requires"`
	RequiresAny []string `toml:"requires_any"`
}

// rawConfig mirrors the TOML document before patterns are compiled.
type rawConfig struct {
	Loop       LoopConfig       `toml:"loop"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
	Cost       CostConfig       `toml:"cost"`
	Notify     NotifyConfig     `toml:"notify"`
	Persist    PersistConfig    `toml:"persist"`
	Protect    rawProtect       `toml:"protect"`
	Wrappers   rawWrappers      `toml:"wrappers"`
	Deny       rawDeny          `toml:"deny"`
	Browser    rawBrowser       `toml:"browser"`
	Inject     InjectConfig     `toml:"inject"`
	Format     FormatConfig     `toml:"format"`
}

type rawProtect struct {
	Allow          []string `toml:"allow"`
	Globs          []string `toml:"globs"`
	Markers        []string `toml:"markers"`
	CodeExtensions []string `toml:"code_extensions"`
}

type rawWrappers struct {
	Simple  []rawWrapperGroup `toml:"simple"`
	Command []rawWrapperCmd   `toml:"command"`
}

type rawWrapperGroup struct {
	Name     string   `toml:"name"`
	Commands []string `toml:"commands"`
}

type rawWrapperCmd struct {
	Command string   `toml:"command"`
	Flags   []string `toml:"flags"`
}

type rawDeny struct {
	Simple      []rawDenyGroup  `toml:"simple"`
	Regex       []rawRule       `toml:"regex"`
	SupplyChain []rawSupplyRule `toml:"supply_chain"`
}

type rawDenyGroup struct {
	Name     string   `toml:"name"`
	Commands []string `toml:"commands"`
}

type rawRule struct {
	Pattern string `toml:"pattern"`
	Name    string `toml:"name"`
}

type rawSupplyRule struct {
	Pattern string   `toml:"pattern"`
	Name    string   `toml:"name"`
	Allow   []string `toml:"allow"`
}

type rawBrowser struct {
	CommandPattern  string      `toml:"command_pattern"`
	ToolPattern     string      `toml:"tool_pattern"`
	NavigatePattern string      `toml:"navigate_pattern"`
	URLPatterns     []string    `toml:"url_patterns"`
	Action          []rawAction `toml:"action"`
}

type rawAction struct {
	Pattern string `toml:"pattern"`
	Reason  string `toml:"reason"`
}

var (
	// globalConfig is the loaded configuration
	globalConfig *Config
	// configInitialized tracks whether config has been loaded
	configInitialized bool
	// loadedFrom is the path of the config file Init read (or tried to)
	loadedFrom string
	// initErr is remembered so audit entries can record a fallback
	initErr error
)

// GetConfigDir returns the config directory path.
// Uses WIGGUM_CONFIG env var if set, otherwise ~/.config/wiggum
func GetConfigDir() (string, error) {
	if dir := os.Getenv(constants.EnvConfigDir); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, constants.XDGConfigSubdir, constants.AppName), nil
}

// EnsureConfigFiles creates the config directory and writes the default
// config file if it doesn't exist.
func EnsureConfigFiles(configDir string) error {
	if err := os.MkdirAll(configDir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(configDir, constants.ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, defaultConfig, constants.FileMode); err != nil {
			return fmt.Errorf("failed to write config.toml: %w", err)
		}
	}

	return nil
}

// LoadConfig parses TOML data and compiles all patterns into a Config.
func LoadConfig(data []byte) (*Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg := &Config{
		Loop:       raw.Loop,
		Checkpoint: raw.Checkpoint,
		Cost:       raw.Cost,
		Notify:     raw.Notify,
		Persist:    raw.Persist,
		Inject:     raw.Inject,
		Format:     raw.Format,
	}
	applyDefaults(cfg)

	wrappers, err := compileWrappers(raw.Wrappers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wrappers: %w", err)
	}
	cfg.WrapperPatterns = wrappers

	deny, err := compileDeny(raw.Deny)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deny: %w", err)
	}
	cfg.DenyRules = deny

	browser, err := compileBrowser(raw.Browser)
	if err != nil {
		return nil, fmt.Errorf("failed to parse browser: %w", err)
	}
	cfg.Browser = browser

	protect, err := compileProtect(raw.Protect)
	if err != nil {
		return nil, fmt.Errorf("failed to parse protect: %w", err)
	}
	cfg.Protect = protect

	return cfg, nil
}

// applyDefaults fills zero values so a user config can omit whole sections.
func applyDefaults(cfg *Config) {
	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop.MaxIterations = 20
	}
	if cfg.Loop.CompletionPromise == "" {
		cfg.Loop.CompletionPromise = "DONE"
	}
	if cfg.Loop.IdleThreshold == 0 {
		cfg.Loop.IdleThreshold = 3
	}
	if cfg.Checkpoint.Interval == 0 {
		cfg.Checkpoint.Interval = 10
	}
	if cfg.Cost.SessionAlert == 0 {
		cfg.Cost.SessionAlert = 5
	}
	if cfg.Cost.DailyAlert == 0 {
		cfg.Cost.DailyAlert = 20
	}
	if cfg.Notify.NtfyServer == "" {
		cfg.Notify.NtfyServer = "https://ntfy.sh"
	}
	if cfg.Inject.MaxSnippets == 0 {
		cfg.Inject.MaxSnippets = 5
	}
	if cfg.Format.TimeoutSeconds == 0 {
		cfg.Format.TimeoutSeconds = 30
	}
}

func compileWrappers(raw rawWrappers) ([]patterns.Pattern, error) {
	var result []patterns.Pattern

	for _, group := range raw.Simple {
		for _, cmd := range group.Commands {
			p, err := patterns.Compile(patterns.BuildWrapperPattern(cmd, nil), cmd)
			if err != nil {
				return nil, fmt.Errorf("invalid wrapper pattern for command %q: %w", cmd, err)
			}
			result = append(result, p)
		}
	}

	for _, entry := range raw.Command {
		if entry.Command == "" {
			continue
		}
		p, err := patterns.Compile(patterns.BuildWrapperPattern(entry.Command, entry.Flags), entry.Command)
		if err != nil {
			return nil, fmt.Errorf("invalid wrapper pattern for command %q: %w", entry.Command, err)
		}
		result = append(result, p)
	}

	return result, nil
}

func compileDeny(raw rawDeny) ([]DenyRule, error) {
	var result []DenyRule

	// [[deny.simple]] name = "label", commands = [...]
	for _, group := range raw.Simple {
		for _, cmd := range group.Commands {
			p, err := patterns.Compile(patterns.BuildSimplePattern(cmd), group.Name)
			if err != nil {
				return nil, fmt.Errorf("invalid deny pattern for command %q: %w", cmd, err)
			}
			result = append(result, DenyRule{Pattern: p})
		}
	}

	// [[deny.regex]] pattern = '...', name = "label"
	for _, entry := range raw.Regex {
		if entry.Pattern == "" {
			continue
		}
		p, err := patterns.Compile(entry.Pattern, entry.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", entry.Pattern, err)
		}
		result = append(result, DenyRule{Pattern: p})
	}

	// [[deny.supply_chain]] adds an allow list of exempt patterns
	for _, entry := range raw.SupplyChain {
		if entry.Pattern == "" {
			continue
		}
		p, err := patterns.Compile(entry.Pattern, entry.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid supply-chain pattern %q: %w", entry.Pattern, err)
		}
		rule := DenyRule{Pattern: p, SupplyChain: true}
		for _, allow := range entry.Allow {
			ap, err := patterns.Compile(allow, allow)
			if err != nil {
				return nil, fmt.Errorf("invalid allow pattern %q: %w", allow, err)
			}
			rule.Allow = append(rule.Allow, ap)
		}
		result = append(result, rule)
	}

	return result, nil
}

func compileBrowser(raw rawBrowser) (BrowserConfig, error) {
	var cfg BrowserConfig

	if raw.CommandPattern != "" {
		p, err := patterns.Compile(raw.CommandPattern, "browser command")
		if err != nil {
			return cfg, fmt.Errorf("invalid command_pattern %q: %w", raw.CommandPattern, err)
		}
		cfg.CommandPattern = p
	}
	if raw.ToolPattern != "" {
		p, err := patterns.Compile(raw.ToolPattern, "browser tool")
		if err != nil {
			return cfg, fmt.Errorf("invalid tool_pattern %q: %w", raw.ToolPattern, err)
		}
		cfg.ToolPattern = p
	}
	if raw.NavigatePattern != "" {
		p, err := patterns.Compile(raw.NavigatePattern, "browser navigate")
		if err != nil {
			return cfg, fmt.Errorf("invalid navigate_pattern %q: %w", raw.NavigatePattern, err)
		}
		cfg.NavigatePattern = p
	}
	for _, pattern := range raw.URLPatterns {
		p, err := patterns.Compile(pattern, pattern)
		if err != nil {
			return cfg, fmt.Errorf("invalid url pattern %q: %w", pattern, err)
		}
		cfg.URLPatterns = append(cfg.URLPatterns, p)
	}
	for _, action := range raw.Action {
		if action.Pattern == "" {
			continue
		}
		p, err := patterns.Compile(action.Pattern, action.Reason)
		if err != nil {
			return cfg, fmt.Errorf("invalid action pattern %q: %w", action.Pattern, err)
		}
		cfg.Actions = append(cfg.Actions, BrowserAction{Pattern: p, Reason: action.Reason})
	}

	return cfg, nil
}

func compileProtect(raw rawProtect) (ProtectConfig, error) {
	cfg := ProtectConfig{
		Allow:          raw.Allow,
		Globs:          raw.Globs,
		CodeExtensions: raw.CodeExtensions,
	}

	for _, marker := range raw.Markers {
		p, err := patterns.Compile(marker, marker)
		if err != nil {
			return cfg, fmt.Errorf("invalid marker pattern %q: %w", marker, err)
		}
		cfg.Markers = append(cfg.Markers, p)
	}

	return cfg, nil
}

// loadEmbeddedDefaults loads the embedded default config file.
func loadEmbeddedDefaults() *Config {
	cfg, _ := LoadConfig(defaultConfig)
	return cfg
}

// Init loads configuration from files, creating defaults if necessary.
// If loading fails, it falls back to embedded defaults and remembers the
// error so audit entries can record the fallback.
func Init() error {
	if configInitialized {
		return initErr
	}

	configDir, err := GetConfigDir()
	if err != nil {
		logger.Debug("failed to get config dir, using embedded defaults", "error", err)
		globalConfig = loadEmbeddedDefaults()
		configInitialized = true
		initErr = err
		return err
	}

	if err := EnsureConfigFiles(configDir); err != nil {
		logger.Debug("failed to ensure config files, using embedded defaults", "error", err)
		globalConfig = loadEmbeddedDefaults()
		configInitialized = true
		initErr = err
		return err
	}

	path := filepath.Join(configDir, constants.ConfigFileName)
	loadedFrom = path
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("failed to read config file, using embedded defaults", "path", path, "error", err)
		globalConfig = loadEmbeddedDefaults()
		configInitialized = true
		initErr = fmt.Errorf("failed to read config.toml: %w", err)
		return initErr
	}

	globalConfig, err = LoadConfig(data)
	if err != nil {
		logger.Debug("failed to parse config, using embedded defaults", "error", err)
		globalConfig = loadEmbeddedDefaults()
		configInitialized = true
		initErr = fmt.Errorf("failed to load config: %w", err)
		return initErr
	}

	logger.Debug("config loaded successfully",
		"path", path,
		"wrappers", len(globalConfig.WrapperPatterns),
		"deny", len(globalConfig.DenyRules))
	configInitialized = true
	return nil
}

// Get returns the current configuration.
// If Init has not been called, it initializes with defaults.
func Get() *Config {
	if !configInitialized {
		Init()
	}
	return globalConfig
}

// Path returns the path of the config file Init loaded, or "" when only
// embedded defaults are in use.
func Path() string {
	return loadedFrom
}

// InitError returns the error Init remembered, if any.
func InitError() error {
	return initErr
}

// Reset resets the configuration state. Used for testing.
func Reset() {
	configInitialized = false
	globalConfig = nil
	loadedFrom = ""
	initErr = nil
}

// GetDefaultConfig returns the embedded default configuration.
func GetDefaultConfig() []byte {
	return defaultConfig
}
