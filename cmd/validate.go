package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wiggum/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and show compiled rules",
	Long: `Validate checks the wiggum configuration file and displays all compiled rules.

This is useful for:
- Checking that your config.toml syntax is correct
- Seeing what rules will actually be used
- Debugging pattern matching issues`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := config.InitError(); err != nil {
		return fmt.Errorf("configuration invalid (using embedded defaults): %w", err)
	}
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("failed to load configuration")
	}

	fmt.Println("Configuration valid!")
	if path := config.Path(); path != "" {
		fmt.Printf("Loaded from: %s\n", path)
	}
	fmt.Println()

	// Show deny rules
	fmt.Printf("Deny rules: %d\n", len(cfg.DenyRules))
	for _, r := range cfg.DenyRules {
		if r.SupplyChain {
			fmt.Printf("  - %s: %s (allow: %d)\n", r.Pattern.Name, r.Pattern.Pattern, len(r.Allow))
			continue
		}
		fmt.Printf("  - %s: %s\n", r.Pattern.Name, r.Pattern.Pattern)
	}
	fmt.Println()

	// Show wrapper patterns
	fmt.Printf("Wrapper patterns: %d\n", len(cfg.WrapperPatterns))
	for _, p := range cfg.WrapperPatterns {
		fmt.Printf("  - %s: %s\n", p.Name, p.Pattern)
	}
	fmt.Println()

	// Show browser rules
	fmt.Printf("Browser URL patterns: %d\n", len(cfg.Browser.URLPatterns))
	for _, p := range cfg.Browser.URLPatterns {
		fmt.Printf("  - %s\n", p.Pattern)
	}
	fmt.Printf("Browser denied actions: %d\n", len(cfg.Browser.Actions))
	for _, a := range cfg.Browser.Actions {
		fmt.Printf("  - %s: %s\n", a.Pattern.Pattern, a.Reason)
	}
	fmt.Println()

	// Show protected paths
	fmt.Printf("Protected globs: %d\n", len(cfg.Protect.Globs))
	for _, g := range cfg.Protect.Globs {
		fmt.Printf("  - %s\n", g)
	}
	fmt.Printf("Protection markers: %d\n", len(cfg.Protect.Markers))
	for _, m := range cfg.Protect.Markers {
		fmt.Printf("  - %s\n", m.Pattern)
	}
	fmt.Println()

	// Show context injection triggers
	fmt.Printf("Inject triggers: %d\n", len(cfg.Inject.Triggers))
	for _, t := range cfg.Inject.Triggers {
		fmt.Printf("  - %s: %d snippets\n", t.Keyword, len(t.Context))
	}
	fmt.Println()

	// Show formatters
	fmt.Printf("Formatters: %d\n", len(cfg.Format.Formatters))
	for _, f := range cfg.Format.Formatters {
		fmt.Printf("  - %s (%s): %s\n", f.Name, strings.Join(f.Extensions, ", "), f.Command)
	}

	return nil
}
