package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"wiggum/internal/config"
	"wiggum/internal/constants"
	"wiggum/internal/project"
	"wiggum/internal/settings"
)

var (
	initForce  bool
	initClaude bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new wiggum configuration file",
	Long: `Initialize creates a new wiggum configuration file with default settings.

The config file is written to ~/.config/wiggum/config.toml (or the path
specified by the WIGGUM_CONFIG environment variable).

Use --force to overwrite an existing configuration file. Use --claude to
also register the hooks in the project's .claude/settings.json; existing
settings and hooks from other tools are preserved.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config file")
	initCmd.Flags().BoolVar(&initClaude, "claude", false, "Register hooks in .claude/settings.json")
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	configPath := filepath.Join(configDir, constants.ConfigFileName)

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	// Create directory if needed
	if err := os.MkdirAll(configDir, constants.DirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write default config file
	if err := os.WriteFile(configPath, config.GetDefaultConfig(), constants.FileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Configuration written to: %s\n", configPath)

	if initClaude {
		if err := settings.Apply(project.Dir()); err != nil {
			return fmt.Errorf("failed to register hooks: %w", err)
		}
		fmt.Printf("Hooks registered in: %s\n",
			filepath.Join(project.ClaudeDir(), constants.ClaudeSettingsFile))
	}

	fmt.Println("Run 'wiggum validate' to verify your configuration.")
	return nil
}
