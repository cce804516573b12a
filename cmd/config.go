package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/KarimYounus/jobbies/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and update process configuration: where data lives, which storage
backend holds it and how much is logged. Preferences live under 'settings'.`,
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println(titleStyle.Render("Configuration"))
		cmd.Printf("%s %s\n", labelStyle.Render("Config File:"), config.GetConfigPath())
		cmd.Printf("%s %s\n", labelStyle.Render("Data Directory:"), config.AppConfig.DataDir)
		cmd.Printf("%s %s\n", labelStyle.Render("Storage Backend:"), config.AppConfig.StorageBackend)
		cmd.Printf("%s %s\n", labelStyle.Render("Log Level:"), config.AppConfig.LogLevel)
		return nil
	},
}

var setConfigCmd = &cobra.Command{
	Use:   "set",
	Short: "Update a configuration value",
	Example: `  jobbies config set --key storage_backend --value sqlite
  jobbies config set --key data_dir --value ~/Dropbox/jobbies
  jobbies config set --key log_level --value debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		value, _ := cmd.Flags().GetString("value")

		if key == "" || value == "" {
			return fmt.Errorf("both --key and --value are required")
		}
		if !slices.Contains(config.Keys, key) {
			return fmt.Errorf("invalid key %q, must be one of: %v", key, config.Keys)
		}

		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("failed to update config: %w", err)
		}

		cmd.Printf("✓ Configuration updated: %s\n", key)
		cmd.Println(mutedStyle.Render("Takes effect the next time jobbies runs."))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(setConfigCmd)

	// Flags for set command
	setConfigCmd.Flags().String("key", "", "Configuration key")
	setConfigCmd.Flags().String("value", "", "Configuration value")
}
