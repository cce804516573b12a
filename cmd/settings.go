package cmd

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KarimYounus/jobbies/internal/settings"
	"github.com/KarimYounus/jobbies/pkg/models"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change preferences",
	Long:  "View, change and reset the preferences stored alongside your data",
}

var showSettingsCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		current := application.Settings.GetSettings()
		cmd.Println(titleStyle.Render("Preferences"))
		for _, key := range settings.Keys {
			v, err := settings.Value(current, key)
			if err != nil {
				return err
			}
			cmd.Printf("%s %s %s\n", labelStyle.Render(settingLabel(key)+":"), valueStyle.Render(formatSetting(v)), mutedStyle.Render("("+key+")"))
		}
		return nil
	},
}

var setSettingCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one preference",
	Args:  cobra.ExactArgs(2),
	Example: `  jobbies settings set autoUpdateInterval 14
  jobbies settings set defaultApplicationStatus "Assessment Stage"
  jobbies settings set defaultSortPreference company:asc
  jobbies settings set theme dark`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		key := args[0]
		value, err := settings.ParseValue(key, args[1])
		if err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(settings.Keys, ", "))
		}

		updated, err := application.Settings.UpdateSetting(cmd.Context(), key, value)
		if err != nil {
			return fmt.Errorf("failed to update setting: %w", err)
		}

		stored, _ := settings.Value(updated, key)
		cmd.Printf("✓ %s set to %s\n", settingLabel(key), formatSetting(stored))
		return nil
	},
}

var resetSettingsCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		if !confirm(cmd, application, "Reset all preferences to their defaults?") {
			cmd.Println("Cancelled.")
			return nil
		}
		if _, err := application.Settings.ResetToDefaults(cmd.Context()); err != nil {
			return fmt.Errorf("failed to reset settings: %w", err)
		}
		cmd.Println("✓ Preferences reset to defaults")
		return nil
	},
}

// settingLabel turns a camelCase key into a title, e.g. "Auto Update Interval".
func settingLabel(key string) string {
	var b strings.Builder
	for i, r := range key {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.BritishEnglish).String(b.String())
}

func formatSetting(v any) string {
	switch v := v.(type) {
	case models.SortPreference:
		return v.Field + ":" + string(v.Order)
	case bool:
		if v {
			return "on"
		}
		return "off"
	}
	return fmt.Sprint(v)
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(showSettingsCmd)
	settingsCmd.AddCommand(setSettingCmd)
	settingsCmd.AddCommand(resetSettingsCmd)

	resetSettingsCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}
