package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var autoUpdateCmd = &cobra.Command{
	Use:     "auto-update",
	Aliases: []string{"autoupdate"},
	Short:   "Move stale applications to No Response",
	Long: `Move applications still marked Applied or Assessment Stage to No Response
once they are older than the autoUpdateInterval setting. This also runs each
time the app starts while autoUpdateEnabled is on.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		enabled, interval := application.Applications.AutoUpdateConfig()
		if !enabled {
			cmd.Println("Auto-update is off. Turn it on with 'jobbies settings set autoUpdateEnabled true'")
			return nil
		}

		result, err := application.Applications.RunAutoUpdate(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to save auto-update: %w", err)
		}

		if result.Count == 0 {
			cmd.Printf("No applications older than %d days are waiting on a reply.\n", interval)
			return nil
		}
		cmd.Printf("✓ Moved %d applications to No Response\n", result.Count)
		for _, t := range result.Applications {
			cmd.Printf("  %s %s at %s\n", mutedStyle.Render(shortID(t.ID)), t.Position, t.Company)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(autoUpdateCmd)
}
