package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KarimYounus/jobbies/internal/app"
)

// appInstance is closed by Execute once the command has finished.
var appInstance *app.App

var rootCmd = &cobra.Command{
	Use:   "jobbies",
	Short: "Track job applications, CVs and follow-ups",
	Long: `Jobbies keeps your job applications, CVs and preferences in a local data
directory. Applications are grouped by status on a board, and applications
that never got a reply are moved to "No Response" automatically.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize app with all dependencies
		application, err := app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		appInstance = application
		applyTheme(application.Settings.GetSettings().Theme)

		// Store app in command context
		cmd.SetContext(app.SetAppInContext(cmd.Context(), application))
		return nil
	},
}

// Execute runs the root command
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render("Error:"), err)
		cancel()
		os.Exit(1)
	}
}

// run executes the command line and closes the App it created.
func run(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)

	if appInstance != nil {
		if cerr := appInstance.Close(); cerr != nil && err == nil {
			err = cerr
		}
		appInstance = nil
	}
	return err
}

// getApp returns the App built by PersistentPreRunE.
func getApp(cmd *cobra.Command) (*app.App, error) {
	application := app.GetAppFromContext(cmd.Context())
	if application == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return application, nil
}
