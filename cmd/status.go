package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/KarimYounus/jobbies/internal/app"
	"github.com/KarimYounus/jobbies/internal/applications"
	"github.com/KarimYounus/jobbies/internal/storage"
	"github.com/KarimYounus/jobbies/pkg/models"
)

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"status"},
	Short:   "Show applications grouped by status",
	Long: `Show every status in order with the applications currently in it. The
default ordering comes from the defaultSortPreference setting.`,
	Example: `  jobbies board
  jobbies board --sort company --order asc
  jobbies board --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		sortCfg, err := sortFromFlags(cmd, application)
		if err != nil {
			return err
		}

		renderBoard(cmd.OutOrStdout(), application.Applications.GetApplicationsByStatus(&sortCfg))

		watch, _ := cmd.Flags().GetBool("watch")
		if !watch {
			return nil
		}
		return watchBoard(cmd, application, sortCfg)
	},
}

func sortFromFlags(cmd *cobra.Command, application *app.App) (models.SortConfig, error) {
	cfg := application.DefaultSort()
	if cmd.Flags().Changed("sort") {
		field, _ := cmd.Flags().GetString("sort")
		switch f := models.SortField(strings.ToLower(field)); f {
		case models.SortByDate, models.SortByCompany, models.SortByPosition:
			cfg.Field = f
		default:
			return cfg, fmt.Errorf("invalid --sort %q: must be date, company or position", field)
		}
	}
	if cmd.Flags().Changed("order") {
		order, _ := cmd.Flags().GetString("order")
		switch o := models.SortOrder(strings.ToLower(order)); o {
		case models.SortAsc, models.SortDesc:
			cfg.Order = o
		default:
			return cfg, fmt.Errorf("invalid --order %q: must be asc or desc", order)
		}
	}
	return cfg, nil
}

func renderBoard(w io.Writer, groups []applications.StatusGroup) {
	fmt.Fprintln(w, titleStyle.Render("Your Applications"))

	total := 0
	for _, g := range groups {
		total += len(g.Applications)
		fmt.Fprintf(w, "%s %s\n", statusBadge(g.Status), mutedStyle.Render(fmt.Sprintf("(%d)", len(g.Applications))))
		if len(g.Applications) == 0 {
			fmt.Fprintln(w)
			continue
		}

		table := uitable.New()
		table.MaxColWidth = 40
		for _, a := range g.Applications {
			table.AddRow("  "+shortID(a.ID), a.Company, a.Position, a.AppliedDate, a.Salary)
		}
		fmt.Fprintln(w, table)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s %d\n", labelStyle.Render("Total Applications:"), total)
}

// watchBoard redraws the board whenever the applications file changes on
// disk, until the command is interrupted.
func watchBoard(cmd *cobra.Command, application *app.App, sortCfg models.SortConfig) error {
	disk, ok := application.Store.(*storage.DiskStore)
	if !ok {
		return fmt.Errorf("--watch needs the file storage backend, not %s", application.Config.StorageBackend)
	}

	ctx := cmd.Context()
	changes, err := disk.Watch(ctx, *zerolog.Ctx(ctx))
	if err != nil {
		return err
	}
	cmd.Println(mutedStyle.Render("Watching for changes, press Ctrl+C to stop."))

	for ev := range changes {
		if ev.Bucket != storage.ApplicationsBucket {
			continue
		}
		if err := application.Applications.Reload(ctx); err != nil {
			cmd.Println(warnStyle.Render("Could not reload applications:"), err)
			continue
		}
		renderBoard(cmd.OutOrStdout(), application.Applications.GetApplicationsByStatus(&sortCfg))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(boardCmd)

	boardCmd.Flags().String("sort", "", "Sort field (date, company, position)")
	boardCmd.Flags().String("order", "", "Sort order (asc, desc)")
	boardCmd.Flags().Bool("watch", false, "Redraw when the data file changes")
}
