package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/KarimYounus/jobbies/internal/applications"
	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/pkg/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View application statistics and insights",
	Long:  "Display analytics about your job applications, response rates and recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		apps := application.Applications.GetAllApplications()
		if len(apps) == 0 {
			cmd.Println("No applications yet. Add one with 'jobbies app add --company NAME --position TITLE'")
			return nil
		}

		stats := calculateStats(apps, application.Applications.Counts(), time.Now())

		cmd.Println(titleStyle.Render("Application Statistics"))

		// Status breakdown
		cmd.Printf("%s\n", labelStyle.Render("Status Breakdown"))
		for i, item := range status.All() {
			count := 0
			if i < len(stats.ByStatus) {
				count = stats.ByStatus[i]
			}
			percentage := float64(count) / float64(stats.Total) * 100
			cmd.Printf("  %s %d (%.1f%%)\n", statusBadge(item), count, percentage)
		}
		cmd.Printf("  Total Applications: %d\n", stats.Total)

		// Response rates
		cmd.Printf("\n%s\n", labelStyle.Render("Response Rate"))
		cmd.Printf("  Response Rate: %.1f%%\n", stats.rate(stats.Responded))
		if stats.Interviews > 0 {
			cmd.Printf("  Interview Rate: %.1f%%\n", stats.rate(stats.Interviews))
		}
		if stats.Offers > 0 {
			cmd.Printf("  Offer Rate: %.1f%%\n", stats.rate(stats.Offers))
		}

		// Recent activity
		if len(stats.Recent) > 0 {
			cmd.Printf("\n%s\n", labelStyle.Render("Last 30 Days"))
			for _, a := range stats.Recent {
				cmd.Printf("  %s: %s at %s (%s)\n", a.AppliedDate, a.Position, a.Company, a.Status.Text)
			}
		}
		return nil
	},
}

// Stats summarises the application collection.
type Stats struct {
	Total      int
	ByStatus   []int // catalog order
	Responded  int
	Interviews int
	Offers     int
	Recent     []models.JobApplication
}

func (s Stats) rate(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) / float64(s.Total) * 100
}

// calculateStats derives the summary from the per-status counts. An
// application counts as responded once it has left Applied and No Response.
func calculateStats(apps []models.JobApplication, counts []int, now time.Time) Stats {
	stats := Stats{Total: len(apps), ByStatus: counts}

	for i, item := range status.All() {
		if i >= len(counts) {
			break
		}
		switch item.Text {
		case status.Applied, status.NoResponse:
		case status.InterviewStage:
			stats.Interviews += counts[i]
			stats.Responded += counts[i]
		case status.Offer:
			stats.Offers += counts[i]
			stats.Responded += counts[i]
		default:
			stats.Responded += counts[i]
		}
	}

	cutoff := now.AddDate(0, 0, -30).Format("2006-01-02")
	for _, a := range apps {
		if a.AppliedDate >= cutoff {
			stats.Recent = append(stats.Recent, a)
		}
	}
	applications.SortApplications(stats.Recent, models.SortConfig{Field: models.SortByDate, Order: models.SortDesc})
	return stats
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
