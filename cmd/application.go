package cmd

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/KarimYounus/jobbies/internal/app"
	"github.com/KarimYounus/jobbies/internal/applications"
	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/internal/validation"
	"github.com/KarimYounus/jobbies/pkg/models"
)

var applicationCmd = &cobra.Command{
	Use:     "application",
	Aliases: []string{"app", "apps"},
	Short:   "Manage job applications",
	Long:    "Add, list, view, update and remove job applications",
}

var addApplicationCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new application",
	Example: `  jobbies app add --company "Acme Ltd" --position "Backend Engineer"
  jobbies app add --company Acme --position SRE --salary 55000 --via LinkedIn --cv 3f2a`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		draft := application.Applications.CreateNewApplication(nil)
		if err := applyApplicationFlags(cmd, application, &draft, true); err != nil {
			return err
		}

		result := validation.ValidateApplication(&draft)
		if !result.IsValid {
			return fmt.Errorf("%w: missing %s", app.ErrInvalidArgument, strings.Join(result.MissingRequiredFields, ", "))
		}
		for _, w := range result.Warnings {
			cmd.Println(mutedStyle.Render("Note: " + w))
		}

		added, err := application.Applications.AddApplication(cmd.Context(), draft)
		if err != nil {
			return fmt.Errorf("failed to add application: %w", err)
		}

		cmd.Printf("✓ Application added: %s at %s (ID: %s)\n", added.Position, added.Company, shortID(added.ID))
		return nil
	},
}

var listApplicationsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all applications",
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

		sortCfg, err := sortFromFlags(cmd, application)
		if err != nil {
			return err
		}
		applications.SortApplications(apps, sortCfg)

		cmd.Println(titleStyle.Render("Applications"))
		table := uitable.New()
		table.MaxColWidth = 36
		table.AddRow(labelStyle.Render("ID"), labelStyle.Render("COMPANY"), labelStyle.Render("POSITION"),
			labelStyle.Render("STATUS"), labelStyle.Render("APPLIED"))
		for _, a := range apps {
			table.AddRow(shortID(a.ID), a.Company, a.Position, statusBadge(a.Status), a.AppliedDate)
		}
		cmd.Println(table)
		return nil
	},
}

var showApplicationCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an application in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		a, err := resolveApplication(application, args[0])
		if err != nil {
			return err
		}

		cmd.Println(titleStyle.Render(fmt.Sprintf("%s at %s", a.Position, a.Company)))
		field := func(label, value string) {
			if value != "" {
				cmd.Printf("%s %s\n", labelStyle.Render(label), valueStyle.Render(value))
			}
		}
		field("ID:", a.ID)
		cmd.Printf("%s %s\n", labelStyle.Render("Status:"), statusBadge(a.Status))
		field("Applied:", a.AppliedDate)
		field("Applied via:", a.AppliedVia)
		field("Salary:", a.Salary)
		field("Location:", a.Location)
		field("Link:", a.Link)

		if a.CVID != "" {
			if cv, ok := application.ResolveCV(a); ok {
				field("CV:", fmt.Sprintf("%s (%s)", cv.Name, shortID(cv.ID)))
			} else {
				cmd.Printf("%s %s\n", labelStyle.Render("CV:"), warnStyle.Render("missing ("+shortID(a.CVID)+")"))
			}
		}
		field("Cover letter:", a.CoverLetter)

		if a.Description != "" {
			cmd.Printf("\n%s\n%s\n", labelStyle.Render("Description"), a.Description)
		}
		if a.Notes != "" {
			cmd.Printf("\n%s\n%s\n", labelStyle.Render("Notes"), a.Notes)
		}
		if len(a.Questions) > 0 {
			cmd.Printf("\n%s\n", labelStyle.Render("Questions"))
			for i, q := range a.Questions {
				cmd.Printf("  %d. %s\n     %s\n", i+1, q.Question, mutedStyle.Render(q.Answer))
			}
		}
		return nil
	},
}

var updateApplicationCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of an application",
	Args:  cobra.ExactArgs(1),
	Example: `  jobbies app update 3f2a --status "Interview Stage"
  jobbies app update 3f2a --notes "Second round booked"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		initial, err := resolveApplication(application, args[0])
		if err != nil {
			return err
		}

		edited := initial.Clone()
		if err := applyApplicationFlags(cmd, application, &edited, false); err != nil {
			return err
		}
		if !validation.DetectApplicationChanges(&edited, &initial) {
			cmd.Println("Nothing to update.")
			return nil
		}
		if missing := validation.ValidateRequiredFields(&edited); len(missing) > 0 {
			return fmt.Errorf("%w: missing %s", app.ErrInvalidArgument, strings.Join(missing, ", "))
		}

		if _, err := application.Applications.UpdateApplication(cmd.Context(), edited); err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}
		cmd.Printf("✓ Application updated: %s at %s\n", edited.Position, edited.Company)
		return nil
	},
}

var deleteApplicationCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an application",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		a, err := resolveApplication(application, args[0])
		if err != nil {
			return err
		}
		if !confirm(cmd, application, fmt.Sprintf("Delete %s at %s?", a.Position, a.Company)) {
			cmd.Println("Cancelled.")
			return nil
		}

		if err := application.Applications.DeleteApplication(cmd.Context(), a.ID); err != nil {
			return fmt.Errorf("failed to delete application: %w", err)
		}
		cmd.Printf("✓ Application deleted: %s at %s\n", a.Position, a.Company)
		return nil
	},
}

var questionCmd = &cobra.Command{
	Use:   "question <id>",
	Short: "Add or remove an interview question",
	Args:  cobra.ExactArgs(1),
	Example: `  jobbies app question 3f2a --question "Why us?" --answer "The product"
  jobbies app question 3f2a --remove 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := getApp(cmd)
		if err != nil {
			return err
		}

		a, err := resolveApplication(application, args[0])
		if err != nil {
			return err
		}

		remove, _ := cmd.Flags().GetInt("remove")
		question, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")

		edited := a.Clone()
		switch {
		case remove > 0:
			if remove > len(edited.Questions) {
				return fmt.Errorf("%w: application has %d questions", app.ErrInvalidArgument, len(edited.Questions))
			}
			edited.Questions = append(edited.Questions[:remove-1], edited.Questions[remove:]...)
		case strings.TrimSpace(question) != "":
			edited.Questions = append(edited.Questions, models.ApplicationQuestion{Question: question, Answer: answer})
		default:
			return fmt.Errorf("%w: either --question or --remove is required", app.ErrInvalidArgument)
		}

		if _, err := application.Applications.UpdateApplication(cmd.Context(), edited); err != nil {
			return fmt.Errorf("failed to update questions: %w", err)
		}
		cmd.Printf("✓ %s at %s now has %d questions\n", a.Position, a.Company, len(edited.Questions))
		return nil
	},
}

// applyApplicationFlags copies the set flags onto a. On add every non-empty
// flag applies; on update only flags the user changed do.
func applyApplicationFlags(cmd *cobra.Command, application *app.App, a *models.JobApplication, adding bool) error {
	set := func(name string, dst *string) {
		if !cmd.Flags().Changed(name) {
			return
		}
		v, _ := cmd.Flags().GetString(name)
		if adding && v == "" {
			return
		}
		*dst = strings.TrimSpace(v)
	}

	set("company", &a.Company)
	set("position", &a.Position)
	set("date", &a.AppliedDate)
	set("salary", &a.Salary)
	set("location", &a.Location)
	set("link", &a.Link)
	set("notes", &a.Notes)
	set("description", &a.Description)
	set("via", &a.AppliedVia)
	set("cover-letter", &a.CoverLetter)

	if cmd.Flags().Changed("status") {
		text, _ := cmd.Flags().GetString("status")
		item, ok := lookupStatus(text)
		if !ok {
			return fmt.Errorf("%w: unknown status %q, expected one of %s", app.ErrInvalidArgument, text, strings.Join(status.Texts(), ", "))
		}
		a.Status = item
	}

	if cmd.Flags().Changed("cv") {
		ref, _ := cmd.Flags().GetString("cv")
		if ref == "" {
			a.CVID = ""
		} else {
			cv, err := resolveCV(application, ref)
			if err != nil {
				return err
			}
			a.CVID = cv.ID
		}
	}
	return nil
}

// lookupStatus matches a catalog entry ignoring case.
func lookupStatus(text string) (models.StatusItem, bool) {
	for _, item := range status.All() {
		if strings.EqualFold(item.Text, strings.TrimSpace(text)) {
			return item, true
		}
	}
	return models.StatusItem{}, false
}

func init() {
	rootCmd.AddCommand(applicationCmd)
	applicationCmd.AddCommand(addApplicationCmd)
	applicationCmd.AddCommand(listApplicationsCmd)
	applicationCmd.AddCommand(showApplicationCmd)
	applicationCmd.AddCommand(updateApplicationCmd)
	applicationCmd.AddCommand(deleteApplicationCmd)
	applicationCmd.AddCommand(questionCmd)

	for _, c := range []*cobra.Command{addApplicationCmd, updateApplicationCmd} {
		c.Flags().String("company", "", "Company name")
		c.Flags().String("position", "", "Position title")
		c.Flags().String("status", "", "Status (defaults to the defaultApplicationStatus setting)")
		c.Flags().String("date", "", "Applied date, YYYY-MM-DD (defaults to today)")
		c.Flags().String("salary", "", "Salary, e.g. 50000")
		c.Flags().String("location", "", "Location")
		c.Flags().String("link", "", "Link to the job posting")
		c.Flags().String("notes", "", "Free-form notes")
		c.Flags().String("description", "", "Job description")
		c.Flags().String("via", "", "How you applied, e.g. "+strings.Join(models.ApplicationVia, ", "))
		c.Flags().String("cv", "", "ID (or prefix) of the CV you sent")
		c.Flags().String("cover-letter", "", "Cover letter text")
	}

	listApplicationsCmd.Flags().String("sort", "", "Sort field (date, company, position)")
	listApplicationsCmd.Flags().String("order", "", "Sort order (asc, desc)")

	deleteApplicationCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	questionCmd.Flags().String("question", "", "Question asked")
	questionCmd.Flags().String("answer", "", "Answer given")
	questionCmd.Flags().Int("remove", 0, "Remove the question at this position (1-based)")
}
