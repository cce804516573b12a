package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KarimYounus/jobbies/internal/app"
	"github.com/KarimYounus/jobbies/pkg/models"
)

// shortID trims a uuid to its first block for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveApplication finds an application by id or unique id prefix.
func resolveApplication(application *app.App, ref string) (models.JobApplication, error) {
	if a, ok := application.Applications.GetApplicationByID(ref); ok {
		return a, nil
	}
	var matches []models.JobApplication
	for _, a := range application.Applications.GetAllApplications() {
		if strings.HasPrefix(a.ID, ref) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return models.JobApplication{}, fmt.Errorf("%w: no application matches %q", app.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	}
	return models.JobApplication{}, fmt.Errorf("%w: %q matches %d applications", app.ErrInvalidArgument, ref, len(matches))
}

// resolveCV finds a CV by id or unique id prefix.
func resolveCV(application *app.App, ref string) (models.CurriculumVitae, error) {
	if cv, ok := application.CVs.GetCVByID(ref); ok {
		return cv, nil
	}
	var matches []models.CurriculumVitae
	for _, cv := range application.CVs.GetAllCVs() {
		if strings.HasPrefix(cv.ID, ref) {
			matches = append(matches, cv)
		}
	}
	switch len(matches) {
	case 0:
		return models.CurriculumVitae{}, fmt.Errorf("%w: no CV matches %q", app.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	}
	return models.CurriculumVitae{}, fmt.Errorf("%w: %q matches %d CVs", app.ErrInvalidArgument, ref, len(matches))
}

// confirm asks a yes/no question when the confirmDeleteActions setting is on.
// --yes skips the prompt.
func confirm(cmd *cobra.Command, application *app.App, question string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	if !application.Settings.GetSettings().ConfirmDeleteActions {
		return true
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
