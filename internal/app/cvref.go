package app

import (
	"context"
	"fmt"

	"github.com/KarimYounus/jobbies/pkg/models"
)

// ApplicationsUsingCV returns the applications that reference the CV.
func (a *App) ApplicationsUsingCV(cvID string) []models.JobApplication {
	var out []models.JobApplication
	for _, app := range a.Applications.GetAllApplications() {
		if app.CVID == cvID {
			out = append(out, app)
		}
	}
	return out
}

// ResolveCV looks up the CV an application references. ok is false when the
// application has no CV or the reference is orphaned.
func (a *App) ResolveCV(app models.JobApplication) (models.CurriculumVitae, bool) {
	if app.CVID == "" {
		return models.CurriculumVitae{}, false
	}
	return a.CVs.GetCVByID(app.CVID)
}

// DeleteCV removes a CV. A CV still referenced by applications is only
// deleted when force is set; the references are then left orphaned.
func (a *App) DeleteCV(ctx context.Context, cvID string, force bool) error {
	if cvID == "" {
		return fmt.Errorf("%w: empty CV id", ErrInvalidArgument)
	}
	users := a.ApplicationsUsingCV(cvID)
	if len(users) > 0 && !force {
		return fmt.Errorf("%w: %s is referenced by %d application(s)", ErrCVInUse, cvID, len(users))
	}
	if err := a.CVs.DeleteCV(ctx, cvID); err != nil {
		return err
	}
	if len(users) > 0 {
		a.Logger.Warn().Str("cv", cvID).Int("applications", len(users)).Msg("deleted CV still referenced, references orphaned")
	}
	return nil
}
