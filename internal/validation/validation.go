// Package validation checks applications before they are saved and detects
// unsaved edits.
package validation

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/KarimYounus/jobbies/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("label")
	})
	return v
}

// required holds the trimmed fields every application must have.
type required struct {
	Company  string `validate:"required" label:"Company Name"`
	Position string `validate:"required" label:"Position Title"`
}

// ValidateRequiredFields returns the display names of required fields that are
// empty or whitespace. A nil application has no missing fields.
func ValidateRequiredFields(app *models.JobApplication) []string {
	missing := []string{}
	if app == nil {
		return missing
	}

	err := validate.Struct(required{
		Company:  strings.TrimSpace(app.Company),
		Position: strings.TrimSpace(app.Position),
	})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			missing = append(missing, fe.Field())
		}
	}
	return missing
}

// DetectApplicationChanges reports whether current differs from initial in any
// editable field. Status is compared by text and the CV by id. Returns false
// if either is nil.
func DetectApplicationChanges(current, initial *models.JobApplication) bool {
	if current == nil || initial == nil {
		return false
	}
	return current.Company != initial.Company ||
		current.Position != initial.Position ||
		current.Description != initial.Description ||
		current.Salary != initial.Salary ||
		current.Location != initial.Location ||
		current.Notes != initial.Notes ||
		current.Link != initial.Link ||
		current.AppliedVia != initial.AppliedVia ||
		current.CoverLetter != initial.CoverLetter ||
		current.Status.Text != initial.Status.Text ||
		current.CVID != initial.CVID ||
		!slices.Equal(current.Questions, initial.Questions)
}

// Result is the outcome of ValidateApplication.
type Result struct {
	IsValid               bool
	MissingRequiredFields []string
	Warnings              []string
}

// ValidateApplication combines the required field check with warnings for
// commonly missed optional fields.
func ValidateApplication(app *models.JobApplication) Result {
	missing := ValidateRequiredFields(app)
	warnings := []string{}

	if app != nil {
		if strings.TrimSpace(app.Salary) == "" {
			warnings = append(warnings, "Salary information is missing")
		}
		if strings.TrimSpace(app.Location) == "" {
			warnings = append(warnings, "Location information is missing")
		}
		if strings.TrimSpace(app.Link) == "" {
			warnings = append(warnings, "Job posting link is missing")
		}
	}

	return Result{
		IsValid:               len(missing) == 0,
		MissingRequiredFields: missing,
		Warnings:              warnings,
	}
}
