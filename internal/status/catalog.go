// Package status holds the fixed, ordered catalog of application states.
package status

import (
	"fmt"

	"github.com/KarimYounus/jobbies/pkg/models"
	"github.com/lucasb-eyer/go-colorful"
)

// Catalog entry texts referenced by code.
const (
	Applied         = "Applied"
	AssessmentStage = "Assessment Stage"
	InterviewStage  = "Interview Stage"
	Offer           = "Offer"
	NoResponse      = "No Response"
	Rejected        = "Rejected"
)

var catalog = []models.StatusItem{
	{Text: Applied, Color: "#184e77"},
	{Text: AssessmentStage, Color: "#168aad"},
	{Text: InterviewStage, Color: "#76c893"},
	{Text: Offer, Color: "#abff4f"},
	{Text: NoResponse, Color: "#F05D23"},
	{Text: Rejected, Color: "#ef233c"},
}

// All returns the catalog in display order.
func All() []models.StatusItem {
	return append([]models.StatusItem(nil), catalog...)
}

// Lookup finds the entry whose text matches exactly.
func Lookup(text string) (models.StatusItem, bool) {
	for _, item := range catalog {
		if item.Text == text {
			return item, true
		}
	}
	return models.StatusItem{}, false
}

// Exists reports whether text names a catalog entry.
func Exists(text string) bool {
	_, ok := Lookup(text)
	return ok
}

// Default is the status given to new applications when nothing else is configured.
func Default() models.StatusItem {
	return catalog[0]
}

// Texts returns the entry identifiers in catalog order.
func Texts() []string {
	texts := make([]string, len(catalog))
	for i, item := range catalog {
		texts[i] = item.Text
	}
	return texts
}

// Color parses the entry colour.
func Color(item models.StatusItem) (colorful.Color, error) {
	c, err := colorful.Hex(item.Color)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("status %q: invalid color %q: %w", item.Text, item.Color, err)
	}
	return c, nil
}

// Foreground picks black or white text, whichever reads better on the entry colour.
func Foreground(item models.StatusItem) string {
	c, err := Color(item)
	if err != nil {
		return "#ffffff"
	}
	l, _, _ := c.Lab()
	if l > 0.6 {
		return "#000000"
	}
	return "#ffffff"
}
