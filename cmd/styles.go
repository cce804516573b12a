package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/pkg/models"
)

type palette struct {
	title, label, value, muted, warn string
}

var palettes = map[string]palette{
	models.ThemeLight: {title: "12", label: "10", value: "7", muted: "8", warn: "9"},
	models.ThemeDark:  {title: "14", label: "11", value: "15", muted: "245", warn: "203"},
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	valueStyle = lipgloss.NewStyle()

	mutedStyle = lipgloss.NewStyle()

	warnStyle = lipgloss.NewStyle().
			Bold(true)
)

func init() {
	applyTheme(models.ThemeLight)
}

// applyTheme recolours the shared styles for the given settings theme.
func applyTheme(theme string) {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[models.ThemeLight]
	}
	titleStyle = titleStyle.Foreground(lipgloss.Color(p.title))
	labelStyle = labelStyle.Foreground(lipgloss.Color(p.label))
	valueStyle = valueStyle.Foreground(lipgloss.Color(p.value))
	mutedStyle = mutedStyle.Foreground(lipgloss.Color(p.muted))
	warnStyle = warnStyle.Foreground(lipgloss.Color(p.warn))
}

// statusBadge renders a status in its catalog colour.
func statusBadge(item models.StatusItem) string {
	if _, err := status.Color(item); err != nil {
		return item.Text
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(item.Color)).
		Foreground(lipgloss.Color(status.Foreground(item))).
		Padding(0, 1).
		Render(item.Text)
}
