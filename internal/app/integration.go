package app

import (
	"context"

	"github.com/KarimYounus/jobbies/internal/events"
	"github.com/KarimYounus/jobbies/internal/settings"
	"github.com/KarimYounus/jobbies/pkg/models"
)

// integrateSettings pushes the current settings into the application handler
// and keeps pushing them whenever they change. A change re-runs the sweep,
// since a shorter interval or re-enabling may make applications stale.
func (a *App) integrateSettings(ctx context.Context) {
	a.applySettings(a.Settings.GetSettings())

	unsub := a.Settings.Subscribe(settings.EventUpdated, func(e events.Event) {
		change, ok := e.Payload.(settings.Change)
		if !ok {
			return
		}
		a.applySettings(change.New)
		if a.Applications.Initialized() {
			a.Applications.TriggerAutoUpdateFromSettings(ctx)
		}
	})
	a.unsubscribe = append(a.unsubscribe, unsub)
}

func (a *App) applySettings(s models.SettingsConfig) {
	a.Applications.UpdateAutoUpdateConfig(s.AutoUpdateEnabled, s.AutoUpdateInterval)
	a.Applications.UpdateDefaultStatus(s.DefaultApplicationStatus)
}

// DefaultSort returns the sort configured in settings.
func (a *App) DefaultSort() models.SortConfig {
	return a.Settings.GetSettings().DefaultSortPreference.SortConfig()
}
