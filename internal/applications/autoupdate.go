package applications

import (
	"context"
	"strings"

	"github.com/KarimYounus/jobbies/internal/events"
	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/pkg/models"
)

// Statuses containing one of these (case-insensitive) are still waiting on the employer.
var pendingStatuses = []string{"applied", "assessment stage"}

// Transition identifies an application moved by the sweep.
type Transition struct {
	ID       string `json:"id"`
	Company  string `json:"company"`
	Position string `json:"position"`
}

// AutoUpdateResult is the payload of EventAutoUpdated.
type AutoUpdateResult struct {
	Count        int          `json:"count"`
	Applications []Transition `json:"applications"`
}

// RunAutoUpdate moves pending applications older than the configured interval
// to "No Response". Nothing happens when auto-update is disabled. The
// transitions are kept in memory even when saving them fails; the save error
// is returned.
func (h *Handler) RunAutoUpdate(ctx context.Context) (AutoUpdateResult, error) {
	h.cfgMu.RLock()
	enabled, interval := h.autoUpdateEnabled, h.autoUpdateInterval
	h.cfgMu.RUnlock()

	var result AutoUpdateResult
	if !enabled {
		return result, nil
	}

	noResponse, _ := status.Lookup(status.NoResponse)
	cutoff := h.now().AddDate(0, 0, -interval)

	_, err := h.items.Transform(ctx, func(items []models.JobApplication) bool {
		for i := range items {
			app := &items[i]
			if !isPending(app.Status.Text) {
				continue
			}
			applied := parseDate(app.AppliedDate)
			if applied.IsZero() || !applied.Before(cutoff) {
				continue
			}
			app.Status = noResponse
			result.Applications = append(result.Applications, Transition{
				ID:       app.ID,
				Company:  app.Company,
				Position: app.Position,
			})
		}
		result.Count = len(result.Applications)
		return result.Count > 0
	})

	if result.Count > 0 {
		h.logger.Info().Int("count", result.Count).Int("interval_days", interval).Msg("applications auto-updated to No Response")
		h.Emit(events.Event{Kind: EventAutoUpdated, Payload: result})
	}
	return result, err
}

// TriggerAutoUpdateFromSettings runs the sweep on a best-effort basis: a
// failure to persist is logged and not returned.
func (h *Handler) TriggerAutoUpdateFromSettings(ctx context.Context) AutoUpdateResult {
	result, err := h.RunAutoUpdate(ctx)
	if err != nil {
		h.logger.Error().Err(err).Int("count", result.Count).Msg("failed to save auto-updated applications")
	}
	return result
}

func isPending(text string) bool {
	text = strings.ToLower(text)
	for _, s := range pendingStatuses {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
