package applications

import (
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/pkg/models"
)

// StatusGroup is one catalog status and the applications currently in it.
type StatusGroup struct {
	Status       models.StatusItem
	Applications []models.JobApplication
}

// rebuildGroups runs under the collection lock after every change.
func (h *Handler) rebuildGroups(items []models.JobApplication) {
	catalog := status.All()
	groups := make([][]models.JobApplication, len(catalog))
	for i := range groups {
		groups[i] = []models.JobApplication{}
	}

	for _, app := range items {
		idx := slices.IndexFunc(catalog, func(s models.StatusItem) bool { return s.Text == app.Status.Text })
		if idx < 0 {
			h.logger.Warn().
				Str("id", app.ID).
				Str("status", app.Status.Text).
				Msg("application has unknown status, left out of grouped view")
			continue
		}
		groups[idx] = append(groups[idx], app)
	}

	h.groupsMu.Lock()
	h.groups = groups
	h.groupsMu.Unlock()
}

// GetApplicationsByStatus returns every catalog status in catalog order with
// copies of its applications. Empty statuses are included. When sortConfig is
// nil each group keeps insertion order.
func (h *Handler) GetApplicationsByStatus(sortConfig *models.SortConfig) []StatusGroup {
	catalog := status.All()

	h.groupsMu.RLock()
	out := make([]StatusGroup, len(catalog))
	for i, s := range catalog {
		apps := make([]models.JobApplication, 0, len(h.groups[i]))
		for _, app := range h.groups[i] {
			apps = append(apps, app.Clone())
		}
		out[i] = StatusGroup{Status: s, Applications: apps}
	}
	h.groupsMu.RUnlock()

	if sortConfig != nil {
		for i := range out {
			SortApplications(out[i].Applications, *sortConfig)
		}
	}
	return out
}

// SortApplications orders apps in place. Ties keep their relative order.
// Company and position use British English collation, ignoring case.
func SortApplications(apps []models.JobApplication, cfg models.SortConfig) {
	var compare func(a, b models.JobApplication) int
	switch cfg.Field {
	case models.SortByCompany, models.SortByPosition:
		col := collate.New(language.BritishEnglish, collate.IgnoreCase)
		key := func(a models.JobApplication) string { return a.Company }
		if cfg.Field == models.SortByPosition {
			key = func(a models.JobApplication) string { return a.Position }
		}
		compare = func(a, b models.JobApplication) int { return col.CompareString(key(a), key(b)) }
	default:
		compare = func(a, b models.JobApplication) int {
			return parseDate(a.AppliedDate).Compare(parseDate(b.AppliedDate))
		}
	}

	if cfg.Order == models.SortDesc {
		asc := compare
		compare = func(a, b models.JobApplication) int { return asc(b, a) }
	}
	slices.SortStableFunc(apps, compare)
}

// parseDate accepts YYYY-MM-DD and RFC 3339. Unparseable dates sort first.
func parseDate(s string) time.Time {
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// Counts returns the number of applications per catalog status, in catalog order.
func (h *Handler) Counts() []int {
	h.groupsMu.RLock()
	defer h.groupsMu.RUnlock()
	counts := make([]int, len(h.groups))
	for i, g := range h.groups {
		counts[i] = len(g)
	}
	return counts
}
