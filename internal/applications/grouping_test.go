package applications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/internal/storage"
	"github.com/KarimYounus/jobbies/pkg/models"
)

func TestGetApplicationsByStatus(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, storage.NewMemoryStore(),
		models.JobApplication{ID: "offer", Status: mustStatus(t, status.Offer), AppliedDate: daysAgo(3)},
		models.JobApplication{ID: "ghost", Status: models.StatusItem{Text: "Ghosted", Color: "#000"}, AppliedDate: daysAgo(3)},
		models.JobApplication{ID: "applied", Status: mustStatus(t, status.Applied), AppliedDate: daysAgo(3)},
		models.JobApplication{ID: "lowercase", Status: models.StatusItem{Text: "offer"}, AppliedDate: daysAgo(3)},
	)
	require.NoError(t, h.Initialize(ctx))

	groups := h.GetApplicationsByStatus(nil)
	require.Len(t, groups, len(status.All()))
	for i, g := range groups {
		assert.Equal(t, status.All()[i], g.Status, "catalog order")
		for _, app := range g.Applications {
			assert.Equal(t, g.Status.Text, app.Status.Text)
		}
	}

	placed := map[string]int{}
	for _, g := range groups {
		for _, app := range g.Applications {
			placed[app.ID]++
		}
	}
	assert.Equal(t, map[string]int{"offer": 1, "applied": 1}, placed, "unknown statuses are left out")
	assert.Len(t, h.GetAllApplications(), 4, "but stay in the collection")

	assert.Equal(t, []int{1, 0, 0, 1, 0, 0}, h.Counts())
}

func TestGetApplicationsByStatusIsDefensive(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, storage.NewMemoryStore(),
		models.JobApplication{ID: "a", Company: "Acme", Status: mustStatus(t, status.Applied), AppliedDate: daysAgo(1)},
	)
	require.NoError(t, h.Initialize(ctx))

	groups := h.GetApplicationsByStatus(nil)
	groups[0].Applications[0].Company = "mutated"
	groups[0].Applications = nil

	again := h.GetApplicationsByStatus(nil)
	require.Len(t, again[0].Applications, 1)
	assert.Equal(t, "Acme", again[0].Applications[0].Company)
}

func TestGroupsFollowMutations(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, storage.NewMemoryStore())
	require.NoError(t, h.Initialize(ctx))

	app, err := h.AddApplication(ctx, h.CreateNewApplication(&models.JobApplication{Company: "Acme"}))
	require.NoError(t, err)
	assert.Len(t, h.GetApplicationsByStatus(nil)[0].Applications, 1)

	app.Status = mustStatus(t, status.Rejected)
	_, err = h.UpdateApplication(ctx, app)
	require.NoError(t, err)
	groups := h.GetApplicationsByStatus(nil)
	assert.Empty(t, groups[0].Applications)
	assert.Len(t, groups[5].Applications, 1)

	require.NoError(t, h.DeleteApplication(ctx, app.ID))
	assert.Empty(t, h.GetApplicationsByStatus(nil)[5].Applications)
}

func TestSortApplications(t *testing.T) {
	apps := func() []models.JobApplication {
		return []models.JobApplication{
			{ID: "1", Company: "beta", Position: "Tester", AppliedDate: "2024-03-01"},
			{ID: "2", Company: "Alpha", Position: "developer", AppliedDate: "2024-05-01"},
			{ID: "3", Company: "Ćorp", Position: "Analyst", AppliedDate: "2024-01-01"},
			{ID: "4", Company: "alpha", Position: "Zookeeper", AppliedDate: "2024-05-01"},
		}
	}
	ids := func(apps []models.JobApplication) []string {
		out := make([]string, len(apps))
		for i, a := range apps {
			out[i] = a.ID
		}
		return out
	}

	tests := []struct {
		name string
		cfg  models.SortConfig
		want []string
	}{
		{"date desc", models.SortConfig{Field: models.SortByDate, Order: models.SortDesc}, []string{"2", "4", "1", "3"}},
		{"date asc", models.SortConfig{Field: models.SortByDate, Order: models.SortAsc}, []string{"3", "1", "2", "4"}},
		{"company asc", models.SortConfig{Field: models.SortByCompany, Order: models.SortAsc}, []string{"2", "4", "1", "3"}},
		{"position desc", models.SortConfig{Field: models.SortByPosition, Order: models.SortDesc}, []string{"4", "1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apps()
			SortApplications(got, tt.cfg)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestGetApplicationsByStatusSorted(t *testing.T) {
	ctx := context.Background()
	applied := mustStatus(t, status.Applied)
	h := newHandler(t, storage.NewMemoryStore(),
		models.JobApplication{ID: "old", Status: applied, AppliedDate: daysAgo(10)},
		models.JobApplication{ID: "new", Status: applied, AppliedDate: daysAgo(1)},
	)
	require.NoError(t, h.Initialize(ctx))

	cfg := models.SortPreference{Field: "appliedDate", Order: models.SortDesc}.SortConfig()
	groups := h.GetApplicationsByStatus(&cfg)
	require.Len(t, groups[0].Applications, 2)
	assert.Equal(t, "new", groups[0].Applications[0].ID)
	assert.Equal(t, "old", h.GetApplicationsByStatus(nil)[0].Applications[0].ID)
}
