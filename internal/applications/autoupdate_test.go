package applications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/internal/storage"
	"github.com/KarimYounus/jobbies/pkg/models"
)

func sweepSeed(t *testing.T) []models.JobApplication {
	return []models.JobApplication{
		{ID: "stale", Company: "Acme", Position: "Dev", Status: mustStatus(t, status.Applied), AppliedDate: daysAgo(31)},
		{ID: "fresh", Company: "Beta", Position: "Dev", Status: mustStatus(t, status.Applied), AppliedDate: daysAgo(29)},
		{ID: "final", Company: "Gamma", Position: "Dev", Status: mustStatus(t, status.Rejected), AppliedDate: daysAgo(100)},
		{ID: "assessment", Company: "Delta", Position: "QA", Status: mustStatus(t, status.AssessmentStage), AppliedDate: daysAgo(45)},
		{ID: "interview", Company: "Echo", Position: "QA", Status: mustStatus(t, status.InterviewStage), AppliedDate: daysAgo(45)},
		{ID: "undated", Company: "Foxtrot", Position: "QA", Status: mustStatus(t, status.Applied), AppliedDate: "someday"},
	}
}

func statusOf(t *testing.T, h *Handler, id string) string {
	t.Helper()
	app, ok := h.GetApplicationByID(id)
	require.True(t, ok, id)
	return app.Status.Text
}

func TestInitializeRunsSweep(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	h := newHandler(t, store, sweepSeed(t)...)
	autoUpdated := record(h, EventAutoUpdated)

	require.NoError(t, h.Initialize(ctx))

	assert.Equal(t, status.NoResponse, statusOf(t, h, "stale"))
	assert.Equal(t, status.Applied, statusOf(t, h, "fresh"))
	assert.Equal(t, status.Rejected, statusOf(t, h, "final"))
	assert.Equal(t, status.NoResponse, statusOf(t, h, "assessment"))
	assert.Equal(t, status.InterviewStage, statusOf(t, h, "interview"))
	assert.Equal(t, status.Applied, statusOf(t, h, "undated"))

	require.Len(t, *autoUpdated, 1)
	result := (*autoUpdated)[0].Payload.(AutoUpdateResult)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, []Transition{
		{ID: "stale", Company: "Acme", Position: "Dev"},
		{ID: "assessment", Company: "Delta", Position: "QA"},
	}, result.Applications)

	raw, _ := store.Raw(storage.ApplicationsBucket)
	var persisted []models.JobApplication
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, status.NoResponse, persisted[0].Status.Text)

	groups := h.GetApplicationsByStatus(nil)
	assert.Len(t, groups[4].Applications, 2)
}

func TestSweepDisabled(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	h := newHandler(t, store, sweepSeed(t)...)
	h.UpdateAutoUpdateConfig(false, 30)
	autoUpdated := record(h, EventAutoUpdated)

	require.NoError(t, h.Initialize(ctx))
	assert.Equal(t, status.Applied, statusOf(t, h, "stale"))
	assert.Empty(t, *autoUpdated)
	assert.Zero(t, store.Saves(storage.ApplicationsBucket))
}

func TestSweepHonoursInterval(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, storage.NewMemoryStore(), sweepSeed(t)...)
	h.UpdateAutoUpdateConfig(false, 30)
	require.NoError(t, h.Initialize(ctx))

	h.UpdateAutoUpdateConfig(true, 60)
	result := h.TriggerAutoUpdateFromSettings(ctx)
	assert.Zero(t, result.Count)

	h.UpdateAutoUpdateConfig(true, 10)
	result = h.TriggerAutoUpdateFromSettings(ctx)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, status.NoResponse, statusOf(t, h, "fresh"))

	result = h.TriggerAutoUpdateFromSettings(ctx)
	assert.Zero(t, result.Count, "already moved")
}

func TestUpdateAutoUpdateConfigClamps(t *testing.T) {
	h := newHandler(t, storage.NewMemoryStore())

	h.UpdateAutoUpdateConfig(true, 9999)
	_, days := h.AutoUpdateConfig()
	assert.Equal(t, MaxAutoUpdateInterval, days)

	h.UpdateAutoUpdateConfig(true, 0)
	_, days = h.AutoUpdateConfig()
	assert.Equal(t, MinAutoUpdateInterval, days)
}

func TestSweepSaveFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	h := newHandler(t, store, sweepSeed(t)...)
	store.FailSave(storage.ApplicationsBucket, errors.New("read-only"))
	autoUpdated := record(h, EventAutoUpdated)

	require.NoError(t, h.Initialize(ctx), "initialize succeeds when only the sweep save fails")
	assert.Equal(t, status.NoResponse, statusOf(t, h, "stale"))
	assert.Len(t, *autoUpdated, 1)

	h.UpdateAutoUpdateConfig(true, 1)
	_, err := h.RunAutoUpdate(ctx)
	assert.Error(t, err, "manual runs report the save failure")
}
