package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KarimYounus/jobbies/internal/config"
	"github.com/KarimYounus/jobbies/internal/settings"
	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/internal/storage"
	"github.com/KarimYounus/jobbies/pkg/models"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)

func seed(t *testing.T, store *storage.MemoryStore, bucket string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	store.Put(bucket, data)
}

func applied(id string, days int) models.JobApplication {
	s, _ := status.Lookup(status.Applied)
	return models.JobApplication{
		ID: id, Company: "Acme " + id, Position: "Dev", Status: s,
		AppliedDate: fixedNow.AddDate(0, 0, -days).Format("2006-01-02"),
	}
}

func newTestApp(t *testing.T, store *storage.MemoryStore) *App {
	t.Helper()
	a, err := New(context.Background(), &config.Config{StorageBackend: config.BackendMemory},
		WithStore(store), WithLogger(zerolog.Nop()), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSettingsAppliedBeforeApplicationsLoad(t *testing.T) {
	store := storage.NewMemoryStore()
	seed(t, store, storage.SettingsBucket, map[string]any{
		"autoUpdateInterval":       10,
		"defaultApplicationStatus": status.InterviewStage,
	})
	seed(t, store, storage.ApplicationsBucket, []models.JobApplication{applied("a", 15), applied("b", 5)})

	a := newTestApp(t, store)

	got, _ := a.Applications.GetApplicationByID("a")
	assert.Equal(t, status.NoResponse, got.Status.Text)
	got, _ = a.Applications.GetApplicationByID("b")
	assert.Equal(t, status.Applied, got.Status.Text)

	assert.Equal(t, status.InterviewStage, a.Applications.CreateNewApplication(nil).Status.Text)
}

func TestSettingsChangeReachesApplications(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seed(t, store, storage.ApplicationsBucket, []models.JobApplication{applied("a", 20)})
	a := newTestApp(t, store)

	got, _ := a.Applications.GetApplicationByID("a")
	require.Equal(t, status.Applied, got.Status.Text)

	_, err := a.Settings.UpdateSetting(ctx, settings.KeyAutoUpdateInterval, 14)
	require.NoError(t, err)
	got, _ = a.Applications.GetApplicationByID("a")
	assert.Equal(t, status.NoResponse, got.Status.Text)

	_, err = a.Settings.UpdateSetting(ctx, settings.KeyDefaultApplicationStatus, status.Offer)
	require.NoError(t, err)
	assert.Equal(t, status.Offer, a.Applications.DefaultStatus().Text)

	_, err = a.Settings.UpdateSetting(ctx, settings.KeyAutoUpdateEnabled, false)
	require.NoError(t, err)
	enabled, days := a.Applications.AutoUpdateConfig()
	assert.False(t, enabled)
	assert.Equal(t, 14, days)

	_, err = a.Settings.UpdateSetting(ctx, settings.KeyDefaultSortPreference, models.SortPreference{Field: "company", Order: models.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, models.SortConfig{Field: models.SortByCompany, Order: models.SortAsc}, a.DefaultSort())
}

func TestDeleteCVPolicy(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	app := applied("a", 1)
	app.CVID = "cv-1"
	seed(t, store, storage.ApplicationsBucket, []models.JobApplication{app})
	seed(t, store, storage.CVBucket, []models.CurriculumVitae{{ID: "cv-1", Name: "Main"}, {ID: "cv-2", Name: "Spare"}})
	a := newTestApp(t, store)

	cv, ok := a.ResolveCV(app)
	require.True(t, ok)
	assert.Equal(t, "Main", cv.Name)

	err := a.DeleteCV(ctx, "cv-1", false)
	assert.ErrorIs(t, err, ErrCVInUse)
	_, ok = a.CVs.GetCVByID("cv-1")
	assert.True(t, ok)

	require.NoError(t, a.DeleteCV(ctx, "cv-2", false))
	require.NoError(t, a.DeleteCV(ctx, "cv-1", true))
	_, ok = a.ResolveCV(app)
	assert.False(t, ok, "reference is orphaned")

	assert.ErrorIs(t, a.DeleteCV(ctx, "", false), ErrInvalidArgument)
}

func TestDailyBackup(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seed(t, store, storage.ApplicationsBucket, []models.JobApplication{applied("a", 1)})
	a := newTestApp(t, store)

	assert.Equal(t, []string{"backups/job-applications.json.2024-06-15"}, store.Backups(storage.ApplicationsBucket))
	assert.Empty(t, store.Backups(storage.CVBucket))
	marker, ok := store.Raw(backupMarker)
	require.True(t, ok)
	assert.Equal(t, "2024-06-15", string(marker))

	store.Put(storage.ApplicationsBucket, []byte(`[]`))
	require.NoError(t, a.DailyBackup(ctx))
	raw, _ := store.Raw("backups/job-applications.json.2024-06-15")
	assert.NotEqual(t, `[]`, string(raw), "second run on the same day keeps the first snapshot")
}

func TestDailyBackupDisabled(t *testing.T) {
	store := storage.NewMemoryStore()
	seed(t, store, storage.SettingsBucket, map[string]any{"dataBackupEnabled": false})
	seed(t, store, storage.ApplicationsBucket, []models.JobApplication{applied("a", 1)})
	newTestApp(t, store)
	assert.Empty(t, store.Backups(storage.ApplicationsBucket))
}

func TestStartupSurvivesBrokenBuckets(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Put(storage.SettingsBucket, []byte(`{`))
	store.FailLoad(storage.CVBucket, errors.New("bridge down"))
	store.Put(storage.ApplicationsBucket, []byte(`[`))

	a := newTestApp(t, store)
	assert.Equal(t, settings.Defaults(), a.Settings.GetSettings())
	assert.True(t, a.Applications.Initialized())
	assert.True(t, a.CVs.Initialized())
	assert.Empty(t, a.Applications.GetAllApplications())
}

func TestNewWithFileBackend(t *testing.T) {
	dir := t.TempDir()
	a, err := New(context.Background(), &config.Config{DataDir: dir, StorageBackend: config.BackendFile, LogLevel: "debug"})
	require.NoError(t, err)

	_, err = a.Applications.AddApplication(context.Background(), a.Applications.CreateNewApplication(&models.JobApplication{Company: "Acme", Position: "Dev"}))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.FileExists(t, filepath.Join(dir, "jobbies.log"))
	assert.FileExists(t, filepath.Join(dir, storage.ApplicationsBucket))
	assert.DirExists(t, filepath.Join(dir, "cv-assets", "images"))
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetAppFromContext(ctx))
	a := &App{Logger: zerolog.New(io.Discard).Level(zerolog.WarnLevel)}
	ctx = SetAppInContext(ctx, a)
	assert.Same(t, a, GetAppFromContext(ctx))
	assert.Equal(t, zerolog.WarnLevel, zerolog.Ctx(ctx).GetLevel())
}
