package cvs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KarimYounus/jobbies/internal/collection"
	"github.com/KarimYounus/jobbies/internal/events"
	"github.com/KarimYounus/jobbies/internal/storage"
	"github.com/KarimYounus/jobbies/pkg/models"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newHandler(t *testing.T, store storage.Service) *Handler {
	t.Helper()
	h := NewHandler(store, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	return h
}

func record(h *Handler, kind events.Kind) *[]events.Event {
	var got []events.Event
	h.Subscribe(kind, func(e events.Event) { got = append(got, e) })
	return &got
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("creates asset dirs on disk", func(t *testing.T) {
		disk, err := storage.NewDiskStore(t.TempDir())
		require.NoError(t, err)
		h := newHandler(t, disk)
		loaded := record(h, EventLoaded)
		require.NoError(t, h.Initialize(ctx))
		require.NoError(t, h.Initialize(ctx))
		assert.DirExists(t, disk.BasePath()+"/cv-assets/images")
		assert.DirExists(t, disk.BasePath()+"/cv-assets/pdfs")
		assert.Len(t, *loaded, 1)
	})

	t.Run("loads existing list", func(t *testing.T) {
		store := storage.NewMemoryStore()
		store.Put(storage.CVBucket, []byte(`[{"id":"cv-1","name":"Main","imagePreviewPath":"cv-assets/images/a.png"}]`))
		h := newHandler(t, store)
		require.NoError(t, h.Initialize(ctx))
		cv, ok := h.GetCVByID("cv-1")
		require.True(t, ok)
		assert.Equal(t, "Main", cv.Name)
	})

	t.Run("malformed list falls back", func(t *testing.T) {
		store := storage.NewMemoryStore()
		store.Put(storage.CVBucket, []byte(`nope`))
		h := newHandler(t, store)
		dataErrors := record(h, EventDataError)
		assert.Error(t, h.Initialize(ctx))
		assert.True(t, h.Initialized())
		assert.Empty(t, h.GetAllCVs())
		assert.Len(t, *dataErrors, 1)
		assert.Len(t, store.Backups(storage.CVBucket), 1)

		_, err := h.AddCV(ctx, models.CurriculumVitae{ID: "cv-2", Name: "After"})
		require.NoError(t, err, "backed up list may be replaced")
	})

	t.Run("unavailable list refuses writes", func(t *testing.T) {
		store := storage.NewMemoryStore()
		stored := `[{"id":"cv-1","name":"Main","imagePreviewPath":"cv-assets/images/a.png"}]`
		store.Put(storage.CVBucket, []byte(stored))
		store.FailLoad(storage.CVBucket, errors.New("permission denied"))
		h := newHandler(t, store)

		require.Error(t, h.Initialize(ctx))
		store.FailLoad(storage.CVBucket, nil)

		_, err := h.AddCV(ctx, models.CurriculumVitae{ID: "cv-2", Name: "New"})
		assert.ErrorIs(t, err, collection.ErrNotLoaded)
		raw, _ := store.Raw(storage.CVBucket)
		assert.JSONEq(t, stored, string(raw))
		assert.Empty(t, store.Backups(storage.CVBucket))
	})

	t.Run("subscribers may query the handler", func(t *testing.T) {
		h := newHandler(t, storage.NewMemoryStore())
		var seen bool
		h.Subscribe(EventLoaded, func(events.Event) { seen = h.Initialized() })

		done := make(chan error, 1)
		go func() { done <- h.Initialize(ctx) }()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Initialize did not return")
		}
		assert.True(t, seen)
	})
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	h := newHandler(t, store)
	require.NoError(t, h.Initialize(ctx))
	added := record(h, EventAdded)
	updated := record(h, EventUpdated)
	deleted := record(h, EventDeleted)

	cv, err := h.AddCV(ctx, models.CurriculumVitae{Name: "Backend"})
	require.NoError(t, err)
	assert.NotEmpty(t, cv.ID)
	assert.Len(t, *added, 1)

	_, err = h.AddCV(ctx, cv)
	assert.ErrorIs(t, err, collection.ErrDuplicateID)
	assert.Len(t, h.GetAllCVs(), 1)

	cv.Notes = "tailored for platform roles"
	_, err = h.UpdateCV(ctx, cv)
	require.NoError(t, err)
	got, _ := h.GetCVByID(cv.ID)
	assert.Equal(t, cv, got)
	assert.Len(t, *updated, 1)

	store.FailSave(storage.CVBucket, errors.New("disk full"))
	_, err = h.UpdateCV(ctx, models.CurriculumVitae{ID: cv.ID, Name: "lost"})
	assert.Error(t, err)
	got, _ = h.GetCVByID(cv.ID)
	assert.Equal(t, cv, got)
	assert.Error(t, h.DeleteCV(ctx, cv.ID))
	assert.Len(t, h.GetAllCVs(), 1)

	store.FailSave(storage.CVBucket, nil)
	require.NoError(t, h.DeleteCV(ctx, cv.ID))
	assert.Empty(t, h.GetAllCVs())
	assert.Len(t, *deleted, 1)
	assert.ErrorIs(t, h.DeleteCV(ctx, cv.ID), collection.ErrNotFound)
}

func TestSaveFiles(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, storage.NewMemoryStore())

	path, err := h.SaveImageFromFile(ctx, models.FileUpload{Name: "preview.png", ContentType: "image/png", Data: png})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "cv-assets/images/preview_"), path)

	_, err = h.SaveImageFromFile(ctx, models.FileUpload{Name: "cv.pdf", ContentType: "application/pdf"})
	assert.ErrorIs(t, err, ErrInvalidFileType)

	path, err = h.SavePDFFromFile(ctx, models.FileUpload{Name: "cv.pdf", ContentType: "application/pdf; charset=binary", Data: []byte("%PDF-1.7")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "cv-assets/pdfs/cv_"), path)

	_, err = h.SavePDFFromFile(ctx, models.FileUpload{Name: "cv.docx", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"})
	assert.ErrorIs(t, err, ErrInvalidFileType)
}

func TestCreateCVWithFiles(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	h := newHandler(t, store)
	require.NoError(t, h.Initialize(ctx))

	cv, err := h.CreateCVWithFiles(ctx, models.CurriculumVitae{Name: "Data"},
		&models.FileUpload{Name: "p.png", ContentType: "image/png", Data: png},
		&models.FileUpload{Name: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, cv.ID)
	assert.Equal(t, "2024-06-15", cv.Date)
	assert.True(t, strings.HasPrefix(cv.ImagePreviewPath, "cv-assets/images/"))
	assert.True(t, strings.HasPrefix(cv.PDFPath, "cv-assets/pdfs/"))

	assert.Empty(t, h.GetAllCVs(), "built, not committed")
	assert.Zero(t, store.Saves(storage.CVBucket))

	uri, ok := h.ImageURI(ctx, cv)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	_, ok = h.ImageURI(ctx, models.CurriculumVitae{ImagePreviewPath: "cv-assets/images/gone.png"})
	assert.False(t, ok)

	_, err = h.CreateCVWithFiles(ctx, models.CurriculumVitae{Name: "Bad"}, &models.FileUpload{Name: "x.txt", ContentType: "text/plain"}, nil)
	assert.ErrorIs(t, err, ErrInvalidFileType)

	store.FailAssets(errors.New("quota"))
	_, err = h.CreateCVWithFiles(ctx, models.CurriculumVitae{Name: "Quota"}, nil, &models.FileUpload{Name: "cv.pdf", ContentType: "application/pdf"})
	assert.Error(t, err)
}
