// Package cvs owns the CV collection and the image and PDF assets behind it.
package cvs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KarimYounus/jobbies/internal/collection"
	"github.com/KarimYounus/jobbies/internal/events"
	"github.com/KarimYounus/jobbies/internal/storage"
	"github.com/KarimYounus/jobbies/pkg/models"
)

// Event kinds published by the handler.
const (
	EventLoaded    events.Kind = "cvs-loaded"
	EventAdded     events.Kind = "cv-added"
	EventUpdated   events.Kind = "cv-updated"
	EventDeleted   events.Kind = "cv-deleted"
	EventDataError events.Kind = "cv-data-error"
)

// ErrInvalidFileType is returned when an upload is not of the expected kind.
var ErrInvalidFileType = errors.New("invalid file type")

// Handler is the CV collection handler.
type Handler struct {
	*events.Bus

	store  storage.Service
	items  *collection.Collection[models.CurriculumVitae]
	logger zerolog.Logger
	now    func() time.Time

	initMu      sync.Mutex // serialises Initialize
	initialized atomic.Bool
}

// NewHandler returns an uninitialized handler.
func NewHandler(store storage.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		Bus:    &events.Bus{},
		store:  store,
		items:  collection.New(store, storage.CVBucket, func(cv models.CurriculumVitae) string { return cv.ID }),
		logger: logger.With().Str("component", "cvs").Logger(),
		now:    time.Now,
	}
}

// Initialize creates the asset folders and loads the CV list. Failures follow
// the same policy as the application handler: the handler ends up initialized
// (empty if the list could not be read), malformed data is backed up, other
// read failures refuse writes, and the error is returned and published as
// EventDataError. Events are published after the handler lock is released.
func (h *Handler) Initialize(ctx context.Context) error {
	h.initMu.Lock()
	if h.initialized.Load() {
		h.initMu.Unlock()
		return nil
	}
	published, err := h.load(ctx)
	h.initialized.Store(true)
	h.initMu.Unlock()

	for _, ev := range published {
		h.Emit(ev)
	}
	return err
}

func (h *Handler) load(ctx context.Context) ([]events.Event, error) {
	var published []events.Event

	var dirErr error
	if err := h.store.EnsureAssetDirs(ctx); err != nil {
		dirErr = fmt.Errorf("failed to create asset directories: %w", err)
		h.logger.Error().Err(err).Msg("failed to create asset directories")
		published = append(published, events.Event{Kind: EventDataError, Err: dirErr})
	}

	err := h.items.Load(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		key, berr := storage.PreserveUnreadable(ctx, h.store, err, h.now())
		switch {
		case berr != nil:
			h.logger.Error().Err(berr).Msg("failed to back up unreadable CV list, writes disabled")
		case key != "":
			h.logger.Warn().Str("backup", key).Msg("unreadable CV list backed up")
			h.items.Unblock()
		default:
			h.logger.Warn().Msg("CV list unavailable, writes disabled")
		}
		h.logger.Error().Err(err).Msg("failed to load CVs, starting empty")
		published = append(published, events.Event{Kind: EventDataError, Err: err})
		return published, errors.Join(dirErr, err)
	}

	h.logger.Info().Int("count", h.items.Len()).Msg("CVs loaded")
	published = append(published, events.Event{Kind: EventLoaded, Payload: h.items.Snapshot()})
	return published, dirErr
}

// Initialized reports whether the CV list has been loaded.
func (h *Handler) Initialized() bool {
	return h.initialized.Load()
}

// GetAllCVs returns copies of every CV.
func (h *Handler) GetAllCVs() []models.CurriculumVitae {
	return h.items.Snapshot()
}

// GetCVByID returns the CV with id.
func (h *Handler) GetCVByID(id string) (models.CurriculumVitae, bool) {
	return h.items.Get(id)
}

// AddCV stores cv, assigning an id when it has none.
func (h *Handler) AddCV(ctx context.Context, cv models.CurriculumVitae) (models.CurriculumVitae, error) {
	if cv.ID == "" {
		cv.ID = uuid.NewString()
	}
	saved, err := h.items.Add(ctx, cv)
	if err != nil {
		return models.CurriculumVitae{}, err
	}
	h.Emit(events.Event{Kind: EventAdded, Payload: saved})
	return saved, nil
}

// UpdateCV replaces the CV with the same id.
func (h *Handler) UpdateCV(ctx context.Context, cv models.CurriculumVitae) (models.CurriculumVitae, error) {
	if _, err := h.items.Update(ctx, cv); err != nil {
		return models.CurriculumVitae{}, err
	}
	h.Emit(events.Event{Kind: EventUpdated, Payload: cv})
	return cv, nil
}

// DeleteCV removes the CV record. Its asset files are left in place.
func (h *Handler) DeleteCV(ctx context.Context, id string) error {
	removed, err := h.items.Delete(ctx, id)
	if err != nil {
		return err
	}
	h.Emit(events.Event{Kind: EventDeleted, Payload: removed})
	return nil
}

// SaveImageFromFile stores an image upload and returns its relative asset path.
func (h *Handler) SaveImageFromFile(ctx context.Context, file models.FileUpload) (string, error) {
	if !strings.HasPrefix(mediaType(file.ContentType), "image/") {
		return "", fmt.Errorf("%w: %s is %q, expected an image", ErrInvalidFileType, file.Name, file.ContentType)
	}
	return h.saveAsset(ctx, storage.Images, file)
}

// SavePDFFromFile stores a PDF upload and returns its relative asset path.
func (h *Handler) SavePDFFromFile(ctx context.Context, file models.FileUpload) (string, error) {
	if mediaType(file.ContentType) != "application/pdf" {
		return "", fmt.Errorf("%w: %s is %q, expected application/pdf", ErrInvalidFileType, file.Name, file.ContentType)
	}
	return h.saveAsset(ctx, storage.PDFs, file)
}

func (h *Handler) saveAsset(ctx context.Context, category storage.Category, file models.FileUpload) (string, error) {
	path, err := h.store.SaveBinaryAsset(ctx, category, file.Name, file.Data)
	if err != nil {
		return "", fmt.Errorf("failed to save %s: %w", file.Name, err)
	}
	h.logger.Debug().Str("path", path).Int("bytes", len(file.Data)).Msg("asset saved")
	return path, nil
}

// CreateCVWithFiles saves the given files and returns a CV record pointing at
// them. The record is not added; pass it to AddCV to commit it. Assets already
// written stay on disk if a later step fails.
func (h *Handler) CreateCVWithFiles(ctx context.Context, cv models.CurriculumVitae, image, pdf *models.FileUpload) (models.CurriculumVitae, error) {
	if image != nil {
		path, err := h.SaveImageFromFile(ctx, *image)
		if err != nil {
			return models.CurriculumVitae{}, err
		}
		cv.ImagePreviewPath = path
	}
	if pdf != nil {
		path, err := h.SavePDFFromFile(ctx, *pdf)
		if err != nil {
			return models.CurriculumVitae{}, err
		}
		cv.PDFPath = path
	}
	if cv.ID == "" {
		cv.ID = uuid.NewString()
	}
	if cv.Date == "" {
		cv.Date = h.now().Format("2006-01-02")
	}
	return cv, nil
}

// ImageURI returns the preview image of cv as a data URI. ok is false when
// there is no image or it cannot be read.
func (h *Handler) ImageURI(ctx context.Context, cv models.CurriculumVitae) (uri string, ok bool) {
	if cv.ImagePreviewPath == "" {
		return "", false
	}
	if strings.HasPrefix(cv.ImagePreviewPath, "data:") {
		return cv.ImagePreviewPath, true
	}
	return h.store.LoadAssetAsRenderable(ctx, cv.ImagePreviewPath)
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
