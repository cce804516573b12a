// Package applications owns the job application collection: CRUD with
// optimistic persistence, the status grouped view and the auto-update sweep.
package applications

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KarimYounus/jobbies/internal/collection"
	"github.com/KarimYounus/jobbies/internal/events"
	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/internal/storage"
	"github.com/KarimYounus/jobbies/pkg/models"
)

// Event kinds published by the handler.
const (
	EventLoaded      events.Kind = "applications-loaded"
	EventAdded       events.Kind = "application-added"
	EventUpdated     events.Kind = "application-updated"
	EventDeleted     events.Kind = "application-deleted"
	EventAutoUpdated events.Kind = "applications-auto-updated"
	EventDataError   events.Kind = "data-error"
)

const (
	DefaultAutoUpdateInterval = 30
	MinAutoUpdateInterval     = 1
	MaxAutoUpdateInterval     = 365
)

const dateLayout = "2006-01-02"

// Option configures a Handler.
type Option func(*Handler)

// WithClock replaces time.Now, which drives new application dates and the sweep cutoff.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// Handler is the application collection handler. Create one per process with
// NewHandler and share it.
type Handler struct {
	*events.Bus

	store  storage.Service
	items  *collection.Collection[models.JobApplication]
	logger zerolog.Logger
	now    func() time.Time

	loadMu      sync.Mutex // serialises Initialize and Reload
	initialized atomic.Bool

	cfgMu              sync.RWMutex
	autoUpdateEnabled  bool
	autoUpdateInterval int
	defaultStatus      models.StatusItem

	groupsMu sync.RWMutex
	groups   [][]models.JobApplication // parallel to status.All()
}

// NewHandler returns an uninitialized handler. Call Initialize before use.
func NewHandler(store storage.Service, logger zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		Bus:                &events.Bus{},
		store:              store,
		logger:             logger.With().Str("component", "applications").Logger(),
		now:                time.Now,
		autoUpdateEnabled:  true,
		autoUpdateInterval: DefaultAutoUpdateInterval,
		defaultStatus:      status.Default(),
		groups:             make([][]models.JobApplication, len(status.All())),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.items = collection.New(store, storage.ApplicationsBucket,
		func(a models.JobApplication) string { return a.ID },
		collection.WithClone(models.JobApplication.Clone),
		collection.WithOnChange(h.rebuildGroups),
	)
	return h
}

// Initialize loads the persisted applications and runs the auto-update sweep.
// It is a no-op once the handler is initialized.
//
// A bucket that cannot be read leaves the handler initialized with an empty
// collection. Malformed data is copied to the backups folder first and writes
// go ahead; any other read failure refuses writes until a Reload succeeds, so
// the empty list never replaces stored data. The error is returned and
// published as EventDataError.
func (h *Handler) Initialize(ctx context.Context) error {
	return h.loadAndPublish(ctx, true)
}

// Initialized reports whether Initialize has run.
func (h *Handler) Initialized() bool {
	return h.initialized.Load()
}

// Reload re-reads the bucket, e.g. after it was edited outside the process.
func (h *Handler) Reload(ctx context.Context) error {
	return h.loadAndPublish(ctx, false)
}

// loadAndPublish loads under loadMu and publishes the outcome after releasing
// it, so subscribers may call back into the handler.
func (h *Handler) loadAndPublish(ctx context.Context, once bool) error {
	h.loadMu.Lock()
	if once && h.initialized.Load() {
		h.loadMu.Unlock()
		return nil
	}
	ev, err := h.load(ctx)
	h.initialized.Store(true)
	h.loadMu.Unlock()

	h.Emit(ev)
	if err != nil {
		return err
	}
	h.TriggerAutoUpdateFromSettings(ctx)
	return nil
}

func (h *Handler) load(ctx context.Context) (events.Event, error) {
	err := h.items.Load(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		key, berr := storage.PreserveUnreadable(ctx, h.store, err, h.now())
		switch {
		case berr != nil:
			h.logger.Error().Err(berr).Msg("failed to back up unreadable applications, writes disabled")
		case key != "":
			h.logger.Warn().Str("backup", key).Msg("unreadable applications backed up")
			h.items.Unblock()
		default:
			h.logger.Warn().Msg("applications bucket unavailable, writes disabled until reload")
		}
		h.logger.Error().Err(err).Msg("failed to load applications, starting empty")
		return events.Event{Kind: EventDataError, Err: err}, err
	}

	h.logger.Info().Int("count", h.items.Len()).Msg("applications loaded")
	return events.Event{Kind: EventLoaded, Payload: h.items.Snapshot()}, nil
}

// CreateNewApplication returns a new, unsaved application with a fresh id,
// today's date and the default status. Non-zero fields of overrides replace
// the defaults.
func (h *Handler) CreateNewApplication(overrides *models.JobApplication) models.JobApplication {
	h.cfgMu.RLock()
	def := h.defaultStatus
	h.cfgMu.RUnlock()

	app := models.JobApplication{
		ID:          uuid.NewString(),
		Status:      def,
		AppliedDate: h.now().Format(dateLayout),
	}
	if overrides != nil {
		mergeApplication(&app, overrides.Clone())
	}
	return app
}

func mergeApplication(dst *models.JobApplication, src models.JobApplication) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.ID, src.ID)
	set(&dst.Company, src.Company)
	set(&dst.Position, src.Position)
	set(&dst.AppliedDate, src.AppliedDate)
	set(&dst.Description, src.Description)
	set(&dst.Salary, src.Salary)
	set(&dst.Location, src.Location)
	set(&dst.Notes, src.Notes)
	set(&dst.Link, src.Link)
	set(&dst.CVID, src.CVID)
	set(&dst.CoverLetter, src.CoverLetter)
	set(&dst.AppliedVia, src.AppliedVia)
	if src.Status.Text != "" {
		dst.Status = src.Status
	}
	if src.Questions != nil {
		dst.Questions = src.Questions
	}
}

// GetAllApplications returns copies of every application in insertion order.
func (h *Handler) GetAllApplications() []models.JobApplication {
	return h.items.Snapshot()
}

// GetApplicationByID returns a copy of the application with id.
func (h *Handler) GetApplicationByID(id string) (models.JobApplication, bool) {
	return h.items.Get(id)
}

// AddApplication stores a new application. An empty id, status or applied
// date is filled in as CreateNewApplication would, and the salary is
// normalised.
func (h *Handler) AddApplication(ctx context.Context, app models.JobApplication) (models.JobApplication, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.AppliedDate == "" {
		app.AppliedDate = h.now().Format(dateLayout)
	}
	if app.Status.Text == "" {
		h.cfgMu.RLock()
		app.Status = h.defaultStatus
		h.cfgMu.RUnlock()
	}
	app.Salary = FormatSalary(app.Salary)

	saved, err := h.items.Add(ctx, app)
	if err != nil {
		return models.JobApplication{}, err
	}
	h.logger.Debug().Str("id", saved.ID).Msg("application added")
	h.Emit(events.Event{Kind: EventAdded, Payload: saved.Clone()})
	return saved, nil
}

// UpdateApplication replaces the stored application with the same id.
func (h *Handler) UpdateApplication(ctx context.Context, app models.JobApplication) (models.JobApplication, error) {
	app.Salary = FormatSalary(app.Salary)

	if _, err := h.items.Update(ctx, app); err != nil {
		return models.JobApplication{}, err
	}
	h.logger.Debug().Str("id", app.ID).Msg("application updated")
	h.Emit(events.Event{Kind: EventUpdated, Payload: app.Clone()})
	return app.Clone(), nil
}

// DeleteApplication removes the application with id.
func (h *Handler) DeleteApplication(ctx context.Context, id string) error {
	removed, err := h.items.Delete(ctx, id)
	if err != nil {
		return err
	}
	h.logger.Debug().Str("id", id).Msg("application deleted")
	h.Emit(events.Event{Kind: EventDeleted, Payload: removed})
	return nil
}

// UpdateAutoUpdateConfig sets the sweep policy. The interval is clamped to
// [MinAutoUpdateInterval, MaxAutoUpdateInterval].
func (h *Handler) UpdateAutoUpdateConfig(enabled bool, intervalDays int) {
	intervalDays = min(max(intervalDays, MinAutoUpdateInterval), MaxAutoUpdateInterval)

	h.cfgMu.Lock()
	h.autoUpdateEnabled = enabled
	h.autoUpdateInterval = intervalDays
	h.cfgMu.Unlock()
}

// UpdateDefaultStatus sets the status given to new applications. Unknown
// texts are ignored with a warning and the catalog default is used.
func (h *Handler) UpdateDefaultStatus(text string) {
	item, ok := status.Lookup(text)
	if !ok {
		h.logger.Warn().Str("status", text).Msg("unknown default status, using catalog default")
		item = status.Default()
	}
	h.cfgMu.Lock()
	h.defaultStatus = item
	h.cfgMu.Unlock()
}

// DefaultStatus returns the status given to new applications.
func (h *Handler) DefaultStatus() models.StatusItem {
	h.cfgMu.RLock()
	defer h.cfgMu.RUnlock()
	return h.defaultStatus
}

// AutoUpdateConfig returns the current sweep policy.
func (h *Handler) AutoUpdateConfig() (enabled bool, intervalDays int) {
	h.cfgMu.RLock()
	defer h.cfgMu.RUnlock()
	return h.autoUpdateEnabled, h.autoUpdateInterval
}
