package settings

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/KarimYounus/jobbies/internal/collection"
	"github.com/KarimYounus/jobbies/internal/events"
	"github.com/KarimYounus/jobbies/internal/storage"
	"github.com/KarimYounus/jobbies/pkg/models"
)

// Event kinds published by the handler.
const (
	EventLoaded  events.Kind = "settings-loaded"
	EventUpdated events.Kind = "settings-updated"
	EventError   events.Kind = "settings-error"
)

// Change is the payload of EventUpdated.
type Change struct {
	// Keys are the settings whose value changed.
	Keys  []string
	Old   models.SettingsConfig
	New   models.SettingsConfig
	Reset bool
}

// Has reports whether key is among the changed settings.
func (c Change) Has(key string) bool {
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Handler owns the settings document.
type Handler struct {
	*events.Bus

	store  storage.Service
	doc    *collection.Document[models.SettingsConfig]
	logger zerolog.Logger
	now    func() time.Time

	initMu      sync.Mutex // serialises Initialize
	initialized atomic.Bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock replaces time.Now, which stamps backups of unreadable settings.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler returns a handler holding the defaults until Initialize loads
// the stored settings.
func NewHandler(store storage.Service, logger zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		Bus:    &events.Bus{},
		store:  store,
		doc:    collection.NewDocument(store, storage.SettingsBucket, Defaults(), nil),
		logger: logger.With().Str("component", "settings").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Initialize loads the stored settings through Validate. A missing bucket
// keeps the defaults. Any other failure also keeps the defaults, publishes
// EventError and returns the error; the handler is initialized either way.
// Malformed data is backed up, after which updates go ahead. Other read
// failures refuse updates, so the defaults never replace the stored file.
func (h *Handler) Initialize(ctx context.Context) error {
	h.initMu.Lock()
	if h.initialized.Load() {
		h.initMu.Unlock()
		return nil
	}
	ev, err := h.load(ctx)
	h.initialized.Store(true)
	h.initMu.Unlock()

	h.Emit(ev)
	return err
}

// Initialized reports whether Initialize has run.
func (h *Handler) Initialized() bool {
	return h.initialized.Load()
}

func (h *Handler) load(ctx context.Context) (events.Event, error) {
	err := h.doc.Load(ctx, decode)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		key, berr := storage.PreserveUnreadable(ctx, h.store, err, h.now())
		switch {
		case berr != nil:
			h.logger.Error().Err(berr).Msg("failed to back up unreadable settings, updates disabled")
		case key != "":
			h.logger.Warn().Str("backup", key).Msg("unreadable settings backed up")
			h.doc.Unblock()
		default:
			h.logger.Warn().Msg("settings unavailable, updates disabled")
		}
		h.logger.Warn().Err(err).Msg("failed to load settings, using defaults")
		return events.Event{Kind: EventError, Err: err, Payload: h.doc.Get()}, err
	}

	return events.Event{Kind: EventLoaded, Payload: h.doc.Get()}, nil
}

func decode(data []byte) (models.SettingsConfig, error) {
	if string(data) == "null" {
		return models.SettingsConfig{}, errors.New("settings document is null")
	}
	var p PartialSettings
	if err := json.Unmarshal(data, &p); err != nil {
		return models.SettingsConfig{}, err
	}
	return Validate(p), nil
}

// GetSettings returns a copy of the current settings.
func (h *Handler) GetSettings() models.SettingsConfig {
	return h.doc.Get()
}

// GetSetting returns the value stored under key.
func (h *Handler) GetSetting(key string) (any, error) {
	return Value(h.doc.Get(), key)
}

// UpdateSetting sets one setting. value must have the setting's type: bool,
// int, string or models.SortPreference.
func (h *Handler) UpdateSetting(ctx context.Context, key string, value any) (models.SettingsConfig, error) {
	p, err := partialFor(key, value)
	if err != nil {
		return h.doc.Get(), err
	}
	return h.UpdateSettings(ctx, p)
}

// UpdateSettings applies every field set in p, validates the result and
// persists it. On a failed save the previous settings are kept.
func (h *Handler) UpdateSettings(ctx context.Context, p PartialSettings) (models.SettingsConfig, error) {
	return h.commit(ctx, false, func(current models.SettingsConfig) models.SettingsConfig {
		return Merge(current, p)
	})
}

// ResetToDefaults replaces every setting with its default.
func (h *Handler) ResetToDefaults(ctx context.Context) (models.SettingsConfig, error) {
	return h.commit(ctx, true, func(models.SettingsConfig) models.SettingsConfig {
		return Defaults()
	})
}

func (h *Handler) commit(ctx context.Context, reset bool, fn func(models.SettingsConfig) models.SettingsConfig) (models.SettingsConfig, error) {
	old, updated, err := h.doc.Update(ctx, func(current models.SettingsConfig) (models.SettingsConfig, error) {
		return fn(current), nil
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to save settings")
		return old, err
	}

	change := Change{Keys: ChangedKeys(old, updated), Old: old, New: updated, Reset: reset}
	h.logger.Info().Strs("keys", change.Keys).Bool("reset", reset).Msg("settings updated")
	h.Emit(events.Event{Kind: EventUpdated, Payload: change})
	return updated, nil
}
