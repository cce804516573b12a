package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/KarimYounus/jobbies/internal/applications"
	"github.com/KarimYounus/jobbies/internal/config"
	"github.com/KarimYounus/jobbies/internal/cvs"
	"github.com/KarimYounus/jobbies/internal/settings"
	"github.com/KarimYounus/jobbies/internal/storage"
)

// App is the dependency container for the CLI application
type App struct {
	Config       *config.Config
	Store        storage.Service
	Logger       zerolog.Logger
	Settings     *settings.Handler
	Applications *applications.Handler
	CVs          *cvs.Handler

	now         func() time.Time
	loggerSet   bool
	closers     []io.Closer
	unsubscribe []func()
}

// Option overrides a dependency NewApp would otherwise build from config.
type Option func(*App)

// WithStore uses s instead of opening the configured backend.
func WithStore(s storage.Service) Option {
	return func(a *App) { a.Store = s }
}

// WithLogger uses l instead of the log file in the data directory.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Logger = l
		a.loggerSet = true
	}
}

// WithClock replaces time.Now for backups and the auto-update sweep.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewApp loads the config file and builds the App from it.
func NewApp(ctx context.Context, opts ...Option) (*App, error) {
	// Initialize config
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	return New(ctx, config.AppConfig, opts...)
}

// New wires the handlers over the configured store and loads them in order:
// settings, then applications (which need the settings), then CVs. Load
// failures are logged; each handler falls back to a usable empty state.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	if !a.loggerSet {
		logger, f, err := openLog(cfg)
		if err != nil {
			return nil, err
		}
		a.Logger = logger
		a.closers = append(a.closers, f)
	}

	if a.Store == nil {
		store, err := openStore(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.StorageBackend, err)
		}
		a.Store = store
		a.closers = append(a.closers, store)
	}

	a.Settings = settings.NewHandler(a.Store, a.Logger, settings.WithClock(a.now))
	a.Applications = applications.NewHandler(a.Store, a.Logger, applications.WithClock(a.now))
	a.CVs = cvs.NewHandler(a.Store, a.Logger)

	a.start(ctx)
	return a, nil
}

func (a *App) start(ctx context.Context) {
	if err := a.Settings.Initialize(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("settings unavailable, using defaults")
	}
	a.integrateSettings(ctx)

	if a.Settings.GetSettings().DataBackupEnabled {
		if err := a.DailyBackup(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("daily backup failed")
		}
	}

	if err := a.Applications.Initialize(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("applications unavailable, starting empty")
	}
	if err := a.CVs.Initialize(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("CVs unavailable, starting empty")
	}
}

// Close releases the store and log file.
func (a *App) Close() error {
	for _, unsub := range a.unsubscribe {
		unsub()
	}
	a.unsubscribe = nil

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openLog(cfg *config.Config) (zerolog.Logger, *os.File, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "jobbies.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out: logFile, NoColor: true, TimeFormat: "2006-01-02_15:04:05",
	}).Level(cfg.Level()).With().Timestamp().Caller().Logger()
	return logger, logFile, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Service, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return storage.NewSQLiteStore(ctx, filepath.Join(cfg.DataDir, "jobbies.db"))
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewDiskStore(cfg.DataDir)
	}
}
