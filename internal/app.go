// Package internal provides the App struct that wires all components of
// gtd-brain together and initializes the CLI layer.
package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/gtd-brain/internal/cli"
	"github.com/valter-silva-au/gtd-brain/internal/core"
	"github.com/valter-silva-au/gtd-brain/internal/observability"
	"github.com/valter-silva-au/gtd-brain/internal/storage"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

// HomeEnv overrides the base path lookup.
const HomeEnv = "GTD_HOME"

const eventLogFile = ".gtd_events.jsonl"

// App holds all service dependencies for gtd-brain.
type App struct {
	BasePath string
	Config   *models.GlobalConfig
	Location *time.Location
	Logger   *slog.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	TaskStore    storage.TaskStore
	SessionStore storage.SortSessionStore

	// Core services
	IDGen   core.TaskIDGenerator
	TaskMgr core.TaskManager
	Sorter  core.SortService

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components. basePath is the directory holding
// .gtdconfig and the data files.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg
	app.Location = core.StatsLocation(cfg)
	app.Logger = observability.NewLogger(cfg.Log, os.Stderr)

	// --- Storage layer ---
	switch cfg.Storage.Backend {
	case models.BackendSQLite:
		dbPath := cfg.Storage.SQLitePath
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(basePath, dbPath)
		}
		app.TaskStore, err = storage.NewSQLiteTaskStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening task store: %w", err)
		}
	default:
		app.TaskStore = storage.NewYAMLTaskStore(basePath)
	}
	app.SessionStore = storage.NewSortSessionStore(basePath)

	// --- Observability ---
	var events core.EventLogger
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, eventLogFile))
	if err != nil {
		// Non-fatal: run without the event log and metrics.
		app.Logger.Warn("event log disabled", "error", err)
		app.EventLog = nil
	}
	if app.EventLog != nil {
		events = observability.NewRecorder(app.EventLog, nil)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
	}

	// --- Core services ---
	app.IDGen = core.NewTaskIDGenerator(basePath, cfg.TaskIDPrefix, cfg.TaskIDPadWidth)
	app.TaskMgr = core.NewTaskManager(&taskStoreAdapter{store: app.TaskStore}, app.IDGen, events, core.TaskManagerOpts{
		Location:   app.Location,
		Motivation: core.NewMotivationPicker(cfg.Motivation, nil),
	})
	app.Sorter = core.NewSortService(app.TaskMgr, &sessionStoreAdapter{store: app.SessionStore}, events, nil)
	app.AlertEngine = observability.NewAlertEngine(app.TaskMgr, cfg.Alerts, nil)

	// --- Wire CLI package-level variables ---
	cli.TaskMgr = app.TaskMgr
	cli.Sorter = app.Sorter
	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier
	cli.Logger = app.Logger
	cli.ServerAddr = cfg.ServerAddr
	cli.Location = app.Location

	return app, nil
}

// Close releases the event log and task store handles.
func (a *App) Close() error {
	var errs []error
	if a.EventLog != nil {
		errs = append(errs, a.EventLog.Close())
	}
	if a.TaskStore != nil {
		errs = append(errs, a.TaskStore.Close())
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the gtd data directory. It checks GTD_HOME,
// then walks up from the working directory looking for .gtdconfig, then
// falls back to the working directory.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := cwd; ; {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// --- Adapters ---

// storageErr maps storage sentinels onto the core errors transports expect.
func storageErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", notFound, err)
	case errors.Is(err, storage.ErrVersionConflict):
		return fmt.Errorf("%w: %w", core.ErrVersionConflict, err)
	}
	return err
}

// taskStoreAdapter adapts storage.TaskStore to core.TaskStore.
type taskStoreAdapter struct {
	store storage.TaskStore
}

func (a *taskStoreAdapter) Create(task models.Task) error {
	return storageErr(a.store.Create(task), core.ErrTaskNotFound)
}

func (a *taskStoreAdapter) Get(id string) (*models.Task, error) {
	task, err := a.store.Get(id)
	return task, storageErr(err, core.ErrTaskNotFound)
}

func (a *taskStoreAdapter) Update(task models.Task) (*models.Task, error) {
	updated, err := a.store.Update(task)
	return updated, storageErr(err, core.ErrTaskNotFound)
}

func (a *taskStoreAdapter) List(filter core.TaskFilter) ([]models.Task, error) {
	return a.store.List(storage.TaskFilter{Status: filter.Status, ParentID: filter.ParentID})
}

// sessionStoreAdapter adapts storage.SortSessionStore to core.SessionStore.
type sessionStoreAdapter struct {
	store storage.SortSessionStore
}

func (a *sessionStoreAdapter) NewID() string {
	return a.store.NewID()
}

func (a *sessionStoreAdapter) Save(s models.SortSession) error {
	return storageErr(a.store.Save(s), core.ErrSessionNotFound)
}

func (a *sessionStoreAdapter) Get(id string) (*models.SortSession, error) {
	s, err := a.store.Get(id)
	return s, storageErr(err, core.ErrSessionNotFound)
}

func (a *sessionStoreAdapter) Delete(id string) error {
	return storageErr(a.store.Delete(id), core.ErrSessionNotFound)
}

func (a *sessionStoreAdapter) List() ([]models.SortSession, error) {
	return a.store.List()
}
