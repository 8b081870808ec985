package cli

import (
	"log/slog"
	"time"

	"github.com/valter-silva-au/gtd-brain/internal/core"
	"github.com/valter-silva-au/gtd-brain/internal/observability"
)

// Service instances, set during app initialization in app.go.
var (
	TaskMgr core.TaskManager
	Sorter  core.SortService

	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier

	Logger *slog.Logger

	// ServerAddr is the default listen address for gtd serve.
	ServerAddr = "127.0.0.1:8080"
	// Location interprets dates typed without a zone.
	Location = time.UTC
)

// servicesReady reports an error when the task services are not wired.
func servicesReady() error {
	if TaskMgr == nil || Sorter == nil {
		return errNotInitialized
	}
	return nil
}
