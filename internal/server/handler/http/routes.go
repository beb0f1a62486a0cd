package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/obelyaeva/weightly/internal/middleware"
)

// NewRouter constructs the HTTP handler serving the weight tracker API.
// It applies JSON content-type enforcement and request logging, and
// mounts the entry, settings, sync and backup endpoints under /api.
func NewRouter(
	entriesHandler *EntriesHandler,
	settingsHandler *SettingsHandler,
	syncHandler *SyncHandler,
	backupHandler *BackupHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", entriesHandler.List)
			r.Post("/", entriesHandler.Create)
			r.Put("/{id}", entriesHandler.Update)
			r.Delete("/{id}", entriesHandler.Delete)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingsHandler.Get)
			r.Put("/", settingsHandler.Update)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", syncHandler.Status)
			r.Post("/force", syncHandler.Force)
			r.Post("/recover", syncHandler.Recover)
			r.Get("/test", syncHandler.Test)
			r.Post("/cleanup-settings", syncHandler.CleanupSettings)
		})

		r.Post("/online", syncHandler.Online)

		r.Route("/backup", func(r chi.Router) {
			r.Get("/export", backupHandler.Export)
			r.Post("/import", backupHandler.Import)
		})
	})

	return r
}
