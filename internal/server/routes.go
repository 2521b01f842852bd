package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS and WebSocket origins.
	AllowedOrigins []string
	// ProjectsDir is served read-only under /projects/.
	ProjectsDir string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
		ProjectsDir:    "projects",
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/providers", h.ListProviders)

	mux.HandleFunc("POST /api/video/generate", h.Generate)
	mux.HandleFunc("GET /api/video/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/video/jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /api/video/jobs/{id}/download-all", h.DownloadAll)
	mux.HandleFunc("GET /api/video/jobs/{id}/ws", h.StreamJob(newUpgrader(cfg.AllowedOrigins)))

	mux.HandleFunc("GET /api/projects", h.ListProjects)
	mux.HandleFunc("POST /api/projects", h.CreateProject)
	mux.HandleFunc("GET /api/projects/{name}", h.GetProject)
	mux.HandleFunc("DELETE /api/projects/{name}", h.DeleteProject)
	mux.HandleFunc("GET /api/projects/{name}/stats", h.ProjectStats)

	if cfg.ProjectsDir != "" {
		mux.Handle("GET /projects/", http.StripPrefix("/projects/", http.FileServer(http.Dir(cfg.ProjectsDir))))
	}

	// Apply middleware chain
	chain := ChainMiddleware(
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
