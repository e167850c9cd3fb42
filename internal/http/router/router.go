package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/brforum/forum-backend/internal/health"
	"github.com/brforum/forum-backend/internal/http/handler"
	"github.com/brforum/forum-backend/internal/http/middleware"
	"github.com/brforum/forum-backend/internal/http/response"
	"github.com/brforum/forum-backend/internal/storage"
)

type Dependencies struct {
	AccountHandler *handler.AccountHandler
	PostHandler    *handler.PostHandler
	Session        *middleware.SessionManager
	Readiness      *health.ProbeRunner

	// ImageDir serves stored photos when the disk backend is active; empty
	// means the backend serves no images itself.
	ImageDir       string
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	// headroom above the photo limit for the rest of the multipart body
	r.Use(middleware.BodyLimit(storage.MaxUploadBytes + 1<<20))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.JSON(w, r, http.StatusServiceUnavailable, map[string]any{"status": "unready", "checks": results})
	})

	r.Group(func(r chi.Router) {
		r.Use(dep.Session.Middleware)

		r.Post("/account", dep.AccountHandler.Dispatch)
		r.Get("/me", dep.AccountHandler.Me)
		r.Get("/result", dep.AccountHandler.Result)

		r.Post("/posts", dep.PostHandler.Dispatch)
		r.Get("/posts", dep.PostHandler.List)
		r.Get("/posts/{id}/author", dep.PostHandler.Author)
	})

	if dep.ImageDir != "" {
		fs := http.StripPrefix("/images/", http.FileServer(http.Dir(dep.ImageDir)))
		r.Get("/images/*", fs.ServeHTTP)
	}

	if dep.EnableOTelHTTP {
		return otelhttp.NewHandler(r, "http.server")
	}
	return r
}
