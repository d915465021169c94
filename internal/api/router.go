package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corrander/vellum/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/{name}", h.GetDocument)
	r.Get("/documents/{name}/history", h.GetHistory)
	r.Post("/documents/{name}/rollback", h.Rollback)
	r.Post("/documents/{name}/project", h.AssignProject)
	r.Get("/documents/{name}/metrics", h.ListMetrics)
	r.Post("/documents/{name}/metrics", h.RecordMetric)

	// Batch operations.
	r.Post("/sync", h.Sync)
	r.Post("/flatten", h.Flatten)

	// Projects.
	r.Post("/projects", h.CreateProject)
	r.Delete("/projects/{id}", h.DeleteProject)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
