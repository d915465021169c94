package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corrander/vellum/internal/apperr"
	"github.com/corrander/vellum/internal/docservice"
	"github.com/corrander/vellum/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListDocuments handles GET /api/documents with an optional kind filter.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	docs, err := h.svc.ListDocuments(r.Context(), kind)
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// GetDocument handles GET /api/documents/{name}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, err := h.svc.GetDocument(r.Context(), name)
	if err != nil {
		respondError(w, name, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetHistory handles GET /api/documents/{name}/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	hist, err := h.svc.History(r.Context(), name)
	if err != nil {
		respondError(w, name, "get history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Name: name, History: hist})
}

// Rollback handles POST /api/documents/{name}/rollback.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req RollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if req.Version < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("version must be >= 1"))
		return
	}
	res, err := h.svc.Rollback(r.Context(), name, req.Version, req.Summary)
	if err != nil {
		respondError(w, name, "rollback", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Sync handles POST /api/sync.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Sync(r.Context())
	if err != nil {
		slog.Error("sync failed", slog.String("error", err.Error()))
		status := http.StatusInternalServerError
		if apperr.IsConsistency(err) {
			status = http.StatusConflict
		}
		writeJSON(w, status, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Flatten handles POST /api/flatten.
func (h *Handler) Flatten(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Flatten(r.Context())
	if err != nil {
		slog.Error("flatten failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// CreateProject handles POST /api/projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("already exists"))
			return
		}
		slog.Error("create project failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// DeleteProject handles DELETE /api/projects/{id}. Documents referencing
// the project survive with a cleared reference.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteProject(r.Context(), id); err != nil {
		respondError(w, id, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignProject handles POST /api/documents/{name}/project.
func (h *Handler) AssignProject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req AssignProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("project_id is required"))
		return
	}
	if err := h.svc.AssignProject(r.Context(), name, req.ProjectID); err != nil {
		respondError(w, name, "assign project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordMetric handles POST /api/documents/{name}/metrics.
func (h *Handler) RecordMetric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req RecordMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("metric_name is required"))
		return
	}
	m := models.Metric{Version: req.Version, Name: req.Name, Step: req.Step, Value: req.Value}
	if err := h.svc.RecordMetric(r.Context(), name, m); err != nil {
		respondError(w, name, "record metric", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMetrics handles GET /api/documents/{name}/metrics.
func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ms, err := h.svc.Metrics(r.Context(), name)
	if err != nil {
		respondError(w, name, "list metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": ms})
}

func respondError(w http.ResponseWriter, subject, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("conflict"))
	default:
		slog.Error(op+" failed", slog.String("subject", subject), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
