package api

import (
	"github.com/corrander/vellum/internal/engine"
	"github.com/corrander/vellum/internal/models"
)

// RollbackRequest asks for a new current version built from a prior one.
type RollbackRequest struct {
	Version int    `json:"version"`
	Summary string `json:"summary"`
}

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// AssignProjectRequest points a document at a project.
type AssignProjectRequest struct {
	ProjectID string `json:"project_id"`
}

// RecordMetricRequest attaches a measurement to a document version.
// Version 0 means the current version.
type RecordMetricRequest struct {
	Version int     `json:"version"`
	Name    string  `json:"metric_name"`
	Step    int     `json:"step"`
	Value   float64 `json:"value"`
}

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents"`
	Total     int               `json:"total"`
}

// HistoryResponse wraps a document's archived versions.
type HistoryResponse struct {
	Name    string                `json:"name"`
	History []models.HistoryEntry `json:"history"`
}

// SyncSummary and FlattenSummary are surfaced as-is from the engine.
type (
	SyncSummary    = engine.SyncSummary
	FlattenSummary = engine.FlattenSummary
)
