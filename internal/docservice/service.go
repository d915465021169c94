// Package docservice coordinates the version store and sync engine for
// the API and MCP surfaces.
package docservice

import (
	"context"
	"fmt"

	"github.com/corrander/vellum/internal/engine"
	"github.com/corrander/vellum/internal/models"
	"github.com/corrander/vellum/internal/store"
)

// Service exposes document, project, and sync operations keyed by
// logical document name.
type Service struct {
	db  *store.DB
	eng *engine.Engine
}

// NewService creates a new document service.
func NewService(db *store.DB, eng *engine.Engine) *Service {
	return &Service{db: db, eng: eng}
}

// ListDocuments returns current documents, optionally filtered by kind.
func (s *Service) ListDocuments(_ context.Context, kind string) ([]models.Document, error) {
	docs, err := s.db.ListCurrent()
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return docs, nil
	}
	k := models.Kind(kind)
	if !k.Valid() {
		return nil, fmt.Errorf("docservice: unknown kind %q", kind)
	}
	var out []models.Document
	for _, d := range docs {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out, nil
}

// GetDocument returns the current record for name.
func (s *Service) GetDocument(_ context.Context, name string) (*models.Document, error) {
	return s.db.GetCurrent(name)
}

// History returns the archived versions for name, oldest first.
func (s *Service) History(_ context.Context, name string) ([]models.HistoryEntry, error) {
	cur, err := s.db.GetCurrent(name)
	if err != nil {
		return nil, err
	}
	return s.db.History(cur.ID)
}

// Rollback creates a new current version of name from the given prior
// version, recording summary on the archived row.
func (s *Service) Rollback(_ context.Context, name string, version int, summary string) (store.UpsertResult, error) {
	cur, err := s.db.GetCurrent(name)
	if err != nil {
		return store.UpsertResult{}, err
	}
	return s.db.Rollback(cur.ID, version, summary)
}

// Sync runs one full sync batch.
func (s *Service) Sync(ctx context.Context) (*engine.SyncSummary, error) {
	return s.eng.Sync(ctx)
}

// Flatten projects the store's current state back onto disk.
func (s *Service) Flatten(ctx context.Context) (*engine.FlattenSummary, error) {
	return s.eng.Flatten(ctx)
}

// CreateProject registers a new project.
func (s *Service) CreateProject(_ context.Context, name string) (*models.Project, error) {
	return s.db.CreateProject(name)
}

// DeleteProject removes a project; documents that referenced it keep
// existing with a cleared reference.
func (s *Service) DeleteProject(_ context.Context, id string) error {
	return s.db.DeleteProject(id)
}

// AssignProject points a document at a project.
func (s *Service) AssignProject(_ context.Context, docName, projectID string) error {
	return s.db.AssignProject(docName, projectID)
}

// RecordMetric attaches a measurement to a document version.
func (s *Service) RecordMetric(_ context.Context, name string, m models.Metric) error {
	cur, err := s.db.GetCurrent(name)
	if err != nil {
		return err
	}
	m.DocumentID = cur.ID
	if m.Version == 0 {
		m.Version = cur.Version
	}
	return s.db.RecordMetric(m)
}

// Metrics returns all measurements recorded for a document.
func (s *Service) Metrics(_ context.Context, name string) ([]models.Metric, error) {
	cur, err := s.db.GetCurrent(name)
	if err != nil {
		return nil, err
	}
	return s.db.MetricsFor(cur.ID)
}
