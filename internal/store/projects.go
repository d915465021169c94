package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corrander/vellum/internal/apperr"
	"github.com/corrander/vellum/internal/models"
)

// CreateProject inserts a new project with a generated id.
func (db *DB) CreateProject(name string) (*models.Project, error) {
	p := &models.Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.conn.Exec(`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Name, p.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("store: project %q: %w", name, apperr.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("store: create project: %w", err)
	}
	return p, nil
}

// GetProject returns a project by id, or apperr.ErrNotFound.
func (db *DB) GetProject(id string) (*models.Project, error) {
	var p models.Project
	err := db.conn.QueryRow(`SELECT id, name, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project %s: %w", id, err)
	}
	return &p, nil
}

// DeleteProject removes a project. The project_ref of any document that
// referenced it is set to NULL by the foreign key; documents themselves
// are never deleted as a side effect.
func (db *DB) DeleteProject(id string) error {
	res, err := db.conn.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete project %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// AssignProject sets a document's project_ref. The referenced project
// must exist; a dangling reference is rejected by the foreign key.
func (db *DB) AssignProject(docName, projectID string) error {
	res, err := db.conn.Exec(`UPDATE documents SET project_ref = ? WHERE name = ?`, projectID, docName)
	if err != nil {
		return fmt.Errorf("store: assign project %s to %q: %w", projectID, docName, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
