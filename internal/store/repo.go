package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/corrander/vellum/internal/apperr"
	"github.com/corrander/vellum/internal/checksum"
	"github.com/corrander/vellum/internal/models"
)

// Outcome classifies the effect of an Upsert on the current table.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// UpsertResult reports what an Upsert did and the resulting version.
type UpsertResult struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Version int     `json:"version"`
}

const docColumns = `id, name, category, kind, content, content_hash, version, project_ref, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var d models.Document
	var ref sql.NullString
	if err := row.Scan(&d.ID, &d.Name, &d.Category, &d.Kind, &d.Content,
		&d.ContentHash, &d.Version, &ref, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if ref.Valid {
		d.ProjectRef = &ref.String
	}
	return &d, nil
}

// GetCurrent returns the current row for name, or apperr.ErrNotFound.
func (db *DB) GetCurrent(name string) (*models.Document, error) {
	row := db.conn.QueryRow(`SELECT `+docColumns+` FROM documents WHERE name = ?`, name)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get current %q: %w", name, err)
	}
	return d, nil
}

// GetByID returns the current row with the given id, or apperr.ErrNotFound.
func (db *DB) GetByID(id string) (*models.Document, error) {
	row := db.conn.QueryRow(`SELECT `+docColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get by id %q: %w", id, err)
	}
	return d, nil
}

// ListCurrent returns every current row ordered by name.
func (db *DB) ListCurrent() ([]models.Document, error) {
	rows, err := db.conn.Query(`SELECT ` + docColumns + ` FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list current: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Upsert applies one document to the current table inside a single
// transaction:
//
//   - no current row for the name: insert at version 1 (created)
//   - current hash equals the new content's hash: no writes (unchanged)
//   - otherwise: copy the current row verbatim into history, then update
//     it in place with version+1 (updated)
//
// The archive and the update commit together or not at all. Before
// mutating, the current row's stored hash is re-verified against its own
// content; a mismatch is a ConsistencyError and nothing is written.
//
// changeSummary is recorded on the history row written by an update.
// A nil doc.ProjectRef leaves any existing project association in place.
func (db *DB) Upsert(doc models.Document, changeSummary string) (UpsertResult, error) {
	if !doc.Kind.Valid() {
		return UpsertResult{}, fmt.Errorf("store: unknown kind %q", doc.Kind)
	}
	hash := checksum.Sum([]byte(doc.Content))
	now := time.Now().UTC()

	tx, err := db.conn.Begin()
	if err != nil {
		return UpsertResult{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	cur, err := scanDocument(tx.QueryRow(`SELECT `+docColumns+` FROM documents WHERE name = ?`, doc.Name))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err = tx.Exec(`
			INSERT INTO documents (id, name, category, kind, content, content_hash, version, project_ref, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		`, id, doc.Name, doc.Category, doc.Kind, doc.Content, hash, nullable(doc.ProjectRef), now, now)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("store: insert %q: %w", doc.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return UpsertResult{}, fmt.Errorf("store: commit insert: %w", err)
		}
		return UpsertResult{ID: id, Outcome: OutcomeCreated, Version: 1}, nil

	case err != nil:
		return UpsertResult{}, fmt.Errorf("store: read current %q: %w", doc.Name, err)
	}

	if !checksum.Matches(cur.ContentHash, []byte(cur.Content)) {
		return UpsertResult{}, &apperr.ConsistencyError{
			Name:     cur.Name,
			Version:  cur.Version,
			Stored:   cur.ContentHash,
			Computed: checksum.Sum([]byte(cur.Content)),
		}
	}

	if cur.ContentHash == hash {
		return UpsertResult{ID: cur.ID, Outcome: OutcomeUnchanged, Version: cur.Version}, nil
	}

	// Archive the pre-mutation current row verbatim.
	_, err = tx.Exec(`
		INSERT INTO document_history (id, version, name, category, kind, content, content_hash, project_ref, created_at, archived_at, change_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cur.ID, cur.Version, cur.Name, cur.Category, cur.Kind, cur.Content,
		cur.ContentHash, nullable(cur.ProjectRef), cur.CreatedAt, now, changeSummary)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("store: archive %q v%d: %w", cur.Name, cur.Version, err)
	}

	ref := cur.ProjectRef
	if doc.ProjectRef != nil {
		ref = doc.ProjectRef
	}
	res, err := tx.Exec(`
		UPDATE documents
		SET category = ?, content = ?, content_hash = ?, version = ?, project_ref = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`, doc.Category, doc.Content, hash, cur.Version+1, nullable(ref), now, cur.ID, cur.Version)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("store: update %q: %w", cur.Name, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		// Another writer advanced the row between our read and write.
		// The transaction rolls back whole; the caller retries against
		// the new current state.
		return UpsertResult{}, fmt.Errorf("store: update %q: %w", cur.Name, apperr.ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("store: commit update: %w", err)
	}
	return UpsertResult{ID: cur.ID, Outcome: OutcomeUpdated, Version: cur.Version + 1}, nil
}

// GetVersion returns the content snapshot of a document at the given
// version: the current row when version matches it, a history row
// otherwise. apperr.ErrNotFound if neither exists.
func (db *DB) GetVersion(id string, version int) (*models.Document, error) {
	cur, err := db.GetByID(id)
	if err != nil {
		return nil, err
	}
	if cur.Version == version {
		return cur, nil
	}

	var h models.HistoryEntry
	var ref sql.NullString
	err = db.conn.QueryRow(`
		SELECT id, version, name, category, kind, content, content_hash, project_ref, created_at
		FROM document_history WHERE id = ? AND version = ?
	`, id, version).Scan(&h.ID, &h.Version, &h.Name, &h.Category, &h.Kind,
		&h.Content, &h.ContentHash, &ref, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get version %s v%d: %w", id, version, err)
	}
	d := &models.Document{
		ID:          h.ID,
		Name:        h.Name,
		Category:    h.Category,
		Kind:        models.Kind(h.Kind),
		Content:     h.Content,
		ContentHash: h.ContentHash,
		Version:     h.Version,
		CreatedAt:   h.CreatedAt,
	}
	if ref.Valid {
		d.ProjectRef = &ref.String
	}
	return d, nil
}

// History returns the archived versions for id, oldest first.
func (db *DB) History(id string) ([]models.HistoryEntry, error) {
	rows, err := db.conn.Query(`
		SELECT id, version, name, category, kind, content, content_hash, project_ref, created_at, archived_at, change_summary
		FROM document_history WHERE id = ? ORDER BY version
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: history %s: %w", id, err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var h models.HistoryEntry
		var ref sql.NullString
		if err := rows.Scan(&h.ID, &h.Version, &h.Name, &h.Category, &h.Kind,
			&h.Content, &h.ContentHash, &ref, &h.CreatedAt, &h.ArchivedAt, &h.ChangeSummary); err != nil {
			return nil, err
		}
		if ref.Valid {
			h.ProjectRef = &ref.String
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Rollback creates a new current version whose content equals the
// historical version's content. It is an ordinary Upsert, not a
// destructive revert: the superseded current row is archived with
// summary as its change summary. Rolling back to content identical to
// the current row reports unchanged.
func (db *DB) Rollback(id string, version int, summary string) (UpsertResult, error) {
	snap, err := db.GetVersion(id, version)
	if err != nil {
		return UpsertResult{}, err
	}
	cur, err := db.GetByID(id)
	if err != nil {
		return UpsertResult{}, err
	}
	return db.Upsert(models.Document{
		Name:     cur.Name,
		Category: cur.Category,
		Kind:     cur.Kind,
		Content:  snap.Content,
	}, summary)
}

// VerifyIntegrity recomputes the content hash of every current and
// history row and returns a ConsistencyError for the first mismatch.
func (db *DB) VerifyIntegrity() error {
	rows, err := db.conn.Query(`SELECT name, version, content, content_hash FROM documents`)
	if err != nil {
		return fmt.Errorf("store: verify current: %w", err)
	}
	if err := verifyRows(rows); err != nil {
		return err
	}

	rows, err = db.conn.Query(`SELECT name, version, content, content_hash FROM document_history`)
	if err != nil {
		return fmt.Errorf("store: verify history: %w", err)
	}
	return verifyRows(rows)
}

func verifyRows(rows *sql.Rows) error {
	defer rows.Close()
	for rows.Next() {
		var name, content, hash string
		var version int
		if err := rows.Scan(&name, &version, &content, &hash); err != nil {
			return err
		}
		if !checksum.Matches(hash, []byte(content)) {
			return &apperr.ConsistencyError{
				Name:     name,
				Version:  version,
				Stored:   hash,
				Computed: checksum.Sum([]byte(content)),
			}
		}
	}
	return rows.Err()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
