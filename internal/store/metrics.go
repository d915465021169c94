package store

// The metrics side-table is outside the versioning core contract; it
// exists so collaborators can attach per-version measurements without
// touching the current or history tables.

import (
	"fmt"
	"time"

	"github.com/corrander/vellum/internal/models"
)

// RecordMetric inserts one measurement. The (document, version, name,
// step) key is append-only; re-recording the same key is a conflict
// surfaced to the caller.
func (db *DB) RecordMetric(m models.Metric) error {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO document_metrics (document_id, version, metric_name, step, value, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.DocumentID, m.Version, m.Name, m.Step, m.Value, m.RecordedAt)
	if err != nil {
		return fmt.Errorf("store: record metric %s/%s: %w", m.DocumentID, m.Name, err)
	}
	return nil
}

// MetricsFor returns all measurements for a document, ordered by
// version, name, then step.
func (db *DB) MetricsFor(documentID string) ([]models.Metric, error) {
	rows, err := db.conn.Query(`
		SELECT document_id, version, metric_name, step, value, recorded_at
		FROM document_metrics WHERE document_id = ?
		ORDER BY version, metric_name, step
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: metrics for %s: %w", documentID, err)
	}
	defer rows.Close()

	var out []models.Metric
	for rows.Next() {
		var m models.Metric
		if err := rows.Scan(&m.DocumentID, &m.Version, &m.Name, &m.Step, &m.Value, &m.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
