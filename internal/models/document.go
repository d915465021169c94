// Package models defines the domain types for Vellum.
package models

import "time"

// Kind discriminates the two document variants tracked by the store.
type Kind string

const (
	KindCommand Kind = "command"
	KindPlan    Kind = "plan"
)

// Valid reports whether k is a known document kind.
func (k Kind) Valid() bool {
	return k == KindCommand || k == KindPlan
}

// Plan lifecycle labels. A plan's lifecycle status is derived from the
// directory it lives in at load time and stored as its category; it is
// never an independently mutable field.
const (
	StatusDraft     = "draft"
	StatusApproved  = "approved"
	StatusCompleted = "completed"
)

// LifecycleLabels is the closed set of plan lifecycle directories.
var LifecycleLabels = []string{StatusDraft, StatusApproved, StatusCompleted}

// DefaultCategory tags files placed directly under a root or in an
// unrecognized directory.
const DefaultCategory = "uncategorized"

// Document is the current record of a named, versioned unit of text.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Kind        Kind      `json:"kind"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	Version     int       `json:"version"`
	ProjectRef  *string   `json:"project_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HistoryEntry is an archived, immutable prior version of a document.
type HistoryEntry struct {
	ID            string    `json:"id"`
	Version       int       `json:"version"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Kind          Kind      `json:"kind"`
	Content       string    `json:"content"`
	ContentHash   string    `json:"content_hash"`
	ProjectRef    *string   `json:"project_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ArchivedAt    time.Time `json:"archived_at"`
	ChangeSummary string    `json:"change_summary,omitempty"`
}

// Project is an optional grouping a document may reference. Removing a
// project clears the reference on its documents; it never deletes them.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Metric is one row of the metrics side-table.
type Metric struct {
	DocumentID string    `json:"document_id"`
	Version    int       `json:"version"`
	Name       string    `json:"metric_name"`
	Step       int       `json:"step"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}
