// Package category maps directory placement to category labels drawn from
// a configured finite set.
package category

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/corrander/vellum/internal/models"
)

// Resolver resolves a file's category from its parent directory and can
// materialize the category layout under a root. The label set is closed:
// it is validated once at construction and never grows at runtime.
type Resolver struct {
	labels []string
	known  map[string]struct{}
}

// New builds a Resolver from an ordered list of labels. Labels must be
// non-empty, unique, and must not shadow the default category.
func New(labels []string) (*Resolver, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("category: at least one label required")
	}
	known := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("category: empty label")
		}
		if l == models.DefaultCategory {
			return nil, fmt.Errorf("category: label %q is reserved", models.DefaultCategory)
		}
		if _, dup := known[l]; dup {
			return nil, fmt.Errorf("category: duplicate label %q", l)
		}
		known[l] = struct{}{}
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return &Resolver{labels: out, known: known}, nil
}

// Labels returns the configured labels in their original order.
func (r *Resolver) Labels() []string {
	out := make([]string, len(r.labels))
	copy(out, r.labels)
	return out
}

// Resolve maps a root-relative file path to a category label. Files
// directly under the root, or under a directory that is not a configured
// label, resolve to the default category.
func (r *Resolver) Resolve(rel string) string {
	dir := filepath.Dir(filepath.Clean(rel))
	if dir == "." || dir == string(filepath.Separator) {
		return models.DefaultCategory
	}
	parent := filepath.Base(dir)
	if _, ok := r.known[parent]; ok {
		return parent
	}
	return models.DefaultCategory
}

// EnsureDirs idempotently creates the root and one subdirectory per
// label. A root that cannot be created is a fatal configuration error
// and is returned to the caller.
func (r *Resolver) EnsureDirs(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("category: create root %s: %w", root, err)
	}
	for _, l := range r.labels {
		if err := os.MkdirAll(filepath.Join(root, l), 0o755); err != nil {
			return fmt.Errorf("category: create %s/%s: %w", root, l, err)
		}
	}
	return nil
}
