// Package loader walks the configured document roots and turns matching
// files into in-memory Document values.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"

	"github.com/corrander/vellum/internal/category"
	"github.com/corrander/vellum/internal/checksum"
	"github.com/corrander/vellum/internal/models"
	"github.com/corrander/vellum/internal/storage"
)

// readWorkers bounds the parallel file reads in Load. Reads are pure and
// share no mutable state, so the pool size is a throughput knob only.
const readWorkers = 8

// Roots describes where documents live, relative to the workspace root.
type Roots struct {
	CommandRoots []string
	PlanRoot     string
	Extension    string
}

// LoadError captures a single file that could not be loaded. The scan
// continues past it.
type LoadError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Loader scans the workspace and produces candidate documents.
type Loader struct {
	store     storage.Provider
	roots     Roots
	commands  *category.Resolver
	lifecycle *category.Resolver
}

// New creates a Loader. commandCats resolves categories for command
// roots; plan roots always use the fixed lifecycle label set.
func New(store storage.Provider, roots Roots, commandCats *category.Resolver) (*Loader, error) {
	if len(roots.CommandRoots) == 0 {
		return nil, fmt.Errorf("loader: at least one command root required")
	}
	if roots.PlanRoot == "" {
		return nil, fmt.Errorf("loader: plan root required")
	}
	if !strings.HasPrefix(roots.Extension, ".") {
		return nil, fmt.Errorf("loader: extension must start with a dot: %q", roots.Extension)
	}
	lifecycle, err := category.New(models.LifecycleLabels)
	if err != nil {
		return nil, err
	}
	return &Loader{
		store:     store,
		roots:     roots,
		commands:  commandCats,
		lifecycle: lifecycle,
	}, nil
}

// EnsureLayout idempotently creates every configured root with its
// category (or lifecycle) subdirectories.
func (l *Loader) EnsureLayout() error {
	for _, root := range l.roots.CommandRoots {
		if err := l.commands.EnsureDirs(filepath.Join(l.store.Root(), root)); err != nil {
			return err
		}
	}
	return l.lifecycle.EnsureDirs(filepath.Join(l.store.Root(), l.roots.PlanRoot))
}

type candidate struct {
	path string
	root string
	kind models.Kind
}

// Load scans every configured root and returns the documents found plus
// per-file load errors. Individual failures never abort the scan. A
// logical name appearing more than once (in any two placements) is
// ambiguous and reported as a LoadError for every occurrence; none of
// the occurrences is returned as a document.
func (l *Loader) Load(ctx context.Context) ([]models.Document, []LoadError) {
	var cands []candidate
	var loadErrs []LoadError

	appendRoot := func(root string, kind models.Kind) {
		metas, err := l.store.List(root, l.roots.Extension)
		if err != nil {
			loadErrs = append(loadErrs, LoadError{Path: root, Reason: err.Error()})
			return
		}
		for _, m := range metas {
			cands = append(cands, candidate{path: m.Path, root: root, kind: kind})
		}
	}
	for _, root := range l.roots.CommandRoots {
		appendRoot(root, models.KindCommand)
	}
	appendRoot(l.roots.PlanRoot, models.KindPlan)

	type loaded struct {
		doc  models.Document
		path string
	}

	var mu sync.Mutex
	var results []loaded

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(readWorkers)
	for _, c := range cands {
		g.Go(func() error {
			doc, err := l.loadOne(c)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				loadErrs = append(loadErrs, LoadError{Path: c.path, Reason: err.Error()})
				return nil
			}
			results = append(results, loaded{doc: *doc, path: c.path})
			return nil
		})
	}
	_ = g.Wait()

	// A logical name seen twice is ambiguous; drop every occurrence.
	counts := make(map[string]int, len(results))
	for _, r := range results {
		counts[r.doc.Name]++
	}
	var docs []models.Document
	for _, r := range results {
		if counts[r.doc.Name] > 1 {
			loadErrs = append(loadErrs, LoadError{
				Path:   r.path,
				Reason: fmt.Sprintf("ambiguous: name %q maps to %d files", r.doc.Name, counts[r.doc.Name]),
			})
			continue
		}
		docs = append(docs, r.doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	sort.Slice(loadErrs, func(i, j int) bool { return loadErrs[i].Path < loadErrs[j].Path })
	return docs, loadErrs
}

// LoadFile loads a single workspace-relative path, resolving its kind and
// category from which root it sits under. Used by the watcher for
// incremental syncs.
func (l *Loader) LoadFile(rel string) (*models.Document, error) {
	if !strings.HasSuffix(rel, l.roots.Extension) {
		return nil, fmt.Errorf("loader: %s: unrecognized extension", rel)
	}
	for _, root := range l.roots.CommandRoots {
		if underRoot(rel, root) {
			return l.loadOne(candidate{path: rel, root: root, kind: models.KindCommand})
		}
	}
	if underRoot(rel, l.roots.PlanRoot) {
		return l.loadOne(candidate{path: rel, root: l.roots.PlanRoot, kind: models.KindPlan})
	}
	return nil, fmt.Errorf("loader: %s: outside configured roots", rel)
}

// PathFor is the inverse of loading: the workspace-relative path a
// document's content is projected to. Commands flatten into the first
// configured command root; default-category documents sit directly under
// their root.
func (l *Loader) PathFor(doc models.Document) string {
	root := l.roots.PlanRoot
	if doc.Kind == models.KindCommand {
		root = l.roots.CommandRoots[0]
	}
	if doc.Category == models.DefaultCategory {
		return filepath.Join(root, doc.Name+l.roots.Extension)
	}
	return filepath.Join(root, doc.Category, doc.Name+l.roots.Extension)
}

func (l *Loader) loadOne(c candidate) (*models.Document, error) {
	data, err := l.store.Read(c.path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("loader: %s: not valid UTF-8", c.path)
	}

	rootRel, err := filepath.Rel(c.root, c.path)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: outside root %s: %w", c.path, c.root, err)
	}

	resolver := l.commands
	if c.kind == models.KindPlan {
		resolver = l.lifecycle
	}

	stem := strings.TrimSuffix(filepath.Base(c.path), l.roots.Extension)
	return &models.Document{
		Name:        slug.Make(stem),
		Category:    resolver.Resolve(rootRel),
		Kind:        c.kind,
		Content:     string(data),
		ContentHash: checksum.Sum(data),
	}, nil
}

func underRoot(rel, root string) bool {
	return rel == root || strings.HasPrefix(rel, root+string(filepath.Separator))
}
