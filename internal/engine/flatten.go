package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// writeWorkers bounds parallel flatten writes; distinct files are
// independent.
const writeWorkers = 8

// FlattenError is one per-document failure inside a flatten pass.
type FlattenError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FlattenSummary reports what a flatten pass wrote.
type FlattenSummary struct {
	Written []string       `json:"written"`
	Errors  []FlattenError `json:"errors"`
}

// Flatten projects every current document back onto disk at the path
// derived from its kind, category, and name. Writes are atomic and
// idempotent overwrites; history is not touched. Documents whose target
// paths collide (compared case-insensitively, so case-preserving file
// systems are covered) are all reported as errors and none of them is
// written.
func (e *Engine) Flatten(ctx context.Context) (*FlattenSummary, error) {
	// One query gives a consistent snapshot of the current table.
	docs, err := e.db.ListCurrent()
	if err != nil {
		return nil, err
	}

	pathOwners := make(map[string][]int, len(docs))
	for i, doc := range docs {
		key := strings.ToLower(e.loader.PathFor(doc))
		pathOwners[key] = append(pathOwners[key], i)
	}

	summary := &FlattenSummary{}
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(writeWorkers)
	for _, doc := range docs {
		rel := e.loader.PathFor(doc)
		if owners := pathOwners[strings.ToLower(rel)]; len(owners) > 1 {
			mu.Lock()
			summary.Errors = append(summary.Errors, FlattenError{
				Name:   doc.Name,
				Reason: "path collision: " + rel,
			})
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			err := e.fs.Write(rel, []byte(doc.Content))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Errors = append(summary.Errors, FlattenError{Name: doc.Name, Reason: err.Error()})
				return nil
			}
			summary.Written = append(summary.Written, doc.Name)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(summary.Written)
	sort.Slice(summary.Errors, func(i, j int) bool { return summary.Errors[i].Name < summary.Errors[j].Name })

	e.logger.Info("flatten: pass complete",
		slog.Int("written", len(summary.Written)),
		slog.Int("errors", len(summary.Errors)))
	return summary, nil
}
