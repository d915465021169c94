package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/corrander/vellum/internal/apperr"
	"github.com/corrander/vellum/internal/category"
	"github.com/corrander/vellum/internal/loader"
	"github.com/corrander/vellum/internal/models"
	"github.com/corrander/vellum/internal/store"
	"github.com/corrander/vellum/internal/testutil"
)

type fixture struct {
	dir    string
	dbPath string
	db     *store.DB
	eng    *Engine
}

func newFixture(t *testing.T, cb EventCallback) *fixture {
	t.Helper()
	dir, fs := testutil.TestWorkspace(t)
	cats, err := category.New([]string{"build", "deploy"})
	if err != nil {
		t.Fatal(err)
	}
	l, err := loader.New(fs, loader.Roots{
		CommandRoots: []string{"commands"},
		PlanRoot:     "plans",
		Extension:    ".md",
	}, cats)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.EnsureLayout(); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(t.TempDir(), "vellum.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return &fixture{dir: dir, dbPath: dbPath, db: db, eng: New(l, db, fs, logger, cb)}
}

// corruptContent desyncs a current row's content from its stored hash
// through a side connection, simulating out-of-band tampering.
func corruptContent(t *testing.T, f *fixture, id string) {
	t.Helper()
	conn, err := sql.Open("sqlite3", f.dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Exec(`UPDATE documents SET content = 'tampered' WHERE id = ?`, id); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSync_InitialImport(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "commands/build/release.md", "release steps")
	f.write(t, "plans/draft/migration.md", "draft plan")

	sum, err := f.eng.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(sum.Created) != 2 || len(sum.Updated) != 0 || len(sum.Unchanged) != 0 || len(sum.Errors) != 0 {
		t.Fatalf("summary = %+v", sum)
	}

	cur, err := f.db.GetCurrent("release")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if cur.Version != 1 || cur.Category != "build" || cur.Kind != models.KindCommand {
		t.Errorf("release = %+v", cur)
	}
	plan, _ := f.db.GetCurrent("migration")
	if plan.Category != models.StatusDraft || plan.Kind != models.KindPlan {
		t.Errorf("migration = %+v", plan)
	}
}

func TestSync_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "commands/release.md", "v1")

	if _, err := f.eng.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	sum, err := f.eng.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Unchanged) != 1 || len(sum.Created) != 0 || len(sum.Updated) != 0 {
		t.Fatalf("second pass summary = %+v", sum)
	}

	cur, _ := f.db.GetCurrent("release")
	if cur.Version != 1 {
		t.Errorf("version inflated to %d by a no-op sync", cur.Version)
	}
}

func TestSync_EditArchivesPrior(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "commands/release.md", "v1")
	if _, err := f.eng.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.write(t, "commands/release.md", "v2")
	sum, err := f.eng.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Updated) != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	cur, _ := f.db.GetCurrent("release")
	if cur.Version != 2 || cur.Content != "v2" {
		t.Errorf("current = %+v", cur)
	}
	hist, _ := f.db.History(cur.ID)
	if len(hist) != 1 || hist[0].Content != "v1" {
		t.Errorf("history = %+v", hist)
	}
}

func TestSync_BatchAccounting(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "commands/a.md", "a1")
	f.write(t, "commands/b.md", "b1")
	f.write(t, "commands/c.md", "c1")
	if _, err := f.eng.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	// One changed, one new, two untouched.
	f.write(t, "commands/a.md", "a2")
	f.write(t, "commands/d.md", "d1")

	sum, err := f.eng.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Created) != 1 || len(sum.Updated) != 1 || len(sum.Unchanged) != 2 || len(sum.Errors) != 0 {
		t.Fatalf("summary = %+v", sum)
	}

	docs, err := f.db.ListCurrent()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 4 {
		t.Errorf("current rows = %d, want 4", len(docs))
	}
}

func TestSync_BadFileDoesNotHaltBatch(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "commands/good.md", "fine")
	f.write(t, "commands/bad.md", string([]byte{0xff, 0xfe}))

	sum, err := f.eng.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(sum.Created) != 1 || len(sum.Errors) != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Errors[0].Stage != StageLoad {
		t.Errorf("stage = %q", sum.Errors[0].Stage)
	}
	if _, err := f.db.GetCurrent("good"); err != nil {
		t.Error("healthy sibling must still be synced")
	}
}

func TestSync_ConsistencyAbort(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "commands/release.md", "v1")
	if _, err := f.eng.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Tamper with the stored row so its hash no longer matches.
	cur, _ := f.db.GetCurrent("release")
	corruptContent(t, f, cur.ID)

	f.write(t, "commands/release.md", "v2")
	_, err := f.eng.Sync(context.Background())
	if !apperr.IsConsistency(err) {
		t.Fatalf("err = %v, want ConsistencyError", err)
	}

	// Nothing may be layered on the corrupt row.
	after, _ := f.db.GetCurrent("release")
	if after.Version != 1 {
		t.Errorf("version advanced to %d on a corrupt baseline", after.Version)
	}
}

func TestSync_Callback(t *testing.T) {
	type event struct {
		outcome store.Outcome
		name    string
	}
	var events []event
	f := newFixture(t, func(o store.Outcome, name string) {
		events = append(events, event{o, name})
	})

	f.write(t, "commands/release.md", "v1")
	if _, err := f.eng.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].outcome != store.OutcomeCreated || events[0].name != "release" {
		t.Fatalf("events = %+v", events)
	}

	// An unchanged pass is silent.
	events = nil
	if _, err := f.eng.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("unchanged pass emitted events: %+v", events)
	}
}

func TestSyncFile(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "commands/deploy/canary.md", "canary steps")

	res, err := f.eng.SyncFile(filepath.Join("commands", "deploy", "canary.md"))
	if err != nil {
		t.Fatalf("SyncFile: %v", err)
	}
	if res.Outcome != store.OutcomeCreated {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if _, err := f.eng.SyncFile("outside/thing.md"); err == nil {
		t.Error("path outside roots must error")
	}
}
