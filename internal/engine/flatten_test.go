package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/corrander/vellum/internal/models"
	"github.com/corrander/vellum/internal/store"
)

func upsert(t *testing.T, db *store.DB, doc models.Document) {
	t.Helper()
	if _, err := db.Upsert(doc, ""); err != nil {
		t.Fatalf("Upsert %s: %v", doc.Name, err)
	}
}

func readWorkspaceFile(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestFlatten(t *testing.T) {
	f := newFixture(t, nil)
	upsert(t, f.db, models.Document{Name: "release", Category: "build", Kind: models.KindCommand, Content: "release steps"})
	upsert(t, f.db, models.Document{Name: "loose", Category: models.DefaultCategory, Kind: models.KindCommand, Content: "loose content"})
	upsert(t, f.db, models.Document{Name: "rollout", Category: models.StatusApproved, Kind: models.KindPlan, Content: "rollout plan"})

	sum, err := f.eng.Flatten(context.Background())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(sum.Written) != 3 || len(sum.Errors) != 0 {
		t.Fatalf("summary = %+v", sum)
	}

	if got := readWorkspaceFile(t, f.dir, "commands/build/release.md"); got != "release steps" {
		t.Errorf("release content = %q", got)
	}
	if got := readWorkspaceFile(t, f.dir, "commands/loose.md"); got != "loose content" {
		t.Errorf("loose content = %q", got)
	}
	if got := readWorkspaceFile(t, f.dir, "plans/approved/rollout.md"); got != "rollout plan" {
		t.Errorf("rollout content = %q", got)
	}
}

func TestFlatten_OverwritesStaleFile(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "commands/build/release.md", "stale on disk")
	upsert(t, f.db, models.Document{Name: "release", Category: "build", Kind: models.KindCommand, Content: "store wins"})

	if _, err := f.eng.Flatten(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := readWorkspaceFile(t, f.dir, "commands/build/release.md"); got != "store wins" {
		t.Errorf("content = %q, want store content", got)
	}
}

func TestFlatten_RoundTripIsUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "commands/build/release.md", "v1")
	if _, err := f.eng.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.eng.Flatten(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Syncing the flattened tree must not mint new versions.
	sum, err := f.eng.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Unchanged) != 1 || len(sum.Updated) != 0 || len(sum.Created) != 0 {
		t.Fatalf("round-trip summary = %+v", sum)
	}
}

func TestFlatten_CaseInsensitiveCollision(t *testing.T) {
	f := newFixture(t, nil)
	upsert(t, f.db, models.Document{Name: "Release", Category: "build", Kind: models.KindCommand, Content: "a"})
	upsert(t, f.db, models.Document{Name: "release", Category: "build", Kind: models.KindCommand, Content: "b"})
	upsert(t, f.db, models.Document{Name: "other", Category: "build", Kind: models.KindCommand, Content: "c"})

	sum, err := f.eng.Flatten(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Errors) != 2 {
		t.Fatalf("errors = %+v, want both colliders", sum.Errors)
	}
	if len(sum.Written) != 1 || sum.Written[0] != "other" {
		t.Fatalf("written = %v", sum.Written)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "commands/build/release.md")); !os.IsNotExist(err) {
		t.Error("no collider may be written")
	}
	if _, err := os.Stat(filepath.Join(f.dir, "commands/build/Release.md")); !os.IsNotExist(err) {
		t.Error("no collider may be written")
	}
}
