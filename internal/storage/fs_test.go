package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := []byte("deploy steps\n")
	if err := s.Write("release.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("release.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Write("commands/deploy/canary.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("commands/deploy/canary.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteIsIdempotentOverwrite(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Write("a.md", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("a.md", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ := s.Read("a.md")
	if string(got) != "v2" {
		t.Errorf("content = %q, want v2", got)
	}
	// No temp files left behind.
	entries, _ := os.ReadDir(s.Root())
	for _, e := range entries {
		if e.Name() != "a.md" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestPathEscapeRejected(t *testing.T) {
	s := tempWorkspace(t)
	if _, err := s.Read("../outside.md"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	if err := s.Write("../outside.md", []byte("x")); err == nil {
		t.Error("expected traversal write to be rejected")
	}
	if _, err := s.Read(string(filepath.Separator) + "abs.md"); err == nil {
		t.Error("expected absolute path to be rejected")
	}
}

func TestList(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("commands/a.md", []byte("a"))
	_ = s.Write("commands/deploy/b.md", []byte("b"))
	_ = s.Write("commands/readme.txt", []byte("skip"))
	_ = s.Write("plans/draft/c.md", []byte("c"))

	metas, err := s.List("commands", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("len = %d, want 2", len(metas))
	}
	for _, m := range metas {
		if filepath.Ext(m.Path) != ".md" {
			t.Errorf("unexpected file %q", m.Path)
		}
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempWorkspace(t)
	metas, err := s.List("nope", ".md")
	if err != nil {
		t.Fatalf("List on missing dir: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("len = %d, want 0", len(metas))
	}
}
