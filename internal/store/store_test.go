package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/voxdesk/client/internal/store"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := store.NewMemoryStore()

	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected miss for absent key")
	}

	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	got, ok := s.Get("k")
	if !ok || got != "v" {
		t.Fatalf("unexpected value: got %q ok=%v", got, ok)
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected key to be gone after delete")
	}
}

func TestFileStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	if err := s.Set("alpha", "1"); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	if err := s.Set("beta", "2"); err != nil {
		t.Fatalf("Set err: %v", err)
	}

	reopened, err := store.Open(path)
	if err != nil {
		t.Fatalf("reopen err: %v", err)
	}
	got, ok := reopened.Get("alpha")
	if !ok || got != "1" {
		t.Fatalf("expected alpha=1 after reopen, got %q ok=%v", got, ok)
	}
	if keys := reopened.Keys(); len(keys) != 2 {
		t.Fatalf("expected 2 keys after reopen, got %v", keys)
	}
}

func TestFileStoreDiscardsCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed file err: %v", err)
	}

	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	if keys := s.Keys(); len(keys) != 0 {
		t.Fatalf("expected empty store after corruption, got %v", keys)
	}
}
