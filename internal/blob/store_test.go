package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStoreSave(t *testing.T) {
	store := &DiskStore{Dir: t.TempDir()}

	ref, err := store.Save(context.Background(), "pool-1", "user-2", []byte("bukti"), "image/jpeg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(ref, filepath.Join("pool-1", "user-2-")) {
		t.Fatalf("ref should carry pool and user, got %q", ref)
	}
	if !strings.HasSuffix(ref, ".jpg") {
		t.Fatalf("expected .jpg ref, got %q", ref)
	}

	b, err := os.ReadFile(filepath.Join(store.Dir, ref))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "bukti" {
		t.Fatalf("payload mismatch: %q", b)
	}
}

func TestDiskStoreSaveTwiceDoesNotCollide(t *testing.T) {
	store := &DiskStore{Dir: t.TempDir()}

	ref1, err := store.Save(context.Background(), "pool-1", "user-2", []byte("a"), "image/png")
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	ref2, err := store.Save(context.Background(), "pool-1", "user-2", []byte("b"), "image/png")
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if ref1 == ref2 {
		t.Fatal("re-upload must produce a fresh ref")
	}
}

func TestDiskStoreRejectsEmptyPayload(t *testing.T) {
	store := &DiskStore{Dir: t.TempDir()}
	if _, err := store.Save(context.Background(), "pool-1", "user-2", nil, "image/jpeg"); err == nil {
		t.Fatal("expected error on empty payload")
	}
}

func TestExtFor(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"application/pdf": ".pdf",
		"":                ".bin",
		"text/plain":      ".bin",
	}
	for ct, want := range cases {
		if got := extFor(ct); got != want {
			t.Errorf("extFor(%q) = %q, want %q", ct, got, want)
		}
	}
}
