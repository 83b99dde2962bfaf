package workspace

import (
	"context"
	"testing"
)

func TestLocalStoreWriteThenReadRoundTrips(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	created, err := store.Write(ctx, "a/b.txt", []byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !created {
		t.Fatalf("Write: expected created=true for a new path")
	}

	content, err := store.Read(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(content) != "hello" {
		t.Fatalf("Read: expected %q, got %q", "hello", content)
	}
}

func TestLocalStoreWriteOverwriteReportsNotCreated(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Write(ctx, "a.txt", []byte("v1"), ""); err != nil {
		t.Fatalf("Write #1: %v", err)
	}
	created, err := store.Write(ctx, "a.txt", []byte("v2"), "")
	if err != nil {
		t.Fatalf("Write #2: %v", err)
	}
	if created {
		t.Fatalf("Write #2: expected created=false on overwrite")
	}
}

func TestLocalStoreExists(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	ok, err := store.Exists(ctx, "missing.txt")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatalf("Exists: expected false for a missing path")
	}

	if _, err := store.Write(ctx, "present.txt", []byte("x"), ""); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err = store.Exists(ctx, "present.txt")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatalf("Exists: expected true once written")
	}
}

func TestLocalStoreRejectsEscapingPath(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if _, err := store.Read(context.Background(), "../../../etc/passwd"); err == nil {
		t.Fatalf("Read: expected an error for a path escaping the workspace root")
	}
}

func TestLocalStoreReadMissingFileErrors(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if _, err := store.Read(context.Background(), "nope.txt"); err == nil {
		t.Fatalf("Read: expected error for a missing file")
	}
}
