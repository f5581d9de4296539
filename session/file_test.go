package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "creds.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(context.Background(), "user-1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestFileStorePutThenGet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "creds.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	creds := tgtgx.Credentials{AccessToken: "at", RefreshToken: "rt", Cookie: "ck"}
	if err := store.Put(context.Background(), "user-1", creds); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != creds {
		t.Fatalf("got %+v, want %+v", got, creds)
	}

	// Every Put flushes; a fresh store over the same file must see the
	// entry.
	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, err = reloaded.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if got != creds {
		t.Fatalf("after reload got %+v, want %+v", got, creds)
	}
}

func TestFileStorePartialTripleTreatedAbsent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "creds.json")
	raw := `{"user-1":{"access_token":"at","refresh_token":"","cookie":"ck"}}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(context.Background(), "user-1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for partial triple, got %v", err)
	}
}

func TestFileStoreRejectsPartialPut(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "creds.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = store.Put(context.Background(), "user-1", tgtgx.Credentials{AccessToken: "at"})
	if err == nil {
		t.Fatal("expected an error for a partial credential triple")
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "creds.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := tgtgx.Credentials{AccessToken: "a1", RefreshToken: "r1", Cookie: "c1"}
	second := tgtgx.Credentials{AccessToken: "a2", RefreshToken: "r2", Cookie: "c2"}
	ctx := context.Background()
	if err := store.Put(ctx, "user-1", first); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "user-1", second); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != second {
		t.Fatalf("got %+v, want %+v", got, second)
	}
}
