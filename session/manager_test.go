package session

import (
	"context"
	"errors"
	"testing"

	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

type fakeStore struct {
	entries map[string]tgtgx.Credentials
	getErr  error
	putErr  error
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]tgtgx.Credentials)}
}

func (f *fakeStore) Get(_ context.Context, userID string) (tgtgx.Credentials, error) {
	if f.getErr != nil {
		return tgtgx.Credentials{}, f.getErr
	}
	creds, ok := f.entries[userID]
	if !ok || !creds.Valid() {
		return tgtgx.Credentials{}, ErrNoSession
	}
	return creds, nil
}

func (f *fakeStore) Put(_ context.Context, userID string, creds tgtgx.Credentials) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.entries[userID] = creds
	return nil
}

func testFactory(creds tgtgx.Credentials) *tgtgx.Client {
	return tgtgx.New(tgtgx.Config{BaseURL: "http://marketplace.invalid", RateLimit: 1000}, creds)
}

func TestManagerNoSession(t *testing.T) {
	t.Parallel()

	manager := NewManager(newFakeStore(), testFactory)
	if _, err := manager.ClientFor(context.Background(), "stranger"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestManagerClientAfterSave(t *testing.T) {
	t.Parallel()

	manager := NewManager(newFakeStore(), testFactory)
	ctx := context.Background()
	creds := tgtgx.Credentials{AccessToken: "at", RefreshToken: "rt", Cookie: "ck"}

	if err := manager.Save(ctx, "user-1", creds); err != nil {
		t.Fatalf("save: %v", err)
	}
	client, err := manager.ClientFor(ctx, "user-1")
	if err != nil {
		t.Fatalf("expected a client right after save, got %v", err)
	}
	if client.Credentials() != creds {
		t.Fatalf("client carries %+v, want %+v", client.Credentials(), creds)
	}
}

func TestManagerFallback(t *testing.T) {
	t.Parallel()

	fallback := tgtgx.Credentials{AccessToken: "env-at", RefreshToken: "env-rt", Cookie: "env-ck"}
	manager := NewManager(newFakeStore(), testFactory, WithFallback(fallback))

	client, err := manager.ClientFor(context.Background(), "stranger")
	if err != nil {
		t.Fatalf("expected fallback client, got %v", err)
	}
	if client.Credentials() != fallback {
		t.Fatalf("client carries %+v, want fallback", client.Credentials())
	}
}

func TestManagerIgnoresInvalidFallback(t *testing.T) {
	t.Parallel()

	manager := NewManager(newFakeStore(), testFactory, WithFallback(tgtgx.Credentials{AccessToken: "only"}))
	if _, err := manager.ClientFor(context.Background(), "stranger"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSaveIfRotatedNoChange(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	creds := tgtgx.Credentials{AccessToken: "at", RefreshToken: "rt", Cookie: "ck"}
	store.entries["user-1"] = creds
	manager := NewManager(store, testFactory)

	ctx := context.Background()
	client, err := manager.ClientFor(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.SaveIfRotated(ctx, "user-1", client); err != nil {
		t.Fatal(err)
	}
	if store.puts != 0 {
		t.Fatalf("expected no writes for unchanged credentials, got %d", store.puts)
	}
}

func TestSaveIfRotatedPersistsRotation(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.entries["user-1"] = tgtgx.Credentials{AccessToken: "old", RefreshToken: "old", Cookie: "ck"}
	manager := NewManager(store, testFactory)

	rotated := tgtgx.Credentials{AccessToken: "new", RefreshToken: "new", Cookie: "ck"}
	client := testFactory(rotated)

	ctx := context.Background()
	if err := manager.SaveIfRotated(ctx, "user-1", client); err != nil {
		t.Fatal(err)
	}
	if store.puts != 1 {
		t.Fatalf("expected exactly one write, got %d", store.puts)
	}
	if store.entries["user-1"] != rotated {
		t.Fatalf("stored %+v, want %+v", store.entries["user-1"], rotated)
	}
}

func TestSaveIfRotatedSkipsFallbackClients(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	fallback := tgtgx.Credentials{AccessToken: "env-at", RefreshToken: "env-rt", Cookie: "env-ck"}
	manager := NewManager(store, testFactory, WithFallback(fallback))

	ctx := context.Background()
	client, err := manager.ClientFor(ctx, "stranger")
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.SaveIfRotated(ctx, "stranger", client); err != nil {
		t.Fatal(err)
	}
	if store.puts != 0 {
		t.Fatalf("fallback credentials must not be persisted, got %d writes", store.puts)
	}
}
