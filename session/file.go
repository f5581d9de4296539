package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// FileStore keeps the user→credentials mapping in one flat JSON file.
// The whole file is read at construction and rewritten on every Put.
// A mutex serializes concurrent writers; last writer wins.
type FileStore struct {
	path string

	mu      sync.Mutex
	entries map[string]tgtgx.Credentials
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads the mapping from path. A missing file yields an
// empty store, not an error.
func NewFileStore(path string) (*FileStore, error) {
	store := &FileStore{
		path:    path,
		entries: make(map[string]tgtgx.Credentials),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	if len(raw) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(raw, &store.entries); err != nil {
		return nil, fmt.Errorf("parse credential file %s: %w", path, err)
	}
	return store, nil
}

func (s *FileStore) Get(_ context.Context, userID string) (tgtgx.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, ok := s.entries[userID]
	if !ok || !creds.Valid() {
		return tgtgx.Credentials{}, ErrNoSession
	}
	return creds, nil
}

func (s *FileStore) Put(_ context.Context, userID string, creds tgtgx.Credentials) error {
	if userID == "" {
		return errors.New("user id is empty")
	}
	if !creds.Valid() {
		return errors.New("refusing to store a partial credential triple")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[userID] = creds
	return s.flushLocked()
}

// flushLocked rewrites the whole mapping. Callers hold s.mu.
func (s *FileStore) flushLocked() error {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("flush credential file: %w", err)
	}
	return nil
}
