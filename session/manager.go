package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// ClientFactory builds a marketplace client handle from a credential
// triple. Injected so tests can return handles over fake servers.
type ClientFactory func(creds tgtgx.Credentials) *tgtgx.Client

// Manager turns a user identifier into an authenticated marketplace
// client. Each request gets its own handle; there is no process-wide
// client.
type Manager struct {
	store    Store
	factory  ClientFactory
	fallback *tgtgx.Credentials
}

type ManagerOption func(*Manager)

// WithFallback installs a single global credential triple (from the
// process environment) used for users with no stored session. Invalid
// triples are ignored.
func WithFallback(creds tgtgx.Credentials) ManagerOption {
	return func(m *Manager) {
		if creds.Valid() {
			m.fallback = &creds
		}
	}
}

func NewManager(store Store, factory ClientFactory, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, factory: factory}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// ClientFor returns a client for the user's stored credentials, the
// fallback triple when configured, or ErrNoSession. The tokens are not
// validated remotely here.
func (m *Manager) ClientFor(ctx context.Context, userID string) (*tgtgx.Client, error) {
	creds, err := m.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			if m.fallback != nil {
				return m.factory(*m.fallback), nil
			}
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return m.factory(creds), nil
}

// SaveIfRotated re-persists the client's triple when the marketplace
// rotated a token during a call. This is the only refresh
// reconciliation point; there is no background job.
func (m *Manager) SaveIfRotated(ctx context.Context, userID string, client *tgtgx.Client) error {
	current := client.Credentials()
	if !current.Valid() {
		return nil
	}

	stored, err := m.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			// Fallback-backed client; nothing stored to reconcile.
			return nil
		}
		return fmt.Errorf("load credentials: %w", err)
	}
	if stored == current {
		return nil
	}

	log.Debug().Str("user_id", userID).Msg("persisting rotated marketplace tokens")
	return m.store.Put(ctx, userID, current)
}

// Save validates and persists a freshly retrieved triple (login flow
// completion).
func (m *Manager) Save(ctx context.Context, userID string, creds tgtgx.Credentials) error {
	if !creds.Valid() {
		return errors.New("refusing to store a partial credential triple")
	}
	return m.store.Put(ctx, userID, creds)
}

// NewAnonymousClient builds a handle with no credentials, for the
// pre-login auth endpoints.
func (m *Manager) NewAnonymousClient() *tgtgx.Client {
	return m.factory(tgtgx.Credentials{})
}
