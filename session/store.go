// Package session maps chat users to marketplace credentials and hands
// out ready-to-use client handles.
package session

import (
	"context"
	"errors"

	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// ErrNoSession means no complete credential triple is stored for the
// user. Callers route the conversation to the login flow.
var ErrNoSession = errors.New("no session for user")

// Store is the persistence contract for per-user credentials.
type Store interface {
	// Get returns the stored triple, or ErrNoSession when the user has
	// none. No expiry check happens here; stale tokens are discovered
	// when the marketplace rejects a call.
	Get(ctx context.Context, userID string) (tgtgx.Credentials, error)

	// Put inserts or overwrites the user's triple and flushes it to
	// durable storage before returning.
	Put(ctx context.Context, userID string, creds tgtgx.Credentials) error
}
