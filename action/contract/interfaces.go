package contract

import (
	"context"

	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// Action is a handler that needs no marketplace session (login flow,
// formatting-only handlers).
type Action interface {
	Name() string
	Run(ctx context.Context, turn *Turn) (*Outcome, error)
}

// AuthedAction is a handler that operates on the user's marketplace
// account. The dispatcher performs the authentication gate and error
// translation once and passes a ready client in.
type AuthedAction interface {
	Name() string
	Execute(ctx context.Context, turn *Turn, client *tgtgx.Client) (*Outcome, error)
}

// Sessions is the slice of the session manager the dispatch layer uses.
type Sessions interface {
	ClientFor(ctx context.Context, userID string) (*tgtgx.Client, error)
	SaveIfRotated(ctx context.Context, userID string, client *tgtgx.Client) error
	Save(ctx context.Context, userID string, creds tgtgx.Credentials) error
	NewAnonymousClient() *tgtgx.Client
}
