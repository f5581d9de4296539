// Package action implements the named request handlers behind the
// dialogue engine and the coordinator that wraps them.
package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tgtg-tools/bagbot/action/contract"
	"github.com/tgtg-tools/bagbot/session"
	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

const (
	msgVerifyFirst    = "I need to verify your marketplace account before I can do that. Let's get you signed in."
	msgSessionExpired = "Your session has expired — let's sign you in again."
	msgAPITrouble     = "I'm having trouble reaching the marketplace right now. Please try again in a moment."
)

// Dispatcher routes an action name to its handler. For authenticated
// handlers it performs the session gate and the uniform error
// translation exactly once, instead of each handler re-implementing
// them.
type Dispatcher struct {
	sessions contractx.Sessions
	actions  map[string]contractx.Action
}

func NewDispatcher(sessions contractx.Sessions) *Dispatcher {
	return &Dispatcher{
		sessions: sessions,
		actions:  make(map[string]contractx.Action),
	}
}

func (d *Dispatcher) Register(a contractx.Action) {
	d.actions[a.Name()] = a
}

// RegisterAuthed wraps an authenticated handler with the coordinator
// and registers it under its wire name.
func (d *Dispatcher) RegisterAuthed(a contractx.AuthedAction) {
	d.Register(&authedCoordinator{inner: a, sessions: d.sessions})
}

// ActionNames returns the registered wire names.
func (d *Dispatcher) ActionNames() []string {
	names := make([]string, 0, len(d.actions))
	for name := range d.actions {
		names = append(names, name)
	}
	return names
}

// Dispatch runs the handler registered under name for one turn.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, turn *contractx.Turn) (*contractx.Outcome, error) {
	if turn == nil {
		return nil, contractx.ErrNilTurn
	}
	handler, ok := d.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownAction, name)
	}
	return handler.Run(ctx, turn)
}

// authedCoordinator is the single place where the authentication gate
// and marketplace error translation happen.
type authedCoordinator struct {
	inner    contractx.AuthedAction
	sessions contractx.Sessions
}

func (c *authedCoordinator) Name() string {
	return c.inner.Name()
}

func (c *authedCoordinator) Run(ctx context.Context, turn *contractx.Turn) (*contractx.Outcome, error) {
	client, err := c.sessions.ClientFor(ctx, turn.SenderID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			out := &contractx.Outcome{}
			out.Say(msgVerifyFirst)
			out.SetSlot(contractx.SlotIsLoggedIn, false)
			out.FollowUp(contractx.ActionLoginStart)
			return out, nil
		}
		// Credential store failure is fatal to this turn.
		return nil, err
	}

	out, err := c.inner.Execute(ctx, turn, client)
	if err != nil {
		return c.translate(turn, err), nil
	}

	// Persist tokens the marketplace rotated during the call. A flush
	// failure fails the turn like any other store failure.
	if err := c.sessions.SaveIfRotated(ctx, turn.SenderID, client); err != nil {
		return nil, err
	}
	return out, nil
}

// translate converts marketplace failures into user-facing replies:
// rejected credentials force the login flow, anything else becomes a
// generic apology with no state change.
func (c *authedCoordinator) translate(turn *contractx.Turn, err error) *contractx.Outcome {
	out := &contractx.Outcome{}
	if errors.Is(err, tgtgx.ErrUnauthorized) {
		log.Info().Str("action", c.inner.Name()).Str("user_id", turn.SenderID).Msg("session rejected, routing to login")
		out.Say(msgSessionExpired)
		out.SetSlot(contractx.SlotIsLoggedIn, false)
		out.SetSlot(contractx.SlotLoginState, contractx.LoginAnonymous)
		out.FollowUp(contractx.ActionLoginStart)
		return out
	}

	log.Error().Err(err).Str("action", c.inner.Name()).Str("user_id", turn.SenderID).Msg("marketplace call failed")
	out.Say(msgAPITrouble)
	return out
}
