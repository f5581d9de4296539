package action

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tgtg-tools/bagbot/action/contract"
	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// LoginStart opens the login flow: anonymous → awaiting-email.
type LoginStart struct{}

var _ contractx.Action = LoginStart{}

func (LoginStart) Name() string {
	return contractx.ActionLoginStart
}

func (LoginStart) Run(_ context.Context, _ *contractx.Turn) (*contractx.Outcome, error) {
	out := &contractx.Outcome{}
	out.Say("Let's get you signed in. What's the email address on your marketplace account?")
	out.SetSlot(contractx.SlotIsLoggedIn, false)
	out.SetSlot(contractx.SlotLoginState, contractx.LoginAwaitingEmail)
	return out, nil
}

// LoginConfig bounds the out-of-band verification wait. The service
// only releases credentials after the user clicks the email link, so
// the handler polls until done or the timeout elapses.
type LoginConfig struct {
	PollTimeout  time.Duration `split_words:"true" default:"2m"`
	PollInterval time.Duration `split_words:"true" default:"5s"`
}

// LoginSubmit drives awaiting-email → awaiting-verification →
// authenticated. On success the retrieved triple is written to the
// credential store; on timeout or failure the flow resets to anonymous.
type LoginSubmit struct {
	sessions contractx.Sessions
	conf     LoginConfig
}

var _ contractx.Action = (*LoginSubmit)(nil)

func NewLoginSubmit(sessions contractx.Sessions, conf LoginConfig) *LoginSubmit {
	if conf.PollTimeout <= 0 {
		conf.PollTimeout = 2 * time.Minute
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = 5 * time.Second
	}
	return &LoginSubmit{sessions: sessions, conf: conf}
}

func (*LoginSubmit) Name() string {
	return contractx.ActionLoginSubmit
}

func (l *LoginSubmit) Run(ctx context.Context, turn *contractx.Turn) (*contractx.Outcome, error) {
	out := &contractx.Outcome{}

	email, ok := turn.Entity(contractx.SlotEmail)
	if !ok {
		email, ok = turn.Slot(contractx.SlotEmail)
	}
	if !ok {
		out.Say("I need your email address to sign you in. What is it?")
		out.SetSlot(contractx.SlotLoginState, contractx.LoginAwaitingEmail)
		return out, nil
	}

	client := l.sessions.NewAnonymousClient()

	pollingID, err := client.AuthByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, tgtgx.ErrNoAccount) {
			out.Say("The marketplace has no account for %s. Double-check the address and try again.", email)
		} else {
			log.Error().Err(err).Str("user_id", turn.SenderID).Msg("auth by email failed")
			out.Say(msgAPITrouble)
		}
		out.SetSlot(contractx.SlotLoginState, contractx.LoginAnonymous)
		return out, nil
	}

	out.SetSlot(contractx.SlotEmail, email)
	out.SetSlot(contractx.SlotLoginState, contractx.LoginAwaitingVerification)
	out.Say("I've sent a verification email to %s. Tap the link in it — I'll wait here.", email)

	creds, err := l.awaitVerification(ctx, client, email, pollingID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			out.Say("I didn't see a confirmation in time. Say \"log in\" to try again.")
		} else {
			log.Error().Err(err).Str("user_id", turn.SenderID).Msg("verification polling failed")
			out.Say(msgAPITrouble)
		}
		out.SetSlot(contractx.SlotIsLoggedIn, false)
		out.SetSlot(contractx.SlotLoginState, contractx.LoginAnonymous)
		return out, nil
	}

	if err := l.sessions.Save(ctx, turn.SenderID, creds); err != nil {
		// Store flush failure is fatal to this turn.
		return nil, err
	}

	out.Say("You're verified and signed in. What would you like to do?")
	out.SetSlot(contractx.SlotIsLoggedIn, true)
	out.SetSlot(contractx.SlotLoginState, contractx.LoginAuthenticated)
	return out, nil
}

// awaitVerification polls the auth endpoint until the user confirms
// out of band, the timeout elapses, or the service errors.
func (l *LoginSubmit) awaitVerification(ctx context.Context, client *tgtgx.Client, email, pollingID string) (tgtgx.Credentials, error) {
	ctx, cancel := context.WithTimeout(ctx, l.conf.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(l.conf.PollInterval)
	defer ticker.Stop()

	for {
		creds, done, err := client.PollAuthState(ctx, email, pollingID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return tgtgx.Credentials{}, ctxErr
			}
			return tgtgx.Credentials{}, err
		}
		if done {
			return creds, nil
		}

		select {
		case <-ctx.Done():
			return tgtgx.Credentials{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
