package action

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tgtg-tools/bagbot/action/contract"
	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

func fastLoginConfig() LoginConfig {
	return LoginConfig{
		PollTimeout:  2 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

func TestLoginStart(t *testing.T) {
	t.Parallel()

	out, err := LoginStart{}.Run(context.Background(), turnFor("u1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(firstReply(t, out), "email") {
		t.Fatalf("unexpected reply: %q", firstReply(t, out))
	}
	if val, ok := slotValue(out, contractx.SlotLoginState); !ok || val != contractx.LoginAwaitingEmail {
		t.Fatalf("unexpected login state: %v", val)
	}
}

func TestLoginSubmitAsksForEmail(t *testing.T) {
	t.Parallel()

	handler := NewLoginSubmit(newFakeSessions(), fastLoginConfig())
	out, err := handler.Run(context.Background(), turnFor("u1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(firstReply(t, out), "email address") {
		t.Fatalf("unexpected reply: %q", firstReply(t, out))
	}
	if val, ok := slotValue(out, contractx.SlotLoginState); !ok || val != contractx.LoginAwaitingEmail {
		t.Fatalf("unexpected login state: %v", val)
	}
}

func TestLoginSubmitSuccess(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/auth/v3/authByEmail":
			json.NewEncoder(rw).Encode(map[string]string{"state": "WAIT", "polling_id": "poll-1"})
		case "/auth/v3/authByRequestPollingId":
			if polls.Add(1) < 3 {
				rw.WriteHeader(http.StatusAccepted)
				return
			}
			http.SetCookie(rw, &http.Cookie{Name: "datadome", Value: "fresh"})
			json.NewEncoder(rw).Encode(map[string]string{
				"access_token":  "at-1",
				"refresh_token": "rt-1",
			})
		default:
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
	}))
	defer srv.Close()

	sessions := newFakeSessions()
	sessions.client = testClient(srv.URL)
	handler := NewLoginSubmit(sessions, fastLoginConfig())

	turn := turnFor("u1")
	turn.Entities = []contractx.Entity{{Entity: contractx.SlotEmail, Value: "user@example.com"}}

	out, err := handler.Run(context.Background(), turn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := tgtgx.Credentials{AccessToken: "at-1", RefreshToken: "rt-1", Cookie: "datadome=fresh"}
	if sessions.saved["u1"] != want {
		t.Fatalf("stored %+v, want %+v", sessions.saved["u1"], want)
	}
	if val, ok := slotValue(out, contractx.SlotIsLoggedIn); !ok || val != true {
		t.Fatal("expected is_logged_in=true")
	}
	if val, ok := slotValue(out, contractx.SlotLoginState); !ok || val != contractx.LoginAuthenticated {
		t.Fatalf("unexpected login state: %v", val)
	}
	last := out.Responses[len(out.Responses)-1].Text
	if !strings.Contains(last, "signed in") {
		t.Fatalf("unexpected final reply: %q", last)
	}
}

func TestLoginSubmitTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/auth/v3/authByEmail":
			json.NewEncoder(rw).Encode(map[string]string{"state": "WAIT", "polling_id": "poll-1"})
		case "/auth/v3/authByRequestPollingId":
			// Never confirmed.
			rw.WriteHeader(http.StatusAccepted)
		}
	}))
	defer srv.Close()

	sessions := newFakeSessions()
	sessions.client = testClient(srv.URL)
	handler := NewLoginSubmit(sessions, LoginConfig{
		PollTimeout:  100 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})

	turn := turnFor("u1")
	turn.Entities = []contractx.Entity{{Entity: contractx.SlotEmail, Value: "user@example.com"}}

	out, err := handler.Run(context.Background(), turn)
	if err != nil {
		t.Fatalf("a timeout is a conversational outcome, not an error: %v", err)
	}
	if len(sessions.saved) != 0 {
		t.Fatal("nothing must be stored on timeout")
	}
	last := out.Responses[len(out.Responses)-1].Text
	if !strings.Contains(last, "didn't see a confirmation") {
		t.Fatalf("unexpected final reply: %q", last)
	}
	if val, ok := slotValue(out, contractx.SlotLoginState); !ok || val != contractx.LoginAnonymous {
		t.Fatalf("expected reset to anonymous, got %v", val)
	}
}

func TestLoginSubmitNoAccount(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		json.NewEncoder(rw).Encode(map[string]string{"state": "TERMS"})
	}))
	defer srv.Close()

	sessions := newFakeSessions()
	sessions.client = testClient(srv.URL)
	handler := NewLoginSubmit(sessions, fastLoginConfig())

	turn := turnFor("u1")
	turn.Entities = []contractx.Entity{{Entity: contractx.SlotEmail, Value: "nobody@example.com"}}

	out, err := handler.Run(context.Background(), turn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(firstReply(t, out), "no account for nobody@example.com") {
		t.Fatalf("unexpected reply: %q", firstReply(t, out))
	}
	if val, ok := slotValue(out, contractx.SlotLoginState); !ok || val != contractx.LoginAnonymous {
		t.Fatalf("expected reset to anonymous, got %v", val)
	}
}

func TestSetReminderWithoutPickupTime(t *testing.T) {
	t.Parallel()

	out, err := NewSetReminder(nil).Run(context.Background(), turnFor("u1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(firstReply(t, out), "pickup time") {
		t.Fatalf("unexpected reply: %q", firstReply(t, out))
	}
}

func TestSetReminderWithoutPublisher(t *testing.T) {
	t.Parallel()

	turn := turnWithSlots(map[string]any{contractx.SlotPickupTime: "2026-01-10T17:00:00Z"})
	out, err := NewSetReminder(nil).Run(context.Background(), turn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply := firstReply(t, out)
	if !strings.Contains(reply, "2026-01-10 17:00") || !strings.Contains(reply, "alarm") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestSetReminderUnparseableSlot(t *testing.T) {
	t.Parallel()

	turn := turnWithSlots(map[string]any{contractx.SlotPickupTime: "5pm tomorrow"})
	out, err := NewSetReminder(nil).Run(context.Background(), turn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(firstReply(t, out), "doesn't look right") {
		t.Fatalf("unexpected reply: %q", firstReply(t, out))
	}
}
