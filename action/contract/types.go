package contract

import "fmt"

// Wire names of the actions exposed to the dialogue engine.
const (
	ActionCheckAvailability = "action_check_availability"
	ActionCheckPickupTime   = "action_check_pickup_time"
	ActionReserveOrder      = "action_reserve_order"
	ActionOrderStatus       = "action_order_status"
	ActionSetReminder       = "action_set_reminder"
	ActionLoginStart        = "action_login_start"
	ActionLoginSubmit       = "action_login_submit"
)

// Slot names shared with the dialogue engine.
const (
	SlotStore        = "store"
	SlotItemID       = "item_id"
	SlotAvailability = "availability"
	SlotPickupTime   = "pickup_time"
	SlotEmail        = "email"
	SlotOrderID      = "order_id"
	SlotIsLoggedIn   = "is_logged_in"
	SlotLoginState   = "login_state"
)

// Login flow states carried in SlotLoginState.
const (
	LoginAnonymous            = "anonymous"
	LoginAwaitingEmail        = "awaiting_email"
	LoginAwaitingVerification = "awaiting_verification"
	LoginAuthenticated        = "authenticated"
)

// Entity is one extracted value from the user's latest message.
type Entity struct {
	Entity string `json:"entity"`
	Value  any    `json:"value"`
}

// Turn is the per-request view of the conversation: who is talking,
// the slots the dialogue engine carried over, and the entities it
// extracted from the latest message.
type Turn struct {
	SenderID string
	Slots    map[string]any
	Entities []Entity
}

// Slot returns the named slot as a non-empty string.
func (t *Turn) Slot(name string) (string, bool) {
	if t == nil || t.Slots == nil {
		return "", false
	}
	val, ok := t.Slots[name].(string)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

// Entity returns the most recent extracted value for the named entity.
func (t *Turn) Entity(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	for i := len(t.Entities) - 1; i >= 0; i-- {
		if t.Entities[i].Entity != name {
			continue
		}
		if val, ok := t.Entities[i].Value.(string); ok && val != "" {
			return val, true
		}
	}
	return "", false
}

// StoreRef resolves the store the user is asking about: the latest
// extracted entity wins over the saved slot.
func (t *Turn) StoreRef() (string, bool) {
	if val, ok := t.Entity(SlotStore); ok {
		return val, true
	}
	return t.Slot(SlotStore)
}

const (
	EventSlot     = "slot"
	EventFollowUp = "followup"
)

// Event is a conversational state update sent back to the dialogue
// engine.
type Event struct {
	Event string `json:"event"`
	Name  string `json:"name,omitempty"`
	// Value keeps no omitempty: false is a meaningful slot value.
	Value any    `json:"value"`
}

// Response is one user-facing message.
type Response struct {
	Text string `json:"text"`
}

// Outcome is what a handler produces for one turn: reply text plus
// slot/flow updates.
type Outcome struct {
	Responses []Response `json:"responses"`
	Events    []Event    `json:"events"`
}

func (o *Outcome) Say(format string, args ...any) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	o.Responses = append(o.Responses, Response{Text: text})
}

func (o *Outcome) SetSlot(name string, value any) {
	o.Events = append(o.Events, Event{Event: EventSlot, Name: name, Value: value})
}

// FollowUp asks the dialogue engine to run another action next.
func (o *Outcome) FollowUp(action string) {
	o.Events = append(o.Events, Event{Event: EventFollowUp, Name: action})
}
