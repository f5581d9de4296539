package action

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tgtg-tools/bagbot/action/contract"
	calendarx "github.com/tgtg-tools/bagbot/pkg/calendar"
)

const reminderTimeFormat = "2006-01-02 15:04"

// SetReminder formats the saved pickup instant for the calendar tool
// and, when a publisher is configured, posts the event. It needs no
// marketplace session.
type SetReminder struct {
	publisher *calendarx.Client
}

var _ contractx.Action = (*SetReminder)(nil)

func NewSetReminder(publisher *calendarx.Client) *SetReminder {
	return &SetReminder{publisher: publisher}
}

func (*SetReminder) Name() string {
	return contractx.ActionSetReminder
}

func (r *SetReminder) Run(ctx context.Context, turn *contractx.Turn) (*contractx.Outcome, error) {
	out := &contractx.Outcome{}

	raw, ok := turn.Slot(contractx.SlotPickupTime)
	if !ok {
		out.Say("I don't have a pickup time saved yet — ask me about a store's pickup time first.")
		return out, nil
	}

	startsAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Warn().Err(err).Str("pickup_time", raw).Msg("saved pickup time is not parseable")
		out.Say("The saved pickup time doesn't look right — ask me to check the pickup time again.")
		return out, nil
	}

	formatted := startsAt.UTC().Format(reminderTimeFormat)

	if r.publisher == nil {
		out.Say("Reminder noted for %s UTC. Calendar sync isn't connected yet, so set an alarm too.", formatted)
		return out, nil
	}

	event := calendarx.Event{
		Title:    "Pick up your surplus-food bag",
		StartsAt: startsAt,
		UserID:   turn.SenderID,
	}
	if storeName, ok := turn.Slot(contractx.SlotStore); ok {
		event.Notes = "Pickup at " + storeName
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		log.Error().Err(err).Str("user_id", turn.SenderID).Msg("calendar publish failed")
		out.Say("I couldn't reach your calendar, but your pickup is at %s UTC.", formatted)
		return out, nil
	}

	out.Say("Done — I've added a reminder for %s UTC to your calendar.", formatted)
	return out, nil
}
