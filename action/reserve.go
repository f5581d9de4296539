package action

import (
	"context"

	contractx "github.com/tgtg-tools/bagbot/action/contract"
	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// ReserveOrder places an order for the listing saved by a previous
// availability check. Payment stays in the marketplace app.
type ReserveOrder struct{}

var _ contractx.AuthedAction = ReserveOrder{}

func (ReserveOrder) Name() string {
	return contractx.ActionReserveOrder
}

func (ReserveOrder) Execute(ctx context.Context, turn *contractx.Turn, client *tgtgx.Client) (*contractx.Outcome, error) {
	out := &contractx.Outcome{}

	itemID, ok := turn.Slot(contractx.SlotItemID)
	if !ok {
		// Never guess an item. Reservation only follows a lookup.
		out.Say("I don't have a bag picked out for you yet — ask me to check availability first.")
		return out, nil
	}

	order, err := client.CreateOrder(ctx, itemID, 1)
	if err != nil {
		return nil, err
	}

	if storeName, ok := turn.Slot(contractx.SlotStore); ok {
		out.Say("I've reserved a bag at %s (order %s, state %s). Open the marketplace app to confirm payment.", storeName, order.ID, order.State)
	} else {
		out.Say("I've reserved your bag (order %s, state %s). Open the marketplace app to confirm payment.", order.ID, order.State)
	}
	out.SetSlot(contractx.SlotOrderID, order.ID)
	return out, nil
}
