package action

import (
	"context"
	"strings"

	contractx "github.com/tgtg-tools/bagbot/action/contract"
	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// OrderStatus reports the state of the saved order, or lists active
// orders when none is saved.
type OrderStatus struct{}

var _ contractx.AuthedAction = OrderStatus{}

func (OrderStatus) Name() string {
	return contractx.ActionOrderStatus
}

func (OrderStatus) Execute(ctx context.Context, turn *contractx.Turn, client *tgtgx.Client) (*contractx.Outcome, error) {
	out := &contractx.Outcome{}

	if orderID, ok := turn.Slot(contractx.SlotOrderID); ok {
		state, err := client.GetOrderStatus(ctx, orderID)
		if err != nil {
			return nil, err
		}
		out.Say("Your order %s is %s.", orderID, strings.ToLower(state))
		return out, nil
	}

	orders, err := client.GetActiveOrders(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		out.Say("You have no active orders.")
		return out, nil
	}

	states := make([]string, 0, len(orders))
	for _, order := range orders {
		states = append(states, order.ID+" ("+strings.ToLower(order.State)+")")
	}
	out.Say("You have %d active order(s): %s.", len(orders), strings.Join(states, ", "))
	return out, nil
}
