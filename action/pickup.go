package action

import (
	"context"

	contractx "github.com/tgtg-tools/bagbot/action/contract"
	summaryx "github.com/tgtg-tools/bagbot/summary"
	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// CheckPickupTime reports the collection window for the requested store
// and saves the raw interval start for the reminder handler.
type CheckPickupTime struct{}

var _ contractx.AuthedAction = CheckPickupTime{}

func (CheckPickupTime) Name() string {
	return contractx.ActionCheckPickupTime
}

func (CheckPickupTime) Execute(ctx context.Context, turn *contractx.Turn, client *tgtgx.Client) (*contractx.Outcome, error) {
	out := &contractx.Outcome{}

	storeName, ok := turn.StoreRef()
	if !ok {
		out.Say("Which store's pickup time should I check?")
		return out, nil
	}

	items, err := client.GetFavorites(ctx)
	if err != nil {
		return nil, err
	}

	listing, found := matchListing(items, storeName)
	if !found {
		out.Say("I couldn't find %s in your favorites.", storeName)
		return out, nil
	}

	sum, err := summaryx.Summarize(listing)
	if err != nil {
		return nil, err
	}

	if sum.PickupWindow == "" {
		out.Say("%s hasn't published a pickup window yet.", sum.Restaurant)
	} else {
		bag := "you'll need to bring your own bag"
		if !sum.BringOwnBag {
			bag = "a bag is provided"
		}
		out.Say("The pickup window for %s is %s (%s).", sum.Restaurant, sum.PickupWindow, bag)
	}

	out.SetSlot(contractx.SlotStore, storeName)
	out.SetSlot(contractx.SlotItemID, sum.ItemID)
	if listing.PickupInterval != nil && listing.PickupInterval.Start != "" {
		// Raw ISO instant, not the rendered window: the reminder
		// handler re-parses it.
		out.SetSlot(contractx.SlotPickupTime, listing.PickupInterval.Start)
	}
	return out, nil
}
