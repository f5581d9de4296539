package action

import (
	"context"

	contractx "github.com/tgtg-tools/bagbot/action/contract"
	summaryx "github.com/tgtg-tools/bagbot/summary"
	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// CheckAvailability reports how many bags the requested store has left
// and saves the listing's identity for follow-up turns.
type CheckAvailability struct{}

var _ contractx.AuthedAction = CheckAvailability{}

func (CheckAvailability) Name() string {
	return contractx.ActionCheckAvailability
}

func (CheckAvailability) Execute(ctx context.Context, turn *contractx.Turn, client *tgtgx.Client) (*contractx.Outcome, error) {
	out := &contractx.Outcome{}

	storeName, ok := turn.StoreRef()
	if !ok {
		out.Say("Which store should I check?")
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

	if sum.Remaining > 0 {
		out.Say("Yes! %s has %d bag(s) available for £%.2f (worth £%.2f).", sum.Restaurant, sum.Remaining, sum.Price, sum.Value)
	} else {
		out.Say("Sorry, nothing at %s right now.", sum.Restaurant)
	}

	out.SetSlot(contractx.SlotStore, storeName)
	out.SetSlot(contractx.SlotItemID, sum.ItemID)
	out.SetSlot(contractx.SlotAvailability, sum.Remaining)
	return out, nil
}
