// Package summary derives a human-readable digest from one marketplace
// listing payload. Summarize is pure: it never mutates its input and
// identical payloads yield identical summaries.
package summary

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// ErrMissingField marks a structurally malformed payload. Callers get
// the failure; this package does not mask it.
var ErrMissingField = errors.New("listing payload missing required field")

const packagingBagAllowed = "BAG_ALLOWED"

// Pickup windows are rendered in the marketplace's home timezone.
const displayTimezone = "Europe/London"

var (
	tzOnce  sync.Once
	tzLocal *time.Location
)

// Summary is the normalized view of one listing. Recomputed per query,
// never persisted.
type Summary struct {
	Restaurant   string
	ItemID       string
	Category     string
	Address      string
	Foods        []string
	Remaining    int
	Price        float64
	Value        float64
	PickupWindow string
	BringOwnBag  bool
}

// Summarize derives a Summary from one listing payload.
func Summarize(payload tgtgx.ListingPayload) (Summary, error) {
	item := payload.Item
	store := payload.Store
	switch {
	case item == nil:
		return Summary{}, fmt.Errorf("%w: item", ErrMissingField)
	case store == nil:
		return Summary{}, fmt.Errorf("%w: store", ErrMissingField)
	case store.StoreLocation == nil:
		return Summary{}, fmt.Errorf("%w: store.store_location", ErrMissingField)
	case item.Price == nil:
		return Summary{}, fmt.Errorf("%w: item.item_price", ErrMissingField)
	case item.Value == nil:
		return Summary{}, fmt.Errorf("%w: item.item_value", ErrMissingField)
	}

	category := item.Category
	if category == "" {
		category = "N/A"
	}

	return Summary{
		Restaurant:   restaurantLabel(store.StoreName, store.Branch),
		ItemID:       item.ItemID,
		Category:     category,
		Address:      store.StoreLocation.Address.AddressLine,
		Foods:        ExtractFoods(item.Description),
		Remaining:    payload.ItemsAvailable,
		Price:        item.Price.Amount(),
		Value:        item.Value.Amount(),
		PickupWindow: pickupWindow(payload.PickupInterval),
		BringOwnBag:  item.PackagingOption != packagingBagAllowed,
	}, nil
}

// restaurantLabel appends the branch unless one of the two labels
// already contains the other (case-insensitive). "Luigi's" plus branch
// "Luigi's Soho" stays "Luigi's".
func restaurantLabel(name, branch string) string {
	if branch == "" {
		return name
	}
	lowerName, lowerBranch := strings.ToLower(name), strings.ToLower(branch)
	if strings.Contains(lowerName, lowerBranch) || strings.Contains(lowerBranch, lowerName) {
		return name
	}
	return name + " — " + branch
}

// pickupWindow renders both interval bounds in local time, or returns
// "" when either bound is missing or unparseable.
func pickupWindow(interval *tgtgx.PickupInterval) string {
	if interval == nil {
		return ""
	}
	start, ok := toLocal(interval.Start)
	if !ok {
		return ""
	}
	end, ok := toLocal(interval.End)
	if !ok {
		return ""
	}
	return start + " → " + end
}

func toLocal(iso string) (string, bool) {
	if iso == "" {
		return "", false
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return "", false
	}
	return t.In(localTZ()).Format("2006-01-02 15:04"), true
}

func localTZ() *time.Location {
	tzOnce.Do(func() {
		loc, err := time.LoadLocation(displayTimezone)
		if err != nil {
			loc = time.UTC
		}
		tzLocal = loc
	})
	return tzLocal
}
