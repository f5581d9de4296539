package action

import (
	"strings"

	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

// matchListing returns the first listing whose store name contains the
// requested name as a case-insensitive substring. Payload order decides
// ties; there is no ranking.
func matchListing(items []tgtgx.ListingPayload, requested string) (tgtgx.ListingPayload, bool) {
	needle := strings.ToLower(strings.TrimSpace(requested))
	if needle == "" {
		return tgtgx.ListingPayload{}, false
	}
	for _, item := range items {
		if item.Store == nil {
			continue
		}
		if strings.Contains(strings.ToLower(item.Store.StoreName), needle) {
			return item, true
		}
	}
	return tgtgx.ListingPayload{}, false
}
