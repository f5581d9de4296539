package tgtg

import "math"

// Credentials is the bearer triple identifying an authenticated
// marketplace user.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Cookie       string `json:"cookie"`
}

// Valid reports whether all three fields are present. A partial triple
// is treated as no session at all.
func (c Credentials) Valid() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.Cookie != ""
}

// Price is a monetary amount in minor units with an explicit decimal
// exponent. The currency is not always split into hundredths, so the
// amount must be reconstructed from the listed exponent.
type Price struct {
	Code       string `json:"code,omitempty"`
	MinorUnits int64  `json:"minor_units"`
	Decimals   int    `json:"decimals"`
}

// Amount returns minor units divided by 10^decimals.
func (p Price) Amount() float64 {
	return float64(p.MinorUnits) / math.Pow10(p.Decimals)
}

type Item struct {
	ItemID          string `json:"item_id"`
	Description     string `json:"description,omitempty"`
	Price           *Price `json:"item_price,omitempty"`
	Value           *Price `json:"item_value,omitempty"`
	Category        string `json:"item_category,omitempty"`
	PackagingOption string `json:"packaging_option,omitempty"`
}

type Address struct {
	AddressLine string `json:"address_line"`
}

type StoreLocation struct {
	Address Address `json:"address"`
}

type Store struct {
	StoreName     string         `json:"store_name"`
	Branch        string         `json:"branch,omitempty"`
	StoreLocation *StoreLocation `json:"store_location,omitempty"`
}

// PickupInterval is the UTC collection window, ISO-8601 bounds. Either
// bound may be absent.
type PickupInterval struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ListingPayload is one marketplace offer as returned by the listing
// endpoints.
type ListingPayload struct {
	Item           *Item           `json:"item"`
	Store          *Store          `json:"store"`
	PickupInterval *PickupInterval `json:"pickup_interval,omitempty"`
	ItemsAvailable int             `json:"items_available,omitempty"`
}

type Order struct {
	ID       string `json:"id"`
	ItemID   string `json:"item_id,omitempty"`
	State    string `json:"state"`
	Quantity int    `json:"quantity,omitempty"`
}

type itemsResponse struct {
	Items []ListingPayload `json:"items"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}

type createOrderResponse struct {
	State string `json:"state"`
	Order *Order `json:"order,omitempty"`
}

type orderStatusResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type authByEmailResponse struct {
	State     string `json:"state"`
	PollingID string `json:"polling_id"`
}

type authPollResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
