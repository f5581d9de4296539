// Package tgtg is a client for the surplus-food marketplace REST API:
// listings, orders, and the email-based credential retrieval flow.
package tgtg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	deviceType       = "ANDROID"
	maxResponseBytes = 4 << 20
)

type Config struct {
	BaseURL   string        `split_words:"true" default:"https://apptoogoodtogo.com/api"`
	UserAgent string        `split_words:"true" default:"TGTG/24.1.0 Dalvik/2.1.0"`
	Timeout   time.Duration `split_words:"true" default:"30s"`
	// Requests per second against the remote API; the service bans
	// aggressive pollers.
	RateLimit float64 `split_words:"true" default:"2"`
}

// Client is a handle over the marketplace API for one credential triple.
// Construction performs no remote validation; bad tokens surface as
// ErrUnauthorized on the first call. Token rotation happens in place;
// read the result back with Credentials.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu    sync.Mutex
	creds Credentials
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(cfg Config, creds Credentials, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 2
	}

	client := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(limit), 3),
		creds:   creds,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Credentials returns a snapshot of the current triple, including any
// rotation the remote side performed during earlier calls.
func (c *Client) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

/* ------------------------------- listings ------------------------------- */

// ItemsQuery narrows the listing search. The zero value lists the
// user's favorites.
type ItemsQuery struct {
	FavoritesOnly bool
	Latitude      float64
	Longitude     float64
	Radius        int
	Page          int
	PageSize      int
}

// GetItems lists offers matching the query, in payload order.
func (c *Client) GetItems(ctx context.Context, q ItemsQuery) ([]ListingPayload, error) {
	body := map[string]any{
		"favorites_only": q.FavoritesOnly,
		"origin": map[string]float64{
			"latitude":  q.Latitude,
			"longitude": q.Longitude,
		},
		"radius":    q.Radius,
		"page":      max(q.Page, 1),
		"page_size": pageSizeOrDefault(q.PageSize),
	}

	var resp itemsResponse
	if err := c.call(ctx, "/item/v8/", body, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetFavorites lists the user's favorited offers.
func (c *Client) GetFavorites(ctx context.Context) ([]ListingPayload, error) {
	return c.GetItems(ctx, ItemsQuery{FavoritesOnly: true})
}

func (c *Client) GetItem(ctx context.Context, itemID string) (ListingPayload, error) {
	var payload ListingPayload
	if err := c.call(ctx, "/item/v8/"+itemID, map[string]any{}, &payload); err != nil {
		return ListingPayload{}, err
	}
	return payload, nil
}

/* -------------------------------- orders -------------------------------- */

func (c *Client) GetActiveOrders(ctx context.Context) ([]Order, error) {
	var resp ordersResponse
	if err := c.call(ctx, "/order/v7/active", map[string]any{}, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// CreateOrder reserves count bags of the given item. Payment is
// completed out of band in the marketplace app.
func (c *Client) CreateOrder(ctx context.Context, itemID string, count int) (Order, error) {
	if count <= 0 {
		count = 1
	}
	var resp createOrderResponse
	err := c.call(ctx, "/order/v7/create/"+itemID, map[string]any{"item_count": count}, &resp)
	if err != nil {
		return Order{}, err
	}
	if resp.Order == nil {
		return Order{}, fmt.Errorf("create order: service returned state=%s without an order", resp.State)
	}
	return *resp.Order, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	var resp orderStatusResponse
	if err := c.call(ctx, "/order/v7/"+orderID+"/status", map[string]any{}, &resp); err != nil {
		return "", err
	}
	return resp.State, nil
}

func (c *Client) AbortOrder(ctx context.Context, orderID string) error {
	return c.call(ctx, "/order/v7/"+orderID+"/abort", map[string]any{"cancel_reason_id": 1}, nil)
}

/* --------------------------------- auth --------------------------------- */

// AuthByEmail starts the email verification flow and returns a polling
// identifier. The user confirms out of band; poll with PollAuthState.
func (c *Client) AuthByEmail(ctx context.Context, email string) (string, error) {
	body := map[string]string{
		"device_type": deviceType,
		"email":       email,
	}
	var resp authByEmailResponse
	if err := c.do(ctx, "/auth/v3/authByEmail", body, &resp, false); err != nil {
		return "", err
	}
	if resp.State == "TERMS" {
		return "", ErrNoAccount
	}
	if resp.PollingID == "" {
		return "", fmt.Errorf("auth by email: service returned state=%s without a polling id", resp.State)
	}
	return resp.PollingID, nil
}

// PollAuthState checks whether the user has confirmed the verification
// email. It returns done=false while the confirmation is still pending.
func (c *Client) PollAuthState(ctx context.Context, email, pollingID string) (Credentials, bool, error) {
	body := map[string]string{
		"device_type":        deviceType,
		"email":              email,
		"request_polling_id": pollingID,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Credentials{}, false, err
	}
	resp, err := c.post(ctx, "/auth/v3/authByRequestPollingId", body, false)
	if err != nil {
		return Credentials{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return Credentials{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, false, statusError(resp)
	}

	var parsed authPollResponse
	if err := decodeBody(resp, &parsed); err != nil {
		return Credentials{}, false, err
	}

	creds := Credentials{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		Cookie:       cookieFromResponse(resp),
	}
	if !creds.Valid() {
		return Credentials{}, false, fmt.Errorf("auth polling: incomplete credential triple in response")
	}

	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return creds, true, nil
}

// refresh exchanges the refresh token for a new access token pair. The
// remote side commonly rotates the refresh token on use.
func (c *Client) refresh(ctx context.Context) error {
	c.mu.Lock()
	refreshToken := c.creds.RefreshToken
	c.mu.Unlock()
	if refreshToken == "" {
		return ErrUnauthorized
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.post(ctx, "/auth/v3/token/refresh", map[string]string{"refresh_token": refreshToken}, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var parsed refreshResponse
	if err := decodeBody(resp, &parsed); err != nil {
		return err
	}
	if parsed.AccessToken == "" {
		return fmt.Errorf("token refresh: empty access token in response")
	}

	c.mu.Lock()
	c.creds.AccessToken = parsed.AccessToken
	if parsed.RefreshToken != "" {
		c.creds.RefreshToken = parsed.RefreshToken
	}
	if cookie := cookieFromResponse(resp); cookie != "" {
		c.creds.Cookie = cookie
	}
	c.mu.Unlock()

	log.Debug().Msg("refreshed marketplace tokens")
	return nil
}

/* ------------------------------- transport ------------------------------ */

// call posts an authenticated request, refreshing the token pair once
// when the service rejects the current one.
func (c *Client) call(ctx context.Context, path string, body any, out any) error {
	err := c.authedOnce(ctx, path, body, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}
	if rerr := c.refresh(ctx); rerr != nil {
		if errors.Is(rerr, ErrUnauthorized) {
			return ErrUnauthorized
		}
		return fmt.Errorf("token refresh: %w", rerr)
	}
	return c.authedOnce(ctx, path, body, out)
}

func (c *Client) authedOnce(ctx context.Context, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.post(ctx, path, body, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return ErrNotFound
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return statusError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}
	return decodeBody(resp, out)
}

// do posts and decodes in one step for endpoints without the
// refresh-and-retry dance.
func (c *Client) do(ctx context.Context, path string, body any, out any, authed bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.post(ctx, path, body, authed)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}
	return decodeBody(resp, out)
}

func (c *Client) post(ctx context.Context, path string, body any, authed bool) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if authed {
		c.mu.Lock()
		access, cookie := c.creds.AccessToken, c.creds.Cookie
		c.mu.Unlock()
		if access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
		if cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", path, err)
	}
	return resp, nil
}

func decodeBody(resp *http.Response, out any) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	return fmt.Errorf("marketplace http status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

func cookieFromResponse(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "datadome" {
			return cookie.Name + "=" + cookie.Value
		}
	}
	return ""
}

func pageSizeOrDefault(n int) int {
	if n <= 0 {
		return 20
	}
	return n
}
