package wix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/transport"
)

// =============================================================================
// WIX API CLIENT
// =============================================================================
//
// Wix Headless uses OAuth2 for visitor authentication:
//   1. Exchange client_id for anonymous access token
//   2. Use access_token in Authorization header for API calls
//   3. Refresh token when expired using refresh_token
//
// The Client itself is stateless with respect to visitors: every call takes the
// access token explicitly. Gateway binds a Client to one visitor's tokens.
// =============================================================================

const (
	// DefaultBaseURL is the base URL for Wix APIs.
	DefaultBaseURL = "https://www.wixapis.com"

	pathOAuthToken          = "/oauth2/token"
	pathProductsQuery       = "/stores/v1/products/query"
	pathCollectionsQuery    = "/stores/v1/collections/query"
	pathCollectionBySlug    = "/stores/v1/collections/slug/"
	pathCartCurrent         = "/ecom/v1/carts/current"
	pathAddToCart           = "/ecom/v1/carts/current/add-to-cart"
	pathUpdateQuantity      = "/ecom/v1/carts/current/update-line-items-quantity"
	pathRemoveLineItems     = "/ecom/v1/carts/current/remove-line-items"
	pathEstimateTotals      = "/ecom/v1/carts/current/estimate-totals"
	pathCreateCheckout      = "/ecom/v1/carts/current/create-checkout"
	pathOrders              = "/ecom/v1/orders/"
	pathRedirectSession     = "/redirect-session/v1/redirect-session"
	defaultCollectionsLimit = 100

	userAgent = "Storefront/1.0"
)

// ClientOptions tunes a Client. Zero values select production defaults.
type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // outbound requests per second, 0 disables pacing
	HTTPClient *http.Client
}

// Client is the Wix API HTTP client.
// Uses OAuth2 with anonymous visitor tokens for authentication.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string // OAuth app client ID (no secret needed for anonymous flow)
}

// NewClient creates a new Wix API client.
// clientID is the OAuth app client ID from Wix Headless settings.
func NewClient(clientID string, opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		rt := transport.NewChromeTransport(opts.Timeout)
		httpClient = &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport.RateLimited(rt, opts.RateLimit, int(opts.RateLimit)+1),
		}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		clientID:   clientID,
	}
}

// === OAuth Session Management ===

// GetAnonymousToken obtains an anonymous visitor access token.
// This token represents a unique visitor session tied to cart/checkout state.
// Tokens are valid for 4 hours (14400 seconds).
func (c *Client) GetAnonymousToken(ctx context.Context) (*OAuthTokenResponse, error) {
	body := &OAuthTokenRequest{
		ClientID:  c.clientID,
		GrantType: "anonymous",
	}

	var resp OAuthTokenResponse
	if err := c.call(ctx, http.MethodPost, pathOAuthToken, body, "", &resp); err != nil {
		return nil, fmt.Errorf("getting anonymous token: %w", err)
	}

	if resp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token from OAuth")
	}

	return &resp, nil
}

// RefreshToken refreshes an expired access token.
// Returns new access/refresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*OAuthTokenResponse, error) {
	body := &OAuthRefreshRequest{
		ClientID:     c.clientID,
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	}

	var resp OAuthTokenResponse
	if err := c.call(ctx, http.MethodPost, pathOAuthToken, body, "", &resp); err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	return &resp, nil
}

// === Catalog Operations ===

// QueryProducts runs a Stores v1 product query. Variants are always included;
// the variant engine needs them for variant-managed products.
func (c *Client) QueryProducts(ctx context.Context, accessToken string, q WixQuery) (*WixQueryProductsResponse, error) {
	body := &WixQueryProductsRequest{Query: q, IncludeVariants: true}

	var resp WixQueryProductsResponse
	if err := c.call(ctx, http.MethodPost, pathProductsQuery, body, accessToken, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueryCollections lists collections, up to the platform's page maximum.
func (c *Client) QueryCollections(ctx context.Context, accessToken string) (*WixQueryCollectionsResponse, error) {
	body := &WixQueryCollectionsRequest{
		Query: WixQuery{Paging: &WixPaging{Limit: defaultCollectionsLimit}},
	}

	var resp WixQueryCollectionsResponse
	if err := c.call(ctx, http.MethodPost, pathCollectionsQuery, body, accessToken, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCollectionBySlug retrieves one collection.
// A missing collection surfaces as a NOT_FOUND APIError.
func (c *Client) GetCollectionBySlug(ctx context.Context, accessToken, slug string) (*WixCollection, error) {
	var resp WixCollectionResponse
	path := pathCollectionBySlug + url.PathEscape(slug)
	if err := c.call(ctx, http.MethodGet, path, nil, accessToken, &resp); err != nil {
		return nil, err
	}
	if resp.Collection == nil {
		return nil, model.NewNotFoundError("collection")
	}
	return resp.Collection, nil
}

// === Cart Operations ===

// GetCurrentCart retrieves the current cart for the session.
func (c *Client) GetCurrentCart(ctx context.Context, accessToken string) (*WixCart, error) {
	var resp WixCartResponse
	if err := c.call(ctx, http.MethodGet, pathCartCurrent, nil, accessToken, &resp); err != nil {
		return nil, err
	}
	return resp.Cart, nil
}

// AddToCart adds line items to the current cart.
// Creates the cart if it doesn't exist.
func (c *Client) AddToCart(ctx context.Context, accessToken string, items []WixLineItemInput) (*WixCart, error) {
	body := &WixAddToCartRequest{LineItems: items}

	var resp WixCartResponse
	if err := c.call(ctx, http.MethodPost, pathAddToCart, body, accessToken, &resp); err != nil {
		return nil, err
	}
	return resp.Cart, nil
}

// UpdateLineItemsQuantity sets absolute quantities on existing line items.
func (c *Client) UpdateLineItemsQuantity(ctx context.Context, accessToken string, updates []WixQuantityUpdate) (*WixCart, error) {
	body := &WixUpdateQuantityRequest{LineItems: updates}

	var resp WixCartResponse
	if err := c.call(ctx, http.MethodPost, pathUpdateQuantity, body, accessToken, &resp); err != nil {
		return nil, err
	}
	return resp.Cart, nil
}

// RemoveLineItems removes line items from the current cart by their IDs.
func (c *Client) RemoveLineItems(ctx context.Context, accessToken string, lineItemIDs []string) (*WixCart, error) {
	body := &WixRemoveLineItemsRequest{LineItemIDs: lineItemIDs}

	var resp WixCartResponse
	if err := c.call(ctx, http.MethodPost, pathRemoveLineItems, body, accessToken, &resp); err != nil {
		return nil, err
	}
	return resp.Cart, nil
}

// EstimateTotals asks the platform for subtotal, shipping, tax and total of the
// current cart.
func (c *Client) EstimateTotals(ctx context.Context, accessToken string) (*WixEstimateTotalsResponse, error) {
	var resp WixEstimateTotalsResponse
	if err := c.call(ctx, http.MethodPost, pathEstimateTotals, struct{}{}, accessToken, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// === Checkout Operations ===

// CreateCheckout creates a checkout from the current cart and returns its ID.
// create-checkout works on the cart tied to the session token.
func (c *Client) CreateCheckout(ctx context.Context, accessToken string) (string, error) {
	body := map[string]string{
		"channelType": "WEB",
	}

	var resp WixCreateCheckoutResponse
	if err := c.call(ctx, http.MethodPost, pathCreateCheckout, body, accessToken, &resp); err != nil {
		return "", err
	}

	if resp.CheckoutID == "" {
		return "", fmt.Errorf("empty checkout ID from create-checkout")
	}
	return resp.CheckoutID, nil
}

// === Redirect Session ===

// CreateRedirectSession creates a redirect session for Wix hosted checkout.
// Returns the full URL where the buyer should be directed to complete payment.
func (c *Client) CreateRedirectSession(ctx context.Context, accessToken, checkoutID string, callbacks *WixCallbacks) (*WixRedirectSession, error) {
	body := &WixCreateRedirectRequest{
		EcomCheckout: &WixEcomCheckoutRef{
			CheckoutID: checkoutID,
		},
		Callbacks: callbacks,
	}

	var resp WixRedirectResponse
	if err := c.call(ctx, http.MethodPost, pathRedirectSession, body, accessToken, &resp); err != nil {
		return nil, err
	}

	if resp.RedirectSession == nil || resp.RedirectSession.FullURL == "" {
		return nil, fmt.Errorf("empty redirect URL from redirect-session")
	}
	return resp.RedirectSession, nil
}

// === Orders ===

// GetOrder retrieves a placed order by ID.
func (c *Client) GetOrder(ctx context.Context, accessToken, orderID string) (*WixOrder, error) {
	var resp WixOrderResponse
	if err := c.call(ctx, http.MethodGet, pathOrders+url.PathEscape(orderID), nil, accessToken, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil {
		return nil, model.NewNotFoundError("order")
	}
	return resp.Order, nil
}

// === HTTP Helpers ===

// call builds, sends and decodes one request.
func (c *Client) call(ctx context.Context, method, path string, body any, accessToken string, result any) error {
	req, err := c.newRequest(ctx, method, path, body, accessToken)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", path, err)
	}
	return c.do(req, result)
}

// newRequest creates an HTTP request with OAuth Bearer token authentication.
// An empty accessToken omits the header (token endpoint only).
func (c *Client) newRequest(ctx context.Context, method, path string, body any, accessToken string) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return req, nil
}

// do executes the request and decodes the response.
func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError("Wix", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		return c.parseError(resp.StatusCode, body)
	}

	// Decode success response
	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}

	return nil
}

// parseError converts Wix API errors to model.APIError.
func (c *Client) parseError(statusCode int, body []byte) error {
	var wixErr WixErrorResponse
	json.Unmarshal(body, &wixErr) // Best effort parse

	code := ""
	if wixErr.Details != nil && wixErr.Details.ApplicationError != nil {
		code = wixErr.Details.ApplicationError.Code
	}

	switch statusCode {
	case 401:
		return model.NewUnauthorizedError("Wix authentication failed")
	case 403:
		return model.NewUnauthorizedError("Wix access denied")
	case 404:
		// OWNED_CART_NOT_FOUND etc. carry the resource in the application code.
		resource := "resource"
		if code != "" {
			resource = strings.ToLower(strings.TrimSuffix(code, "_NOT_FOUND"))
		}
		return model.NewNotFoundError(resource)
	case 429:
		return model.NewRateLimitError("Wix")
	case 400:
		msg := wixErr.Message
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError("request", msg)
	default:
		return model.NewUpstreamError("Wix",
			fmt.Errorf("status %d: %s", statusCode, wixErr.Message))
	}
}
