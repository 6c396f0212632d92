package wix

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// fakeWix is an in-memory stand-in for the Wix REST API, enough for the
// gateway: OAuth, catalog queries, the current cart, checkout and orders.
type fakeWix struct {
	mu          sync.Mutex
	products    []WixProduct
	collections map[string]WixCollection // by slug
	cart        *WixCart
	orders      map[string]WixOrder
	nextID      int

	// validTokens lists the access tokens the fake accepts.
	validTokens map[string]bool
	issued      int

	failCreateCheckout bool
	failRedirect       bool
	failCollection     string

	calls map[string]int
}

func newFakeWix() *fakeWix {
	return &fakeWix{
		collections: map[string]WixCollection{},
		orders:      map[string]WixOrder{},
		validTokens: map[string]bool{},
		calls:       map[string]int{},
	}
}

func (f *fakeWix) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeWix) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// expireTokens invalidates every issued access token.
func (f *fakeWix) expireTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validTokens = map[string]bool{}
}

func (f *fakeWix) addProduct(p WixProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = append(f.products, p)
}

func (f *fakeWix) addCollection(c WixCollection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[c.Slug] = c
}

func (f *fakeWix) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++

	if r.URL.Path == pathOAuthToken {
		f.handleToken(w, r)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !f.validTokens[token] {
		writeFakeError(w, http.StatusUnauthorized, "", "token expired")
		return
	}

	switch {
	case r.URL.Path == pathProductsQuery:
		f.handleProductsQuery(w, r)
	case r.URL.Path == pathCollectionsQuery:
		cols := make([]WixCollection, 0, len(f.collections))
		for _, c := range f.collections {
			cols = append(cols, c)
		}
		sort.Slice(cols, func(i, j int) bool { return cols[i].Slug < cols[j].Slug })
		writeFakeJSON(w, WixQueryCollectionsResponse{Collections: cols, TotalResults: len(cols)})
	case strings.HasPrefix(r.URL.Path, pathCollectionBySlug):
		slug := strings.TrimPrefix(r.URL.Path, pathCollectionBySlug)
		if slug == f.failCollection {
			writeFakeError(w, http.StatusInternalServerError, "", "collections unavailable")
			return
		}
		c, ok := f.collections[slug]
		if !ok {
			writeFakeError(w, http.StatusNotFound, "COLLECTION_NOT_FOUND", "collection not found")
			return
		}
		writeFakeJSON(w, WixCollectionResponse{Collection: &c})
	case r.URL.Path == pathCartCurrent:
		if f.cart == nil {
			writeFakeError(w, http.StatusNotFound, "OWNED_CART_NOT_FOUND", "cart not found")
			return
		}
		writeFakeJSON(w, WixCartResponse{Cart: f.cart})
	case r.URL.Path == pathAddToCart:
		f.handleAddToCart(w, r)
	case r.URL.Path == pathUpdateQuantity:
		f.handleUpdateQuantity(w, r)
	case r.URL.Path == pathRemoveLineItems:
		f.handleRemove(w, r)
	case r.URL.Path == pathEstimateTotals:
		f.handleEstimateTotals(w)
	case r.URL.Path == pathCreateCheckout:
		if f.failCreateCheckout || f.cart == nil || len(f.cart.LineItems) == 0 {
			writeFakeError(w, http.StatusBadRequest, "CART_EMPTY", "cannot create checkout")
			return
		}
		writeFakeJSON(w, WixCreateCheckoutResponse{CheckoutID: "checkout-1"})
	case r.URL.Path == pathRedirectSession:
		if f.failRedirect {
			writeFakeError(w, http.StatusInternalServerError, "", "redirect service down")
			return
		}
		var req WixCreateRedirectRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeFakeJSON(w, WixRedirectResponse{RedirectSession: &WixRedirectSession{
			ID:      "rs-1",
			FullURL: "https://checkout.example/" + req.EcomCheckout.CheckoutID,
		}})
	case strings.HasPrefix(r.URL.Path, pathOrders):
		o, ok := f.orders[strings.TrimPrefix(r.URL.Path, pathOrders)]
		if !ok {
			writeFakeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
			return
		}
		writeFakeJSON(w, WixOrderResponse{Order: &o})
	default:
		writeFakeError(w, http.StatusNotFound, "", "no route")
	}
}

func (f *fakeWix) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GrantType    string `json:"grantType"`
		RefreshToken string `json:"refreshToken"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if req.GrantType == "refresh_token" && req.RefreshToken == "" {
		writeFakeError(w, http.StatusBadRequest, "", "missing refresh token")
		return
	}
	f.issued++
	access := fmt.Sprintf("tok-%d", f.issued)
	f.validTokens[access] = true
	writeFakeJSON(w, OAuthTokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    14400,
		RefreshToken: fmt.Sprintf("refresh-%d", f.issued),
	})
}

func (f *fakeWix) handleProductsQuery(w http.ResponseWriter, r *http.Request) {
	var req WixQueryProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFakeError(w, http.StatusBadRequest, "", err.Error())
		return
	}

	var filter struct {
		Slug        string `json:"slug"`
		Collections struct {
			HasSome []string `json:"$hasSome"`
		} `json:"collections.id"`
	}
	if req.Query.Filter != "" {
		json.Unmarshal([]byte(req.Query.Filter), &filter)
	}

	var matched []WixProduct
	for _, p := range f.products {
		if filter.Slug != "" && p.Slug != filter.Slug {
			continue
		}
		if len(filter.Collections.HasSome) > 0 && !containsAny(p.CollectionIDs, filter.Collections.HasSome) {
			continue
		}
		matched = append(matched, p)
	}

	if req.Query.Sort != "" {
		var sorts []map[string]string
		json.Unmarshal([]byte(req.Query.Sort), &sorts)
		if len(sorts) > 0 && sorts[0]["price"] != "" {
			desc := sorts[0]["price"] == "desc"
			sort.SliceStable(matched, func(i, j int) bool {
				a, b := priceOf(matched[i]), priceOf(matched[j])
				if desc {
					return a.GreaterThan(b)
				}
				return a.LessThan(b)
			})
		}
	}

	total := len(matched)
	if pg := req.Query.Paging; pg != nil {
		if pg.Offset < len(matched) {
			matched = matched[pg.Offset:]
		} else {
			matched = nil
		}
		if pg.Limit > 0 && pg.Limit < len(matched) {
			matched = matched[:pg.Limit]
		}
	}
	writeFakeJSON(w, WixQueryProductsResponse{Products: matched, TotalResults: total})
}

func (f *fakeWix) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req WixAddToCartRequest
	json.NewDecoder(r.Body).Decode(&req)
	if f.cart == nil {
		f.cart = &WixCart{ID: "cart-1", Currency: "EUR"}
	}
	for _, in := range req.LineItems {
		f.nextID++
		li := WixLineItem{
			ID:               fmt.Sprintf("li-%d", f.nextID),
			CatalogReference: in.CatalogReference,
			Quantity:         in.Quantity,
		}
		for _, p := range f.products {
			if p.ID == in.CatalogReference.CatalogItemID {
				li.ProductName = &WixProductName{Original: p.Name}
				li.Price = &WixPrice{Amount: priceOf(p).StringFixed(2)}
			}
		}
		f.cart.LineItems = append(f.cart.LineItems, li)
	}
	writeFakeJSON(w, WixCartResponse{Cart: f.cart})
}

func (f *fakeWix) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req WixUpdateQuantityRequest
	json.NewDecoder(r.Body).Decode(&req)
	if f.cart == nil {
		writeFakeError(w, http.StatusNotFound, "OWNED_CART_NOT_FOUND", "cart not found")
		return
	}
	for _, u := range req.LineItems {
		found := false
		for i := range f.cart.LineItems {
			if f.cart.LineItems[i].ID == u.ID {
				f.cart.LineItems[i].Quantity = u.Quantity
				found = true
			}
		}
		if !found {
			writeFakeError(w, http.StatusNotFound, "LINE_ITEM_NOT_FOUND", "line item not found")
			return
		}
	}
	writeFakeJSON(w, WixCartResponse{Cart: f.cart})
}

func (f *fakeWix) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req WixRemoveLineItemsRequest
	json.NewDecoder(r.Body).Decode(&req)
	if f.cart == nil {
		writeFakeError(w, http.StatusNotFound, "OWNED_CART_NOT_FOUND", "cart not found")
		return
	}
	remove := map[string]bool{}
	for _, id := range req.LineItemIDs {
		remove[id] = true
	}
	kept := f.cart.LineItems[:0]
	for _, li := range f.cart.LineItems {
		if !remove[li.ID] {
			kept = append(kept, li)
		}
	}
	f.cart.LineItems = kept
	writeFakeJSON(w, WixCartResponse{Cart: f.cart})
}

func (f *fakeWix) handleEstimateTotals(w http.ResponseWriter) {
	if f.cart == nil {
		writeFakeError(w, http.StatusNotFound, "OWNED_CART_NOT_FOUND", "cart not found")
		return
	}
	subtotal := decimal.Zero
	for _, li := range f.cart.LineItems {
		if li.Price != nil {
			subtotal = subtotal.Add(decimal.RequireFromString(li.Price.Amount).Mul(decimal.NewFromInt(int64(li.Quantity))))
		}
	}
	shipping := decimal.RequireFromString("4.90")
	writeFakeJSON(w, WixEstimateTotalsResponse{
		Currency: "EUR",
		PriceSummary: &WixPriceSummary{
			Subtotal: &WixPrice{Amount: subtotal.StringFixed(2)},
			Shipping: &WixPrice{Amount: shipping.StringFixed(2)},
			Tax:      &WixPrice{Amount: "0"},
			Total:    &WixPrice{Amount: subtotal.Add(shipping).StringFixed(2)},
		},
	})
}

func priceOf(p WixProduct) decimal.Decimal {
	if p.PriceData == nil || p.PriceData.Price == nil {
		return decimal.Zero
	}
	return *p.PriceData.Price
}

func containsAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

func writeFakeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeFakeError(w http.ResponseWriter, status int, code, msg string) {
	resp := WixErrorResponse{Message: msg}
	if code != "" {
		resp.Details = &WixErrorDetails{ApplicationError: &WixApplicationError{Code: code}}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// === fixtures ===

func priced(amount string) *WixPriceData {
	d := decimal.RequireFromString(amount)
	return &WixPriceData{Currency: "EUR", Price: &d}
}

func teeProduct() WixProduct {
	return WixProduct{
		ID:            "prod-tee",
		Name:          "Tee",
		Slug:          "tee",
		Visible:       true,
		PriceData:     priced("20"),
		Stock:         &WixStock{InStock: true},
		CollectionIDs: []string{"col-all"},
		ProductOptions: []WixProductOption{{
			Name: "Size",
			Choices: []WixChoice{
				{Value: "S", Description: "S", InStock: true, Visible: true},
				{Value: "M", Description: "M", InStock: true, Visible: true},
			},
		}},
	}
}

// newTestGateway starts a fake Wix with an all-products collection and returns
// a visitor gateway against it.
func newTestGateway(t *testing.T, fake *fakeWix) *Gateway {
	t.Helper()
	fake.addCollection(WixCollection{ID: "col-all", Slug: DefaultAllProductsCategory, Name: "All Products"})
	srv := fake.start(t)

	client := NewClient("client-id", ClientOptions{BaseURL: srv.URL})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw, err := NewVisitor(t.Context(), client, GatewayConfig{}, logger)
	if err != nil {
		t.Fatalf("NewVisitor: %v", err)
	}
	return gw
}
