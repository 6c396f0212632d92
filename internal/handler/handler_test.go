package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/gateway"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer wires the handler behind the session middleware with a registry
// whose sessions all talk to mock.
func testServer(mock *gateway.Mock) (*Handler, http.Handler) {
	logger := discardLogger()
	registry := session.NewRegistry(func(ctx context.Context) (gateway.Gateway, error) {
		return mock, nil
	}, session.Config{StoreURL: "https://shop.example"}, logger)

	h := New(registry, "1.0.0", logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, middleware.Session(registry, logger)(mux)
}

func doRequest(srv http.Handler, method, path string, body interface{}, sessionHeader string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionHeader != "" {
		req.Header.Set(middleware.SessionHeader, sessionHeader)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error body: %v\nBody: %s", err, w.Body.String())
	}
	return resp.Error.Code
}

func teeShirt() model.Product {
	price := model.Money{Amount: decimal.RequireFromString("20"), Currency: "EUR"}
	return model.Product{
		ID:             "prod-tee",
		Slug:           "tee",
		Name:           "Tee",
		Price:          price,
		Stock:          model.Stock{InStock: true},
		ManageVariants: true,
		Options: []model.Option{
			{Name: "Size", Choices: []model.Choice{
				{Value: "S", InStock: true, Visible: true},
				{Value: "M", InStock: true, Visible: true},
			}},
		},
		Variants: []model.Variant{
			{ID: "var-s", Choices: map[string]string{"Size": "S"}, Price: price, SKU: "TEE-S", Stock: model.Stock{InStock: true}, Visible: true},
			{ID: "var-m", Choices: map[string]string{"Size": "M"}, Price: price, SKU: "TEE-M", Stock: model.Stock{InStock: false}, Visible: true},
		},
	}
}

func productBySlug(products ...model.Product) func(ctx context.Context, slug string) gateway.Result[model.Product] {
	return func(ctx context.Context, slug string) gateway.Result[model.Product] {
		for _, p := range products {
			if p.Slug == slug {
				return gateway.Success(p)
			}
		}
		return gateway.Fail[model.Product](gateway.ProductNotFound, "product not found")
	}
}

func TestHandleHealth(t *testing.T) {
	_, srv := testServer(&gateway.Mock{})

	w := doRequest(srv, "GET", "/health", nil, "")

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp healthResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("Status = %s, want ok", resp.Status)
	}
	if w.Header().Get(middleware.SessionHeader) != "" {
		t.Error("health check must not start a session")
	}
}

func TestHandleProducts(t *testing.T) {
	var gotLimit int
	mock := &gateway.Mock{
		ProductsFunc: func(ctx context.Context, limit int) gateway.Result[model.ProductPage] {
			gotLimit = limit
			return gateway.Success(model.ProductPage{Items: []model.Product{teeShirt()}, Total: 1})
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "GET", "/products?limit=5", nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	if gotLimit != 5 {
		t.Errorf("limit = %d, want 5", gotLimit)
	}
	if w.Header().Get(middleware.SessionHeader) == "" {
		t.Error("new session id not echoed")
	}

	w = doRequest(srv, "GET", "/products?limit=-1", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative limit: Status = %d, want 400", w.Code)
	}
}

func TestHandleProduct(t *testing.T) {
	mock := &gateway.Mock{ProductBySlugFunc: productBySlug(teeShirt())}
	_, srv := testServer(mock)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"found", "/products/tee", http.StatusOK, ""},
		{"not found", "/products/hat", http.StatusNotFound, "ProductNotFound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(srv, "GET", tt.path, nil, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := errorCode(t, w); got != tt.wantCode {
					t.Errorf("code = %s, want %s", got, tt.wantCode)
				}
				return
			}
			var view productView
			if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if view.Resolved.Complete {
				t.Error("default selection of a two-choice option must be incomplete")
			}
			if len(view.Options) != 1 || len(view.Options[0].Choices) != 2 {
				t.Fatalf("options = %+v", view.Options)
			}
			if view.Options[0].Choices[1].Selectable {
				t.Error("M has only an out-of-stock variant and must not be selectable")
			}
		})
	}
}

func TestHandleSelection(t *testing.T) {
	mock := &gateway.Mock{ProductBySlugFunc: productBySlug(teeShirt())}
	_, srv := testServer(mock)

	w := doRequest(srv, "POST", "/products/tee/selection", selectionRequest{
		Choices:  map[string]string{"Size": "S"},
		Quantity: 2,
	}, "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	var view productView
	json.Unmarshal(w.Body.Bytes(), &view)
	if !view.Resolved.Complete || view.Resolved.Variant == nil || view.Resolved.Variant.ID != "var-s" {
		t.Errorf("resolved = %+v, want variant var-s", view.Resolved)
	}
	if view.Resolved.SKU != "TEE-S" {
		t.Errorf("SKU = %s, want TEE-S", view.Resolved.SKU)
	}
	if view.Resolved.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", view.Resolved.Quantity)
	}

	w = doRequest(srv, "POST", "/products/tee/selection", selectionRequest{
		Choices: map[string]string{"Colour": "Red"},
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown option: Status = %d, want 400", w.Code)
	}
}

func TestAddItemIncompleteSelection(t *testing.T) {
	addCalls := 0
	mock := &gateway.Mock{
		ProductBySlugFunc: productBySlug(teeShirt()),
		AddToCartFunc: func(ctx context.Context, item model.AddItem, current *model.Cart) gateway.Result[model.Cart] {
			addCalls++
			return gateway.Success(model.Cart{})
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "POST", "/cart/items", addItemRequest{ProductSlug: "tee", Quantity: 1}, "")

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Status = %d, want 422\nBody: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Error     errorBody `json:"error"`
		Attempted bool      `json:"attempted"`
		Missing   []string  `json:"missing"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Attempted {
		t.Error("attempted = false, want true")
	}
	if len(resp.Missing) != 1 || resp.Missing[0] != "Size" {
		t.Errorf("missing = %v, want [Size]", resp.Missing)
	}
	if resp.Error.Code != "INCOMPLETE_SELECTION" {
		t.Errorf("code = %s, want INCOMPLETE_SELECTION", resp.Error.Code)
	}
	if addCalls != 0 {
		t.Errorf("AddToCart called %d times, want 0", addCalls)
	}
}

func TestAddItem(t *testing.T) {
	var got model.AddItem
	mock := &gateway.Mock{
		ProductBySlugFunc: productBySlug(teeShirt()),
		AddToCartFunc: func(ctx context.Context, item model.AddItem, current *model.Cart) gateway.Result[model.Cart] {
			got = item
			return gateway.Success(model.Cart{LineItems: []model.LineItem{
				{ID: "li-1", CatalogItemID: item.CatalogItemID, VariantID: item.VariantID, Quantity: item.Quantity},
			}})
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "POST", "/cart/items", addItemRequest{
		ProductSlug: "tee",
		Quantity:    3,
		Choices:     map[string]string{"Size": "S"},
	}, "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	if got.CatalogItemID != "prod-tee" || got.VariantID != "var-s" || got.Quantity != 3 {
		t.Errorf("AddItem = %+v", got)
	}

	var c model.Cart
	json.Unmarshal(w.Body.Bytes(), &c)
	if len(c.LineItems) != 1 || c.LineItems[0].Quantity != 3 {
		t.Errorf("cart = %+v", c)
	}
}

func TestAddItemOutOfStock(t *testing.T) {
	addCalls := 0
	mock := &gateway.Mock{
		ProductBySlugFunc: productBySlug(teeShirt()),
		AddToCartFunc: func(ctx context.Context, item model.AddItem, current *model.Cart) gateway.Result[model.Cart] {
			addCalls++
			return gateway.Success(model.Cart{})
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "POST", "/cart/items", addItemRequest{
		ProductSlug: "tee",
		Choices:     map[string]string{"Size": "M"},
	}, "")

	if w.Code != http.StatusConflict {
		t.Fatalf("Status = %d, want 409\nBody: %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "OUT_OF_STOCK" {
		t.Errorf("code = %s, want OUT_OF_STOCK", got)
	}
	if addCalls != 0 {
		t.Errorf("AddToCart called %d times, want 0", addCalls)
	}
}

func TestAddItemValidation(t *testing.T) {
	_, srv := testServer(&gateway.Mock{ProductBySlugFunc: productBySlug(teeShirt())})

	w := doRequest(srv, "POST", "/cart/items", addItemRequest{}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing slug: Status = %d, want 400", w.Code)
	}

	req := httptest.NewRequest("POST", "/cart/items", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON: Status = %d, want 400", rec.Code)
	}
}

func TestCartReusesSession(t *testing.T) {
	reads := 0
	mock := &gateway.Mock{
		CurrentCartFunc: func(ctx context.Context) gateway.Result[model.Cart] {
			reads++
			return gateway.Success(model.Cart{LineItems: []model.LineItem{{ID: "li-1", Quantity: 1}}})
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "GET", "/cart", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	header := w.Header().Get(middleware.SessionHeader)

	w = doRequest(srv, "GET", "/cart", nil, header)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if got := w.Header().Get(middleware.SessionHeader); got != header {
		t.Errorf("session header = %s, want %s", got, header)
	}
	if reads != 1 {
		t.Errorf("CurrentCart called %d times, want 1 (second read cached)", reads)
	}

	var snap struct {
		Cart     *model.Cart `json:"cart"`
		State    string      `json:"state"`
		Updating []string    `json:"updating"`
	}
	json.Unmarshal(w.Body.Bytes(), &snap)
	if snap.Cart == nil || len(snap.Cart.LineItems) != 1 {
		t.Errorf("snapshot cart = %+v", snap.Cart)
	}
	if snap.State != "idle" {
		t.Errorf("state = %s, want idle", snap.State)
	}
}

func TestCartSnapshotIncludesTotals(t *testing.T) {
	totalsCalls := 0
	mock := &gateway.Mock{
		CurrentCartFunc: func(ctx context.Context) gateway.Result[model.Cart] {
			return gateway.Success(model.Cart{LineItems: []model.LineItem{{ID: "li-1", Quantity: 2}}})
		},
		CartTotalsFunc: func(ctx context.Context) gateway.Result[model.CartTotals] {
			totalsCalls++
			return gateway.Success(model.CartTotals{
				Subtotal: model.Money{Amount: decimal.RequireFromString("39.98"), Currency: "EUR"},
				Total:    model.Money{Amount: decimal.RequireFromString("44.98"), Currency: "EUR"},
			})
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "GET", "/cart", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	header := w.Header().Get(middleware.SessionHeader)

	var snap struct {
		Cart   *model.Cart       `json:"cart"`
		Totals *model.CartTotals `json:"totals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Totals == nil {
		t.Fatalf("snapshot has no totals: %s", w.Body.String())
	}
	if !snap.Totals.Total.Amount.Equal(decimal.RequireFromString("44.98")) {
		t.Errorf("total = %s, want 44.98", snap.Totals.Total.Amount)
	}

	doRequest(srv, "GET", "/cart", nil, header)
	if totalsCalls != 1 {
		t.Errorf("CartTotals called %d times, want 1 (second read cached)", totalsCalls)
	}
}

func TestCartTotalsFailure(t *testing.T) {
	_, srv := testServer(&gateway.Mock{})

	w := doRequest(srv, "GET", "/cart/totals", nil, "")

	if w.Code != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", w.Code)
	}
	if got := errorCode(t, w); got != "CartTotalsFailure" {
		t.Errorf("code = %s, want CartTotalsFailure", got)
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	var gotQty int
	mock := &gateway.Mock{
		UpdateItemQuantityFunc: func(ctx context.Context, id string, qty int) gateway.Result[model.Cart] {
			gotQty = qty
			return gateway.Success(model.Cart{LineItems: []model.LineItem{{ID: id, Quantity: qty}}})
		},
		RemoveItemFunc: func(ctx context.Context, id string) gateway.Result[model.Cart] {
			return gateway.Fail[model.Cart](gateway.RemoveCartItemFailure, "line item locked")
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "PATCH", "/cart/items/li-1", map[string]int{"quantity": 4}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("update: Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	if gotQty != 4 {
		t.Errorf("quantity = %d, want 4", gotQty)
	}

	w = doRequest(srv, "PATCH", "/cart/items/li-1", map[string]int{}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing quantity: Status = %d, want 400", w.Code)
	}

	w = doRequest(srv, "DELETE", "/cart/items/li-1", nil, "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("remove: Status = %d, want 502", w.Code)
	}
	if got := errorCode(t, w); got != "RemoveCartItemFailure" {
		t.Errorf("code = %s, want RemoveCartItemFailure", got)
	}
}

func TestCategoryProducts(t *testing.T) {
	var got model.ProductQuery
	mock := &gateway.Mock{
		CategoryBySlugFunc: func(ctx context.Context, slug string) gateway.Result[model.Category] {
			if slug != "shirts" {
				return gateway.Fail[model.Category](gateway.CategoryNotFound, "collection not found")
			}
			return gateway.Success(model.Category{ID: "col-shirts", Slug: slug})
		},
		ProductsByCategoryFunc: func(ctx context.Context, q model.ProductQuery) gateway.Result[model.ProductPage] {
			got = q
			return gateway.Success(model.ProductPage{Items: []model.Product{}, Total: 0})
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "GET", "/categories/shirts/products?skip=10&limit=5&sort=price_desc&min_price=9.5&max_price=30", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	if got.CategoryID != "col-shirts" || got.Skip != 10 || got.Limit != 5 || got.Sort != model.SortPriceDesc {
		t.Errorf("query = %+v", got)
	}
	if got.MinPrice == nil || !got.MinPrice.Equal(decimal.RequireFromString("9.5")) {
		t.Errorf("MinPrice = %v, want 9.5", got.MinPrice)
	}

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"unknown sort", "/categories/shirts/products?sort=cheapest", http.StatusBadRequest},
		{"bad price", "/categories/shirts/products?min_price=abc", http.StatusBadRequest},
		{"inverted range", "/categories/shirts/products?min_price=50&max_price=10", http.StatusBadRequest},
		{"unknown category", "/categories/hats/products", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(srv, "GET", tt.path, nil, "")
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestPriceBounds(t *testing.T) {
	mock := &gateway.Mock{
		CategoryBySlugFunc: func(ctx context.Context, slug string) gateway.Result[model.Category] {
			return gateway.Success(model.Category{ID: "col-" + slug, Slug: slug})
		},
		PriceBoundsFunc: func(ctx context.Context, categoryID string) gateway.Result[model.PriceBounds] {
			if categoryID != "col-shirts" {
				t.Errorf("categoryID = %s, want col-shirts", categoryID)
			}
			return gateway.Success(model.PriceBounds{
				Lowest:  decimal.RequireFromString("7"),
				Highest: decimal.RequireFromString("25"),
			})
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "GET", "/categories/shirts/price-bounds", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	var bounds model.PriceBounds
	json.Unmarshal(w.Body.Bytes(), &bounds)
	if !bounds.Lowest.Equal(decimal.NewFromInt(7)) || !bounds.Highest.Equal(decimal.NewFromInt(25)) {
		t.Errorf("bounds = %+v", bounds)
	}
}

func TestFeaturedAndPromoted(t *testing.T) {
	var featuredSlug string
	mock := &gateway.Mock{
		FeaturedProductsFunc: func(ctx context.Context, slug string, limit int) gateway.Result[model.ProductPage] {
			featuredSlug = slug
			return gateway.Success(model.ProductPage{Items: []model.Product{}, Total: 0})
		},
		PromotedProductsFunc: func(ctx context.Context, limit int) gateway.Result[model.ProductPage] {
			return gateway.Fail[model.ProductPage](gateway.CategoryNotFound, "collection not found")
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "GET", "/featured?category=summer&limit=4", nil, "")
	if w.Code != http.StatusOK || featuredSlug != "summer" {
		t.Errorf("featured: Status = %d, slug = %s", w.Code, featuredSlug)
	}

	w = doRequest(srv, "GET", "/promoted", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("promoted: Status = %d, want 404", w.Code)
	}
}

func TestCategories(t *testing.T) {
	mock := &gateway.Mock{
		CategoriesFunc: func(ctx context.Context) gateway.Result[[]model.Category] {
			return gateway.Success([]model.Category{{ID: "c1", Slug: "all-products"}})
		},
		CategoryBySlugFunc: func(ctx context.Context, slug string) gateway.Result[model.Category] {
			return gateway.Success(model.Category{ID: "c1", Slug: slug})
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "GET", "/categories", nil, "")
	var resp categoriesResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || len(resp.Categories) != 1 {
		t.Errorf("Status = %d, categories = %+v", w.Code, resp.Categories)
	}

	w = doRequest(srv, "GET", "/categories/all-products", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("category: Status = %d, want 200", w.Code)
	}
}

func checkoutMock(redirect gateway.Result[model.RedirectSession]) *gateway.Mock {
	return &gateway.Mock{
		CurrentCartFunc: func(ctx context.Context) gateway.Result[model.Cart] {
			return gateway.Success(model.Cart{LineItems: []model.LineItem{{ID: "li-1", Quantity: 1}}})
		},
		CreateCheckoutRedirectFunc: func(ctx context.Context, cb model.CheckoutCallbacks) gateway.Result[model.RedirectSession] {
			return redirect
		},
	}
}

func TestCheckout(t *testing.T) {
	ok := gateway.Success(model.RedirectSession{ID: "rs-1", FullURL: "https://checkout.example/rs-1"})

	t.Run("json", func(t *testing.T) {
		_, srv := testServer(checkoutMock(ok))
		w := doRequest(srv, "POST", "/checkout", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
		}
		var resp checkoutResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.RedirectURL != "https://checkout.example/rs-1" {
			t.Errorf("redirect_url = %s", resp.RedirectURL)
		}
	})

	t.Run("form post", func(t *testing.T) {
		_, srv := testServer(checkoutMock(ok))
		req := httptest.NewRequest("POST", "/checkout", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("Status = %d, want 303", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "https://checkout.example/rs-1" {
			t.Errorf("Location = %s", loc)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		failed := gateway.Fail[model.RedirectSession](gateway.CheckoutCreationFailure, "no payment provider")
		_, srv := testServer(checkoutMock(failed))
		w := doRequest(srv, "POST", "/checkout", nil, "")
		if w.Code != http.StatusBadGateway {
			t.Fatalf("Status = %d, want 502", w.Code)
		}
		var resp errorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Error.Code != "CheckoutCreationFailure" {
			t.Errorf("code = %s, want CheckoutCreationFailure", resp.Error.Code)
		}
		if !strings.Contains(resp.Error.Message, "checkout not configured") {
			t.Errorf("message = %s", resp.Error.Message)
		}
	})

	t.Run("empty cart", func(t *testing.T) {
		_, srv := testServer(&gateway.Mock{})
		w := doRequest(srv, "POST", "/checkout", nil, "")
		if w.Code != http.StatusConflict {
			t.Errorf("Status = %d, want 409", w.Code)
		}
		if got := errorCode(t, w); got != "EMPTY_CART" {
			t.Errorf("code = %s, want EMPTY_CART", got)
		}
	})
}

func TestOrder(t *testing.T) {
	mock := &gateway.Mock{
		OrderFunc: func(ctx context.Context, id string) gateway.Result[model.Order] {
			if id == "ord-1" {
				return gateway.Success(model.Order{ID: id, Number: "10001", Status: "APPROVED"})
			}
			return gateway.Fail[model.Order](gateway.OrderNotFound, "order not found")
		},
	}
	_, srv := testServer(mock)

	w := doRequest(srv, "GET", "/orders/ord-1", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}

	w = doRequest(srv, "GET", "/orders/ord-2", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", w.Code)
	}
	if got := errorCode(t, w); got != "OrderNotFound" {
		t.Errorf("code = %s, want OrderNotFound", got)
	}
}

func TestHandlerWithoutSessionMiddleware(t *testing.T) {
	h := New(nil, "1.0.0", discardLogger())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	w := doRequest(mux, "GET", "/cart", nil, "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", w.Code)
	}
}
