package wix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"storefront/internal/gateway"
	"storefront/internal/model"
	"storefront/internal/variant"
)

// =============================================================================
// WIX GATEWAY
// =============================================================================
//
// Gateway implements gateway.Gateway for one visitor session.
//
// Flow:
//   1. NewVisitor obtains an anonymous OAuth token pair (new visitor + empty cart)
//   2. Every call uses the access token; on UNAUTHORIZED the token is refreshed
//      once and the call retried
//   3. Platform errors are classified into gateway failure codes at the edge;
//      nothing above this file sees a Wix error
// =============================================================================

// Default collection slugs.
const (
	DefaultAllProductsCategory = "all-products"
	DefaultPromotedCategory    = "promotion"
)

// GatewayConfig holds per-store gateway settings.
type GatewayConfig struct {
	AllProductsCategory string // fallback for featured/promoted lookups
	PromotedCategory    string
}

// Tokens is a visitor's OAuth token pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func tokensFrom(resp *OAuthTokenResponse) Tokens {
	return Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
}

// Gateway talks to Wix on behalf of one visitor.
type Gateway struct {
	client *Client
	config GatewayConfig
	logger *slog.Logger

	mu     sync.Mutex
	tokens Tokens

	// refreshes collapses concurrent refreshes of the same stale token.
	refreshes singleflight.Group
}

// NewGateway binds a client to an existing token pair.
func NewGateway(client *Client, tokens Tokens, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if cfg.AllProductsCategory == "" {
		cfg.AllProductsCategory = DefaultAllProductsCategory
	}
	if cfg.PromotedCategory == "" {
		cfg.PromotedCategory = DefaultPromotedCategory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{client: client, config: cfg, logger: logger, tokens: tokens}
}

// NewVisitor starts a new anonymous visitor session.
func NewVisitor(ctx context.Context, client *Client, cfg GatewayConfig, logger *slog.Logger) (*Gateway, error) {
	resp, err := client.GetAnonymousToken(ctx)
	if err != nil {
		return nil, err
	}
	return NewGateway(client, tokensFrom(resp), cfg, logger), nil
}

// Tokens returns the current token pair.
func (g *Gateway) Tokens() Tokens {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokens
}

func (g *Gateway) accessToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokens.AccessToken
}

// refresh replaces stale, unless a concurrent call already did. Without a
// refresh token a fresh anonymous visitor is started. The OAuth call runs
// outside g.mu; callers racing on the same stale token share one request and
// each stops waiting when its own ctx is done.
func (g *Gateway) refresh(ctx context.Context, stale string) error {
	g.mu.Lock()
	current, refreshToken := g.tokens.AccessToken, g.tokens.RefreshToken
	g.mu.Unlock()
	if current != stale {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	ch := g.refreshes.DoChan(stale, func() (any, error) {
		var (
			resp *OAuthTokenResponse
			err  error
		)
		if refreshToken != "" {
			resp, err = g.client.RefreshToken(detached, refreshToken)
		} else {
			resp, err = g.client.GetAnonymousToken(detached)
		}
		if err != nil {
			g.logger.Warn("token refresh failed", "error", err)
			return nil, err
		}
		if resp.RefreshToken == "" {
			resp.RefreshToken = refreshToken
		}

		g.mu.Lock()
		defer g.mu.Unlock()
		if g.tokens.AccessToken == stale {
			g.tokens = tokensFrom(resp)
			g.logger.Debug("visitor token refreshed", "expires_at", g.tokens.ExpiresAt)
		}
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		return r.Err
	}
}

// authorized runs fn with the access token, refreshing and retrying once on
// UNAUTHORIZED.
func authorized[T any](ctx context.Context, g *Gateway, fn func(token string) (T, error)) (T, error) {
	token := g.accessToken()
	v, err := fn(token)
	if !errors.Is(err, model.ErrUnauthorized) {
		return v, err
	}
	if rerr := g.refresh(ctx, token); rerr != nil {
		return v, err
	}
	return fn(g.accessToken())
}

// === Catalog ===

// Products lists products.
func (g *Gateway) Products(ctx context.Context, limit int) gateway.Result[model.ProductPage] {
	q := WixQuery{}
	if limit > 0 {
		q.Paging = &WixPaging{Limit: limit}
	}
	page, err := g.queryProducts(ctx, q)
	if err != nil {
		return gateway.Classify[model.ProductPage](err, gateway.ProductsFetchFailure, "")
	}
	return gateway.Success(page)
}

// ProductsByCategory queries one category.
func (g *Gateway) ProductsByCategory(ctx context.Context, pq model.ProductQuery) gateway.Result[model.ProductPage] {
	q := WixQuery{
		Filter: productFilter(pq),
		Sort:   productSort(pq.Sort),
	}
	if pq.Limit > 0 || pq.Skip > 0 {
		q.Paging = &WixPaging{Limit: pq.Limit, Offset: pq.Skip}
	}
	page, err := g.queryProducts(ctx, q)
	if err != nil {
		return gateway.Classify[model.ProductPage](err, gateway.ProductsFetchFailure, "")
	}
	return gateway.Success(page)
}

func (g *Gateway) queryProducts(ctx context.Context, q WixQuery) (model.ProductPage, error) {
	resp, err := authorized(ctx, g, func(token string) (*WixQueryProductsResponse, error) {
		return g.client.QueryProducts(ctx, token, q)
	})
	if err != nil {
		return model.ProductPage{}, err
	}
	return model.ProductPage{
		Items: productsToModel(resp.Products),
		Total: resp.TotalResults,
	}, nil
}

// CategoryBySlug looks up a collection by slug.
func (g *Gateway) CategoryBySlug(ctx context.Context, slug string) gateway.Result[model.Category] {
	wc, err := authorized(ctx, g, func(token string) (*WixCollection, error) {
		return g.client.GetCollectionBySlug(ctx, token, slug)
	})
	if err != nil {
		if model.IsNotFound(err) {
			return gateway.Fail[model.Category](gateway.CategoryNotFound, fmt.Sprintf("category %s not found", slug))
		}
		return gateway.Classify[model.Category](err, gateway.CategoryFetchFailure, "")
	}
	return gateway.Success(CollectionToModel(wc))
}

// FeaturedProducts lists the products of a category, falling back to the
// all-products category when the requested one does not exist. Any other
// failure is returned as is. When the fallback fails too, the failure of the
// requested category is returned.
func (g *Gateway) FeaturedProducts(ctx context.Context, slug string, limit int) gateway.Result[model.ProductPage] {
	if slug == "" {
		slug = g.config.AllProductsCategory
	}
	res := g.categoryProducts(ctx, slug, limit)
	if res.OK() || slug == g.config.AllProductsCategory || res.Failure.Code != gateway.CategoryNotFound {
		return res
	}

	g.logger.Info("category unavailable, falling back",
		"category", slug,
		"fallback", g.config.AllProductsCategory,
		"code", res.Failure.Code,
	)
	fallback := g.categoryProducts(ctx, g.config.AllProductsCategory, limit)
	if fallback.OK() {
		return fallback
	}
	return res
}

// PromotedProducts lists the promotion category with the featured fallback.
func (g *Gateway) PromotedProducts(ctx context.Context, limit int) gateway.Result[model.ProductPage] {
	return g.FeaturedProducts(ctx, g.config.PromotedCategory, limit)
}

func (g *Gateway) categoryProducts(ctx context.Context, slug string, limit int) gateway.Result[model.ProductPage] {
	cat := g.CategoryBySlug(ctx, slug)
	if !cat.OK() {
		return gateway.FailWith[model.ProductPage](cat.Failure)
	}
	return g.ProductsByCategory(ctx, model.ProductQuery{CategoryID: cat.Body.ID, Limit: limit})
}

// ProductBySlug fetches one product.
func (g *Gateway) ProductBySlug(ctx context.Context, slug string) gateway.Result[model.Product] {
	q := WixQuery{
		Filter: mustJSON(map[string]string{"slug": slug}),
		Paging: &WixPaging{Limit: 1},
	}
	page, err := g.queryProducts(ctx, q)
	if err != nil {
		return gateway.Classify[model.Product](err, gateway.ProductFetchFailure, gateway.ProductNotFound)
	}
	if len(page.Items) == 0 {
		return gateway.Fail[model.Product](gateway.ProductNotFound, fmt.Sprintf("product %s not found", slug))
	}
	return gateway.Success(page.Items[0])
}

// Categories lists every collection.
func (g *Gateway) Categories(ctx context.Context) gateway.Result[[]model.Category] {
	resp, err := authorized(ctx, g, func(token string) (*WixQueryCollectionsResponse, error) {
		return g.client.QueryCollections(ctx, token)
	})
	if err != nil {
		return gateway.Classify[[]model.Category](err, gateway.CategoriesFetchFailure, "")
	}
	cats := make([]model.Category, len(resp.Collections))
	for i := range resp.Collections {
		cats[i] = CollectionToModel(&resp.Collections[i])
	}
	return gateway.Success(cats)
}

// PriceBounds issues two one-item queries, cheapest first and most expensive
// first, and reads the boundary prices. Missing prices are zero.
func (g *Gateway) PriceBounds(ctx context.Context, categoryID string) gateway.Result[model.PriceBounds] {
	var lowest, highest decimal.Decimal

	eg, egCtx := errgroup.WithContext(ctx)
	bound := func(order model.SortOrder, dst *decimal.Decimal) func() error {
		return func() error {
			page, err := g.queryProducts(egCtx, WixQuery{
				Filter: productFilter(model.ProductQuery{CategoryID: categoryID}),
				Sort:   productSort(order),
				Paging: &WixPaging{Limit: 1},
			})
			if err != nil {
				return err
			}
			if len(page.Items) > 0 {
				*dst = page.Items[0].Price.Amount
			}
			return nil
		}
	}
	eg.Go(bound(model.SortPriceAsc, &lowest))
	eg.Go(bound(model.SortPriceDesc, &highest))

	if err := eg.Wait(); err != nil {
		return gateway.Classify[model.PriceBounds](err, gateway.PriceBoundsFailure, "")
	}
	return gateway.Success(model.PriceBounds{Lowest: lowest, Highest: highest})
}

// === Cart ===

// CurrentCart reads the visitor cart. A visitor without a cart has an empty one.
func (g *Gateway) CurrentCart(ctx context.Context) gateway.Result[model.Cart] {
	cart, err := g.currentCart(ctx)
	if err != nil {
		return gateway.Classify[model.Cart](err, gateway.CartFetchFailure, "")
	}
	return gateway.Success(cart)
}

func (g *Gateway) currentCart(ctx context.Context) (model.Cart, error) {
	wc, err := authorized(ctx, g, func(token string) (*WixCart, error) {
		return g.client.GetCurrentCart(ctx, token)
	})
	if err != nil && !model.IsNotFound(err) {
		return model.Cart{}, err
	}
	return CartToModel(wc), nil
}

// CartTotals asks the platform to estimate the cart totals.
func (g *Gateway) CartTotals(ctx context.Context) gateway.Result[model.CartTotals] {
	resp, err := authorized(ctx, g, func(token string) (*WixEstimateTotalsResponse, error) {
		return g.client.EstimateTotals(ctx, token)
	})
	if err != nil {
		if model.IsNotFound(err) {
			return gateway.Success(model.CartTotals{})
		}
		return gateway.Classify[model.CartTotals](err, gateway.CartTotalsFailure, "")
	}
	return gateway.Success(TotalsToModel(resp))
}

// AddToCart inserts the item, or raises the quantity of the line already
// holding the same catalog item and option combination.
func (g *Gateway) AddToCart(ctx context.Context, item model.AddItem, current *model.Cart) gateway.Result[model.Cart] {
	if current == nil {
		cart, err := g.currentCart(ctx)
		if err != nil {
			return gateway.Classify[model.Cart](err, gateway.AddCartItemFailure, "")
		}
		current = &cart
	}

	if existing, ok := variant.FindLine(current, item); ok {
		g.logger.Debug("item already in cart, incrementing",
			"line_item_id", existing.ID,
			"quantity", existing.Quantity+item.Quantity,
		)
		return g.setQuantity(ctx, existing.ID, existing.Quantity+item.Quantity, gateway.AddCartItemFailure)
	}

	wc, err := authorized(ctx, g, func(token string) (*WixCart, error) {
		return g.client.AddToCart(ctx, token, []WixLineItemInput{{
			CatalogReference: catalogRefFor(item),
			Quantity:         item.Quantity,
		}})
	})
	if err != nil {
		return gateway.Classify[model.Cart](err, gateway.AddCartItemFailure, "")
	}
	return gateway.Success(CartToModel(wc))
}

// UpdateItemQuantity sets an absolute quantity.
func (g *Gateway) UpdateItemQuantity(ctx context.Context, lineItemID string, quantity int) gateway.Result[model.Cart] {
	return g.setQuantity(ctx, lineItemID, quantity, gateway.UpdateCartItemFailure)
}

func (g *Gateway) setQuantity(ctx context.Context, lineItemID string, quantity int, code gateway.Code) gateway.Result[model.Cart] {
	wc, err := authorized(ctx, g, func(token string) (*WixCart, error) {
		return g.client.UpdateLineItemsQuantity(ctx, token, []WixQuantityUpdate{{ID: lineItemID, Quantity: quantity}})
	})
	if err != nil {
		return gateway.Classify[model.Cart](err, code, "")
	}
	return gateway.Success(CartToModel(wc))
}

// RemoveItem deletes a line item.
func (g *Gateway) RemoveItem(ctx context.Context, lineItemID string) gateway.Result[model.Cart] {
	wc, err := authorized(ctx, g, func(token string) (*WixCart, error) {
		return g.client.RemoveLineItems(ctx, token, []string{lineItemID})
	})
	if err != nil {
		return gateway.Classify[model.Cart](err, gateway.RemoveCartItemFailure, "")
	}
	return gateway.Success(CartToModel(wc))
}

// === Checkout ===

// CreateCheckoutRedirect creates a checkout from the current cart, then a
// redirect session for it.
func (g *Gateway) CreateCheckoutRedirect(ctx context.Context, callbacks model.CheckoutCallbacks) gateway.Result[model.RedirectSession] {
	checkoutID, err := authorized(ctx, g, func(token string) (string, error) {
		return g.client.CreateCheckout(ctx, token)
	})
	if err != nil {
		return gateway.Classify[model.RedirectSession](err, gateway.CheckoutCreationFailure, "")
	}

	session, err := authorized(ctx, g, func(token string) (*WixRedirectSession, error) {
		return g.client.CreateRedirectSession(ctx, token, checkoutID, &WixCallbacks{
			PostFlowURL:     callbacks.PostFlowURL,
			ThankYouPageURL: callbacks.ThankYouPageURL,
		})
	})
	if err != nil {
		g.logger.Warn("redirect session failed after checkout creation",
			"checkout_id", checkoutID,
			"error", err,
		)
		return gateway.Classify[model.RedirectSession](err, gateway.CheckoutRedirectSessionFailure, "")
	}

	return gateway.Success(model.RedirectSession{ID: session.ID, FullURL: session.FullURL})
}

// === Orders ===

// Order looks up a placed order.
func (g *Gateway) Order(ctx context.Context, id string) gateway.Result[model.Order] {
	wo, err := authorized(ctx, g, func(token string) (*WixOrder, error) {
		return g.client.GetOrder(ctx, token, id)
	})
	if err != nil {
		if model.IsNotFound(err) {
			return gateway.Fail[model.Order](gateway.OrderNotFound, fmt.Sprintf("order %s not found", id))
		}
		return gateway.Classify[model.Order](err, gateway.OrderFetchFailure, "")
	}
	return gateway.Success(OrderToModel(wo))
}

// Verify Gateway implements gateway.Gateway at compile time.
var _ gateway.Gateway = (*Gateway)(nil)
