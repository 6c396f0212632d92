// Package gateway defines the typed interface to the remote commerce platform.
//
// Every operation returns a tagged Result: either a success carrying a body or a
// failure carrying a Failure{Code, Message}. Implementations never panic and never
// return bare Go errors across this boundary; callers branch on Result.OK().
package gateway

import (
	"context"

	"storefront/internal/model"
)

// Gateway abstracts catalog, cart, checkout and order operations.
// The Wix implementation lives in internal/wix; tests use Mock.
type Gateway interface {
	// Products lists products. limit <= 0 uses the platform default page size.
	Products(ctx context.Context, limit int) Result[model.ProductPage]

	// ProductsByCategory queries one category with filter, sort and skip/limit paging.
	ProductsByCategory(ctx context.Context, q model.ProductQuery) Result[model.ProductPage]

	// CategoryBySlug returns CategoryNotFound when the platform has no such category.
	CategoryBySlug(ctx context.Context, slug string) Result[model.Category]

	// FeaturedProducts lists products of the requested category, falling back to the
	// all-products category when the requested one is missing. If the fallback fails
	// too, the original failure is returned.
	FeaturedProducts(ctx context.Context, slug string, limit int) Result[model.ProductPage]

	// PromotedProducts lists products of the promotion category.
	PromotedProducts(ctx context.Context, limit int) Result[model.ProductPage]

	// ProductBySlug returns ProductNotFound when absent.
	ProductBySlug(ctx context.Context, slug string) Result[model.Product]

	// Categories lists every category.
	Categories(ctx context.Context) Result[[]model.Category]

	// PriceBounds reads the cheapest and the most expensive product of a category.
	PriceBounds(ctx context.Context, categoryID string) Result[model.PriceBounds]

	// CurrentCart returns the session cart (empty cart if none exists yet).
	CurrentCart(ctx context.Context) Result[model.Cart]

	// CartTotals returns the platform's estimate for the current cart.
	CartTotals(ctx context.Context) Result[model.CartTotals]

	// AddToCart inserts the item, or increments the matching line when the cart
	// already holds the same catalog item and option combination. current may be
	// nil, in which case the implementation reads the cart itself.
	AddToCart(ctx context.Context, item model.AddItem, current *model.Cart) Result[model.Cart]

	// UpdateItemQuantity sets an absolute quantity on a line item.
	UpdateItemQuantity(ctx context.Context, lineItemID string, quantity int) Result[model.Cart]

	// RemoveItem deletes a line item.
	RemoveItem(ctx context.Context, lineItemID string) Result[model.Cart]

	// CreateCheckoutRedirect creates a checkout from the current cart, then a
	// redirect session for it. Each phase has its own failure code.
	CreateCheckoutRedirect(ctx context.Context, callbacks model.CheckoutCallbacks) Result[model.RedirectSession]

	// Order looks up a placed order; OrderNotFound when absent.
	Order(ctx context.Context, id string) Result[model.Order]
}
