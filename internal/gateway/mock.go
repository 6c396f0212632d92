package gateway

import (
	"context"

	"storefront/internal/model"
)

// Mock implements Gateway for testing.
// Each method can be configured via function fields; unconfigured methods
// return their operation's generic failure.
type Mock struct {
	ProductsFunc               func(ctx context.Context, limit int) Result[model.ProductPage]
	ProductsByCategoryFunc     func(ctx context.Context, q model.ProductQuery) Result[model.ProductPage]
	CategoryBySlugFunc         func(ctx context.Context, slug string) Result[model.Category]
	FeaturedProductsFunc       func(ctx context.Context, slug string, limit int) Result[model.ProductPage]
	PromotedProductsFunc       func(ctx context.Context, limit int) Result[model.ProductPage]
	ProductBySlugFunc          func(ctx context.Context, slug string) Result[model.Product]
	CategoriesFunc             func(ctx context.Context) Result[[]model.Category]
	PriceBoundsFunc            func(ctx context.Context, categoryID string) Result[model.PriceBounds]
	CurrentCartFunc            func(ctx context.Context) Result[model.Cart]
	CartTotalsFunc             func(ctx context.Context) Result[model.CartTotals]
	AddToCartFunc              func(ctx context.Context, item model.AddItem, current *model.Cart) Result[model.Cart]
	UpdateItemQuantityFunc     func(ctx context.Context, lineItemID string, quantity int) Result[model.Cart]
	RemoveItemFunc             func(ctx context.Context, lineItemID string) Result[model.Cart]
	CreateCheckoutRedirectFunc func(ctx context.Context, callbacks model.CheckoutCallbacks) Result[model.RedirectSession]
	OrderFunc                  func(ctx context.Context, id string) Result[model.Order]
}

const notConfigured = "mock not configured"

// Products calls the configured ProductsFunc or fails.
func (m *Mock) Products(ctx context.Context, limit int) Result[model.ProductPage] {
	if m.ProductsFunc != nil {
		return m.ProductsFunc(ctx, limit)
	}
	return Fail[model.ProductPage](ProductsFetchFailure, notConfigured)
}

// ProductsByCategory calls the configured ProductsByCategoryFunc or fails.
func (m *Mock) ProductsByCategory(ctx context.Context, q model.ProductQuery) Result[model.ProductPage] {
	if m.ProductsByCategoryFunc != nil {
		return m.ProductsByCategoryFunc(ctx, q)
	}
	return Fail[model.ProductPage](ProductsFetchFailure, notConfigured)
}

// CategoryBySlug calls the configured CategoryBySlugFunc or reports not found.
func (m *Mock) CategoryBySlug(ctx context.Context, slug string) Result[model.Category] {
	if m.CategoryBySlugFunc != nil {
		return m.CategoryBySlugFunc(ctx, slug)
	}
	return Fail[model.Category](CategoryNotFound, "category "+slug+" not found")
}

// FeaturedProducts calls the configured FeaturedProductsFunc or fails.
func (m *Mock) FeaturedProducts(ctx context.Context, slug string, limit int) Result[model.ProductPage] {
	if m.FeaturedProductsFunc != nil {
		return m.FeaturedProductsFunc(ctx, slug, limit)
	}
	return Fail[model.ProductPage](ProductsFetchFailure, notConfigured)
}

// PromotedProducts calls the configured PromotedProductsFunc or fails.
func (m *Mock) PromotedProducts(ctx context.Context, limit int) Result[model.ProductPage] {
	if m.PromotedProductsFunc != nil {
		return m.PromotedProductsFunc(ctx, limit)
	}
	return Fail[model.ProductPage](ProductsFetchFailure, notConfigured)
}

// ProductBySlug calls the configured ProductBySlugFunc or reports not found.
func (m *Mock) ProductBySlug(ctx context.Context, slug string) Result[model.Product] {
	if m.ProductBySlugFunc != nil {
		return m.ProductBySlugFunc(ctx, slug)
	}
	return Fail[model.Product](ProductNotFound, "product "+slug+" not found")
}

// Categories calls the configured CategoriesFunc or fails.
func (m *Mock) Categories(ctx context.Context) Result[[]model.Category] {
	if m.CategoriesFunc != nil {
		return m.CategoriesFunc(ctx)
	}
	return Fail[[]model.Category](CategoriesFetchFailure, notConfigured)
}

// PriceBounds calls the configured PriceBoundsFunc or fails.
func (m *Mock) PriceBounds(ctx context.Context, categoryID string) Result[model.PriceBounds] {
	if m.PriceBoundsFunc != nil {
		return m.PriceBoundsFunc(ctx, categoryID)
	}
	return Fail[model.PriceBounds](PriceBoundsFailure, notConfigured)
}

// CurrentCart calls the configured CurrentCartFunc or returns an empty cart.
func (m *Mock) CurrentCart(ctx context.Context) Result[model.Cart] {
	if m.CurrentCartFunc != nil {
		return m.CurrentCartFunc(ctx)
	}
	return Success(model.Cart{})
}

// CartTotals calls the configured CartTotalsFunc or fails.
func (m *Mock) CartTotals(ctx context.Context) Result[model.CartTotals] {
	if m.CartTotalsFunc != nil {
		return m.CartTotalsFunc(ctx)
	}
	return Fail[model.CartTotals](CartTotalsFailure, notConfigured)
}

// AddToCart calls the configured AddToCartFunc or fails.
func (m *Mock) AddToCart(ctx context.Context, item model.AddItem, current *model.Cart) Result[model.Cart] {
	if m.AddToCartFunc != nil {
		return m.AddToCartFunc(ctx, item, current)
	}
	return Fail[model.Cart](AddCartItemFailure, notConfigured)
}

// UpdateItemQuantity calls the configured UpdateItemQuantityFunc or fails.
func (m *Mock) UpdateItemQuantity(ctx context.Context, lineItemID string, quantity int) Result[model.Cart] {
	if m.UpdateItemQuantityFunc != nil {
		return m.UpdateItemQuantityFunc(ctx, lineItemID, quantity)
	}
	return Fail[model.Cart](UpdateCartItemFailure, notConfigured)
}

// RemoveItem calls the configured RemoveItemFunc or fails.
func (m *Mock) RemoveItem(ctx context.Context, lineItemID string) Result[model.Cart] {
	if m.RemoveItemFunc != nil {
		return m.RemoveItemFunc(ctx, lineItemID)
	}
	return Fail[model.Cart](RemoveCartItemFailure, notConfigured)
}

// CreateCheckoutRedirect calls the configured CreateCheckoutRedirectFunc or fails.
func (m *Mock) CreateCheckoutRedirect(ctx context.Context, callbacks model.CheckoutCallbacks) Result[model.RedirectSession] {
	if m.CreateCheckoutRedirectFunc != nil {
		return m.CreateCheckoutRedirectFunc(ctx, callbacks)
	}
	return Fail[model.RedirectSession](CheckoutCreationFailure, notConfigured)
}

// Order calls the configured OrderFunc or reports not found.
func (m *Mock) Order(ctx context.Context, id string) Result[model.Order] {
	if m.OrderFunc != nil {
		return m.OrderFunc(ctx, id)
	}
	return Fail[model.Order](OrderNotFound, "order "+id+" not found")
}

// Verify Mock implements Gateway interface at compile time.
var _ Gateway = (*Mock)(nil)
