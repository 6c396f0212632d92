// MCP transport handler using the official MCP Go SDK.
// Exposes the catalog, cart and checkout operations as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"

	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/variant"
)

// === MCP Tool Input/Output Types ===
// Every tool takes an optional session_id. Without one (or with an expired
// one) a new shopper session is started; its id is returned in the output.

// SessionInput identifies the shopper session.
type SessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
}

// ListProductsInput is the input schema for list_products.
type ListProductsInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of products"`
}

// ProductInput is the input schema for get_product.
type ProductInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	Slug      string `json:"slug" jsonschema:"product slug"`
}

// SelectionInput is the input schema for select_options.
type SelectionInput struct {
	SessionID string            `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	Slug      string            `json:"slug" jsonschema:"product slug"`
	Choices   map[string]string `json:"choices,omitempty" jsonschema:"option name to chosen value"`
	Quantity  int               `json:"quantity,omitempty" jsonschema:"desired quantity"`
}

// CategoryProductsInput is the input schema for category_products.
type CategoryProductsInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	Slug      string `json:"slug" jsonschema:"category slug"`
	Skip      int    `json:"skip,omitempty" jsonschema:"number of products to skip"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of products"`
	Sort      string `json:"sort,omitempty" jsonschema:"price_asc, price_desc, name_asc, name_desc or newest"`
	MinPrice  string `json:"min_price,omitempty" jsonschema:"lowest price as a decimal string"`
	MaxPrice  string `json:"max_price,omitempty" jsonschema:"highest price as a decimal string"`
}

// CategoryInput is the input schema for price_bounds.
type CategoryInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	Slug      string `json:"slug" jsonschema:"category slug"`
}

// FeaturedInput is the input schema for featured_products.
type FeaturedInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	Category  string `json:"category,omitempty" jsonschema:"category slug; all products when empty"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of products"`
}

// AddToCartInput is the input schema for add_to_cart.
type AddToCartInput struct {
	SessionID   string            `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	ProductSlug string            `json:"product_slug" jsonschema:"product slug"`
	Quantity    int               `json:"quantity,omitempty" jsonschema:"quantity to add (default 1)"`
	Choices     map[string]string `json:"choices,omitempty" jsonschema:"option name to chosen value"`
}

// UpdateItemInput is the input schema for update_cart_item.
type UpdateItemInput struct {
	SessionID  string `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	LineItemID string `json:"line_item_id" jsonschema:"cart line item id"`
	Quantity   int    `json:"quantity" jsonschema:"new quantity; 0 removes the line"`
}

// RemoveItemInput is the input schema for remove_cart_item.
type RemoveItemInput struct {
	SessionID  string `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	LineItemID string `json:"line_item_id" jsonschema:"cart line item id"`
}

// OrderInput is the input schema for get_order.
type OrderInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"shopper session id from a previous result"`
	OrderID   string `json:"order_id" jsonschema:"order id"`
}

// ToolOutput wraps every tool result with the session it ran in.
type ToolOutput struct {
	SessionID string `json:"session_id"`
	Result    any    `json:"result"`
}

// NewMCPServer creates an MCP server with the storefront tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: h.version,
		},
		&mcp.ServerOptions{
			Instructions: "Storefront - browse the catalog, build a cart and start checkout. " +
				"Pass the session_id from any result to later calls to keep the same cart.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_products",
		Description: "List catalog products.",
	}, h.mcpListProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Get a product by slug with its options and default selection.",
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_options",
		Description: "Resolve option choices for a product: price, SKU, stock and which choices remain selectable.",
	}, h.mcpSelectOptions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List all categories.",
	}, h.mcpListCategories)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "category_products",
		Description: "List the products of a category with optional price filter, sort and paging.",
	}, h.mcpCategoryProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "price_bounds",
		Description: "Get the lowest and highest product price of a category.",
	}, h.mcpPriceBounds)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "featured_products",
		Description: "List featured products of a category, falling back to all products.",
	}, h.mcpFeaturedProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the cart with totals, busy items and state.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_totals",
		Description: "Get the estimated cart totals.",
	}, h.mcpCartTotals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a product to the cart. Every option needs a choice; an existing line with the same choices is incremented.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_item",
		Description: "Set the quantity of a cart line item.",
	}, h.mcpUpdateCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_cart_item",
		Description: "Remove a cart line item.",
	}, h.mcpRemoveCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "begin_checkout",
		Description: "Create a hosted checkout for the cart and return the URL the shopper must open.",
	}, h.mcpBeginCheckout)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_order",
		Description: "Get a placed order.",
	}, h.mcpGetOrder)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

// mcpRun resolves the session and runs op in it.
func (h *Handler) mcpRun(ctx context.Context, sessionID string, op func(*session.Session) (any, error)) (*mcp.CallToolResult, any, error) {
	s, _, err := h.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	result, err := op(s)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, ToolOutput{SessionID: s.ID, Result: result}, nil
}

func (h *Handler) mcpListProducts(ctx context.Context, req *mcp.CallToolRequest, input ListProductsInput) (*mcp.CallToolResult, any, error) {
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return s.Gateway.Products(ctx, input.Limit).Unwrap()
	})
}

func (h *Handler) mcpGetProduct(ctx context.Context, req *mcp.CallToolRequest, input ProductInput) (*mcp.CallToolResult, any, error) {
	if input.Slug == "" {
		return nil, nil, fmt.Errorf("slug is required")
	}
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		p, err := s.Gateway.ProductBySlug(ctx, input.Slug).Unwrap()
		if err != nil {
			return nil, err
		}
		return viewProduct(s, p, variant.NewSelection(p)), nil
	})
}

func (h *Handler) mcpSelectOptions(ctx context.Context, req *mcp.CallToolRequest, input SelectionInput) (*mcp.CallToolResult, any, error) {
	if input.Slug == "" {
		return nil, nil, fmt.Errorf("slug is required")
	}
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return h.selectProduct(ctx, s, input.Slug, selectionRequest{Choices: input.Choices, Quantity: input.Quantity})
	})
}

func (h *Handler) mcpListCategories(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, any, error) {
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		cats, err := s.Gateway.Categories(ctx).Unwrap()
		if err != nil {
			return nil, err
		}
		return categoriesResponse{Categories: cats}, nil
	})
}

func (h *Handler) mcpCategoryProducts(ctx context.Context, req *mcp.CallToolRequest, input CategoryProductsInput) (*mcp.CallToolResult, any, error) {
	if input.Slug == "" {
		return nil, nil, fmt.Errorf("slug is required")
	}
	q := categoryQuery{
		Slug:  input.Slug,
		Skip:  input.Skip,
		Limit: input.Limit,
		Sort:  model.SortOrder(input.Sort),
	}
	var err error
	if q.MinPrice, err = parseDecimal("min_price", input.MinPrice); err != nil {
		return nil, nil, h.mcpError(err)
	}
	if q.MaxPrice, err = parseDecimal("max_price", input.MaxPrice); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return h.categoryProducts(ctx, s, q)
	})
}

func parseDecimal(field, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, model.NewValidationError(field, "must be a non-negative decimal")
	}
	return &d, nil
}

func (h *Handler) mcpPriceBounds(ctx context.Context, req *mcp.CallToolRequest, input CategoryInput) (*mcp.CallToolResult, any, error) {
	if input.Slug == "" {
		return nil, nil, fmt.Errorf("slug is required")
	}
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return h.priceBounds(ctx, s, input.Slug)
	})
}

func (h *Handler) mcpFeaturedProducts(ctx context.Context, req *mcp.CallToolRequest, input FeaturedInput) (*mcp.CallToolResult, any, error) {
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return s.Gateway.FeaturedProducts(ctx, input.Category, input.Limit).Unwrap()
	})
}

func (h *Handler) mcpGetCart(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, any, error) {
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return h.cartSnapshot(ctx, s)
	})
}

func (h *Handler) mcpCartTotals(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, any, error) {
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return s.Cart.Totals(ctx)
	})
}

func (h *Handler) mcpAddToCart(ctx context.Context, req *mcp.CallToolRequest, input AddToCartInput) (*mcp.CallToolResult, any, error) {
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		attempt, c, err := h.addToCart(ctx, s, addItemRequest{
			ProductSlug: input.ProductSlug,
			Quantity:    input.Quantity,
			Choices:     input.Choices,
		})
		if err != nil {
			return nil, err
		}
		if attempt.Attempted {
			body := attemptError(attempt)
			return nil, errors.New(body.Code + ": " + body.Message)
		}
		return c, nil
	})
}

func (h *Handler) mcpUpdateCartItem(ctx context.Context, req *mcp.CallToolRequest, input UpdateItemInput) (*mcp.CallToolResult, any, error) {
	if input.LineItemID == "" {
		return nil, nil, fmt.Errorf("line_item_id is required")
	}
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return s.Cart.UpdateQuantity(ctx, input.LineItemID, input.Quantity)
	})
}

func (h *Handler) mcpRemoveCartItem(ctx context.Context, req *mcp.CallToolRequest, input RemoveItemInput) (*mcp.CallToolResult, any, error) {
	if input.LineItemID == "" {
		return nil, nil, fmt.Errorf("line_item_id is required")
	}
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return s.Cart.Remove(ctx, input.LineItemID)
	})
}

func (h *Handler) mcpBeginCheckout(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (*mcp.CallToolResult, any, error) {
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		rs, err := s.Checkout.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return checkoutResponse{ID: rs.ID, RedirectURL: rs.FullURL}, nil
	})
}

func (h *Handler) mcpGetOrder(ctx context.Context, req *mcp.CallToolRequest, input OrderInput) (*mcp.CallToolResult, any, error) {
	if input.OrderID == "" {
		return nil, nil, fmt.Errorf("order_id is required")
	}
	return h.mcpRun(ctx, input.SessionID, func(s *session.Session) (any, error) {
		return s.Gateway.Order(ctx, input.OrderID).Unwrap()
	})
}

// mcpError converts core errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	apiErr = h.apiError(err)
	if apiErr.StatusCode == http.StatusInternalServerError {
		// Don't leak internal error details
		return fmt.Errorf("internal error")
	}
	return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
}
