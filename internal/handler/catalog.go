package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/variant"
)

// productView is a product with the projections of one selection: what the
// product page renders.
type productView struct {
	Product      model.Product             `json:"product"`
	Selection    variant.Selection         `json:"selection"`
	Resolved     variant.ResolvedSelection `json:"resolved"`
	Options      []variant.OptionView      `json:"options"`
	InCartLineID string                    `json:"in_cart_line_id,omitempty"`
}

// viewProduct projects sel onto p. The cart lookup uses the cached cart only.
func viewProduct(s *session.Session, p model.Product, sel variant.Selection) productView {
	v := productView{
		Product:   p,
		Selection: sel,
		Resolved:  variant.Resolve(p, sel),
		Options:   variant.ProductOptions(p, sel),
	}
	if snap := s.Cart.Snapshot(); snap.Cart != nil {
		if id, ok := variant.FindItemIDInCart(snap.Cart, p, sel); ok {
			v.InCartLineID = id
		}
	}
	return v
}

// selectionRequest is the body of POST /products/{slug}/selection.
type selectionRequest struct {
	Choices  map[string]string `json:"choices"`
	Quantity int               `json:"quantity"`
}

func (h *Handler) selectProduct(ctx context.Context, s *session.Session, slug string, req selectionRequest) (productView, error) {
	p, err := s.Gateway.ProductBySlug(ctx, slug).Unwrap()
	if err != nil {
		return productView{}, err
	}
	sel, err := variant.Apply(p, req.Choices, req.Quantity)
	if err != nil {
		return productView{}, err
	}
	return viewProduct(s, p, sel), nil
}

// categoryQuery holds the parameters of a category listing.
type categoryQuery struct {
	Slug     string
	Skip     int
	Limit    int
	Sort     model.SortOrder
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

func (h *Handler) categoryProducts(ctx context.Context, s *session.Session, q categoryQuery) (model.ProductPage, error) {
	if !q.Sort.Valid() {
		return model.ProductPage{}, model.NewValidationError("sort", "unknown sort order "+string(q.Sort))
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return model.ProductPage{}, model.NewValidationError("min_price", "must not exceed max_price")
	}
	cat, err := s.Gateway.CategoryBySlug(ctx, q.Slug).Unwrap()
	if err != nil {
		return model.ProductPage{}, err
	}
	return s.Gateway.ProductsByCategory(ctx, model.ProductQuery{
		CategoryID: cat.ID,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		Sort:       q.Sort,
		Skip:       q.Skip,
		Limit:      q.Limit,
	}).Unwrap()
}

func (h *Handler) priceBounds(ctx context.Context, s *session.Session, slug string) (model.PriceBounds, error) {
	cat, err := s.Gateway.CategoryBySlug(ctx, slug).Unwrap()
	if err != nil {
		return model.PriceBounds{}, err
	}
	return s.Gateway.PriceBounds(ctx, cat.ID).Unwrap()
}

// === REST handlers ===

// handleProducts lists products.
// GET /products?limit=
func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}

	page, err := s.Gateway.Products(r.Context(), limit).Unwrap()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// handleProduct returns a product with its default selection.
// GET /products/{slug}
func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	p, err := s.Gateway.ProductBySlug(r.Context(), r.PathValue("slug")).Unwrap()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewProduct(s, p, variant.NewSelection(p)))
}

// handleSelection resolves a selection against a product.
// POST /products/{slug}/selection
func (h *Handler) handleSelection(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	view, err := h.selectProduct(r.Context(), s, r.PathValue("slug"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// handleCategories lists all categories.
// GET /categories
func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	cats, err := s.Gateway.Categories(r.Context()).Unwrap()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, categoriesResponse{Categories: cats})
}

type categoriesResponse struct {
	Categories []model.Category `json:"categories"`
}

// handleCategory returns one category.
// GET /categories/{slug}
func (h *Handler) handleCategory(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	cat, err := s.Gateway.CategoryBySlug(r.Context(), r.PathValue("slug")).Unwrap()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cat)
}

// handleCategoryProducts lists a category's products.
// GET /categories/{slug}/products?skip=&limit=&sort=&min_price=&max_price=
func (h *Handler) handleCategoryProducts(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	q, err := parseCategoryQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.DebugContext(r.Context(), "listing category",
		slog.String("category", q.Slug),
		slog.String("sort", string(q.Sort)),
		slog.Int("skip", q.Skip),
		slog.Int("limit", q.Limit),
	)

	page, err := h.categoryProducts(r.Context(), s, q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

func parseCategoryQuery(r *http.Request) (categoryQuery, error) {
	q := categoryQuery{
		Slug: r.PathValue("slug"),
		Sort: model.SortOrder(r.URL.Query().Get("sort")),
	}
	var err error
	if q.Skip, err = queryInt(r, "skip"); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(r, "limit"); err != nil {
		return q, err
	}
	if q.MinPrice, err = queryDecimal(r, "min_price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = queryDecimal(r, "max_price"); err != nil {
		return q, err
	}
	return q, nil
}

func queryDecimal(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, model.NewValidationError(name, "must be a non-negative decimal")
	}
	return &d, nil
}

// handlePriceBounds returns the price range of a category.
// GET /categories/{slug}/price-bounds
func (h *Handler) handlePriceBounds(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	bounds, err := h.priceBounds(r.Context(), s, r.PathValue("slug"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bounds)
}

// handleFeatured lists featured products.
// GET /featured?category=&limit=
func (h *Handler) handleFeatured(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}

	page, err := s.Gateway.FeaturedProducts(r.Context(), r.URL.Query().Get("category"), limit).Unwrap()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// handlePromoted lists promoted products.
// GET /promoted?limit=
func (h *Handler) handlePromoted(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}

	page, err := s.Gateway.PromotedProducts(r.Context(), limit).Unwrap()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}
