package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/variant"
)

// addItemRequest is the body of POST /cart/items.
type addItemRequest struct {
	ProductSlug string            `json:"product_slug"`
	Quantity    int               `json:"quantity"`
	Choices     map[string]string `json:"choices"`
}

// attemptResponse answers an add that was held back because the selection
// is not complete. It is validation feedback, not a failure.
type attemptResponse struct {
	Error errorBody `json:"error"`
	variant.AddAttempt
}

// addToCart resolves the request against the product and adds it. When the
// selection is incomplete the returned attempt is flagged and nothing is sent
// to the cart.
func (h *Handler) addToCart(ctx context.Context, s *session.Session, req addItemRequest) (variant.AddAttempt, model.Cart, error) {
	if req.ProductSlug == "" {
		return variant.AddAttempt{}, model.Cart{}, model.NewValidationError("product_slug", "required")
	}
	if req.Quantity < 0 {
		return variant.AddAttempt{}, model.Cart{}, model.NewValidationError("quantity", "must be positive")
	}

	p, err := s.Gateway.ProductBySlug(ctx, req.ProductSlug).Unwrap()
	if err != nil {
		return variant.AddAttempt{}, model.Cart{}, err
	}
	sel, err := variant.Apply(p, req.Choices, req.Quantity)
	if err != nil {
		return variant.AddAttempt{}, model.Cart{}, err
	}

	attempt := variant.PrepareAdd(p, sel, sel.Quantity)
	if attempt.Attempted {
		return attempt, model.Cart{}, nil
	}
	if variant.IsOutOfStock(p, sel, sel.Quantity) {
		return attempt, model.Cart{}, &model.APIError{
			Code:       "OUT_OF_STOCK",
			Message:    p.Name + " is out of stock for the selected options",
			StatusCode: http.StatusConflict,
		}
	}

	c, err := s.Cart.Add(ctx, attempt.Item)
	return attempt, c, err
}

func attemptError(a variant.AddAttempt) errorBody {
	if a.NoVariant {
		return errorBody{Code: "NO_VARIANT", Message: "the selected combination is not available"}
	}
	e := model.NewIncompleteSelectionError(a.Missing)
	return errorBody{Code: e.Code, Message: e.Message}
}

// cartSnapshot loads the cart and its totals if they are cold and returns the
// cached state. A totals failure leaves them out of the snapshot rather than
// failing the whole read.
func (h *Handler) cartSnapshot(ctx context.Context, s *session.Session) (cart.Snapshot, error) {
	if _, err := s.Cart.Cart(ctx); err != nil {
		return cart.Snapshot{}, err
	}
	if _, err := s.Cart.Totals(ctx); err != nil {
		h.logger.WarnContext(ctx, "cart totals unavailable",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()),
		)
	}
	return s.Cart.Snapshot(), nil
}

// === REST handlers ===

// handleCart returns the cart snapshot: cart, fresh totals, busy items and state.
// GET /cart
func (h *Handler) handleCart(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	snap, err := h.cartSnapshot(r.Context(), s)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// handleCartTotals returns the platform's estimate for the cart.
// GET /cart/totals
func (h *Handler) handleCartTotals(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	totals, err := s.Cart.Totals(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, totals)
}

// handleAddItem adds a product selection to the cart.
// POST /cart/items
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "adding to cart",
		slog.String("session_id", s.ID),
		slog.String("product", req.ProductSlug),
		slog.Int("quantity", req.Quantity),
	)

	attempt, c, err := h.addToCart(ctx, s, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if attempt.Attempted {
		h.writeJSON(w, http.StatusUnprocessableEntity, attemptResponse{
			Error:      attemptError(attempt),
			AddAttempt: attempt,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

// handleUpdateItem sets a line item's quantity; zero removes the line.
// PATCH /cart/items/{id}
func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		h.writeError(w, model.NewValidationError("quantity", "must be zero or more"))
		return
	}

	c, err := s.Cart.UpdateQuantity(ctx, r.PathValue("id"), *req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// handleRemoveItem deletes a line item.
// DELETE /cart/items/{id}
func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	c, err := s.Cart.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

type checkoutResponse struct {
	ID          string `json:"id,omitempty"`
	RedirectURL string `json:"redirect_url"`
}

// handleCheckout hands the cart to the hosted checkout. Browser form posts
// are redirected with 303; API clients get the URL as JSON.
// POST /checkout
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rs, err := s.Checkout.Begin(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	if isFormPost(r) {
		http.Redirect(w, r, rs.FullURL, http.StatusSeeOther)
		return
	}
	h.writeJSON(w, http.StatusOK, checkoutResponse{ID: rs.ID, RedirectURL: rs.FullURL})
}

func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

// handleOrder returns a placed order.
// GET /orders/{id}
func (h *Handler) handleOrder(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	order, err := s.Gateway.Order(r.Context(), r.PathValue("id")).Unwrap()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}
