// Package handler provides HTTP and MCP handlers for the storefront API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"storefront/internal/checkout"
	"storefront/internal/gateway"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/session"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sessions middleware.SessionResolver
	version  string
	logger   *slog.Logger
}

// New creates a new Handler. sessions resolves the session ids MCP tools
// receive in their input; REST requests get their session from middleware.
func New(sessions middleware.SessionResolver, version string, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		version:  version,
		logger:   logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Catalog
	mux.HandleFunc("GET /products", h.handleProducts)
	mux.HandleFunc("GET /products/{slug}", h.handleProduct)
	mux.HandleFunc("POST /products/{slug}/selection", h.handleSelection)
	mux.HandleFunc("GET /categories", h.handleCategories)
	mux.HandleFunc("GET /categories/{slug}", h.handleCategory)
	mux.HandleFunc("GET /categories/{slug}/products", h.handleCategoryProducts)
	mux.HandleFunc("GET /categories/{slug}/price-bounds", h.handlePriceBounds)
	mux.HandleFunc("GET /featured", h.handleFeatured)
	mux.HandleFunc("GET /promoted", h.handlePromoted)

	// Cart
	mux.HandleFunc("GET /cart", h.handleCart)
	mux.HandleFunc("GET /cart/totals", h.handleCartTotals)
	mux.HandleFunc("POST /cart/items", h.handleAddItem)
	mux.HandleFunc("PATCH /cart/items/{id}", h.handleUpdateItem)
	mux.HandleFunc("DELETE /cart/items/{id}", h.handleRemoveItem)

	// Checkout and orders
	mux.HandleFunc("POST /checkout", h.handleCheckout)
	mux.HandleFunc("GET /orders/{id}", h.handleOrder)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.version})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// session returns the request's shopper session.
func (h *Handler) session(r *http.Request) (*session.Session, error) {
	s := middleware.SessionFrom(r.Context())
	if s == nil {
		return nil, model.NewInternalError(errors.New("request has no session"))
	}
	return s, nil
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from the error chain.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	apiErr := h.apiError(err)
	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// apiError maps any error the core returns onto the API error envelope.
// Gateway failure codes surface verbatim.
func (h *Handler) apiError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var failure *gateway.Failure
	if errors.As(err, &failure) {
		apiErr = failure.APIError()
		if errors.Is(err, checkout.ErrNotConfigured) {
			apiErr.Message = "checkout not configured: " + failure.Message
		}
		return apiErr
	}

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return &model.APIError{
			Code:       "EMPTY_CART",
			Message:    "cart is empty",
			StatusCode: http.StatusConflict,
			Err:        err,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &model.APIError{
			Code:       "TIMEOUT",
			Message:    "the request timed out",
			StatusCode: http.StatusGatewayTimeout,
			Err:        err,
		}
	}

	h.logger.Error("internal error", slog.String("error", err.Error()))
	return model.NewInternalError(err)
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, model.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}
