package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/cart"
	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

// Cart is the slice of the cart store the cart handler uses.
type Cart interface {
	Items(ctx context.Context, userID string) ([]*cart.Item, error)
	Add(ctx context.Context, userID string, productID int64, quantity int) error
	UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error
	Remove(ctx context.Context, userID string, productID int64) error
	Clear(ctx context.Context, userID string) error
}

// CartHandler handles shopping cart endpoints.
type CartHandler struct {
	cart   Cart
	logger log.Logger
}

// NewCartHandler creates a cart handler.
func NewCartHandler(c Cart, logger log.Logger) *CartHandler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &CartHandler{cart: c, logger: logger}
}

// RegisterRoutes registers cart routes on the given mux.
func (h *CartHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart/{userId}", h.list)
	mux.HandleFunc("POST /api/cart/{userId}/items", h.add)
	mux.HandleFunc("PUT /api/cart/{userId}/items/{productId}", h.update)
	mux.HandleFunc("DELETE /api/cart/{userId}/items/{productId}", h.remove)
	mux.HandleFunc("DELETE /api/cart/{userId}", h.clear)
}

func (h *CartHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.cart.Items(r.Context(), r.PathValue("userId"))
	if err != nil {
		h.logger.Error("failed to list cart", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list cart")
		return
	}

	var total int64
	for _, it := range items {
		total += it.UnitPrice * int64(it.Quantity)
	}
	if items == nil {
		items = []*cart.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"totalAmount": total,
	})
}

// CartItemRequest is the body for adding or updating a cart line.
type CartItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.ProductID <= 0 || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "productId and a positive quantity are required")
		return
	}

	if err := h.cart.Add(r.Context(), r.PathValue("userId"), req.ProductID, req.Quantity); err != nil {
		h.logger.Error("failed to add cart item", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to add cart item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.PathValue("productId"), 10, 64)
	if err != nil || productID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid product id")
		return
	}

	var req CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	err = h.cart.UpdateQuantity(r.Context(), r.PathValue("userId"), productID, req.Quantity)
	if errors.Is(err, cart.ErrNotFound) {
		writeError(w, http.StatusNotFound, "cart_item_not_found", "item not in cart")
		return
	}
	if err != nil {
		h.logger.Error("failed to update cart item", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update cart item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.PathValue("productId"), 10, 64)
	if err != nil || productID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid product id")
		return
	}

	err = h.cart.Remove(r.Context(), r.PathValue("userId"), productID)
	if errors.Is(err, cart.ErrNotFound) {
		writeError(w, http.StatusNotFound, "cart_item_not_found", "item not in cart")
		return
	}
	if err != nil {
		h.logger.Error("failed to remove cart item", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to remove cart item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), r.PathValue("userId")); err != nil {
		h.logger.Error("failed to clear cart", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
