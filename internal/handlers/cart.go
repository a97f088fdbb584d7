package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/farmmarket/apiserver/internal/services"
	"github.com/farmmarket/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// CartHandler provides HTTP handlers for the authenticated user's cart.
type CartHandler struct {
	cartService *services.CartService
}

// NewCartHandler constructs a handler with the provided service.
func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// CartRouter registers cart routes on the given router. Every cart route
// requires authentication.
func CartRouter(r chi.Router, cartService *services.CartService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCartHandler(cartService)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/", handler.GetCart)
	r.Post("/", handler.AddItem)
	r.Delete("/{productID}", handler.RemoveItem)
}

// CartAddRequest is the add-to-cart payload. Field names match the
// original API.
type CartAddRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// GetCart returns the user's resolved cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cart, err := h.cartService.Items(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// AddItem merges an item into the cart and returns the resolved cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CartAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "product not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update cart")
		}
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem drops a product from the cart and returns the resolved cart.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil || productID < 1 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}

	writeJSON(w, http.StatusOK, cart)
}
