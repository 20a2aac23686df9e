package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
)

type CartHandler struct {
	sessions Sessions
	timeout  time.Duration
}

func NewCartHandler(sessions Sessions, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		timeout:  timeout,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, convertCart(c.Engine.Cart()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}

	var req CartItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	logFromContext(r.Context()).
		WithField("product_id", req.ProductID).
		WithField("quantity", req.Quantity).
		Debug("adding to cart")

	cart := c.Engine.AddToCart(req.product(), req.Quantity)
	respondJSON(w, http.StatusCreated, convertCart(cart))
}

// PUT /api/v1/cart
func (h *CartHandler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}

	var req ReplaceCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
			return
		}
		lines = append(lines, it.product().Line(it.Quantity))
	}

	cart := c.Engine.UpdateCart(lines)
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /api/v1/cart/items/{product_id}/increment
func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}
	cart := c.Engine.Increment(domain.ProductID(chi.URLParam(r, "product_id")))
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /api/v1/cart/items/{product_id}/decrement
func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}
	cart := c.Engine.Decrement(domain.ProductID(chi.URLParam(r, "product_id")))
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}
	cart := c.Engine.RemoveFromCart(domain.ProductID(chi.URLParam(r, "product_id")))
	respondJSON(w, http.StatusOK, convertCart(cart))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}
	c.Engine.ClearCart()
	respondJSON(w, http.StatusOK, convertCart(c.Engine.Cart()))
}

// POST /api/v1/cart/sync
func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}
	if !c.Engine.Snapshot().Authenticated() {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "login required to sync the cart")
		return
	}

	if err := c.Engine.Resync(ctx); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(c.Engine.Cart()))
}
