package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type CheckoutHandler struct {
	sessions Sessions
	timeout  time.Duration
}

func NewCheckoutHandler(sessions Sessions, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		timeout:  timeout,
	}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	log := logFromContext(r.Context())
	log.Debug("placing order")

	order, err := c.Checkout.SubmitOrder(ctx, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		handleError(w, err)
		return
	}

	log.WithField("order_id", order.ID).Info("order placed")
	respondJSON(w, http.StatusCreated, order)
}
