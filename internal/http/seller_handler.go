package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type SellerHandler struct {
	sessions Sessions
	timeout  time.Duration
}

func NewSellerHandler(sessions Sessions, timeout time.Duration) *SellerHandler {
	return &SellerHandler{
		sessions: sessions,
		timeout:  timeout,
	}
}

// GET /api/v1/seller/orders?ids=ORD-1,ORD-2
//
// Orders that fail to load are left out; the request only fails when none of
// them could be loaded.
func (h *SellerHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}

	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	if len(ids) > 0 {
		loaded, err := c.Orders.Load(ctx, ids)
		if err != nil && len(loaded) == 0 {
			handleError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, c.Orders.Orders())
}

// PATCH /api/v1/seller/orders/{order_id}/status
func (h *SellerHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, ok := controller(w, r, h.sessions)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := c.Orders.UpdateOrderStatus(ctx, orderID, req.Status)
	if err != nil {
		handleError(w, err)
		return
	}

	logFromContext(r.Context()).
		WithField("order_id", orderID).
		WithField("status", req.Status).
		Info("order status updated")

	respondJSON(w, http.StatusOK, UpdateStatusResponseDTO{
		OrderID: orderID,
		Status:  req.Status,
		Order:   order,
	})
}
