package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ikramzafar0343/style-sathi/internal/api"
	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
	"github.com/ikramzafar0343/style-sathi/internal/backend/service"
)

type Carts interface {
	Lines(ctx context.Context, userID string) ([]service.Line, error)
	AddLine(ctx context.Context, userID string, productID int64, quantity int) (model.CartLine, error)
	UpdateLine(ctx context.Context, userID string, lineID int64, quantity int) error
	RemoveLine(ctx context.Context, userID string, lineID int64) error
}

type CartHandler struct {
	carts    Carts
	products Products
	timeout  time.Duration
}

func NewCartHandler(carts Carts, products Products, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		timeout:  timeout,
	}
}

func convertLine(l model.CartLine, p *model.Product) api.RemoteLine {
	line := api.RemoteLine{
		LineID:    l.LineID,
		ProductID: l.ProductID,
		UnitPrice: l.Price(),
		Quantity:  l.Quantity,
	}
	if p != nil {
		line.Product = api.ProductMetadata{
			Name:     p.Name,
			ImageRef: p.ImageURL,
			Brand:    p.Brand,
		}
	}
	return line
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lines, err := h.carts.Lines(ctx, userIDFromContext(r.Context()))
	if err != nil {
		handleError(w, err)
		return
	}

	resp := api.CartResponse{Items: make([]api.RemoteLine, 0, len(lines))}
	for _, l := range lines {
		resp.Items = append(resp.Items, convertLine(l.CartLine, l.Product))
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req api.AddLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	line, err := h.carts.AddLine(ctx, userIDFromContext(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		handleError(w, err)
		return
	}

	// AddLine already checked the product exists.
	p, _ := h.products.GetProduct(ctx, line.ProductID)
	respondJSON(w, http.StatusCreated, convertLine(line, p))
}

// PATCH /api/cart/items/{line_id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}

	var req api.UpdateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.UpdateLine(ctx, userIDFromContext(r.Context()), lineID, req.Quantity); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/cart/items/{line_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}

	if err := h.carts.RemoveLine(ctx, userIDFromContext(r.Context()), lineID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func lineIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "line_id"), 10, 64)
	if err != nil || lineID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id must be a positive number")
		return 0, false
	}
	return lineID, true
}
