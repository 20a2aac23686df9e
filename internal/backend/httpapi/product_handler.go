package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ikramzafar0343/style-sathi/internal/api"
	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
)

type Products interface {
	GetAllProducts(ctx context.Context) ([]*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
}

type ProductHandler struct {
	products Products
	timeout  time.Duration
}

func NewProductHandler(products Products, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
	}
}

type ProductsResponse struct {
	Products []api.Product `json:"products"`
}

func convertProduct(p *model.Product) api.Product {
	return api.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		ImageRef: p.ImageURL,
		Brand:    p.Brand,
	}
}

// GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.products.GetAllProducts(ctx)
	if err != nil {
		handleError(w, err)
		return
	}

	products := make([]api.Product, len(res))
	for i, p := range res {
		products[i] = convertProduct(p)
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// GET /api/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a number")
		return
	}

	p, err := h.products.GetProduct(ctx, id)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertProduct(p))
}
