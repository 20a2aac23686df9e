package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cfg RouterConfig, products *ProductHandler, carts *CartHandler, orders *OrdersHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.List)
			r.Get("/{product_id}", products.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.GetCart)
				r.Post("/items", carts.AddItem)
				r.Patch("/items/{line_id}", carts.UpdateItem)
				r.Delete("/items/{line_id}", carts.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orders.ListOrders)
				r.Post("/", orders.CreateOrder)
				r.Get("/{order_id}", orders.GetOrder)
				r.Patch("/{order_id}/status", orders.UpdateStatus)
			})
		})
	})

	return otelhttp.NewHandler(r, "backend")
}
