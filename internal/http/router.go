package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	// RequestTimeout bounds every request, including remote cart fetches and
	// order submission.
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter wires the storefront API. Every route runs in the context of the
// session named by the session cookie.
func NewRouter(cfg RouterConfig, sessions Sessions, notifications Notifications, log logrus.FieldLogger) http.Handler {
	sessionHandler := NewSessionHandler(sessions, notifications, cfg.RequestTimeout)
	cartHandler := NewCartHandler(sessions, cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(sessions, cfg.RequestTimeout)
	sellerHandler := NewSellerHandler(sessions, cfg.RequestTimeout)

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

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(EnsureSessionID)
		r.Use(RequestLogger(log))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSession)
			r.Post("/login", sessionHandler.Login)
			r.Post("/logout", sessionHandler.Logout)
		})
		r.Route("/profile", func(r chi.Router) {
			r.Put("/", sessionHandler.UpdateProfile)
			r.Post("/phone-verified", sessionHandler.MarkPhoneVerified)
		})
		r.Get("/notifications", sessionHandler.Notifications)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Put("/", cartHandler.ReplaceCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/sync", cartHandler.Sync)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Post("/items/{product_id}/increment", cartHandler.Increment)
			r.Post("/items/{product_id}/decrement", cartHandler.Decrement)
		})

		r.Post("/checkout", checkoutHandler.PlaceOrder)

		r.Route("/seller/orders", func(r chi.Router) {
			r.Get("/", sellerHandler.ListOrders)
			r.Patch("/{order_id}/status", sellerHandler.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
