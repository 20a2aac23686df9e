package httpapi

import (
	"context"
	"net/http"
	"strings"
)

type ctxKeyUserID struct{}

// BearerAuth resolves the caller from the Authorization header. The demo
// backend issues opaque tokens equal to the user id.
func BearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID{}).(string)
	return v
}
