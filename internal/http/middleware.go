package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const (
	cookieSessionID = "storefront_sid"
	cookieMaxAge    = 60 * 60 * 24 * 30
)

type ctxKeySessionID struct{}

type ctxKeyLog struct{}

// EnsureSessionID reads the session cookie or issues a new one. Each browsing
// context is identified only by this cookie.
func EnsureSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		c, err := r.Cookie(cookieSessionID)
		if err == nil && c.Value != "" {
			sessionID = c.Value
		} else {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     cookieSessionID,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   cookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), ctxKeySessionID{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger stores a request scoped logger in the context and logs every
// request once it completes.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			rlog := log.WithFields(logrus.Fields{
				"http.req.path":   r.URL.Path,
				"http.req.method": r.Method,
				"http.req.id":     middleware.GetReqID(r.Context()),
			})
			if sessionID := sessionIDFromContext(r.Context()); sessionID != "" {
				rlog = rlog.WithField("session_id", sessionID)
			}
			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				rlog = rlog.WithFields(logrus.Fields{
					"trace_id": sc.TraceID().String(),
					"span_id":  sc.SpanID().String(),
				})
			}

			ctx := context.WithValue(r.Context(), ctxKeyLog{}, rlog)
			defer func() {
				rlog.WithFields(logrus.Fields{
					"http.resp.took_ms": time.Since(start).Milliseconds(),
					"http.resp.status":  ww.Status(),
					"http.resp.bytes":   ww.BytesWritten(),
				}).Debug("request complete")
			}()
			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

func sessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeySessionID{}).(string); ok {
		return id
	}
	return ""
}

func logFromContext(ctx context.Context) logrus.FieldLogger {
	if l, ok := ctx.Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
		return l
	}
	return logrus.StandardLogger()
}
