package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ikramzafar0343/style-sathi/internal/api"
	"github.com/ikramzafar0343/style-sathi/internal/app"
	"github.com/ikramzafar0343/style-sathi/internal/checkout"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/ikramzafar0343/style-sathi/internal/syncq"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts an engine, checkout or API error into an HTTP answer.
func handleError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	var apiErr *api.APIError

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   verr.Message,
			Code:    "invalid_argument",
			Details: verr.Field,
		})
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.Is(err, app.ErrRegistryClosed), errors.Is(err, syncq.ErrClosed), errors.Is(err, domain.ErrNetwork):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.As(err, &apiErr):
		respondError(w, apiErr.StatusCode, "upstream_error", apiErr.Message)
	default:
		respondError(w, http.StatusBadGateway, "upstream_error", err.Error())
	}
}
