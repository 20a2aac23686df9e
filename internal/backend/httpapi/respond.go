package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ikramzafar0343/style-sathi/internal/backend/catalog"
	"github.com/ikramzafar0343/style-sathi/internal/backend/orderstore"
	"github.com/ikramzafar0343/style-sathi/internal/backend/repository"
	"github.com/ikramzafar0343/style-sathi/internal/domain"
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
	if data == nil {
		return
	}
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

func handleError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   verr.Message,
			Code:    "invalid_argument",
			Details: verr.Field,
		})
	case errors.Is(err, repository.ErrLineNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, orderstore.ErrOrderNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logrus.WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
