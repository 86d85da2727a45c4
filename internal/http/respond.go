package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/repository"
	"github.com/sartoro/checkout-service/internal/service"
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
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the service error taxonomy onto HTTP statuses. An
// ambiguous payment outcome never reaches here as a failure; callers report
// those as "processing".
func handleServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var configErr *service.ConfigurationError

	switch {
	case errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrCartCompleted):
		respondError(w, http.StatusConflict, "cart_completed", "cart is completed and can no longer change")
	case errors.Is(err, domain.ErrNoQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, "invalid_cart", validationErr.Error())
	case errors.Is(err, service.ErrPaymentNotReady):
		respondError(w, http.StatusUnprocessableEntity, "payment_not_ready",
			"payment has not been authorized yet")
	case errors.As(err, &configErr):
		respondError(w, http.StatusBadGateway, "payment_misconfigured",
			"no payment provider accepted the request")
	case errors.Is(err, service.ErrExternalUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable",
			"a dependency is unavailable, try again")
	case errors.Is(err, repository.ErrCartConflict):
		respondError(w, http.StatusConflict, "conflict", "cart was modified concurrently, retry")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
