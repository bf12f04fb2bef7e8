package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/keymint/keymint/internal/domain"
	"github.com/keymint/keymint/internal/validation"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		Message: message,
	})
}

// handleError converts domain errors to HTTP errors. Invalid and
// already-redeemed keys get distinct messages so a redeemer knows whether
// to retype or give up.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidKey):
		respondError(w, http.StatusNotFound, "invalid key")
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		respondError(w, http.StatusConflict, "key has already been redeemed")
	case errors.Is(err, domain.ErrUnknownProduct):
		respondError(w, http.StatusNotFound, "unknown product")
	case errors.Is(err, domain.ErrAmountOutOfRange):
		respondError(w, http.StatusBadRequest, "amount must be between 1 and 50")
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// respondValidationError writes a JSON validation error response.
func respondValidationError(w http.ResponseWriter, field, message string) {
	respondJSON(w, http.StatusBadRequest, &validation.ValidationError{
		Field:   field,
		Message: message,
	})
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"errors": errs,
	})
}
