package handler

import (
	"net/http"

	"github.com/keymint/keymint/internal/domain"
	"github.com/keymint/keymint/internal/service"
	"github.com/keymint/keymint/internal/validation"
)

// KeyHandler handles key generation and inspection endpoints.
type KeyHandler struct {
	service *service.LicenseService
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(service *service.LicenseService) *KeyHandler {
	return &KeyHandler{service: service}
}

// Generate creates a batch of fresh keys for a product. The plaintext keys
// appear in this response and nowhere else.
func (h *KeyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateKeysRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Product == "" {
		respondError(w, http.StatusBadRequest, "product is required")
		return
	}

	resp, err := h.service.Generate(r.Context(), req.Product, req.Amount)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Stats reports per-product used and unused key counts.
func (h *KeyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.KeyStats(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Lookup returns the administrative status of a key. The key travels in the
// request body so plaintext stays out of URLs and access logs.
func (h *KeyHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req domain.LookupKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.ValidateKeyInput(req.Key); err != nil {
		respondValidationError(w, "key", err.Error())
		return
	}

	status, err := h.service.Lookup(r.Context(), req.Key)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}
