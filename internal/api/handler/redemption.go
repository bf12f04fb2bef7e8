package handler

import (
	"net/http"
	"strconv"

	"github.com/keymint/keymint/internal/service"
)

// defaultRecentLimit is how many ledger entries are returned when the
// caller does not ask for a specific count.
const defaultRecentLimit = 10

// RedemptionHandler handles redemption ledger endpoints.
type RedemptionHandler struct {
	service *service.LicenseService
}

// NewRedemptionHandler creates a new RedemptionHandler.
func NewRedemptionHandler(service *service.LicenseService) *RedemptionHandler {
	return &RedemptionHandler{service: service}
}

// Recent lists the newest ledger entries. The limit query parameter is
// clamped by the service, so out-of-range values never error.
func (h *RedemptionHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = parsed
	}

	entries, err := h.service.RecentRedemptions(r.Context(), limit)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}
