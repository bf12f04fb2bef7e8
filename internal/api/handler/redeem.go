package handler

import (
	"net/http"

	"github.com/keymint/keymint/internal/domain"
	"github.com/keymint/keymint/internal/service"
	"github.com/keymint/keymint/internal/validation"
)

// RedeemHandler handles the redemption endpoint called by the gateway on
// behalf of end users.
type RedeemHandler struct {
	service *service.LicenseService
}

// NewRedeemHandler creates a new RedeemHandler.
func NewRedeemHandler(service *service.LicenseService) *RedeemHandler {
	return &RedeemHandler{service: service}
}

// Redeem consumes a key. Exactly one caller wins a given key; the rest see
// a conflict. The response carries the product and entitlement reference so
// the gateway can perform the grant.
func (h *RedeemHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req domain.RedeemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs validation.ValidationErrors
	if err := validation.ValidateKeyInput(req.Key); err != nil {
		errs.Add("key", err.Error())
	}
	if err := validation.ValidateActorID("redeemer_id", req.RedeemerID); err != nil {
		errs.Add("redeemer_id", err.Error())
	}
	if err := validation.ValidateActorID("tenant_id", req.TenantID); err != nil {
		errs.Add("tenant_id", err.Error())
	}
	if errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	result, err := h.service.Redeem(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
