package handler

import (
	"net/http"

	"github.com/keymint/keymint/internal/domain"
	"github.com/keymint/keymint/internal/service"
	"github.com/keymint/keymint/internal/validation"
	"github.com/go-chi/chi/v5"
)

// TenantHandler handles per-tenant notification settings.
type TenantHandler struct {
	service *service.LicenseService
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(service *service.LicenseService) *TenantHandler {
	return &TenantHandler{service: service}
}

// SetNotifications configures where a tenant's redemption notifications go.
// A null target disables them.
func (h *TenantHandler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validation.ValidateActorID("tenant_id", tenantID); err != nil {
		respondValidationError(w, "tenant_id", err.Error())
		return
	}

	var req domain.SetNotificationTargetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SetNotificationTarget(r.Context(), tenantID, req.Target); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &domain.TenantSettings{
		TenantID:           tenantID,
		NotificationTarget: req.Target,
	})
}

// GetNotifications returns the tenant's notification settings. A tenant
// that never configured anything reads back a null target.
func (h *TenantHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validation.ValidateActorID("tenant_id", tenantID); err != nil {
		respondValidationError(w, "tenant_id", err.Error())
		return
	}

	target, err := h.service.GetNotificationTarget(r.Context(), tenantID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &domain.TenantSettings{
		TenantID:           tenantID,
		NotificationTarget: target,
	})
}
