package handler

import (
	"net/http"
	"net/url"

	"github.com/keymint/keymint/internal/domain"
	"github.com/keymint/keymint/internal/service"
	"github.com/go-chi/chi/v5"
)

// ProductHandler handles product registry endpoints.
type ProductHandler struct {
	service *service.LicenseService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *service.LicenseService) *ProductHandler {
	return &ProductHandler{service: service}
}

// productName extracts the product name URL parameter. Raw names may arrive
// percent-encoded; normalization takes care of spaces and casing afterward.
func productName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

// Upsert creates or updates a product. The name from the URL is normalized
// before storage; the response carries the normalized spelling.
func (h *ProductHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	name := productName(r)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	var req domain.UpsertProductRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.service.UpsertProduct(r.Context(), name, req.EntitlementRef)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// List lists all products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, products)
}

// Get gets a product by any spelling of its name.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := productName(r)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	product, err := h.service.GetProduct(r.Context(), name)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// Delete removes a product and its delivery link. Issued keys and ledger
// entries are kept.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := productName(r)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.service.DeleteProduct(r.Context(), name); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// LinkDelivery ties a product to a storefront product/variant pair.
func (h *ProductHandler) LinkDelivery(w http.ResponseWriter, r *http.Request) {
	name := productName(r)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	var req domain.LinkExternalDeliveryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.service.LinkExternalDelivery(r.Context(), name, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, link)
}

// GetDelivery returns the storefront link for a product.
func (h *ProductHandler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	name := productName(r)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	link, err := h.service.GetExternalDelivery(r.Context(), name)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, link)
}

// PushDelivery generates keys and uploads them to the linked storefront
// variant. When the upload fails the keys are already committed, so the
// 502 response still lists them for a manual retry.
func (h *ProductHandler) PushDelivery(w http.ResponseWriter, r *http.Request) {
	name := productName(r)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	var req domain.PushKeysRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.PushToExternalDelivery(r.Context(), name, req.Amount)
	if err != nil {
		if result != nil {
			result.Error = err.Error()
			respondJSON(w, http.StatusBadGateway, result)
			return
		}
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
