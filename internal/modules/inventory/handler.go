package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tokotrack/tokotrack-backend/internal/auth"
)

// Handler exposes inventory HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Post("/receive", h.receive)                           // POST /api/v1/inventory/receive
		r.Post("/deduct", h.deduct)                             // POST /api/v1/inventory/deduct
		r.Get("/products/{product_id}/batches", h.listBatches)  // GET  /api/v1/inventory/products/{product_id}/batches
	})
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	var req ReceiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b, err := h.service.Receive(r.Context(), storeID, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, b)
}

func (h *Handler) deduct(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	var req DeductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	allocations, err := h.service.Deduct(r.Context(), storeID, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"allocations": allocations})
}

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	includeDrained := r.URL.Query().Get("include_drained") == "true"
	batches, err := h.service.ListBatches(r.Context(), storeID, chi.URLParam(r, "product_id"), includeDrained)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	if batches == nil {
		batches = []*Batch{}
	}
	respond(w, http.StatusOK, batches)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidQuantity):
		return http.StatusBadRequest
	case strings.Contains(err.Error(), "invalid"):
		return http.StatusBadRequest
	case errors.Is(err, ErrStockMismatch):
		// Corruption, not a user error. Surface loudly.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
