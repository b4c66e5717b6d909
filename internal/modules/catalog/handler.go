package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tokotrack/tokotrack-backend/internal/auth"
)

// Handler exposes catalog HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/", h.createProduct)       // POST   /api/v1/products
		r.Get("/", h.listProducts)         // GET    /api/v1/products?category=
		r.Get("/{id}", h.getProduct)       // GET    /api/v1/products/{id}
		r.Patch("/{id}", h.updateProduct)  // PATCH  /api/v1/products/{id}
		r.Delete("/{id}", h.deleteProduct) // DELETE /api/v1/products/{id}
	})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := h.service.CreateProduct(r.Context(), storeID, req)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, p)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	products, err := h.service.ListProducts(r.Context(), storeID, r.URL.Query().Get("category"))
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if products == nil {
		products = []*Product{}
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	p, err := h.service.GetProduct(r.Context(), storeID, chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), storeID, chi.URLParam(r, "id"), req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	if err := h.service.DeleteProduct(r.Context(), storeID, chi.URLParam(r, "id")); err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func statusFor(err error) int {
	if errors.Is(err, ErrProductNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
