package sales

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tokotrack/tokotrack-backend/internal/auth"
	"github.com/tokotrack/tokotrack-backend/internal/modules/inventory"
)

// Handler exposes sale and debt HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/sales", func(r chi.Router) {
		r.Post("/", h.createSale)                  // POST /api/v1/sales
		r.Get("/", h.listSales)                    // GET  /api/v1/sales?status=
		r.Get("/{id}", h.getSale)                  // GET  /api/v1/sales/{id}
		r.Get("/invoice/{number}", h.getByInvoice) // GET  /api/v1/sales/invoice/{number}
		r.Post("/{id}/payments", h.payDebt)        // POST /api/v1/sales/{id}/payments
		r.Post("/{id}/write-off", h.writeOff)      // POST /api/v1/sales/{id}/write-off
	})
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sale, err := h.service.CreateSale(r.Context(), storeID, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	sales, err := h.service.ListSales(r.Context(), storeID, r.URL.Query().Get("status"))
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sales == nil {
		sales = []*Sale{}
	}
	respond(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	sale, err := h.service.GetSale(r.Context(), storeID, chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sale)
}

func (h *Handler) getByInvoice(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	sale, err := h.service.GetSaleByInvoice(r.Context(), storeID, chi.URLParam(r, "number"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sale)
}

func (h *Handler) payDebt(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	var req PayDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sale, err := h.service.PayDebt(r.Context(), storeID, chi.URLParam(r, "id"), req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sale)
}

func (h *Handler) writeOff(w http.ResponseWriter, r *http.Request) {
	storeID, ok := auth.StoreID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "no store context"})
		return
	}
	var req WriteOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sale, err := h.service.WriteOff(r.Context(), storeID, chi.URLParam(r, "id"), req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sale)
}

// statusFor maps the ledger's error kinds to HTTP codes so the dashboard can
// show a specific message per failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSaleNotFound), errors.Is(err, inventory.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyWrittenOff):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientPayment),
		errors.Is(err, ErrMissingCustomer),
		errors.Is(err, ErrOverpayment),
		errors.Is(err, ErrNoRemainingDebt),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, inventory.ErrStockMismatch):
		return http.StatusInternalServerError
	case strings.Contains(err.Error(), "invalid"), strings.Contains(err.Error(), "required"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
