package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	ListCustomersByStore(ctx context.Context, arg database.ListCustomersByStoreParams) ([]database.Customer, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// CustomerResolverSvc resolves both persisted and virtual customer ids.
// Satisfied by *service.CustomerResolver.
type CustomerResolverSvc interface {
	Resolve(ctx context.Context, id string) (*service.CustomerProjection, error)
}

// CustomerHandler handles customer endpoints.
type CustomerHandler struct {
	store    CustomerStore
	resolver CustomerResolverSvc
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore, resolver CustomerResolverSvc) *CustomerHandler {
	return &CustomerHandler{store: store, resolver: resolver}
}

// RegisterStoreRoutes registers the store-scoped customer endpoints.
// Expected to be mounted at /stores/{sid}/customers.
func (h *CustomerHandler) RegisterStoreRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
}

// RegisterRoutes registers the id-scoped customer endpoints at /customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type customerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type customerResponse struct {
	ID      string  `json:"id"`
	StoreID *string `json:"store_id"`
	Name    string  `json:"name"`
	Phone   *string `json:"phone"`
	Virtual bool    `json:"virtual"`
	Role    string  `json:"role,omitempty"`
}

// Create handles POST /stores/{sid}/customers.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	params := database.CreateCustomerParams{
		StoreID: pgtype.UUID{Bytes: storeID, Valid: true},
		Name:    req.Name,
	}
	if req.Phone != "" {
		params.Phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	customer, err := h.store.CreateCustomer(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

// List handles GET /stores/{sid}/customers.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	limit, offset := parsePagination(r)
	customers, err := h.store.ListCustomersByStore(r.Context(), database.ListCustomersByStoreParams{
		StoreID: pgtype.UUID{Bytes: storeID, Valid: true},
		Limit:   int32(limit),
		Offset:  int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toCustomerResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /customers/{id}. The id may be a customers row id or a
// virtual "user-<uuid>" id; virtual ids resolve to read-only projections
// of the users table.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	proj, err := h.resolver.Resolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: resolve customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := customerResponse{
		ID:      proj.ID,
		Name:    proj.Name,
		Virtual: proj.Virtual,
		Role:    proj.Role,
	}
	if proj.Phone != "" {
		resp.Phone = &proj.Phone
	}
	if proj.StoreID != nil {
		s := proj.StoreID.String()
		resp.StoreID = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /customers/{id}. Virtual customers are projections
// and cannot be written through this surface.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	if strings.HasPrefix(raw, service.VirtualCustomerPrefix) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "virtual customers are read-only"})
		return
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	params := database.UpdateCustomerParams{ID: id, Name: req.Name}
	if req.Phone != "" {
		params.Phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	customer, err := h.store.UpdateCustomer(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: update customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// Delete handles DELETE /customers/{id}.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	if strings.HasPrefix(raw, service.VirtualCustomerPrefix) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "virtual customers are read-only"})
		return
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	if _, err := h.store.DeleteCustomer(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: delete customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toCustomerResponse(c database.Customer) customerResponse {
	return customerResponse{
		ID:      c.ID.String(),
		StoreID: uuidFromPg(c.StoreID),
		Name:    c.Name,
		Phone:   textPtr(c.Phone),
	}
}
