package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/middleware"
	"github.com/diastore/api/internal/service"
	"github.com/diastore/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// PiutangServicer defines the service methods needed by piutang handlers.
// Satisfied by *service.PiutangService; narrow interface for testability.
type PiutangServicer interface {
	AddPayment(ctx context.Context, req service.AddPaymentRequest) (*service.AddPaymentResult, error)
	OverrideStatus(ctx context.Context, id uuid.UUID, status string) (*database.Piutang, error)
}

// PiutangStore defines the database methods needed by piutang read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PiutangStore interface {
	GetPiutang(ctx context.Context, id uuid.UUID) (database.Piutang, error)
	ListPiutangByStore(ctx context.Context, arg database.ListPiutangByStoreParams) ([]database.Piutang, error)
	ListPiutangByCustomer(ctx context.Context, customerID string) ([]database.Piutang, error)
	ListCashflowByPiutang(ctx context.Context, piutangID pgtype.UUID) ([]database.Cashflow, error)
}

// PiutangHandler handles receivable endpoints.
type PiutangHandler struct {
	svc      PiutangServicer
	store    PiutangStore
	notifier LedgerNotifier
}

// NewPiutangHandler creates a new PiutangHandler. notifier may be nil.
func NewPiutangHandler(svc PiutangServicer, store PiutangStore, notifier LedgerNotifier) *PiutangHandler {
	return &PiutangHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterStoreRoutes registers the store-scoped piutang endpoints.
// Expected to be mounted at /stores/{sid}/piutang.
func (h *PiutangHandler) RegisterStoreRoutes(r chi.Router) {
	r.Get("/", h.ListByStore)
}

// RegisterRoutes registers the id-scoped piutang endpoints at /piutang.
func (h *PiutangHandler) RegisterRoutes(r chi.Router) {
	r.Get("/by-customer/{cid}", h.ListByCustomer)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/payments", h.AddPayment)
}

// RegisterAdminRoutes registers the administrative correction endpoints,
// gated behind a role check at the router.
func (h *PiutangHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/{id}/status", h.OverrideStatus)
}

// --- Request / Response types ---

type addPaymentRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type overrideStatusRequest struct {
	Status string `json:"status"`
}

type piutangResponse struct {
	ID          uuid.UUID  `json:"id"`
	CustomerID  string     `json:"customer_id"`
	StoreID     uuid.UUID  `json:"store_id"`
	SaleID      *string    `json:"sale_id"`
	Amount      string     `json:"amount"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	PaidAmount  string     `json:"paid_amount"`
	PaidAt      *time.Time `json:"paid_at"`
	CreatedBy   *string    `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// piutangDetailResponse extends piutangResponse with the cashflow entries
// posted against it.
type piutangDetailResponse struct {
	piutangResponse
	Payments []cashflowResponse `json:"payments"`
}

type addPaymentResponse struct {
	Piutang  piutangResponse  `json:"piutang"`
	Cashflow cashflowResponse `json:"cashflow"`
}

// --- Handlers ---

// ListByStore handles GET /stores/{sid}/piutang.
func (h *PiutangHandler) ListByStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	limit, offset := parsePagination(r)
	params := database.ListPiutangByStoreParams{
		StoreID: storeID,
		Limit:   int32(limit),
		Offset:  int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	rows, err := h.store.ListPiutangByStore(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list piutang: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]piutangResponse, len(rows))
	for i, p := range rows {
		resp[i] = toPiutangResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListByCustomer handles GET /piutang/by-customer/{cid}. The customer id
// may be a customers row id or a virtual "user-<uuid>" id.
func (h *PiutangHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if cid == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	rows, err := h.store.ListPiutangByCustomer(r.Context(), cid)
	if err != nil {
		log.Printf("ERROR: list piutang by customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]piutangResponse, len(rows))
	for i, p := range rows {
		resp[i] = toPiutangResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /piutang/{id}, including the payment history.
func (h *PiutangHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid piutang ID"})
		return
	}

	piutang, err := h.store.GetPiutang(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "piutang not found"})
			return
		}
		log.Printf("ERROR: get piutang: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.ListCashflowByPiutang(r.Context(), pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		log.Printf("ERROR: list piutang payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	paymentResps := make([]cashflowResponse, len(payments))
	for i, cf := range payments {
		paymentResps[i] = toCashflowResponse(cf)
	}

	writeJSON(w, http.StatusOK, piutangDetailResponse{
		piutangResponse: toPiutangResponse(piutang),
		Payments:        paymentResps,
	})
}

// AddPayment handles POST /piutang/{id}/payments. This is the only
// endpoint that can change paid_amount.
func (h *PiutangHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid piutang ID"})
		return
	}

	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	userID := ""
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		userID = claims.UserID.String()
	}

	result, err := h.svc.AddPayment(r.Context(), service.AddPaymentRequest{
		PiutangID:   id,
		Amount:      req.Amount,
		Description: req.Description,
		UserID:      userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrPiutangNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "piutang not found"})
		case errors.Is(err, service.ErrOverpayment):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "payment exceeds remaining piutang amount"})
		default:
			log.Printf("ERROR: add piutang payment: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := addPaymentResponse{
		Piutang:  toPiutangResponse(result.Piutang),
		Cashflow: toCashflowResponse(result.Cashflow),
	}
	if h.notifier != nil {
		h.notifier.NotifyJSON(result.Piutang.StoreID, ws.EventPiutangPayment, resp)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// OverrideStatus handles PUT /piutang/{id}/status, the administrative
// correction path. It never touches paid_amount.
func (h *PiutangHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid piutang ID"})
		return
	}

	var req overrideStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.svc.OverrideStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		case errors.Is(err, service.ErrPiutangNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "piutang not found"})
		default:
			log.Printf("ERROR: override piutang status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toPiutangResponse(*updated)
	if h.notifier != nil {
		h.notifier.NotifyJSON(updated.StoreID, ws.EventPiutangStatus, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func toPiutangResponse(p database.Piutang) piutangResponse {
	return piutangResponse{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		StoreID:     p.StoreID,
		SaleID:      uuidFromPg(p.SaleID),
		Amount:      numericToString(p.Amount),
		Description: p.Description,
		Status:      p.Status,
		PaidAmount:  numericToString(p.PaidAmount),
		PaidAt:      timePtr(p.PaidAt),
		CreatedBy:   textPtr(p.CreatedBy),
		CreatedAt:   p.CreatedAt,
	}
}
