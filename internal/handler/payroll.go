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
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PayrollServicer defines the service methods needed by payroll handlers.
// Satisfied by *service.PayrollService; narrow interface for testability.
type PayrollServicer interface {
	CreateBatch(ctx context.Context, storeID uuid.UUID, entries []service.PayrollEntryRequest) ([]database.PayrollEntry, error)
	PostEntries(ctx context.Context, ids []uuid.UUID, postedBy string) ([]database.Cashflow, error)
}

// PayrollStore defines the database methods needed by payroll read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PayrollStore interface {
	GetPayrollEntry(ctx context.Context, id uuid.UUID) (database.PayrollEntry, error)
	ListPayrollEntriesByStore(ctx context.Context, arg database.ListPayrollEntriesByStoreParams) ([]database.PayrollEntry, error)
	DeletePayrollEntry(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// PayrollHandler handles payroll endpoints.
type PayrollHandler struct {
	svc   PayrollServicer
	store PayrollStore
}

// NewPayrollHandler creates a new PayrollHandler.
func NewPayrollHandler(svc PayrollServicer, store PayrollStore) *PayrollHandler {
	return &PayrollHandler{svc: svc, store: store}
}

// RegisterStoreRoutes registers the store-scoped payroll endpoints.
// Expected to be mounted at /stores/{sid}/payroll.
func (h *PayrollHandler) RegisterStoreRoutes(r chi.Router) {
	r.Post("/", h.CreateBatch)
	r.Get("/", h.List)
}

// RegisterRoutes registers the id-scoped payroll endpoints at /payroll.
func (h *PayrollHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
	r.Post("/post", h.Post)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type payrollEntryRequest struct {
	UserID      string `json:"user_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	BasePay     string `json:"base_pay"`
	Bonus       string `json:"bonus"`
	Deduction   string `json:"deduction"`
}

type createPayrollBatchRequest struct {
	Entries []payrollEntryRequest `json:"entries"`
}

type postPayrollRequest struct {
	EntryIDs []string `json:"entry_ids"`
}

type payrollEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	StoreID     uuid.UUID  `json:"store_id"`
	UserID      uuid.UUID  `json:"user_id"`
	PeriodStart *string    `json:"period_start"`
	PeriodEnd   *string    `json:"period_end"`
	BasePay     string     `json:"base_pay"`
	Bonus       string     `json:"bonus"`
	Deduction   string     `json:"deduction"`
	NetPay      string     `json:"net_pay"`
	PostedAt    *time.Time `json:"posted_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type postPayrollResponse struct {
	Cashflow []cashflowResponse `json:"cashflow"`
}

// --- Handlers ---

// CreateBatch handles POST /stores/{sid}/payroll.
func (h *PayrollHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	var req createPayrollBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	entries := make([]service.PayrollEntryRequest, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = service.PayrollEntryRequest{
			UserID:      e.UserID,
			PeriodStart: e.PeriodStart,
			PeriodEnd:   e.PeriodEnd,
			BasePay:     e.BasePay,
			Bonus:       e.Bonus,
			Deduction:   e.Deduction,
		}
	}

	created, err := h.svc.CreateBatch(r.Context(), storeID, entries)
	if err != nil {
		if isPayrollValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create payroll batch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]payrollEntryResponse, len(created))
	for i, e := range created {
		resp[i] = toPayrollEntryResponse(e)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /stores/{sid}/payroll.
func (h *PayrollHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	limit, offset := parsePagination(r)
	rows, err := h.store.ListPayrollEntriesByStore(r.Context(), database.ListPayrollEntriesByStoreParams{
		StoreID: storeID,
		Limit:   int32(limit),
		Offset:  int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list payroll entries: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]payrollEntryResponse, len(rows))
	for i, e := range rows {
		resp[i] = toPayrollEntryResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /payroll/{id}.
func (h *PayrollHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payroll entry ID"})
		return
	}

	entry, err := h.store.GetPayrollEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "payroll entry not found"})
			return
		}
		log.Printf("ERROR: get payroll entry: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPayrollEntryResponse(entry))
}

// Post handles POST /payroll/post: posts the selected entries to the
// ledger as Expense / Gaji cashflow.
func (h *PayrollHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req postPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ids := make([]uuid.UUID, len(req.EntryIDs))
	for i, s := range req.EntryIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry ID: " + s})
			return
		}
		ids[i] = id
	}

	postedBy := ""
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		postedBy = claims.UserID.String()
	}

	cashflows, err := h.svc.PostEntries(r.Context(), ids, postedBy)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPayrollBatch):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entry_ids are required"})
		case errors.Is(err, service.ErrNoPostableEntries):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "all selected entries are already posted"})
		default:
			log.Printf("ERROR: post payroll entries: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := postPayrollResponse{Cashflow: make([]cashflowResponse, len(cashflows))}
	for i, cf := range cashflows {
		resp.Cashflow[i] = toCashflowResponse(cf)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Delete handles DELETE /payroll/{id}. Posted entries are part of the
// ledger's audit trail; the query only removes unposted rows.
func (h *PayrollHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payroll entry ID"})
		return
	}

	if _, err := h.store.DeletePayrollEntry(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "entry not found or already posted"})
			return
		}
		log.Printf("ERROR: delete payroll entry: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func isPayrollValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrInvalidUserID) ||
		errors.Is(err, service.ErrInvalidDate) ||
		errors.Is(err, service.ErrInvalidPeriod) ||
		errors.Is(err, service.ErrEmptyPayrollBatch)
}

func toPayrollEntryResponse(e database.PayrollEntry) payrollEntryResponse {
	return payrollEntryResponse{
		ID:          e.ID,
		StoreID:     e.StoreID,
		UserID:      e.UserID,
		PeriodStart: datePtr(e.PeriodStart),
		PeriodEnd:   datePtr(e.PeriodEnd),
		BasePay:     numericToString(e.BasePay),
		Bonus:       numericToString(e.Bonus),
		Deduction:   numericToString(e.Deduction),
		NetPay:      numericToString(e.NetPay),
		PostedAt:    timePtr(e.PostedAt),
		CreatedAt:   e.CreatedAt,
	}
}
