package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/service"
	"github.com/diastore/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SalesServicer defines the service methods needed by sales handlers.
// Satisfied by *service.SalesService; narrow interface for testability.
type SalesServicer interface {
	CreateSales(ctx context.Context, req service.CreateSalesRequest) (*service.CreateSalesResult, error)
	DeleteSale(ctx context.Context, id uuid.UUID) error
}

// SalesStore defines the database methods needed by sales read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SalesStore interface {
	GetSale(ctx context.Context, id uuid.UUID) (database.Sale, error)
	ListSalesByStore(ctx context.Context, arg database.ListSalesByStoreParams) ([]database.Sale, error)
}

// SalesHandler handles sales report endpoints.
type SalesHandler struct {
	svc      SalesServicer
	store    SalesStore
	notifier LedgerNotifier
}

// NewSalesHandler creates a new SalesHandler. notifier may be nil.
func NewSalesHandler(svc SalesServicer, store SalesStore, notifier LedgerNotifier) *SalesHandler {
	return &SalesHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterStoreRoutes registers the store-scoped sales endpoints.
// Expected to be mounted at /stores/{sid}/sales.
func (h *SalesHandler) RegisterStoreRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
}

// RegisterRoutes registers the id-scoped sales endpoints at /sales.
func (h *SalesHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type lineItemRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type createSalesRequest struct {
	UserID           string            `json:"user_id"`
	SaleDate         string            `json:"sale_date"`
	SubmissionDate   string            `json:"submission_date"`
	TotalSales       string            `json:"total_sales"`
	TransactionCount int32             `json:"transaction_count"`
	QrisAmount       string            `json:"qris_amount"`
	CashAmount       string            `json:"cash_amount"`
	MeterStart       string            `json:"meter_start"`
	MeterEnd         string            `json:"meter_end"`
	TotalLiters      string            `json:"total_liters"`
	IncomeDetails    []lineItemRequest `json:"income_details"`
	ExpenseDetails   []lineItemRequest `json:"expense_details"`
	Shift            string            `json:"shift"`
	CheckIn          string            `json:"check_in"`
	CheckOut         string            `json:"check_out"`
}

type saleResponse struct {
	ID               uuid.UUID  `json:"id"`
	StoreID          uuid.UUID  `json:"store_id"`
	UserID           *string    `json:"user_id"`
	SaleDate         *string    `json:"sale_date"`
	TotalSales       string     `json:"total_sales"`
	TransactionCount int32      `json:"transaction_count"`
	QrisAmount       string     `json:"qris_amount"`
	CashAmount       string     `json:"cash_amount"`
	MeterStart       *string    `json:"meter_start"`
	MeterEnd         *string    `json:"meter_end"`
	TotalLiters      *string    `json:"total_liters"`
	IncomeDetails    json.RawMessage `json:"income_details"`
	ExpenseDetails   json.RawMessage `json:"expense_details"`
	Shift            *string    `json:"shift"`
	CheckIn          *time.Time `json:"check_in"`
	CheckOut         *time.Time `json:"check_out"`
	SubmissionKey    string     `json:"submission_key"`
	CreatedAt        time.Time  `json:"created_at"`
}

// createSalesResponse reports the sale plus what the deriver actually did,
// so clients can tell a fresh posting from an idempotent replay.
type createSalesResponse struct {
	Sale     saleResponse      `json:"sale"`
	Derived  bool              `json:"derived"`
	Cashflow *cashflowResponse `json:"cashflow"`
	Piutang  *piutangResponse  `json:"piutang"`
}

type saleListResponse struct {
	Sales  []saleResponse `json:"sales"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// --- Handlers ---

// Create handles POST /stores/{sid}/sales.
func (h *SalesHandler) Create(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	var req createSalesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	income := make([]service.LineItem, len(req.IncomeDetails))
	for i, item := range req.IncomeDetails {
		income[i] = service.LineItem{Description: item.Description, Amount: item.Amount}
	}
	expense := make([]service.LineItem, len(req.ExpenseDetails))
	for i, item := range req.ExpenseDetails {
		expense[i] = service.LineItem{Description: item.Description, Amount: item.Amount}
	}

	result, err := h.svc.CreateSales(r.Context(), service.CreateSalesRequest{
		StoreID:          storeID,
		UserID:           req.UserID,
		SaleDate:         req.SaleDate,
		SubmissionDate:   req.SubmissionDate,
		TotalSales:       req.TotalSales,
		TransactionCount: req.TransactionCount,
		QrisAmount:       req.QrisAmount,
		CashAmount:       req.CashAmount,
		MeterStart:       req.MeterStart,
		MeterEnd:         req.MeterEnd,
		TotalLiters:      req.TotalLiters,
		IncomeDetails:    income,
		ExpenseDetails:   expense,
		Shift:            req.Shift,
		CheckIn:          req.CheckIn,
		CheckOut:         req.CheckOut,
	})
	if err != nil {
		if isSalesValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := createSalesResponse{
		Sale:    toSaleResponse(result.Sale),
		Derived: result.DerivedIncome,
	}
	if result.Cashflow != nil {
		cf := toCashflowResponse(*result.Cashflow)
		resp.Cashflow = &cf
	}
	if result.Piutang != nil {
		p := toPiutangResponse(*result.Piutang)
		resp.Piutang = &p
	}

	if h.notifier != nil {
		if resp.Cashflow != nil {
			h.notifier.NotifyJSON(storeID, ws.EventCashflowCreated, resp.Cashflow)
		}
		if resp.Piutang != nil {
			h.notifier.NotifyJSON(storeID, ws.EventPiutangCreated, resp.Piutang)
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /stores/{sid}/sales.
func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	limit, offset := parsePagination(r)
	params := database.ListSalesByStoreParams{
		StoreID: storeID,
		Limit:   int32(limit),
		Offset:  int32(offset),
	}

	var ok bool
	if params.StartDate, ok = parseDateParam(r, "start_date"); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
		return
	}
	if params.EndDate, ok = parseDateParam(r, "end_date"); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
		return
	}

	sales, err := h.store.ListSalesByStore(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]saleResponse, len(sales))
	for i, s := range sales {
		resp[i] = toSaleResponse(s)
	}
	writeJSON(w, http.StatusOK, saleListResponse{Sales: resp, Limit: limit, Offset: offset})
}

// Get handles GET /sales/{id}.
func (h *SalesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sale ID"})
		return
	}

	sale, err := h.store.GetSale(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "sale not found"})
			return
		}
		log.Printf("ERROR: get sale: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

// Delete handles DELETE /sales/{id}. A sale with derived ledger postings
// cannot be removed.
func (h *SalesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sale ID"})
		return
	}

	if err := h.svc.DeleteSale(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrSaleNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "sale not found"})
		case errors.Is(err, service.ErrSaleHasPostings):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "sale has derived ledger postings and cannot be deleted"})
		default:
			log.Printf("ERROR: delete sale: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func isSalesValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrInvalidUserID) ||
		errors.Is(err, service.ErrInvalidDate)
}

func toSaleResponse(s database.Sale) saleResponse {
	resp := saleResponse{
		ID:               s.ID,
		StoreID:          s.StoreID,
		UserID:           uuidFromPg(s.UserID),
		SaleDate:         datePtr(s.SaleDate),
		TotalSales:       numericToString(s.TotalSales),
		TransactionCount: s.TransactionCount,
		QrisAmount:       numericToString(s.QrisAmount),
		CashAmount:       numericToString(s.CashAmount),
		MeterStart:       numericPtr(s.MeterStart),
		MeterEnd:         numericPtr(s.MeterEnd),
		TotalLiters:      numericPtr(s.TotalLiters),
		IncomeDetails:    json.RawMessage(s.IncomeDetails),
		ExpenseDetails:   json.RawMessage(s.ExpenseDetails),
		Shift:            textPtr(s.Shift),
		CheckIn:          timePtr(s.CheckIn),
		CheckOut:         timePtr(s.CheckOut),
		SubmissionKey:    s.SubmissionKey,
		CreatedAt:        s.CreatedAt,
	}
	if resp.IncomeDetails == nil {
		resp.IncomeDetails = json.RawMessage("[]")
	}
	if resp.ExpenseDetails == nil {
		resp.ExpenseDetails = json.RawMessage("[]")
	}
	return resp
}
