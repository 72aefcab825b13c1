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

// CashflowServicer defines the service methods needed by cashflow handlers.
// Satisfied by *service.CashflowService; narrow interface for testability.
type CashflowServicer interface {
	CreateCashflow(ctx context.Context, req service.CreateCashflowRequest, createdBy string) (*service.CreateCashflowResult, error)
}

// CashflowStore defines the database methods needed by cashflow read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CashflowStore interface {
	GetCashflow(ctx context.Context, id uuid.UUID) (database.Cashflow, error)
	ListCashflowByStore(ctx context.Context, arg database.ListCashflowByStoreParams) ([]database.Cashflow, error)
}

// CashflowHandler handles ledger endpoints.
type CashflowHandler struct {
	svc      CashflowServicer
	store    CashflowStore
	notifier LedgerNotifier
}

// NewCashflowHandler creates a new CashflowHandler. notifier may be nil.
func NewCashflowHandler(svc CashflowServicer, store CashflowStore, notifier LedgerNotifier) *CashflowHandler {
	return &CashflowHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterStoreRoutes registers the store-scoped cashflow endpoints.
// Expected to be mounted at /stores/{sid}/cashflow.
func (h *CashflowHandler) RegisterStoreRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
}

// RegisterRoutes registers the id-scoped cashflow endpoints at /cashflow.
func (h *CashflowHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type createCashflowRequest struct {
	Category        string `json:"category"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
	TransactionDate string `json:"transaction_date"`
	CustomerID      string `json:"customer_id"`
	PaymentStatus   string `json:"payment_status"`
	Konter          string `json:"konter"`
	JumlahGalon     string `json:"jumlah_galon"`
	PajakTransfer   string `json:"pajak_transfer"`
	BiayaTransfer   string `json:"biaya_transfer"`
}

type cashflowResponse struct {
	ID               uuid.UUID `json:"id"`
	StoreID          uuid.UUID `json:"store_id"`
	Category         string    `json:"category"`
	Type             string    `json:"type"`
	Amount           string    `json:"amount"`
	Description      string    `json:"description"`
	TransactionDate  *string   `json:"transaction_date"`
	CustomerID       *string   `json:"customer_id"`
	PiutangID        *string   `json:"piutang_id"`
	PaymentStatus    *string   `json:"payment_status"`
	SubmissionKey    *string   `json:"submission_key"`
	Konter           *string   `json:"konter"`
	JumlahGalon      *string   `json:"jumlah_galon"`
	PajakOngkos      *string   `json:"pajak_ongkos"`
	PajakTransfer    *string   `json:"pajak_transfer"`
	TotalPengeluaran *string   `json:"total_pengeluaran"`
	BiayaTransfer    *string   `json:"biaya_transfer"`
	Hasil            *string   `json:"hasil"`
	CreatedBy        *string   `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
}

type createCashflowResponse struct {
	Cashflow cashflowResponse `json:"cashflow"`
	Piutang  *piutangResponse `json:"piutang"`
}

type cashflowListResponse struct {
	Cashflow []cashflowResponse `json:"cashflow"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// --- Handlers ---

// Create handles POST /stores/{sid}/cashflow.
func (h *CashflowHandler) Create(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	var req createCashflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	createdBy := ""
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		createdBy = claims.UserID.String()
	}

	result, err := h.svc.CreateCashflow(r.Context(), service.CreateCashflowRequest{
		StoreID:         storeID,
		Category:        req.Category,
		Type:            req.Type,
		Amount:          req.Amount,
		Description:     req.Description,
		TransactionDate: req.TransactionDate,
		CustomerID:      req.CustomerID,
		PaymentStatus:   req.PaymentStatus,
		Konter:          req.Konter,
		JumlahGalon:     req.JumlahGalon,
		PajakTransfer:   req.PajakTransfer,
		BiayaTransfer:   req.BiayaTransfer,
	}, createdBy)
	if err != nil {
		if isCashflowValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create cashflow: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := createCashflowResponse{Cashflow: toCashflowResponse(result.Cashflow)}
	if result.Piutang != nil {
		p := toPiutangResponse(*result.Piutang)
		resp.Piutang = &p
	}

	if h.notifier != nil {
		h.notifier.NotifyJSON(storeID, ws.EventCashflowCreated, resp.Cashflow)
		if resp.Piutang != nil {
			h.notifier.NotifyJSON(storeID, ws.EventPiutangCreated, resp.Piutang)
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /stores/{sid}/cashflow.
func (h *CashflowHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	limit, offset := parsePagination(r)
	params := database.ListCashflowByStoreParams{
		StoreID: storeID,
		Limit:   int32(limit),
		Offset:  int32(offset),
	}

	if s := r.URL.Query().Get("category"); s != "" {
		params.Category = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		params.Type = pgtype.Text{String: s, Valid: true}
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

	entries, err := h.store.ListCashflowByStore(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list cashflow: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]cashflowResponse, len(entries))
	for i, cf := range entries {
		resp[i] = toCashflowResponse(cf)
	}
	writeJSON(w, http.StatusOK, cashflowListResponse{Cashflow: resp, Limit: limit, Offset: offset})
}

// Get handles GET /cashflow/{id}.
func (h *CashflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cashflow ID"})
		return
	}

	cf, err := h.store.GetCashflow(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cashflow not found"})
			return
		}
		log.Printf("ERROR: get cashflow: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCashflowResponse(cf))
}

// --- Helpers ---

func isCashflowValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrInvalidDate) ||
		errors.Is(err, service.ErrInvalidCategory) ||
		errors.Is(err, service.ErrInvalidStatus) ||
		errors.Is(err, service.ErrInvalidKonter) ||
		errors.Is(err, service.ErrCustomerRequired) ||
		errors.Is(err, service.ErrGallonsRequired) ||
		errors.Is(err, service.ErrTransferTax)
}

func toCashflowResponse(cf database.Cashflow) cashflowResponse {
	return cashflowResponse{
		ID:               cf.ID,
		StoreID:          cf.StoreID,
		Category:         cf.Category,
		Type:             cf.Type,
		Amount:           numericToString(cf.Amount),
		Description:      cf.Description,
		TransactionDate:  datePtr(cf.TransactionDate),
		CustomerID:       textPtr(cf.CustomerID),
		PiutangID:        uuidFromPg(cf.PiutangID),
		PaymentStatus:    textPtr(cf.PaymentStatus),
		SubmissionKey:    textPtr(cf.SubmissionKey),
		Konter:           textPtr(cf.Konter),
		JumlahGalon:      numericPtr(cf.JumlahGalon),
		PajakOngkos:      numericPtr(cf.PajakOngkos),
		PajakTransfer:    numericPtr(cf.PajakTransfer),
		TotalPengeluaran: numericPtr(cf.TotalPengeluaran),
		BiayaTransfer:    numericPtr(cf.BiayaTransfer),
		Hasil:            numericPtr(cf.Hasil),
		CreatedBy:        textPtr(cf.CreatedBy),
		CreatedAt:        cf.CreatedAt,
	}
}
