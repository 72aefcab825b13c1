package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/diastore/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	GetCashflowSummaryByStore(ctx context.Context, arg database.GetCashflowSummaryByStoreParams) (database.GetCashflowSummaryByStoreRow, error)
	SumOutstandingPiutangByStore(ctx context.Context, storeID uuid.UUID) (pgtype.Numeric, error)
}

// ReportHandler handles reporting endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterStoreRoutes registers the store-scoped report endpoints.
// Expected to be mounted at /stores/{sid}/reports.
func (h *ReportHandler) RegisterStoreRoutes(r chi.Router) {
	r.Get("/cashflow-summary", h.CashflowSummary)
}

type cashflowSummaryResponse struct {
	StoreID            uuid.UUID `json:"store_id"`
	TotalIncome        string    `json:"total_income"`
	TotalExpense       string    `json:"total_expense"`
	TotalInvestment    string    `json:"total_investment"`
	NetCashflow        string    `json:"net_cashflow"`
	OutstandingPiutang string    `json:"outstanding_piutang"`
}

// CashflowSummary handles GET /stores/{sid}/reports/cashflow-summary.
// Money stays decimal end to end; the net is computed here rather than
// in SQL so the three category totals are returned untouched.
func (h *ReportHandler) CashflowSummary(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	params := database.GetCashflowSummaryByStoreParams{StoreID: storeID}
	var ok bool
	if params.StartDate, ok = parseDateParam(r, "start_date"); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
		return
	}
	if params.EndDate, ok = parseDateParam(r, "end_date"); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
		return
	}

	summary, err := h.store.GetCashflowSummaryByStore(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: cashflow summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	outstanding, err := h.store.SumOutstandingPiutangByStore(r.Context(), storeID)
	if err != nil {
		log.Printf("ERROR: outstanding piutang: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	income := numericDecimalOrZero(summary.TotalIncome)
	expense := numericDecimalOrZero(summary.TotalExpense)
	investment := numericDecimalOrZero(summary.TotalInvestment)
	net := income.Sub(expense).Sub(investment)

	writeJSON(w, http.StatusOK, cashflowSummaryResponse{
		StoreID:            storeID,
		TotalIncome:        income.StringFixed(2),
		TotalExpense:       expense.StringFixed(2),
		TotalInvestment:    investment.StringFixed(2),
		NetCashflow:        net.StringFixed(2),
		OutstandingPiutang: numericDecimalOrZero(outstanding).StringFixed(2),
	})
}

func numericDecimalOrZero(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
