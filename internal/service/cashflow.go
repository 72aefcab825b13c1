package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/enum"
	"github.com/diastore/api/internal/rules"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the cashflow service.
var (
	ErrInvalidCategory  = errors.New("invalid category")
	ErrCustomerRequired = errors.New("customer_id is required for unpaid Pemberian Utang")
	ErrGallonsRequired  = errors.New("jumlah_galon must be a positive number for fuel purchases")
	ErrTransferTax      = errors.New("biaya_transfer is required in manual konter mode")
	ErrInvalidKonter    = errors.New("invalid konter mode")
)

var validCategories = map[string]bool{
	enum.CashflowCategoryIncome:     true,
	enum.CashflowCategoryExpense:    true,
	enum.CashflowCategoryInvestment: true,
}

// CashflowStore defines the DB methods needed to post cashflow entries.
type CashflowStore interface {
	CreateCashflow(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error)
	CreatePiutang(ctx context.Context, arg database.CreatePiutangParams) (database.Piutang, error)
}

// NewCashflowStore creates a CashflowStore from a DBTX (pool or tx).
type NewCashflowStore func(db database.DBTX) CashflowStore

type CashflowService struct {
	pool     TxBeginner
	newStore NewCashflowStore
}

func NewCashflowService(pool TxBeginner, newStore NewCashflowStore) *CashflowService {
	return &CashflowService{pool: pool, newStore: newStore}
}

// CreateCashflowRequest is a manual ledger posting. Type-specific fields
// (gallons, konter, taxes) only matter for the reserved transaction types.
type CreateCashflowRequest struct {
	StoreID         uuid.UUID
	Category        string
	Type            string
	Amount          string // decimal string, must be > 0
	Description     string
	TransactionDate string // "2006-01-02", optional, defaults to today
	CustomerID      string // customers.id or virtual "user-<uuid>"
	PaymentStatus   string // lunas | belum_lunas, for debt-type entries
	Konter          string // "Dia store" | "manual", transfer types only
	JumlahGalon     string // decimal string, fuel purchase types only
	PajakTransfer   string // optional override, fuel purchase types
	BiayaTransfer   string // manual konter mode transfer tax
}

// CreateCashflowResult is the posted entry plus the receivable created as
// a side effect of an unpaid Pemberian Utang, when any.
type CreateCashflowResult struct {
	Cashflow database.Cashflow
	Piutang  *database.Piutang
}

// CreateCashflow validates, applies the per-type business rules, and posts
// the entry. Unpaid debt entries atomically create their matching piutang
// and back-link it.
func (s *CashflowService) CreateCashflow(ctx context.Context, req CreateCashflowRequest, createdBy string) (*CreateCashflowResult, error) {
	if req.StoreID == uuid.Nil {
		return nil, errors.New("store_id is required")
	}
	if !validCategories[req.Category] {
		return nil, ErrInvalidCategory
	}
	if req.Type == "" {
		return nil, errors.New("type is required")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	txDate := time.Now()
	if req.TransactionDate != "" {
		txDate, err = time.Parse("2006-01-02", req.TransactionDate)
		if err != nil {
			return nil, fmt.Errorf("transaction_date: %w", ErrInvalidDate)
		}
	}

	params := database.CreateCashflowParams{
		StoreID:         req.StoreID,
		Category:        req.Category,
		Type:            req.Type,
		Amount:          decimalToNumeric(amount),
		Description:     req.Description,
		TransactionDate: pgtype.Date{Time: txDate, Valid: true},
		CreatedBy:       createdByOrSystem(createdBy),
	}
	if req.CustomerID != "" {
		params.CustomerID = pgtype.Text{String: req.CustomerID, Valid: true}
	}
	if req.PaymentStatus != "" {
		if req.PaymentStatus != enum.PaymentStatusLunas && req.PaymentStatus != enum.PaymentStatusBelumLunas {
			return nil, ErrInvalidStatus
		}
		params.PaymentStatus = pgtype.Text{String: req.PaymentStatus, Valid: true}
	}

	if err := applyTypeRules(&params, req, amount); err != nil {
		return nil, err
	}

	isUnpaidDebt := req.Type == enum.TxTypePemberianUtang && req.PaymentStatus == enum.PaymentStatusBelumLunas
	if isUnpaidDebt && req.CustomerID == "" {
		return nil, ErrCustomerRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	result := &CreateCashflowResult{}

	// Giving debt while unpaid creates the receivable first so the
	// cashflow row can carry the back-reference.
	if isUnpaidDebt {
		p, err := store.CreatePiutang(ctx, database.CreatePiutangParams{
			CustomerID:  req.CustomerID,
			StoreID:     req.StoreID,
			Amount:      decimalToNumeric(amount),
			Description: req.Description,
			Status:      enum.PaymentStatusBelumLunas,
			PaidAmount:  decimalToNumeric(decimal.Zero),
			CreatedBy:   createdByOrSystem(createdBy),
		})
		if err != nil {
			return nil, fmt.Errorf("create debt piutang: %w", err)
		}
		result.Piutang = &p
		params.PiutangID = pgtype.UUID{Bytes: p.ID, Valid: true}
	}

	cashflow, err := store.CreateCashflow(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create cashflow: %w", err)
	}
	result.Cashflow = cashflow

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// applyTypeRules fills the type-specific breakdown columns for reserved
// transaction types.
func applyTypeRules(params *database.CreateCashflowParams, req CreateCashflowRequest, amount decimal.Decimal) error {
	switch req.Type {
	case enum.TxTypePembelianMinyak, enum.TxTypePembelianStok:
		gallons, err := decimal.NewFromString(req.JumlahGalon)
		if err != nil || !gallons.IsPositive() {
			return ErrGallonsRequired
		}
		pajakTransfer := rules.DefaultPajakTransfer
		if req.PajakTransfer != "" {
			pajakTransfer, err = decimal.NewFromString(req.PajakTransfer)
			if err != nil || pajakTransfer.IsNegative() {
				return fmt.Errorf("pajak_transfer: %w", ErrInvalidAmount)
			}
		}
		pajakOngkos, total := rules.FuelPurchaseCosts(gallons, pajakTransfer)
		params.JumlahGalon = decimalToNumeric(gallons)
		params.PajakOngkos = decimalToNumeric(pajakOngkos)
		params.PajakTransfer = decimalToNumeric(pajakTransfer)
		params.TotalPengeluaran = decimalToNumeric(total)

	case enum.TxTypeTransferRekening, enum.TxTypePenjualanTransfer:
		var tax decimal.Decimal
		switch req.Konter {
		case enum.KonterDiaStore:
			tax = rules.TransferTax(amount)
		case enum.KonterManual:
			var err error
			tax, err = decimal.NewFromString(req.BiayaTransfer)
			if err != nil || tax.IsNegative() {
				return ErrTransferTax
			}
		default:
			return ErrInvalidKonter
		}
		hasil := rules.RoundResult(amount.Sub(tax))
		params.Konter = pgtype.Text{String: req.Konter, Valid: true}
		params.BiayaTransfer = decimalToNumeric(tax)
		params.Hasil = decimalToNumeric(hasil)
	}
	return nil
}
