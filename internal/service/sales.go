package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/enum"
	"github.com/diastore/api/internal/rules"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxDerivationRetries = 3

// Errors returned by the sales service.
var (
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrInvalidUserID   = errors.New("invalid user_id")
	ErrInvalidDate     = errors.New("invalid date, expected YYYY-MM-DD")
	ErrSaleNotFound    = errors.New("sale not found")
	ErrSaleHasPostings = errors.New("sale has derived ledger postings")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SalesStore defines the DB methods needed to create sales and their
// derived postings. Satisfied by *database.Queries (and its WithTx variant).
type SalesStore interface {
	CreateSale(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (database.Sale, error)
	DeleteSale(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CashflowExistsBySubmissionKey(ctx context.Context, submissionKey pgtype.Text) (bool, error)
	CreateCashflow(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error)
	GetManagerForStore(ctx context.Context, storeID pgtype.UUID) (database.User, error)
	CreatePiutang(ctx context.Context, arg database.CreatePiutangParams) (database.Piutang, error)
	PiutangExistsBySale(ctx context.Context, saleID pgtype.UUID) (bool, error)
}

// NewSalesStore creates a SalesStore from a DBTX (pool or tx).
type NewSalesStore func(db database.DBTX) SalesStore

type SalesService struct {
	pool     TxBeginner
	newStore NewSalesStore
}

func NewSalesService(pool TxBeginner, newStore NewSalesStore) *SalesService {
	return &SalesService{pool: pool, newStore: newStore}
}

// LineItem is one itemized income or expense line on a sales report.
type LineItem struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// CreateSalesRequest is the validated input for one shift submission.
// Monetary fields are decimal strings.
type CreateSalesRequest struct {
	StoreID          uuid.UUID
	UserID           string // optional: empty when staff is unresolved
	SaleDate         string // "2006-01-02", optional
	SubmissionDate   string // explicit idempotency key, optional
	TotalSales       string
	TransactionCount int32
	QrisAmount       string
	CashAmount       string
	MeterStart       string
	MeterEnd         string
	TotalLiters      string
	IncomeDetails    []LineItem
	ExpenseDetails   []LineItem
	Shift            string
	CheckIn          string // RFC3339, optional
	CheckOut         string // RFC3339, optional
}

// CreateSalesResult reports the sale plus whichever postings were derived.
type CreateSalesResult struct {
	Sale          database.Sale
	Cashflow      *database.Cashflow // cash income posting, nil when skipped
	Piutang       *database.Piutang  // QRIS receivable, nil when skipped
	DerivedIncome bool
}

// CreateSales persists a sales submission and synchronously derives its
// ledger postings: at most one cash income cashflow (idempotent on the
// submission key) and at most one QRIS receivable owed by the store's
// manager. QRIS money is never posted as income here; it becomes income
// only when the manager settles the receivable.
func (s *SalesService) CreateSales(ctx context.Context, req CreateSalesRequest) (*CreateSalesResult, error) {
	if req.StoreID == uuid.Nil {
		return nil, errors.New("store_id is required")
	}

	cash, err := parseMoney(req.CashAmount, "cash_amount")
	if err != nil {
		return nil, err
	}
	qris, err := parseMoney(req.QrisAmount, "qris_amount")
	if err != nil {
		return nil, err
	}
	total, err := parseMoney(req.TotalSales, "total_sales")
	if err != nil {
		return nil, err
	}
	// total_sales is caller-supplied; a mismatch is suspicious but accepted.
	if !total.IsZero() && !total.Equal(cash.Add(qris)) {
		log.Printf("WARN: sales submission total %s != cash %s + qris %s (store %s)",
			total, cash, qris, req.StoreID)
	}

	var userID pgtype.UUID
	var employeeID string
	if req.UserID != "" {
		uid, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, ErrInvalidUserID
		}
		userID = pgtype.UUID{Bytes: uid, Valid: true}
		employeeID = uid.String()
	}

	var saleDate time.Time
	var saleDatePg pgtype.Date
	if req.SaleDate != "" {
		saleDate, err = time.Parse("2006-01-02", req.SaleDate)
		if err != nil {
			return nil, fmt.Errorf("sale_date: %w", ErrInvalidDate)
		}
		saleDatePg = pgtype.Date{Time: saleDate, Valid: true}
	}

	// A record with neither a submission date nor a sale date still gets
	// stored, but income derivation is skipped (recoverable, not fatal).
	skipDerivation := false
	key, keyErr := rules.SubmissionKey(rules.SubmissionInput{
		SubmissionDate: req.SubmissionDate,
		SaleDate:       saleDate,
		EmployeeID:     employeeID,
		StoreID:        req.StoreID.String(),
		Shift:          req.Shift,
	})
	if keyErr != nil {
		skipDerivation = true
		log.Printf("WARN: sales submission for store %s has no usable date, skipping income derivation", req.StoreID)
		key, _ = rules.SubmissionKey(rules.SubmissionInput{
			SaleDate:   time.Now(),
			EmployeeID: employeeID,
			StoreID:    req.StoreID.String(),
			Shift:      req.Shift,
		})
	}

	effectiveDate := effectiveSaleDate(req.SubmissionDate, saleDate)

	params, err := buildSaleParams(req, userID, saleDatePg, key, total, qris, cash)
	if err != nil {
		return nil, err
	}

	// Retry loop: a concurrent submission with the same key can win the
	// race to the cashflow submission-key unique index; the next attempt
	// sees the existing posting and skips it.
	var lastErr error
	for attempt := 0; attempt < maxDerivationRetries; attempt++ {
		result, err := s.createSalesTx(ctx, params, cash, qris, effectiveDate, key, skipDerivation, req.UserID)
		if err == nil {
			return result, nil
		}
		if isSubmissionKeyConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *SalesService) createSalesTx(ctx context.Context, params database.CreateSaleParams, cash, qris decimal.Decimal, effectiveDate time.Time, key string, skipDerivation bool, createdBy string) (*CreateSalesResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	sale, err := store.CreateSale(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}

	result := &CreateSalesResult{Sale: sale}

	// Cash income derivation. QRIS is deliberately excluded: those funds
	// sit in the manager's personal account until transferred.
	if !skipDerivation && cash.GreaterThan(decimal.Zero) {
		exists, err := store.CashflowExistsBySubmissionKey(ctx, pgtype.Text{String: key, Valid: true})
		if err != nil {
			return nil, fmt.Errorf("check submission key: %w", err)
		}
		if exists {
			log.Printf("INFO: duplicate sales submission %s, income already posted", key)
		} else {
			cf, err := store.CreateCashflow(ctx, database.CreateCashflowParams{
				StoreID:         sale.StoreID,
				Category:        enum.CashflowCategoryIncome,
				Type:            enum.TxTypeSales,
				Amount:          decimalToNumeric(cash),
				Description:     fmt.Sprintf("Penjualan Cash otomatis dari sales report [%s]", key),
				TransactionDate: pgtype.Date{Time: effectiveDate, Valid: true},
				SubmissionKey:   pgtype.Text{String: key, Valid: true},
				CreatedBy:       createdByOrSystem(createdBy),
			})
			if err != nil {
				return nil, fmt.Errorf("post cash income: %w", err)
			}
			result.Cashflow = &cf
			result.DerivedIncome = true
		}
	}

	// QRIS receivable generation, best-effort: a store without a manager
	// logs a warning and moves on. The sale must still be created.
	if qris.GreaterThan(decimal.Zero) {
		manager, err := store.GetManagerForStore(ctx, pgtype.UUID{Bytes: sale.StoreID, Valid: true})
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("find store manager: %w", err)
			}
			log.Printf("WARN: no manager for store %s, skipping QRIS receivable for sale %s", sale.StoreID, sale.ID)
		} else {
			p, err := store.CreatePiutang(ctx, database.CreatePiutangParams{
				CustomerID:  VirtualCustomerID(manager.ID),
				StoreID:     sale.StoreID,
				SaleID:      pgtype.UUID{Bytes: sale.ID, Valid: true},
				Amount:      decimalToNumeric(qris),
				Description: fmt.Sprintf("Piutang QRIS dari sales report %s tanggal %s", sale.ID, effectiveDate.Format("02 Jan 2006")),
				Status:      enum.PaymentStatusBelumLunas,
				PaidAmount:  decimalToNumeric(decimal.Zero),
				CreatedBy:   createdByOrSystem(createdBy),
			})
			if err != nil {
				return nil, fmt.Errorf("create qris piutang: %w", err)
			}
			result.Piutang = &p
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// DeleteSale removes a sales row that has no derived postings. Once a
// cashflow or piutang was derived from it the sale is part of the ledger's
// audit trail and deletion is refused.
func (s *SalesService) DeleteSale(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	sale, err := store.GetSale(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSaleNotFound
		}
		return fmt.Errorf("get sale: %w", err)
	}

	posted, err := store.CashflowExistsBySubmissionKey(ctx, pgtype.Text{String: sale.SubmissionKey, Valid: true})
	if err != nil {
		return fmt.Errorf("check cashflow postings: %w", err)
	}
	if !posted {
		posted, err = store.PiutangExistsBySale(ctx, pgtype.UUID{Bytes: sale.ID, Valid: true})
		if err != nil {
			return fmt.Errorf("check piutang postings: %w", err)
		}
	}
	if posted {
		return ErrSaleHasPostings
	}

	if _, err := store.DeleteSale(ctx, id); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return tx.Commit(ctx)
}

// --- Helpers ---

// buildSaleParams assembles the insert params from the request plus the
// monetary amounts already validated by the caller.
func buildSaleParams(req CreateSalesRequest, userID pgtype.UUID, saleDate pgtype.Date, key string, total, qris, cash decimal.Decimal) (database.CreateSaleParams, error) {
	var zero database.CreateSaleParams

	params := database.CreateSaleParams{
		StoreID:          req.StoreID,
		UserID:           userID,
		SaleDate:         saleDate,
		TotalSales:       decimalToNumeric(total),
		TransactionCount: req.TransactionCount,
		QrisAmount:       decimalToNumeric(qris),
		CashAmount:       decimalToNumeric(cash),
		SubmissionKey:    key,
	}

	for _, f := range []struct {
		value string
		field string
		dst   *pgtype.Numeric
	}{
		{req.MeterStart, "meter_start", &params.MeterStart},
		{req.MeterEnd, "meter_end", &params.MeterEnd},
		{req.TotalLiters, "total_liters", &params.TotalLiters},
	} {
		if f.value == "" {
			continue
		}
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return zero, fmt.Errorf("%s: %w", f.field, ErrInvalidAmount)
		}
		var n pgtype.Numeric
		_ = n.Scan(d.String())
		*f.dst = n
	}

	incomeDetails, err := marshalLineItems(req.IncomeDetails)
	if err != nil {
		return zero, fmt.Errorf("income_details: %w", err)
	}
	params.IncomeDetails = incomeDetails

	expenseDetails, err := marshalLineItems(req.ExpenseDetails)
	if err != nil {
		return zero, fmt.Errorf("expense_details: %w", err)
	}
	params.ExpenseDetails = expenseDetails

	if req.Shift != "" {
		params.Shift = pgtype.Text{String: req.Shift, Valid: true}
	}
	if req.CheckIn != "" {
		t, err := time.Parse(time.RFC3339, req.CheckIn)
		if err != nil {
			return zero, fmt.Errorf("check_in: invalid timestamp")
		}
		params.CheckIn = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if req.CheckOut != "" {
		t, err := time.Parse(time.RFC3339, req.CheckOut)
		if err != nil {
			return zero, fmt.Errorf("check_out: invalid timestamp")
		}
		params.CheckOut = pgtype.Timestamptz{Time: t, Valid: true}
	}

	return params, nil
}

func marshalLineItems(items []LineItem) ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	for i, item := range items {
		if item.Amount == "" {
			continue
		}
		if _, err := decimal.NewFromString(item.Amount); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, ErrInvalidAmount)
		}
	}
	return json.Marshal(items)
}

// parseMoney parses an optional decimal string; empty means zero.
func parseMoney(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, ErrInvalidAmount)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: %w", field, ErrInvalidAmount)
	}
	return d, nil
}

// effectiveSaleDate picks the date the derived postings carry: the
// explicit submission date when it parses as a date, else the sale date,
// else today.
func effectiveSaleDate(submissionDate string, saleDate time.Time) time.Time {
	if submissionDate != "" {
		if t, err := time.Parse("2006-01-02", submissionDate); err == nil {
			return t
		}
	}
	if !saleDate.IsZero() {
		return saleDate
	}
	return time.Now()
}

func createdByOrSystem(userID string) pgtype.Text {
	if userID == "" {
		return pgtype.Text{String: "system", Valid: true}
	}
	return pgtype.Text{String: userID, Valid: true}
}

// isSubmissionKeyConflict checks for a unique violation on the cashflow
// submission key index (pgconn error code 23505).
func isSubmissionKeyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "idx_cashflow_submission_key"
	}
	return false
}
