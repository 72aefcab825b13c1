package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the payroll service.
var (
	ErrEmptyPayrollBatch = errors.New("payroll batch is empty")
	ErrNoPostableEntries = errors.New("no unposted payroll entries matched")
	ErrInvalidPeriod     = errors.New("period_start must not be after period_end")
)

// PayrollStore defines the DB methods needed for payroll batches.
type PayrollStore interface {
	CreatePayrollEntry(ctx context.Context, arg database.CreatePayrollEntryParams) (database.PayrollEntry, error)
	ListUnpostedPayrollEntries(ctx context.Context, ids []uuid.UUID) ([]database.PayrollEntry, error)
	MarkPayrollEntriesPosted(ctx context.Context, ids []uuid.UUID) error
	CreateCashflow(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// NewPayrollStore creates a PayrollStore from a DBTX (pool or tx).
type NewPayrollStore func(db database.DBTX) PayrollStore

type PayrollService struct {
	pool     TxBeginner
	newStore NewPayrollStore
}

func NewPayrollService(pool TxBeginner, newStore NewPayrollStore) *PayrollService {
	return &PayrollService{pool: pool, newStore: newStore}
}

// PayrollEntryRequest is one employee's pay for a period. Monetary fields
// are decimal strings; net pay is computed server-side.
type PayrollEntryRequest struct {
	UserID      string
	PeriodStart string // "2006-01-02"
	PeriodEnd   string
	BasePay     string
	Bonus       string
	Deduction   string
}

// CreateBatch inserts a batch of payroll entries in one transaction.
// Entries are created unposted; they hit the ledger only via PostEntries.
func (s *PayrollService) CreateBatch(ctx context.Context, storeID uuid.UUID, entries []PayrollEntryRequest) ([]database.PayrollEntry, error) {
	if storeID == uuid.Nil {
		return nil, errors.New("store_id is required")
	}
	if len(entries) == 0 {
		return nil, ErrEmptyPayrollBatch
	}

	params := make([]database.CreatePayrollEntryParams, len(entries))
	for i, e := range entries {
		userID, err := uuid.Parse(e.UserID)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, ErrInvalidUserID)
		}
		start, err := time.Parse("2006-01-02", e.PeriodStart)
		if err != nil {
			return nil, fmt.Errorf("entry %d period_start: %w", i, ErrInvalidDate)
		}
		end, err := time.Parse("2006-01-02", e.PeriodEnd)
		if err != nil {
			return nil, fmt.Errorf("entry %d period_end: %w", i, ErrInvalidDate)
		}
		if start.After(end) {
			return nil, fmt.Errorf("entry %d: %w", i, ErrInvalidPeriod)
		}

		base, err := parseMoney(e.BasePay, "base_pay")
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if !base.IsPositive() {
			return nil, fmt.Errorf("entry %d base_pay: %w", i, ErrInvalidAmount)
		}
		bonus, err := parseMoney(e.Bonus, "bonus")
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		deduction, err := parseMoney(e.Deduction, "deduction")
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		net := base.Add(bonus).Sub(deduction)
		if !net.IsPositive() {
			return nil, fmt.Errorf("entry %d net pay: %w", i, ErrInvalidAmount)
		}

		params[i] = database.CreatePayrollEntryParams{
			StoreID:     storeID,
			UserID:      userID,
			PeriodStart: pgtype.Date{Time: start, Valid: true},
			PeriodEnd:   pgtype.Date{Time: end, Valid: true},
			BasePay:     decimalToNumeric(base),
			Bonus:       decimalToNumeric(bonus),
			Deduction:   decimalToNumeric(deduction),
			NetPay:      decimalToNumeric(net),
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	created := make([]database.PayrollEntry, len(params))
	for i, p := range params {
		created[i], err = store.CreatePayrollEntry(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create payroll entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

// PostEntries posts selected payroll entries to the ledger: one
// Expense / Gaji cashflow per entry at its net pay, then the entries are
// marked posted. The unposted rows are selected FOR UPDATE, so an
// overlapping post blocks on the lock, re-reads posted_at after the
// winner commits, and finds nothing left to book.
func (s *PayrollService) PostEntries(ctx context.Context, ids []uuid.UUID, postedBy string) ([]database.Cashflow, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyPayrollBatch
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	entries, err := store.ListUnpostedPayrollEntries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list unposted entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoPostableEntries
	}

	postedIDs := make([]uuid.UUID, len(entries))
	cashflows := make([]database.Cashflow, len(entries))
	for i, entry := range entries {
		name := entry.UserID.String()
		if user, err := store.GetUserByID(ctx, entry.UserID); err == nil {
			name = user.FullName
		}

		net := numericToDecimal(entry.NetPay)
		if !net.GreaterThan(decimal.Zero) {
			return nil, fmt.Errorf("entry %s has non-positive net pay", entry.ID)
		}

		cf, err := store.CreateCashflow(ctx, database.CreateCashflowParams{
			StoreID:  entry.StoreID,
			Category: enum.CashflowCategoryExpense,
			Type:     enum.TxTypeGaji,
			Amount:   entry.NetPay,
			Description: fmt.Sprintf("Gaji %s periode %s - %s", name,
				entry.PeriodStart.Time.Format("02 Jan 2006"),
				entry.PeriodEnd.Time.Format("02 Jan 2006")),
			TransactionDate: pgtype.Date{Time: time.Now(), Valid: true},
			CreatedBy:       createdByOrSystem(postedBy),
		})
		if err != nil {
			return nil, fmt.Errorf("post salary cashflow for entry %s: %w", entry.ID, err)
		}
		cashflows[i] = cf
		postedIDs[i] = entry.ID
	}

	if err := store.MarkPayrollEntriesPosted(ctx, postedIDs); err != nil {
		return nil, fmt.Errorf("mark entries posted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return cashflows, nil
}
