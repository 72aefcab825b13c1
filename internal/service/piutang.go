package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the piutang service.
var (
	ErrPiutangNotFound = errors.New("piutang not found")
	ErrOverpayment     = errors.New("payment exceeds remaining piutang amount")
	ErrInvalidStatus   = errors.New("invalid status")
)

// PiutangStore defines the DB methods needed to apply payments.
type PiutangStore interface {
	GetPiutang(ctx context.Context, id uuid.UUID) (database.Piutang, error)
	GetPiutangForUpdate(ctx context.Context, id uuid.UUID) (database.Piutang, error)
	UpdatePiutangPayment(ctx context.Context, arg database.UpdatePiutangPaymentParams) (database.Piutang, error)
	UpdatePiutangStatus(ctx context.Context, arg database.UpdatePiutangStatusParams) (database.Piutang, error)
	CreateCashflow(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error)
}

// NewPiutangStore creates a PiutangStore from a DBTX (pool or tx).
type NewPiutangStore func(db database.DBTX) PiutangStore

type PiutangService struct {
	pool     TxBeginner
	newStore NewPiutangStore
}

func NewPiutangService(pool TxBeginner, newStore NewPiutangStore) *PiutangService {
	return &PiutangService{pool: pool, newStore: newStore}
}

// AddPaymentRequest is a payment against one receivable.
type AddPaymentRequest struct {
	PiutangID   uuid.UUID
	Amount      string // decimal string, must be > 0
	Description string
	UserID      string
}

// AddPaymentResult returns both sides of the posting.
type AddPaymentResult struct {
	Piutang  database.Piutang
	Cashflow database.Cashflow
}

// AddPayment applies a payment against a receivable as one transaction:
// lock the row, reject overpayment outright (no clamping), post the
// matching income cashflow, and advance paid_amount and status. This is
// the only code path allowed to change paid_amount.
func (s *PiutangService) AddPayment(ctx context.Context, req AddPaymentRequest) (*AddPaymentResult, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	piutang, err := store.GetPiutangForUpdate(ctx, req.PiutangID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPiutangNotFound
		}
		return nil, fmt.Errorf("lock piutang: %w", err)
	}

	total := numericToDecimal(piutang.Amount)
	currentPaid := numericToDecimal(piutang.PaidAmount)
	newPaid := currentPaid.Add(amount)
	if newPaid.GreaterThan(total) {
		return nil, ErrOverpayment
	}

	newStatus := enum.PaymentStatusBelumLunas
	var paidAt pgtype.Timestamptz
	if newPaid.GreaterThanOrEqual(total) {
		newStatus = enum.PaymentStatusLunas
		paidAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}

	cashflow, err := store.CreateCashflow(ctx, database.CreateCashflowParams{
		StoreID:         piutang.StoreID,
		Category:        enum.CashflowCategoryIncome,
		Type:            enum.TxTypePembayaranPiutang,
		Amount:          decimalToNumeric(amount),
		Description:     req.Description,
		TransactionDate: pgtype.Date{Time: time.Now(), Valid: true},
		CustomerID:      pgtype.Text{String: piutang.CustomerID, Valid: true},
		PiutangID:       pgtype.UUID{Bytes: piutang.ID, Valid: true},
		PaymentStatus:   pgtype.Text{String: newStatus, Valid: true},
		CreatedBy:       createdByOrSystem(req.UserID),
	})
	if err != nil {
		return nil, fmt.Errorf("post payment cashflow: %w", err)
	}

	updated, err := store.UpdatePiutangPayment(ctx, database.UpdatePiutangPaymentParams{
		ID:         piutang.ID,
		PaidAmount: decimalToNumeric(newPaid),
		Status:     newStatus,
		PaidAt:     paidAt,
	})
	if err != nil {
		return nil, fmt.Errorf("update piutang: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &AddPaymentResult{Piutang: updated, Cashflow: cashflow}, nil
}

// OverrideStatus is the administrative escape hatch: it flips status (and
// the paid_at marker) without touching paid_amount.
func (s *PiutangService) OverrideStatus(ctx context.Context, id uuid.UUID, status string) (*database.Piutang, error) {
	if status != enum.PaymentStatusLunas && status != enum.PaymentStatusBelumLunas {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetPiutangForUpdate(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPiutangNotFound
		}
		return nil, fmt.Errorf("lock piutang: %w", err)
	}

	var paidAt pgtype.Timestamptz
	if status == enum.PaymentStatusLunas {
		paidAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}

	updated, err := store.UpdatePiutangStatus(ctx, database.UpdatePiutangStatusParams{
		ID:     id,
		Status: status,
		PaidAt: paidAt,
	})
	if err != nil {
		return nil, fmt.Errorf("update piutang status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}
