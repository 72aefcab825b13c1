package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockPiutangStore struct {
	getPiutangFn          func(ctx context.Context, id uuid.UUID) (database.Piutang, error)
	getPiutangForUpdateFn func(ctx context.Context, id uuid.UUID) (database.Piutang, error)
	updatePaymentFn       func(ctx context.Context, arg database.UpdatePiutangPaymentParams) (database.Piutang, error)
	updateStatusFn        func(ctx context.Context, arg database.UpdatePiutangStatusParams) (database.Piutang, error)
	createCashflowFn      func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error)
}

func (m *mockPiutangStore) GetPiutang(ctx context.Context, id uuid.UUID) (database.Piutang, error) {
	return m.getPiutangFn(ctx, id)
}
func (m *mockPiutangStore) GetPiutangForUpdate(ctx context.Context, id uuid.UUID) (database.Piutang, error) {
	return m.getPiutangForUpdateFn(ctx, id)
}
func (m *mockPiutangStore) UpdatePiutangPayment(ctx context.Context, arg database.UpdatePiutangPaymentParams) (database.Piutang, error) {
	return m.updatePaymentFn(ctx, arg)
}
func (m *mockPiutangStore) UpdatePiutangStatus(ctx context.Context, arg database.UpdatePiutangStatusParams) (database.Piutang, error) {
	return m.updateStatusFn(ctx, arg)
}
func (m *mockPiutangStore) CreateCashflow(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
	return m.createCashflowFn(ctx, arg)
}

func newTestPiutangService(store *mockPiutangStore) (*PiutangService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) PiutangStore { return store }
	return NewPiutangService(pool, newStore), tx
}

// defaultPiutangStore holds one receivable of 500000 with 0 paid.
func defaultPiutangStore(piutangID uuid.UUID, storeID uuid.UUID) *mockPiutangStore {
	row := database.Piutang{
		ID:         piutangID,
		CustomerID: "user-" + uuid.NewString(),
		StoreID:    storeID,
		Amount:     makeNumeric("500000"),
		Status:     enum.PaymentStatusBelumLunas,
		PaidAmount: makeNumeric("0"),
		CreatedAt:  time.Now(),
	}
	return &mockPiutangStore{
		getPiutangForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Piutang, error) {
			if id != piutangID {
				return database.Piutang{}, pgx.ErrNoRows
			}
			return row, nil
		},
		updatePaymentFn: func(ctx context.Context, arg database.UpdatePiutangPaymentParams) (database.Piutang, error) {
			updated := row
			updated.PaidAmount = arg.PaidAmount
			updated.Status = arg.Status
			updated.PaidAt = arg.PaidAt
			return updated, nil
		},
		createCashflowFn: func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
			return database.Cashflow{
				ID:            uuid.New(),
				StoreID:       arg.StoreID,
				Category:      arg.Category,
				Type:          arg.Type,
				Amount:        arg.Amount,
				CustomerID:    arg.CustomerID,
				PiutangID:     arg.PiutangID,
				PaymentStatus: arg.PaymentStatus,
				CreatedAt:     time.Now(),
			}, nil
		},
	}
}

func TestAddPayment_PartialKeepsBelumLunas(t *testing.T) {
	piutangID := uuid.New()
	store := defaultPiutangStore(piutangID, uuid.New())
	svc, tx := newTestPiutangService(store)

	result, err := svc.AddPayment(context.Background(), AddPaymentRequest{
		PiutangID: piutangID,
		Amount:    "200000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}
	if result.Piutang.Status != enum.PaymentStatusBelumLunas {
		t.Errorf("status: got %s, want belum_lunas", result.Piutang.Status)
	}
	if !numericEquals(result.Piutang.PaidAmount, "200000") {
		t.Errorf("paid amount: got %v, want 200000", numericToDecimal(result.Piutang.PaidAmount))
	}
	if result.Piutang.PaidAt.Valid {
		t.Error("paid_at must stay unset until fully paid")
	}
}

func TestAddPayment_FullPaymentSettles(t *testing.T) {
	piutangID := uuid.New()
	storeID := uuid.New()
	store := defaultPiutangStore(piutangID, storeID)
	svc, _ := newTestPiutangService(store)

	result, err := svc.AddPayment(context.Background(), AddPaymentRequest{
		PiutangID: piutangID,
		Amount:    "500000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Piutang.Status != enum.PaymentStatusLunas {
		t.Errorf("status: got %s, want lunas", result.Piutang.Status)
	}
	if !result.Piutang.PaidAt.Valid {
		t.Error("paid_at must be set when fully paid")
	}
	if result.Cashflow.Category != enum.CashflowCategoryIncome || result.Cashflow.Type != enum.TxTypePembayaranPiutang {
		t.Errorf("cashflow: got %s/%s, want Income/%s", result.Cashflow.Category, result.Cashflow.Type, enum.TxTypePembayaranPiutang)
	}
	if !numericEquals(result.Cashflow.Amount, "500000") {
		t.Errorf("cashflow amount: got %v, want 500000", numericToDecimal(result.Cashflow.Amount))
	}
	if !result.Cashflow.PiutangID.Valid || uuid.UUID(result.Cashflow.PiutangID.Bytes) != piutangID {
		t.Error("cashflow must back-reference the piutang")
	}
	if result.Cashflow.PaymentStatus.String != enum.PaymentStatusLunas {
		t.Errorf("cashflow payment status: got %s, want lunas", result.Cashflow.PaymentStatus.String)
	}
}

func TestAddPayment_TwoInstallmentsSettle(t *testing.T) {
	piutangID := uuid.New()
	store := defaultPiutangStore(piutangID, uuid.New())
	// Simulate the first installment already applied.
	base := store.getPiutangForUpdateFn
	store.getPiutangForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Piutang, error) {
		row, err := base(ctx, id)
		if err != nil {
			return row, err
		}
		row.PaidAmount = makeNumeric("300000")
		return row, nil
	}

	svc, _ := newTestPiutangService(store)
	result, err := svc.AddPayment(context.Background(), AddPaymentRequest{
		PiutangID: piutangID,
		Amount:    "200000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Piutang.Status != enum.PaymentStatusLunas {
		t.Errorf("status: got %s, want lunas after 300000+200000 of 500000", result.Piutang.Status)
	}
	if !numericEquals(result.Piutang.PaidAmount, "500000") {
		t.Errorf("paid amount: got %v, want 500000", numericToDecimal(result.Piutang.PaidAmount))
	}
}

func TestAddPayment_OverpaymentRejected(t *testing.T) {
	piutangID := uuid.New()
	store := defaultPiutangStore(piutangID, uuid.New())
	store.createCashflowFn = func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
		t.Fatal("must not post cashflow for a rejected overpayment")
		return database.Cashflow{}, nil
	}
	store.updatePaymentFn = func(ctx context.Context, arg database.UpdatePiutangPaymentParams) (database.Piutang, error) {
		t.Fatal("must not update piutang for a rejected overpayment")
		return database.Piutang{}, nil
	}

	svc, tx := newTestPiutangService(store)
	_, err := svc.AddPayment(context.Background(), AddPaymentRequest{
		PiutangID: piutangID,
		Amount:    "500001",
	})
	if !errors.Is(err, ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment, got %v", err)
	}
	if tx.committed {
		t.Error("overpayment must not be committed")
	}
}

func TestAddPayment_InvalidAmount(t *testing.T) {
	svc, _ := newTestPiutangService(defaultPiutangStore(uuid.New(), uuid.New()))

	for _, amount := range []string{"", "0", "-100", "abc"} {
		_, err := svc.AddPayment(context.Background(), AddPaymentRequest{
			PiutangID: uuid.New(),
			Amount:    amount,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %q: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestAddPayment_NotFound(t *testing.T) {
	store := defaultPiutangStore(uuid.New(), uuid.New())
	svc, _ := newTestPiutangService(store)

	_, err := svc.AddPayment(context.Background(), AddPaymentRequest{
		PiutangID: uuid.New(), // different id than the stored row
		Amount:    "100000",
	})
	if !errors.Is(err, ErrPiutangNotFound) {
		t.Fatalf("expected ErrPiutangNotFound, got %v", err)
	}
}

func TestOverrideStatus_DoesNotTouchPaidAmount(t *testing.T) {
	piutangID := uuid.New()
	store := defaultPiutangStore(piutangID, uuid.New())

	var gotParams database.UpdatePiutangStatusParams
	store.updateStatusFn = func(ctx context.Context, arg database.UpdatePiutangStatusParams) (database.Piutang, error) {
		gotParams = arg
		return database.Piutang{ID: arg.ID, Status: arg.Status, PaidAt: arg.PaidAt}, nil
	}
	store.updatePaymentFn = func(ctx context.Context, arg database.UpdatePiutangPaymentParams) (database.Piutang, error) {
		t.Fatal("status override must not go through the payment path")
		return database.Piutang{}, nil
	}
	store.createCashflowFn = func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
		t.Fatal("status override must not post cashflow")
		return database.Cashflow{}, nil
	}

	svc, tx := newTestPiutangService(store)
	updated, err := svc.OverrideStatus(context.Background(), piutangID, enum.PaymentStatusLunas)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}
	if updated.Status != enum.PaymentStatusLunas {
		t.Errorf("status: got %s, want lunas", updated.Status)
	}
	if !gotParams.PaidAt.Valid {
		t.Error("marking lunas should stamp paid_at")
	}
}

func TestOverrideStatus_InvalidStatus(t *testing.T) {
	svc, _ := newTestPiutangService(defaultPiutangStore(uuid.New(), uuid.New()))

	_, err := svc.OverrideStatus(context.Background(), uuid.New(), "paid")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
