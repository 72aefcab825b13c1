package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockSalesStore implements SalesStore with configurable behavior.
type mockSalesStore struct {
	createSaleFn      func(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error)
	getSaleFn         func(ctx context.Context, id uuid.UUID) (database.Sale, error)
	deleteSaleFn      func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	cashflowExistsFn  func(ctx context.Context, key pgtype.Text) (bool, error)
	createCashflowFn  func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error)
	getManagerFn      func(ctx context.Context, storeID pgtype.UUID) (database.User, error)
	createPiutangFn   func(ctx context.Context, arg database.CreatePiutangParams) (database.Piutang, error)
	piutangExistsFn   func(ctx context.Context, saleID pgtype.UUID) (bool, error)
}

func (m *mockSalesStore) CreateSale(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error) {
	return m.createSaleFn(ctx, arg)
}
func (m *mockSalesStore) GetSale(ctx context.Context, id uuid.UUID) (database.Sale, error) {
	return m.getSaleFn(ctx, id)
}
func (m *mockSalesStore) DeleteSale(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	return m.deleteSaleFn(ctx, id)
}
func (m *mockSalesStore) CashflowExistsBySubmissionKey(ctx context.Context, key pgtype.Text) (bool, error) {
	return m.cashflowExistsFn(ctx, key)
}
func (m *mockSalesStore) CreateCashflow(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
	return m.createCashflowFn(ctx, arg)
}
func (m *mockSalesStore) GetManagerForStore(ctx context.Context, storeID pgtype.UUID) (database.User, error) {
	return m.getManagerFn(ctx, storeID)
}
func (m *mockSalesStore) CreatePiutang(ctx context.Context, arg database.CreatePiutangParams) (database.Piutang, error) {
	return m.createPiutangFn(ctx, arg)
}
func (m *mockSalesStore) PiutangExistsBySale(ctx context.Context, saleID pgtype.UUID) (bool, error) {
	return m.piutangExistsFn(ctx, saleID)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func newTestSalesService(store *mockSalesStore) (*SalesService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) SalesStore { return store }
	return NewSalesService(pool, newStore), tx
}

// defaultSalesStore returns a store where everything succeeds and echoes
// its input. Individual tests override what they care about.
func defaultSalesStore(storeID, managerID uuid.UUID) *mockSalesStore {
	return &mockSalesStore{
		createSaleFn: func(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error) {
			return database.Sale{
				ID:            uuid.New(),
				StoreID:       arg.StoreID,
				UserID:        arg.UserID,
				SaleDate:      arg.SaleDate,
				TotalSales:    arg.TotalSales,
				QrisAmount:    arg.QrisAmount,
				CashAmount:    arg.CashAmount,
				Shift:         arg.Shift,
				SubmissionKey: arg.SubmissionKey,
				CreatedAt:     time.Now(),
			}, nil
		},
		cashflowExistsFn: func(ctx context.Context, key pgtype.Text) (bool, error) {
			return false, nil
		},
		createCashflowFn: func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
			return database.Cashflow{
				ID:              uuid.New(),
				StoreID:         arg.StoreID,
				Category:        arg.Category,
				Type:            arg.Type,
				Amount:          arg.Amount,
				Description:     arg.Description,
				TransactionDate: arg.TransactionDate,
				SubmissionKey:   arg.SubmissionKey,
				CreatedBy:       arg.CreatedBy,
				CreatedAt:       time.Now(),
			}, nil
		},
		getManagerFn: func(ctx context.Context, sid pgtype.UUID) (database.User, error) {
			return database.User{
				ID:      managerID,
				Role:    enum.UserRoleManager,
				StoreID: pgtype.UUID{Bytes: storeID, Valid: true},
			}, nil
		},
		createPiutangFn: func(ctx context.Context, arg database.CreatePiutangParams) (database.Piutang, error) {
			return database.Piutang{
				ID:          uuid.New(),
				CustomerID:  arg.CustomerID,
				StoreID:     arg.StoreID,
				SaleID:      arg.SaleID,
				Amount:      arg.Amount,
				Description: arg.Description,
				Status:      arg.Status,
				PaidAmount:  arg.PaidAmount,
				CreatedBy:   arg.CreatedBy,
				CreatedAt:   time.Now(),
			}, nil
		},
	}
}

// --- Tests ---

func TestCreateSales_QrisCashSeparation(t *testing.T) {
	storeID := uuid.New()
	managerID := uuid.New()
	store := defaultSalesStore(storeID, managerID)
	svc, tx := newTestSalesService(store)

	result, err := svc.CreateSales(context.Background(), CreateSalesRequest{
		StoreID:    storeID,
		SaleDate:   "2026-03-01",
		TotalSales: "800000",
		QrisAmount: "500000",
		CashAmount: "300000",
		Shift:      "pagi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}

	// The stored row carries the same validated amounts the deriver used.
	if !numericEquals(result.Sale.TotalSales, "800000") {
		t.Errorf("sale total: got %v, want 800000", numericToDecimal(result.Sale.TotalSales))
	}
	if !numericEquals(result.Sale.QrisAmount, "500000") {
		t.Errorf("sale qris: got %v, want 500000", numericToDecimal(result.Sale.QrisAmount))
	}
	if !numericEquals(result.Sale.CashAmount, "300000") {
		t.Errorf("sale cash: got %v, want 300000", numericToDecimal(result.Sale.CashAmount))
	}

	if result.Cashflow == nil {
		t.Fatal("expected a derived cash income posting")
	}
	if !result.DerivedIncome {
		t.Error("expected DerivedIncome=true")
	}
	if result.Cashflow.Category != enum.CashflowCategoryIncome || result.Cashflow.Type != enum.TxTypeSales {
		t.Errorf("cashflow: got %s/%s, want Income/Sales", result.Cashflow.Category, result.Cashflow.Type)
	}
	// Only the cash portion is posted as income, never the QRIS portion.
	if !numericEquals(result.Cashflow.Amount, "300000") {
		t.Errorf("cashflow amount: got %v, want 300000", numericToDecimal(result.Cashflow.Amount))
	}
	if !strings.Contains(result.Cashflow.Description, "Penjualan Cash otomatis dari sales report [") {
		t.Errorf("cashflow description missing marker: %q", result.Cashflow.Description)
	}

	if result.Piutang == nil {
		t.Fatal("expected a QRIS receivable")
	}
	if !numericEquals(result.Piutang.Amount, "500000") {
		t.Errorf("piutang amount: got %v, want 500000", numericToDecimal(result.Piutang.Amount))
	}
	if result.Piutang.Status != enum.PaymentStatusBelumLunas {
		t.Errorf("piutang status: got %s, want belum_lunas", result.Piutang.Status)
	}
	if !numericEquals(result.Piutang.PaidAmount, "0") {
		t.Errorf("piutang paid amount: got %v, want 0", numericToDecimal(result.Piutang.PaidAmount))
	}
	wantCustomer := "user-" + managerID.String()
	if result.Piutang.CustomerID != wantCustomer {
		t.Errorf("piutang customer: got %s, want %s", result.Piutang.CustomerID, wantCustomer)
	}
}

func TestCreateSales_SubmissionKeyDerivation(t *testing.T) {
	storeID := uuid.New()
	employeeID := uuid.New()
	store := defaultSalesStore(storeID, uuid.New())

	var gotKey string
	base := store.createSaleFn
	store.createSaleFn = func(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error) {
		gotKey = arg.SubmissionKey
		return base(ctx, arg)
	}

	svc, _ := newTestSalesService(store)
	_, err := svc.CreateSales(context.Background(), CreateSalesRequest{
		StoreID:    storeID,
		UserID:     employeeID.String(),
		SaleDate:   "2026-03-01",
		CashAmount: "100000",
		Shift:      "pagi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "2026-03-01-" + employeeID.String() + "-" + storeID.String() + "-pagi"
	if gotKey != want {
		t.Errorf("submission key: got %q, want %q", gotKey, want)
	}
}

func TestCreateSales_IdempotentDerivation(t *testing.T) {
	storeID := uuid.New()
	store := defaultSalesStore(storeID, uuid.New())
	store.cashflowExistsFn = func(ctx context.Context, key pgtype.Text) (bool, error) {
		return true, nil // income already posted by a previous submission
	}
	store.createCashflowFn = func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
		t.Fatal("must not post a second income cashflow for the same key")
		return database.Cashflow{}, nil
	}

	svc, tx := newTestSalesService(store)
	result, err := svc.CreateSales(context.Background(), CreateSalesRequest{
		StoreID:    storeID,
		SaleDate:   "2026-03-01",
		CashAmount: "300000",
		Shift:      "pagi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cashflow != nil || result.DerivedIncome {
		t.Error("expected derivation to be skipped for duplicate key")
	}
	if !tx.committed {
		t.Error("sale itself must still be created on a duplicate submission")
	}
}

func TestCreateSales_ZeroCashSkipsIncomePosting(t *testing.T) {
	storeID := uuid.New()
	store := defaultSalesStore(storeID, uuid.New())
	store.createCashflowFn = func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
		t.Fatal("must not post income when cash amount is zero")
		return database.Cashflow{}, nil
	}

	svc, _ := newTestSalesService(store)
	result, err := svc.CreateSales(context.Background(), CreateSalesRequest{
		StoreID:    storeID,
		SaleDate:   "2026-03-01",
		QrisAmount: "500000",
		Shift:      "pagi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cashflow != nil {
		t.Error("expected no cash income posting")
	}
	if result.Piutang == nil {
		t.Error("QRIS receivable should still be generated")
	}
}

func TestCreateSales_NoManagerSkipsPiutang(t *testing.T) {
	storeID := uuid.New()
	store := defaultSalesStore(storeID, uuid.New())
	store.getManagerFn = func(ctx context.Context, sid pgtype.UUID) (database.User, error) {
		return database.User{}, pgx.ErrNoRows
	}
	store.createPiutangFn = func(ctx context.Context, arg database.CreatePiutangParams) (database.Piutang, error) {
		t.Fatal("must not create a piutang without a manager")
		return database.Piutang{}, nil
	}

	svc, tx := newTestSalesService(store)
	result, err := svc.CreateSales(context.Background(), CreateSalesRequest{
		StoreID:    storeID,
		SaleDate:   "2026-03-01",
		QrisAmount: "500000",
		CashAmount: "300000",
		Shift:      "pagi",
	})
	if err != nil {
		t.Fatalf("missing manager must not fail the sale: %v", err)
	}
	if result.Piutang != nil {
		t.Error("expected no piutang without a manager")
	}
	if result.Cashflow == nil {
		t.Error("cash income should still be derived")
	}
	if !tx.committed {
		t.Error("sale must still be committed")
	}
}

func TestCreateSales_NoTimestampsSkipsDerivation(t *testing.T) {
	storeID := uuid.New()
	store := defaultSalesStore(storeID, uuid.New())
	store.createCashflowFn = func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
		t.Fatal("must not derive income without a usable date")
		return database.Cashflow{}, nil
	}

	svc, tx := newTestSalesService(store)
	result, err := svc.CreateSales(context.Background(), CreateSalesRequest{
		StoreID:    storeID,
		CashAmount: "300000",
		Shift:      "pagi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cashflow != nil {
		t.Error("expected derivation skip")
	}
	if !tx.committed {
		t.Error("sale must still be created")
	}
}

func TestCreateSales_ExplicitSubmissionDateUsedVerbatim(t *testing.T) {
	storeID := uuid.New()
	store := defaultSalesStore(storeID, uuid.New())

	var gotKey pgtype.Text
	store.cashflowExistsFn = func(ctx context.Context, key pgtype.Text) (bool, error) {
		gotKey = key
		return false, nil
	}

	svc, _ := newTestSalesService(store)
	_, err := svc.CreateSales(context.Background(), CreateSalesRequest{
		StoreID:        storeID,
		SubmissionDate: "2026-03-01T07:15:00",
		CashAmount:     "100000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey.String != "2026-03-01T07:15:00" {
		t.Errorf("submission key: got %q, want explicit submission date verbatim", gotKey.String)
	}
}

func TestCreateSales_InvalidAmount(t *testing.T) {
	store := defaultSalesStore(uuid.New(), uuid.New())
	svc, _ := newTestSalesService(store)

	_, err := svc.CreateSales(context.Background(), CreateSalesRequest{
		StoreID:    uuid.New(),
		SaleDate:   "2026-03-01",
		CashAmount: "not-a-number",
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDeleteSale_RefusedWithPostings(t *testing.T) {
	saleID := uuid.New()
	store := defaultSalesStore(uuid.New(), uuid.New())
	store.getSaleFn = func(ctx context.Context, id uuid.UUID) (database.Sale, error) {
		return database.Sale{ID: saleID, SubmissionKey: "2026-03-01-na-x-pagi"}, nil
	}
	store.cashflowExistsFn = func(ctx context.Context, key pgtype.Text) (bool, error) {
		return true, nil
	}
	store.deleteSaleFn = func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
		t.Fatal("must not delete a sale with derived postings")
		return uuid.Nil, nil
	}

	svc, _ := newTestSalesService(store)
	err := svc.DeleteSale(context.Background(), saleID)
	if !errors.Is(err, ErrSaleHasPostings) {
		t.Fatalf("expected ErrSaleHasPostings, got %v", err)
	}
}

func TestDeleteSale_CleanRowDeletes(t *testing.T) {
	saleID := uuid.New()
	deleted := false
	store := defaultSalesStore(uuid.New(), uuid.New())
	store.getSaleFn = func(ctx context.Context, id uuid.UUID) (database.Sale, error) {
		return database.Sale{ID: saleID, SubmissionKey: "2026-03-01-na-x-pagi"}, nil
	}
	store.cashflowExistsFn = func(ctx context.Context, key pgtype.Text) (bool, error) {
		return false, nil
	}
	store.piutangExistsFn = func(ctx context.Context, sid pgtype.UUID) (bool, error) {
		return false, nil
	}
	store.deleteSaleFn = func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
		deleted = true
		return id, nil
	}

	svc, tx := newTestSalesService(store)
	if err := svc.DeleteSale(context.Background(), saleID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted || !tx.committed {
		t.Error("expected clean sale to be deleted and committed")
	}
}

func TestDeleteSale_NotFound(t *testing.T) {
	store := defaultSalesStore(uuid.New(), uuid.New())
	store.getSaleFn = func(ctx context.Context, id uuid.UUID) (database.Sale, error) {
		return database.Sale{}, pgx.ErrNoRows
	}

	svc, _ := newTestSalesService(store)
	err := svc.DeleteSale(context.Background(), uuid.New())
	if !errors.Is(err, ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
}

func TestCreateSales_RetriesOnSubmissionKeyConflict(t *testing.T) {
	storeID := uuid.New()
	store := defaultSalesStore(storeID, uuid.New())

	attempts := 0
	store.createCashflowFn = func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
		attempts++
		if attempts == 1 {
			// Concurrent submission won the race to the unique index.
			return database.Cashflow{}, &pgconn.PgError{Code: "23505", ConstraintName: "idx_cashflow_submission_key"}
		}
		t.Fatal("second attempt should see the existing posting and skip")
		return database.Cashflow{}, nil
	}

	existsCalls := 0
	store.cashflowExistsFn = func(ctx context.Context, key pgtype.Text) (bool, error) {
		existsCalls++
		return existsCalls > 1, nil // first check misses, retry sees the row
	}

	svc, _ := newTestSalesService(store)
	result, err := svc.CreateSales(context.Background(), CreateSalesRequest{
		StoreID:    storeID,
		SaleDate:   "2026-03-01",
		CashAmount: "300000",
		Shift:      "pagi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DerivedIncome {
		t.Error("losing the race must resolve to a skip, not a duplicate posting")
	}
}
