package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type mockPayrollStore struct {
	createEntryFn  func(ctx context.Context, arg database.CreatePayrollEntryParams) (database.PayrollEntry, error)
	listUnpostedFn func(ctx context.Context, ids []uuid.UUID) ([]database.PayrollEntry, error)
	markPostedFn   func(ctx context.Context, ids []uuid.UUID) error
	createCashFn   func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error)
	getUserFn      func(ctx context.Context, id uuid.UUID) (database.User, error)
}

func (m *mockPayrollStore) CreatePayrollEntry(ctx context.Context, arg database.CreatePayrollEntryParams) (database.PayrollEntry, error) {
	return m.createEntryFn(ctx, arg)
}
func (m *mockPayrollStore) ListUnpostedPayrollEntries(ctx context.Context, ids []uuid.UUID) ([]database.PayrollEntry, error) {
	return m.listUnpostedFn(ctx, ids)
}
func (m *mockPayrollStore) MarkPayrollEntriesPosted(ctx context.Context, ids []uuid.UUID) error {
	return m.markPostedFn(ctx, ids)
}
func (m *mockPayrollStore) CreateCashflow(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
	return m.createCashFn(ctx, arg)
}
func (m *mockPayrollStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	return m.getUserFn(ctx, id)
}

func newTestPayrollService(store *mockPayrollStore) (*PayrollService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) PayrollStore { return store }
	return NewPayrollService(pool, newStore), tx
}

func TestCreateBatch_ComputesNetPay(t *testing.T) {
	var gotParams []database.CreatePayrollEntryParams
	store := &mockPayrollStore{
		createEntryFn: func(ctx context.Context, arg database.CreatePayrollEntryParams) (database.PayrollEntry, error) {
			gotParams = append(gotParams, arg)
			return database.PayrollEntry{ID: uuid.New(), StoreID: arg.StoreID, UserID: arg.UserID, NetPay: arg.NetPay}, nil
		},
	}
	svc, tx := newTestPayrollService(store)

	created, err := svc.CreateBatch(context.Background(), uuid.New(), []PayrollEntryRequest{
		{
			UserID:      uuid.NewString(),
			PeriodStart: "2026-02-01",
			PeriodEnd:   "2026-02-28",
			BasePay:     "2500000",
			Bonus:       "300000",
			Deduction:   "150000",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}
	if len(created) != 1 || len(gotParams) != 1 {
		t.Fatalf("expected one entry, got %d", len(created))
	}
	if !numericEquals(gotParams[0].NetPay, "2650000") {
		t.Errorf("net pay: got %v, want 2650000", numericToDecimal(gotParams[0].NetPay))
	}
}

func TestCreateBatch_Validation(t *testing.T) {
	svc, _ := newTestPayrollService(&mockPayrollStore{})
	storeID := uuid.New()

	cases := []struct {
		name  string
		entry PayrollEntryRequest
		want  error
	}{
		{
			name: "bad user id",
			entry: PayrollEntryRequest{
				UserID: "nope", PeriodStart: "2026-02-01", PeriodEnd: "2026-02-28", BasePay: "1000000",
			},
			want: ErrInvalidUserID,
		},
		{
			name: "inverted period",
			entry: PayrollEntryRequest{
				UserID: uuid.NewString(), PeriodStart: "2026-02-28", PeriodEnd: "2026-02-01", BasePay: "1000000",
			},
			want: ErrInvalidPeriod,
		},
		{
			name: "deduction exceeds pay",
			entry: PayrollEntryRequest{
				UserID: uuid.NewString(), PeriodStart: "2026-02-01", PeriodEnd: "2026-02-28",
				BasePay: "1000000", Deduction: "1200000",
			},
			want: ErrInvalidAmount,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBatch(context.Background(), storeID, []PayrollEntryRequest{tc.entry})
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := svc.CreateBatch(context.Background(), storeID, nil); !errors.Is(err, ErrEmptyPayrollBatch) {
		t.Errorf("empty batch: expected ErrEmptyPayrollBatch, got %v", err)
	}
}

func TestPostEntries_PostsGajiCashflow(t *testing.T) {
	storeID := uuid.New()
	userID := uuid.New()
	entryID := uuid.New()

	var posted []uuid.UUID
	var gotCashflow database.CreateCashflowParams
	store := &mockPayrollStore{
		listUnpostedFn: func(ctx context.Context, ids []uuid.UUID) ([]database.PayrollEntry, error) {
			return []database.PayrollEntry{{
				ID:          entryID,
				StoreID:     storeID,
				UserID:      userID,
				PeriodStart: pgtype.Date{Time: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Valid: true},
				PeriodEnd:   pgtype.Date{Time: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), Valid: true},
				NetPay:      makeNumeric("2650000"),
			}}, nil
		},
		getUserFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			return database.User{ID: userID, FullName: "Siti"}, nil
		},
		createCashFn: func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
			gotCashflow = arg
			return database.Cashflow{ID: uuid.New(), StoreID: arg.StoreID, Category: arg.Category, Type: arg.Type, Amount: arg.Amount}, nil
		},
		markPostedFn: func(ctx context.Context, ids []uuid.UUID) error {
			posted = ids
			return nil
		},
	}

	svc, tx := newTestPayrollService(store)
	cashflows, err := svc.PostEntries(context.Background(), []uuid.UUID{entryID}, "owner-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}
	if len(cashflows) != 1 {
		t.Fatalf("expected one cashflow, got %d", len(cashflows))
	}
	if gotCashflow.Category != enum.CashflowCategoryExpense || gotCashflow.Type != enum.TxTypeGaji {
		t.Errorf("cashflow: got %s/%s, want Expense/Gaji", gotCashflow.Category, gotCashflow.Type)
	}
	if !numericEquals(gotCashflow.Amount, "2650000") {
		t.Errorf("amount: got %v, want net pay 2650000", numericToDecimal(gotCashflow.Amount))
	}
	if len(posted) != 1 || posted[0] != entryID {
		t.Errorf("posted ids: got %v, want [%s]", posted, entryID)
	}
}

// Two posts for the same entry ids must book exactly one Gaji cashflow.
// The unposted SELECT runs FOR UPDATE, so the loser of the race re-reads
// the rows after the winner's commit and sees them already posted; this
// drives the mock through that post-lock view.
func TestPostEntries_OverlappingPostBooksOnce(t *testing.T) {
	entryID := uuid.New()
	posted := make(map[uuid.UUID]bool)
	var cashflows []database.CreateCashflowParams

	store := &mockPayrollStore{
		listUnpostedFn: func(ctx context.Context, ids []uuid.UUID) ([]database.PayrollEntry, error) {
			var out []database.PayrollEntry
			for _, id := range ids {
				if posted[id] {
					continue
				}
				out = append(out, database.PayrollEntry{
					ID:          id,
					StoreID:     uuid.New(),
					UserID:      uuid.New(),
					PeriodStart: pgtype.Date{Time: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Valid: true},
					PeriodEnd:   pgtype.Date{Time: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), Valid: true},
					NetPay:      makeNumeric("1800000"),
				})
			}
			return out, nil
		},
		getUserFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			return database.User{ID: id, FullName: "Rahmat"}, nil
		},
		createCashFn: func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
			cashflows = append(cashflows, arg)
			return database.Cashflow{ID: uuid.New(), Amount: arg.Amount}, nil
		},
		markPostedFn: func(ctx context.Context, ids []uuid.UUID) error {
			for _, id := range ids {
				posted[id] = true
			}
			return nil
		},
	}

	svc, _ := newTestPayrollService(store)

	first, err := svc.PostEntries(context.Background(), []uuid.UUID{entryID}, "owner-1")
	if err != nil {
		t.Fatalf("first post: unexpected error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first post: expected one cashflow, got %d", len(first))
	}

	_, err = svc.PostEntries(context.Background(), []uuid.UUID{entryID}, "owner-2")
	if !errors.Is(err, ErrNoPostableEntries) {
		t.Fatalf("second post: expected ErrNoPostableEntries, got %v", err)
	}
	if len(cashflows) != 1 {
		t.Errorf("expected exactly one Gaji cashflow, got %d", len(cashflows))
	}
}

func TestPostEntries_AllAlreadyPosted(t *testing.T) {
	store := &mockPayrollStore{
		listUnpostedFn: func(ctx context.Context, ids []uuid.UUID) ([]database.PayrollEntry, error) {
			return nil, nil
		},
		createCashFn: func(ctx context.Context, arg database.CreateCashflowParams) (database.Cashflow, error) {
			t.Fatal("must not post cashflow when every entry is already posted")
			return database.Cashflow{}, nil
		},
	}

	svc, tx := newTestPayrollService(store)
	_, err := svc.PostEntries(context.Background(), []uuid.UUID{uuid.New()}, "owner-1")
	if !errors.Is(err, ErrNoPostableEntries) {
		t.Fatalf("expected ErrNoPostableEntries, got %v", err)
	}
	if tx.committed {
		t.Error("nothing to post must not commit")
	}
}
