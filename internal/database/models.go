package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Store struct {
	ID        uuid.UUID
	Name      string
	Address   pgtype.Text
	CreatedAt time.Time
}

type User struct {
	ID             uuid.UUID
	Username       string
	HashedPassword string
	FullName       string
	Role           string
	StoreID        pgtype.UUID
	CreatedAt      time.Time
}

type Customer struct {
	ID        uuid.UUID
	StoreID   pgtype.UUID
	Name      string
	Phone     pgtype.Text
	CreatedAt time.Time
}

// Sale is one shift's submitted report. Immutable after creation.
type Sale struct {
	ID               uuid.UUID
	StoreID          uuid.UUID
	UserID           pgtype.UUID
	SaleDate         pgtype.Date
	TotalSales       pgtype.Numeric
	TransactionCount int32
	QrisAmount       pgtype.Numeric
	CashAmount       pgtype.Numeric
	MeterStart       pgtype.Numeric
	MeterEnd         pgtype.Numeric
	TotalLiters      pgtype.Numeric
	IncomeDetails    []byte
	ExpenseDetails   []byte
	Shift            pgtype.Text
	CheckIn          pgtype.Timestamptz
	CheckOut         pgtype.Timestamptz
	SubmissionKey    string
	CreatedAt        time.Time
}

// Cashflow is a single posted money movement. Rows are append-only; the
// ledger is never UPDATEd.
//
// CustomerID is text, not a UUID: it holds either a customer row id or a
// virtual "user-<uuid>" reference resolved from the users table.
type Cashflow struct {
	ID               uuid.UUID
	StoreID          uuid.UUID
	Category         string
	Type             string
	Amount           pgtype.Numeric
	Description      string
	TransactionDate  pgtype.Date
	CustomerID       pgtype.Text
	PiutangID        pgtype.UUID
	PaymentStatus    pgtype.Text
	SubmissionKey    pgtype.Text
	Konter           pgtype.Text
	JumlahGalon      pgtype.Numeric
	PajakOngkos      pgtype.Numeric
	PajakTransfer    pgtype.Numeric
	TotalPengeluaran pgtype.Numeric
	BiayaTransfer    pgtype.Numeric
	Hasil            pgtype.Numeric
	CreatedBy        pgtype.Text
	CreatedAt        time.Time
}

type Piutang struct {
	ID          uuid.UUID
	CustomerID  string
	StoreID     uuid.UUID
	SaleID      pgtype.UUID
	Amount      pgtype.Numeric
	Description string
	Status      string
	PaidAmount  pgtype.Numeric
	PaidAt      pgtype.Timestamptz
	CreatedBy   pgtype.Text
	CreatedAt   time.Time
}

type Attendance struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	StoreID   uuid.UUID
	WorkDate  pgtype.Date
	Shift     string
	CheckIn   time.Time
	CheckOut  pgtype.Timestamptz
	CreatedAt time.Time
}

type PayrollEntry struct {
	ID          uuid.UUID
	StoreID     uuid.UUID
	UserID      uuid.UUID
	PeriodStart pgtype.Date
	PeriodEnd   pgtype.Date
	BasePay     pgtype.Numeric
	Bonus       pgtype.Numeric
	Deduction   pgtype.Numeric
	NetPay      pgtype.Numeric
	PostedAt    pgtype.Timestamptz
	CreatedAt   time.Time
}
