package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const cashflowColumns = `id, store_id, category, type, amount, description, transaction_date,
	customer_id, piutang_id, payment_status, submission_key, konter, jumlah_galon,
	pajak_ongkos, pajak_transfer, total_pengeluaran, biaya_transfer, hasil, created_by, created_at`

const createCashflow = `-- name: CreateCashflow :one
INSERT INTO cashflow (
	store_id, category, type, amount, description, transaction_date,
	customer_id, piutang_id, payment_status, submission_key, konter, jumlah_galon,
	pajak_ongkos, pajak_transfer, total_pengeluaran, biaya_transfer, hasil, created_by
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING ` + cashflowColumns

type CreateCashflowParams struct {
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
}

func (q *Queries) CreateCashflow(ctx context.Context, arg CreateCashflowParams) (Cashflow, error) {
	row := q.db.QueryRow(ctx, createCashflow,
		arg.StoreID,
		arg.Category,
		arg.Type,
		arg.Amount,
		arg.Description,
		arg.TransactionDate,
		arg.CustomerID,
		arg.PiutangID,
		arg.PaymentStatus,
		arg.SubmissionKey,
		arg.Konter,
		arg.JumlahGalon,
		arg.PajakOngkos,
		arg.PajakTransfer,
		arg.TotalPengeluaran,
		arg.BiayaTransfer,
		arg.Hasil,
		arg.CreatedBy,
	)
	return scanCashflow(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCashflow(row rowScanner) (Cashflow, error) {
	var i Cashflow
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.Category,
		&i.Type,
		&i.Amount,
		&i.Description,
		&i.TransactionDate,
		&i.CustomerID,
		&i.PiutangID,
		&i.PaymentStatus,
		&i.SubmissionKey,
		&i.Konter,
		&i.JumlahGalon,
		&i.PajakOngkos,
		&i.PajakTransfer,
		&i.TotalPengeluaran,
		&i.BiayaTransfer,
		&i.Hasil,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const getCashflow = `-- name: GetCashflow :one
SELECT ` + cashflowColumns + `
FROM cashflow
WHERE id = $1
`

func (q *Queries) GetCashflow(ctx context.Context, id uuid.UUID) (Cashflow, error) {
	return scanCashflow(q.db.QueryRow(ctx, getCashflow, id))
}

const listCashflowByStore = `-- name: ListCashflowByStore :many
SELECT ` + cashflowColumns + `
FROM cashflow
WHERE store_id = $1
	AND ($2::text IS NULL OR category = $2)
	AND ($3::text IS NULL OR type = $3)
	AND ($4::date IS NULL OR transaction_date >= $4)
	AND ($5::date IS NULL OR transaction_date <= $5)
ORDER BY transaction_date DESC, created_at DESC
LIMIT $6 OFFSET $7
`

type ListCashflowByStoreParams struct {
	StoreID   uuid.UUID
	Category  pgtype.Text
	Type      pgtype.Text
	StartDate pgtype.Date
	EndDate   pgtype.Date
	Limit     int32
	Offset    int32
}

func (q *Queries) ListCashflowByStore(ctx context.Context, arg ListCashflowByStoreParams) ([]Cashflow, error) {
	rows, err := q.db.Query(ctx, listCashflowByStore,
		arg.StoreID,
		arg.Category,
		arg.Type,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Cashflow
	for rows.Next() {
		i, err := scanCashflow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCashflowByPiutang = `-- name: ListCashflowByPiutang :many
SELECT ` + cashflowColumns + `
FROM cashflow
WHERE piutang_id = $1
ORDER BY created_at
`

func (q *Queries) ListCashflowByPiutang(ctx context.Context, piutangID pgtype.UUID) ([]Cashflow, error) {
	rows, err := q.db.Query(ctx, listCashflowByPiutang, piutangID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Cashflow
	for rows.Next() {
		i, err := scanCashflow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const cashflowExistsBySubmissionKey = `-- name: CashflowExistsBySubmissionKey :one
SELECT EXISTS (
	SELECT 1 FROM cashflow
	WHERE submission_key = $1 AND category = 'Income' AND type = 'Sales'
)
`

func (q *Queries) CashflowExistsBySubmissionKey(ctx context.Context, submissionKey pgtype.Text) (bool, error) {
	row := q.db.QueryRow(ctx, cashflowExistsBySubmissionKey, submissionKey)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const getCashflowSummaryByStore = `-- name: GetCashflowSummaryByStore :one
SELECT
	COALESCE(SUM(amount) FILTER (WHERE category = 'Income'), 0)::numeric AS total_income,
	COALESCE(SUM(amount) FILTER (WHERE category = 'Expense'), 0)::numeric AS total_expense,
	COALESCE(SUM(amount) FILTER (WHERE category = 'Investment'), 0)::numeric AS total_investment
FROM cashflow
WHERE store_id = $1
	AND ($2::date IS NULL OR transaction_date >= $2)
	AND ($3::date IS NULL OR transaction_date <= $3)
`

type GetCashflowSummaryByStoreParams struct {
	StoreID   uuid.UUID
	StartDate pgtype.Date
	EndDate   pgtype.Date
}

type GetCashflowSummaryByStoreRow struct {
	TotalIncome     pgtype.Numeric
	TotalExpense    pgtype.Numeric
	TotalInvestment pgtype.Numeric
}

func (q *Queries) GetCashflowSummaryByStore(ctx context.Context, arg GetCashflowSummaryByStoreParams) (GetCashflowSummaryByStoreRow, error) {
	row := q.db.QueryRow(ctx, getCashflowSummaryByStore, arg.StoreID, arg.StartDate, arg.EndDate)
	var i GetCashflowSummaryByStoreRow
	err := row.Scan(&i.TotalIncome, &i.TotalExpense, &i.TotalInvestment)
	return i, err
}
