package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createSale = `-- name: CreateSale :one
INSERT INTO sales (
	store_id, user_id, sale_date, total_sales, transaction_count,
	qris_amount, cash_amount, meter_start, meter_end, total_liters,
	income_details, expense_details, shift, check_in, check_out, submission_key
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING id, store_id, user_id, sale_date, total_sales, transaction_count,
	qris_amount, cash_amount, meter_start, meter_end, total_liters,
	income_details, expense_details, shift, check_in, check_out, submission_key, created_at
`

type CreateSaleParams struct {
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
}

func (q *Queries) CreateSale(ctx context.Context, arg CreateSaleParams) (Sale, error) {
	row := q.db.QueryRow(ctx, createSale,
		arg.StoreID,
		arg.UserID,
		arg.SaleDate,
		arg.TotalSales,
		arg.TransactionCount,
		arg.QrisAmount,
		arg.CashAmount,
		arg.MeterStart,
		arg.MeterEnd,
		arg.TotalLiters,
		arg.IncomeDetails,
		arg.ExpenseDetails,
		arg.Shift,
		arg.CheckIn,
		arg.CheckOut,
		arg.SubmissionKey,
	)
	var i Sale
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.UserID,
		&i.SaleDate,
		&i.TotalSales,
		&i.TransactionCount,
		&i.QrisAmount,
		&i.CashAmount,
		&i.MeterStart,
		&i.MeterEnd,
		&i.TotalLiters,
		&i.IncomeDetails,
		&i.ExpenseDetails,
		&i.Shift,
		&i.CheckIn,
		&i.CheckOut,
		&i.SubmissionKey,
		&i.CreatedAt,
	)
	return i, err
}

const getSale = `-- name: GetSale :one
SELECT id, store_id, user_id, sale_date, total_sales, transaction_count,
	qris_amount, cash_amount, meter_start, meter_end, total_liters,
	income_details, expense_details, shift, check_in, check_out, submission_key, created_at
FROM sales
WHERE id = $1
`

func (q *Queries) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	row := q.db.QueryRow(ctx, getSale, id)
	var i Sale
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.UserID,
		&i.SaleDate,
		&i.TotalSales,
		&i.TransactionCount,
		&i.QrisAmount,
		&i.CashAmount,
		&i.MeterStart,
		&i.MeterEnd,
		&i.TotalLiters,
		&i.IncomeDetails,
		&i.ExpenseDetails,
		&i.Shift,
		&i.CheckIn,
		&i.CheckOut,
		&i.SubmissionKey,
		&i.CreatedAt,
	)
	return i, err
}

const listSalesByStore = `-- name: ListSalesByStore :many
SELECT id, store_id, user_id, sale_date, total_sales, transaction_count,
	qris_amount, cash_amount, meter_start, meter_end, total_liters,
	income_details, expense_details, shift, check_in, check_out, submission_key, created_at
FROM sales
WHERE store_id = $1
	AND ($2::date IS NULL OR sale_date >= $2)
	AND ($3::date IS NULL OR sale_date <= $3)
ORDER BY sale_date DESC, created_at DESC
LIMIT $4 OFFSET $5
`

type ListSalesByStoreParams struct {
	StoreID   uuid.UUID
	StartDate pgtype.Date
	EndDate   pgtype.Date
	Limit     int32
	Offset    int32
}

func (q *Queries) ListSalesByStore(ctx context.Context, arg ListSalesByStoreParams) ([]Sale, error) {
	rows, err := q.db.Query(ctx, listSalesByStore,
		arg.StoreID,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Sale
	for rows.Next() {
		var i Sale
		if err := rows.Scan(
			&i.ID,
			&i.StoreID,
			&i.UserID,
			&i.SaleDate,
			&i.TotalSales,
			&i.TransactionCount,
			&i.QrisAmount,
			&i.CashAmount,
			&i.MeterStart,
			&i.MeterEnd,
			&i.TotalLiters,
			&i.IncomeDetails,
			&i.ExpenseDetails,
			&i.Shift,
			&i.CheckIn,
			&i.CheckOut,
			&i.SubmissionKey,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSale = `-- name: DeleteSale :one
DELETE FROM sales
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteSale(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteSale, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}
