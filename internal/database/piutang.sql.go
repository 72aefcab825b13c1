package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const piutangColumns = `id, customer_id, store_id, sale_id, amount, description, status,
	paid_amount, paid_at, created_by, created_at`

func scanPiutang(row rowScanner) (Piutang, error) {
	var i Piutang
	err := row.Scan(
		&i.ID,
		&i.CustomerID,
		&i.StoreID,
		&i.SaleID,
		&i.Amount,
		&i.Description,
		&i.Status,
		&i.PaidAmount,
		&i.PaidAt,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createPiutang = `-- name: CreatePiutang :one
INSERT INTO piutang (customer_id, store_id, sale_id, amount, description, status, paid_amount, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + piutangColumns

type CreatePiutangParams struct {
	CustomerID  string
	StoreID     uuid.UUID
	SaleID      pgtype.UUID
	Amount      pgtype.Numeric
	Description string
	Status      string
	PaidAmount  pgtype.Numeric
	CreatedBy   pgtype.Text
}

func (q *Queries) CreatePiutang(ctx context.Context, arg CreatePiutangParams) (Piutang, error) {
	row := q.db.QueryRow(ctx, createPiutang,
		arg.CustomerID,
		arg.StoreID,
		arg.SaleID,
		arg.Amount,
		arg.Description,
		arg.Status,
		arg.PaidAmount,
		arg.CreatedBy,
	)
	return scanPiutang(row)
}

const piutangExistsBySale = `-- name: PiutangExistsBySale :one
SELECT EXISTS (
	SELECT 1 FROM piutang WHERE sale_id = $1
)
`

func (q *Queries) PiutangExistsBySale(ctx context.Context, saleID pgtype.UUID) (bool, error) {
	row := q.db.QueryRow(ctx, piutangExistsBySale, saleID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const getPiutang = `-- name: GetPiutang :one
SELECT ` + piutangColumns + `
FROM piutang
WHERE id = $1
`

func (q *Queries) GetPiutang(ctx context.Context, id uuid.UUID) (Piutang, error) {
	return scanPiutang(q.db.QueryRow(ctx, getPiutang, id))
}

const getPiutangForUpdate = `-- name: GetPiutangForUpdate :one
SELECT ` + piutangColumns + `
FROM piutang
WHERE id = $1
FOR UPDATE
`

// GetPiutangForUpdate locks the row for the remainder of the transaction.
// Concurrent payments against the same receivable serialize here.
func (q *Queries) GetPiutangForUpdate(ctx context.Context, id uuid.UUID) (Piutang, error) {
	return scanPiutang(q.db.QueryRow(ctx, getPiutangForUpdate, id))
}

const listPiutangByStore = `-- name: ListPiutangByStore :many
SELECT ` + piutangColumns + `
FROM piutang
WHERE store_id = $1
	AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListPiutangByStoreParams struct {
	StoreID uuid.UUID
	Status  pgtype.Text
	Limit   int32
	Offset  int32
}

func (q *Queries) ListPiutangByStore(ctx context.Context, arg ListPiutangByStoreParams) ([]Piutang, error) {
	rows, err := q.db.Query(ctx, listPiutangByStore, arg.StoreID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Piutang
	for rows.Next() {
		i, err := scanPiutang(rows)
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

const listPiutangByCustomer = `-- name: ListPiutangByCustomer :many
SELECT ` + piutangColumns + `
FROM piutang
WHERE customer_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListPiutangByCustomer(ctx context.Context, customerID string) ([]Piutang, error) {
	rows, err := q.db.Query(ctx, listPiutangByCustomer, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Piutang
	for rows.Next() {
		i, err := scanPiutang(rows)
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

const updatePiutangPayment = `-- name: UpdatePiutangPayment :one
UPDATE piutang
SET paid_amount = $2, status = $3, paid_at = $4
WHERE id = $1
RETURNING ` + piutangColumns

type UpdatePiutangPaymentParams struct {
	ID         uuid.UUID
	PaidAmount pgtype.Numeric
	Status     string
	PaidAt     pgtype.Timestamptz
}

func (q *Queries) UpdatePiutangPayment(ctx context.Context, arg UpdatePiutangPaymentParams) (Piutang, error) {
	row := q.db.QueryRow(ctx, updatePiutangPayment, arg.ID, arg.PaidAmount, arg.Status, arg.PaidAt)
	return scanPiutang(row)
}

const updatePiutangStatus = `-- name: UpdatePiutangStatus :one
UPDATE piutang
SET status = $2, paid_at = $3
WHERE id = $1
RETURNING ` + piutangColumns

type UpdatePiutangStatusParams struct {
	ID     uuid.UUID
	Status string
	PaidAt pgtype.Timestamptz
}

// UpdatePiutangStatus is the administrative override. It never touches
// paid_amount; only AddPayment may do that.
func (q *Queries) UpdatePiutangStatus(ctx context.Context, arg UpdatePiutangStatusParams) (Piutang, error) {
	row := q.db.QueryRow(ctx, updatePiutangStatus, arg.ID, arg.Status, arg.PaidAt)
	return scanPiutang(row)
}

const sumOutstandingPiutangByStore = `-- name: SumOutstandingPiutangByStore :one
SELECT COALESCE(SUM(amount - paid_amount), 0)::numeric
FROM piutang
WHERE store_id = $1 AND status = 'belum_lunas'
`

func (q *Queries) SumOutstandingPiutangByStore(ctx context.Context, storeID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumOutstandingPiutangByStore, storeID)
	var out pgtype.Numeric
	err := row.Scan(&out)
	return out, err
}
