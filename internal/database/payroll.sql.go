package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const payrollColumns = `id, store_id, user_id, period_start, period_end,
	base_pay, bonus, deduction, net_pay, posted_at, created_at`

func scanPayrollEntry(row rowScanner) (PayrollEntry, error) {
	var i PayrollEntry
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.UserID,
		&i.PeriodStart,
		&i.PeriodEnd,
		&i.BasePay,
		&i.Bonus,
		&i.Deduction,
		&i.NetPay,
		&i.PostedAt,
		&i.CreatedAt,
	)
	return i, err
}

const createPayrollEntry = `-- name: CreatePayrollEntry :one
INSERT INTO payroll_entries (store_id, user_id, period_start, period_end, base_pay, bonus, deduction, net_pay)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + payrollColumns

type CreatePayrollEntryParams struct {
	StoreID     uuid.UUID
	UserID      uuid.UUID
	PeriodStart pgtype.Date
	PeriodEnd   pgtype.Date
	BasePay     pgtype.Numeric
	Bonus       pgtype.Numeric
	Deduction   pgtype.Numeric
	NetPay      pgtype.Numeric
}

func (q *Queries) CreatePayrollEntry(ctx context.Context, arg CreatePayrollEntryParams) (PayrollEntry, error) {
	row := q.db.QueryRow(ctx, createPayrollEntry,
		arg.StoreID,
		arg.UserID,
		arg.PeriodStart,
		arg.PeriodEnd,
		arg.BasePay,
		arg.Bonus,
		arg.Deduction,
		arg.NetPay,
	)
	return scanPayrollEntry(row)
}

const getPayrollEntry = `-- name: GetPayrollEntry :one
SELECT ` + payrollColumns + `
FROM payroll_entries
WHERE id = $1
`

func (q *Queries) GetPayrollEntry(ctx context.Context, id uuid.UUID) (PayrollEntry, error) {
	return scanPayrollEntry(q.db.QueryRow(ctx, getPayrollEntry, id))
}

const listPayrollEntriesByStore = `-- name: ListPayrollEntriesByStore :many
SELECT ` + payrollColumns + `
FROM payroll_entries
WHERE store_id = $1
ORDER BY period_start DESC, created_at DESC
LIMIT $2 OFFSET $3
`

type ListPayrollEntriesByStoreParams struct {
	StoreID uuid.UUID
	Limit   int32
	Offset  int32
}

func (q *Queries) ListPayrollEntriesByStore(ctx context.Context, arg ListPayrollEntriesByStoreParams) ([]PayrollEntry, error) {
	rows, err := q.db.Query(ctx, listPayrollEntriesByStore, arg.StoreID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PayrollEntry
	for rows.Next() {
		i, err := scanPayrollEntry(rows)
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

const listUnpostedPayrollEntries = `-- name: ListUnpostedPayrollEntries :many
SELECT ` + payrollColumns + `
FROM payroll_entries
WHERE id = ANY($1::uuid[]) AND posted_at IS NULL
FOR UPDATE
`

func (q *Queries) ListUnpostedPayrollEntries(ctx context.Context, ids []uuid.UUID) ([]PayrollEntry, error) {
	rows, err := q.db.Query(ctx, listUnpostedPayrollEntries, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PayrollEntry
	for rows.Next() {
		i, err := scanPayrollEntry(rows)
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

const markPayrollEntriesPosted = `-- name: MarkPayrollEntriesPosted :exec
UPDATE payroll_entries
SET posted_at = NOW()
WHERE id = ANY($1::uuid[])
`

func (q *Queries) MarkPayrollEntriesPosted(ctx context.Context, ids []uuid.UUID) error {
	_, err := q.db.Exec(ctx, markPayrollEntriesPosted, ids)
	return err
}

const deletePayrollEntry = `-- name: DeletePayrollEntry :one
DELETE FROM payroll_entries
WHERE id = $1 AND posted_at IS NULL
RETURNING id
`

func (q *Queries) DeletePayrollEntry(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deletePayrollEntry, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}
