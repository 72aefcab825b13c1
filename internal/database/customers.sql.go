package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCustomer = `-- name: CreateCustomer :one
INSERT INTO customers (store_id, name, phone)
VALUES ($1, $2, $3)
RETURNING id, store_id, name, phone, created_at
`

type CreateCustomerParams struct {
	StoreID pgtype.UUID
	Name    string
	Phone   pgtype.Text
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer, arg.StoreID, arg.Name, arg.Phone)
	var i Customer
	err := row.Scan(&i.ID, &i.StoreID, &i.Name, &i.Phone, &i.CreatedAt)
	return i, err
}

const getCustomer = `-- name: GetCustomer :one
SELECT id, store_id, name, phone, created_at
FROM customers
WHERE id = $1
`

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomer, id)
	var i Customer
	err := row.Scan(&i.ID, &i.StoreID, &i.Name, &i.Phone, &i.CreatedAt)
	return i, err
}

const listCustomersByStore = `-- name: ListCustomersByStore :many
SELECT id, store_id, name, phone, created_at
FROM customers
WHERE store_id = $1
ORDER BY name
LIMIT $2 OFFSET $3
`

type ListCustomersByStoreParams struct {
	StoreID pgtype.UUID
	Limit   int32
	Offset  int32
}

func (q *Queries) ListCustomersByStore(ctx context.Context, arg ListCustomersByStoreParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomersByStore, arg.StoreID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Customer
	for rows.Next() {
		var i Customer
		if err := rows.Scan(&i.ID, &i.StoreID, &i.Name, &i.Phone, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateCustomer = `-- name: UpdateCustomer :one
UPDATE customers
SET name = $2, phone = $3
WHERE id = $1
RETURNING id, store_id, name, phone, created_at
`

type UpdateCustomerParams struct {
	ID    uuid.UUID
	Name  string
	Phone pgtype.Text
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, updateCustomer, arg.ID, arg.Name, arg.Phone)
	var i Customer
	err := row.Scan(&i.ID, &i.StoreID, &i.Name, &i.Phone, &i.CreatedAt)
	return i, err
}

const deleteCustomer = `-- name: DeleteCustomer :one
DELETE FROM customers
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteCustomer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteCustomer, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}
