package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createStore = `-- name: CreateStore :one
INSERT INTO stores (name, address)
VALUES ($1, $2)
RETURNING id, name, address, created_at
`

type CreateStoreParams struct {
	Name    string
	Address pgtype.Text
}

func (q *Queries) CreateStore(ctx context.Context, arg CreateStoreParams) (Store, error) {
	row := q.db.QueryRow(ctx, createStore, arg.Name, arg.Address)
	var i Store
	err := row.Scan(&i.ID, &i.Name, &i.Address, &i.CreatedAt)
	return i, err
}

const getStore = `-- name: GetStore :one
SELECT id, name, address, created_at
FROM stores
WHERE id = $1
`

func (q *Queries) GetStore(ctx context.Context, id uuid.UUID) (Store, error) {
	row := q.db.QueryRow(ctx, getStore, id)
	var i Store
	err := row.Scan(&i.ID, &i.Name, &i.Address, &i.CreatedAt)
	return i, err
}

const listStores = `-- name: ListStores :many
SELECT id, name, address, created_at
FROM stores
ORDER BY name
`

func (q *Queries) ListStores(ctx context.Context) ([]Store, error) {
	rows, err := q.db.Query(ctx, listStores)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Store
	for rows.Next() {
		var i Store
		if err := rows.Scan(&i.ID, &i.Name, &i.Address, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateStore = `-- name: UpdateStore :one
UPDATE stores
SET name = $2, address = $3
WHERE id = $1
RETURNING id, name, address, created_at
`

type UpdateStoreParams struct {
	ID      uuid.UUID
	Name    string
	Address pgtype.Text
}

func (q *Queries) UpdateStore(ctx context.Context, arg UpdateStoreParams) (Store, error) {
	row := q.db.QueryRow(ctx, updateStore, arg.ID, arg.Name, arg.Address)
	var i Store
	err := row.Scan(&i.ID, &i.Name, &i.Address, &i.CreatedAt)
	return i, err
}
