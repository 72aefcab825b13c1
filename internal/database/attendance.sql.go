package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createAttendance = `-- name: CreateAttendance :one
INSERT INTO attendance (user_id, store_id, work_date, shift, check_in)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, store_id, work_date, shift, check_in, check_out, created_at
`

type CreateAttendanceParams struct {
	UserID   uuid.UUID
	StoreID  uuid.UUID
	WorkDate pgtype.Date
	Shift    string
	CheckIn  time.Time
}

func (q *Queries) CreateAttendance(ctx context.Context, arg CreateAttendanceParams) (Attendance, error) {
	row := q.db.QueryRow(ctx, createAttendance,
		arg.UserID,
		arg.StoreID,
		arg.WorkDate,
		arg.Shift,
		arg.CheckIn,
	)
	var i Attendance
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.StoreID,
		&i.WorkDate,
		&i.Shift,
		&i.CheckIn,
		&i.CheckOut,
		&i.CreatedAt,
	)
	return i, err
}

const setAttendanceCheckOut = `-- name: SetAttendanceCheckOut :one
UPDATE attendance
SET check_out = $2
WHERE id = $1
RETURNING id, user_id, store_id, work_date, shift, check_in, check_out, created_at
`

type SetAttendanceCheckOutParams struct {
	ID       uuid.UUID
	CheckOut pgtype.Timestamptz
}

func (q *Queries) SetAttendanceCheckOut(ctx context.Context, arg SetAttendanceCheckOutParams) (Attendance, error) {
	row := q.db.QueryRow(ctx, setAttendanceCheckOut, arg.ID, arg.CheckOut)
	var i Attendance
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.StoreID,
		&i.WorkDate,
		&i.Shift,
		&i.CheckIn,
		&i.CheckOut,
		&i.CreatedAt,
	)
	return i, err
}

const listAttendanceByStore = `-- name: ListAttendanceByStore :many
SELECT id, user_id, store_id, work_date, shift, check_in, check_out, created_at
FROM attendance
WHERE store_id = $1
	AND ($2::date IS NULL OR work_date >= $2)
	AND ($3::date IS NULL OR work_date <= $3)
ORDER BY work_date DESC, check_in DESC
LIMIT $4 OFFSET $5
`

type ListAttendanceByStoreParams struct {
	StoreID   uuid.UUID
	StartDate pgtype.Date
	EndDate   pgtype.Date
	Limit     int32
	Offset    int32
}

func (q *Queries) ListAttendanceByStore(ctx context.Context, arg ListAttendanceByStoreParams) ([]Attendance, error) {
	rows, err := q.db.Query(ctx, listAttendanceByStore,
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
	var items []Attendance
	for rows.Next() {
		var i Attendance
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.StoreID,
			&i.WorkDate,
			&i.Shift,
			&i.CheckIn,
			&i.CheckOut,
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

const countAttendanceDays = `-- name: CountAttendanceDays :one
SELECT COUNT(DISTINCT work_date)
FROM attendance
WHERE user_id = $1 AND work_date >= $2 AND work_date <= $3
`

type CountAttendanceDaysParams struct {
	UserID    uuid.UUID
	StartDate pgtype.Date
	EndDate   pgtype.Date
}

func (q *Queries) CountAttendanceDays(ctx context.Context, arg CountAttendanceDaysParams) (int64, error) {
	row := q.db.QueryRow(ctx, countAttendanceDays, arg.UserID, arg.StartDate, arg.EndDate)
	var count int64
	err := row.Scan(&count)
	return count, err
}
