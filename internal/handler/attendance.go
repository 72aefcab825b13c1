package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// AttendanceStore defines the database methods needed by attendance handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AttendanceStore interface {
	CreateAttendance(ctx context.Context, arg database.CreateAttendanceParams) (database.Attendance, error)
	SetAttendanceCheckOut(ctx context.Context, arg database.SetAttendanceCheckOutParams) (database.Attendance, error)
	ListAttendanceByStore(ctx context.Context, arg database.ListAttendanceByStoreParams) ([]database.Attendance, error)
	CountAttendanceDays(ctx context.Context, arg database.CountAttendanceDaysParams) (int64, error)
}

// AttendanceHandler handles shift attendance endpoints.
type AttendanceHandler struct {
	store AttendanceStore
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(store AttendanceStore) *AttendanceHandler {
	return &AttendanceHandler{store: store}
}

// RegisterStoreRoutes registers the store-scoped attendance endpoints.
// Expected to be mounted at /stores/{sid}/attendance.
func (h *AttendanceHandler) RegisterStoreRoutes(r chi.Router) {
	r.Post("/check-in", h.CheckIn)
	r.Get("/", h.List)
}

// RegisterRoutes registers the id-scoped attendance endpoints at /attendance.
func (h *AttendanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/days-worked", h.DaysWorked)
	r.Post("/{id}/check-out", h.CheckOut)
}

type checkInRequest struct {
	Shift    string `json:"shift"`
	WorkDate string `json:"work_date"` // optional, defaults to today
}

type attendanceResponse struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	StoreID   uuid.UUID  `json:"store_id"`
	WorkDate  *string    `json:"work_date"`
	Shift     string     `json:"shift"`
	CheckIn   time.Time  `json:"check_in"`
	CheckOut  *time.Time `json:"check_out"`
	CreatedAt time.Time  `json:"created_at"`
}

// CheckIn handles POST /stores/{sid}/attendance/check-in. One row per
// user, work date and shift; a second check-in for the same shift is a
// conflict.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Shift == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "shift is required"})
		return
	}

	workDate := time.Now()
	if req.WorkDate != "" {
		workDate, err = time.Parse("2006-01-02", req.WorkDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid work_date format, use YYYY-MM-DD"})
			return
		}
	}

	att, err := h.store.CreateAttendance(r.Context(), database.CreateAttendanceParams{
		UserID:   claims.UserID,
		StoreID:  storeID,
		WorkDate: pgtype.Date{Time: workDate, Valid: true},
		Shift:    req.Shift,
		CheckIn:  time.Now(),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "already checked in for this shift"})
			return
		}
		log.Printf("ERROR: check in: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toAttendanceResponse(att))
}

// CheckOut handles POST /attendance/{id}/check-out.
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid attendance ID"})
		return
	}

	att, err := h.store.SetAttendanceCheckOut(r.Context(), database.SetAttendanceCheckOutParams{
		ID:       id,
		CheckOut: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "attendance not found"})
			return
		}
		log.Printf("ERROR: check out: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceResponse(att))
}

// List handles GET /stores/{sid}/attendance.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	limit, offset := parsePagination(r)
	params := database.ListAttendanceByStoreParams{
		StoreID: storeID,
		Limit:   int32(limit),
		Offset:  int32(offset),
	}

	var ok bool
	if params.StartDate, ok = parseDateParam(r, "start_date"); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
		return
	}
	if params.EndDate, ok = parseDateParam(r, "end_date"); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
		return
	}

	rows, err := h.store.ListAttendanceByStore(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list attendance: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]attendanceResponse, len(rows))
	for i, a := range rows {
		resp[i] = toAttendanceResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// DaysWorked handles GET /attendance/days-worked. Distinct work dates for
// a user in a period; payroll clerks use it to sanity-check base pay.
func (h *AttendanceHandler) DaysWorked(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
		return
	}

	params := database.CountAttendanceDaysParams{UserID: userID}
	var ok bool
	if params.StartDate, ok = parseDateParam(r, "start_date"); !ok || !params.StartDate.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
		return
	}
	if params.EndDate, ok = parseDateParam(r, "end_date"); !ok || !params.EndDate.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
		return
	}

	days, err := h.store.CountAttendanceDays(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: count attendance days: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":     userID,
		"start_date":  params.StartDate.Time.Format("2006-01-02"),
		"end_date":    params.EndDate.Time.Format("2006-01-02"),
		"days_worked": days,
	})
}

func toAttendanceResponse(a database.Attendance) attendanceResponse {
	return attendanceResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		StoreID:   a.StoreID,
		WorkDate:  datePtr(a.WorkDate),
		Shift:     a.Shift,
		CheckIn:   a.CheckIn,
		CheckOut:  timePtr(a.CheckOut),
		CreatedAt: a.CreatedAt,
	}
}
