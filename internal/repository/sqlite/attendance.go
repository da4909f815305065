package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/database"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

const attendanceColumns = `id, user_id, date, check_in_time_ms, check_out_time_ms, status, total_hours,
  is_manual_entry, remarks, created_by, created_at_ms, updated_at_ms`

type attendanceRepositoryImpl struct {
	db     *sql.DB
	writer *database.Worker
	loc    *time.Location
}

// NewAttendanceRepository reads through db and serializes every write through writer.
func NewAttendanceRepository(db *sql.DB, writer *database.Worker, loc *time.Location) attendance.AttendanceRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceRepositoryImpl{db: db, writer: writer, loc: loc}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func msPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *attendanceRepositoryImpl) scan(row rowScanner) (attendance.Attendance, error) {
	var (
		a           attendance.Attendance
		date        string
		checkIn     sql.NullInt64
		checkOut    sql.NullInt64
		status      string
		totalHours  sql.NullFloat64
		isManual    int
		remarks     sql.NullString
		createdAtMs int64
		updatedAtMs int64
	)

	if err := row.Scan(
		&a.ID, &a.UserID, &date, &checkIn, &checkOut, &status, &totalHours,
		&isManual, &remarks, &a.CreatedBy, &createdAtMs, &updatedAtMs,
	); err != nil {
		return attendance.Attendance{}, err
	}

	day, err := time.ParseInLocation(dateLayout, date, r.loc)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	a.Date = day
	if checkIn.Valid {
		t := time.UnixMilli(checkIn.Int64).In(r.loc)
		a.CheckInTime = &t
	}
	if checkOut.Valid {
		t := time.UnixMilli(checkOut.Int64).In(r.loc)
		a.CheckOutTime = &t
	}
	a.Status = attendance.Status(status)
	if totalHours.Valid {
		h := totalHours.Float64
		a.TotalHours = &h
	}
	a.IsManualEntry = isManual == 1
	if remarks.Valid {
		s := remarks.String
		a.Remarks = &s
	}
	a.CreatedAt = time.UnixMilli(createdAtMs).UTC()
	a.UpdatedAt = time.UnixMilli(updatedAtMs).UTC()
	return a, nil
}

func (r *attendanceRepositoryImpl) dayString(t time.Time) string {
	return t.Format(dateLayout)
}

func (r *attendanceRepositoryImpl) findByDayTx(ctx context.Context, tx *sql.Tx, userID, day string) (attendance.Attendance, error) {
	return r.scan(tx.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendances WHERE user_id = ? AND date = ?;", userID, day))
}

func (r *attendanceRepositoryImpl) findByIDTx(ctx context.Context, tx *sql.Tx, id string) (attendance.Attendance, error) {
	a, err := r.scan(tx.QueryRowContext(ctx, "SELECT "+attendanceColumns+" FROM attendances WHERE id = ?;", id))
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return a, err
}

// FindByUserAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	a, err := r.scan(r.db.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendances WHERE user_id = ? AND date = ?;", userID, r.dayString(date)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("FindByUserAndDate: %w", err)
	}
	return &a, nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	a, err := r.scan(r.db.QueryRowContext(ctx, "SELECT "+attendanceColumns+" FROM attendances WHERE id = ?;", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

// UpsertCheckIn implements attendance.AttendanceRepository. The upsert only
// touches an existing row whose check-in is still empty; the unique index on
// (user_id, date) makes the decision atomic.
func (r *attendanceRepositoryImpl) UpsertCheckIn(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Attendance{}, err
	}
	day := r.dayString(att.Date)
	nowMs := time.Now().UTC().UnixMilli()

	var result attendance.Attendance
	err = r.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO attendances(
  id, user_id, date, check_in_time_ms, status, is_manual_entry, remarks, created_by, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
ON CONFLICT(user_id, date) DO UPDATE SET
  check_in_time_ms = excluded.check_in_time_ms,
  status = excluded.status,
  remarks = CASE
    WHEN excluded.remarks IS NULL THEN attendances.remarks
    WHEN attendances.remarks IS NULL OR attendances.remarks = '' THEN excluded.remarks
    ELSE attendances.remarks || '; ' || excluded.remarks
  END,
  updated_at_ms = excluded.updated_at_ms
WHERE attendances.check_in_time_ms IS NULL;
`, id.String(), att.UserID, day, msPtr(att.CheckInTime), string(att.Status),
			att.Remarks, att.CreatedBy, nowMs, nowMs)
		if err != nil {
			return fmt.Errorf("UpsertCheckIn: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("UpsertCheckIn rows: %w", err)
		}
		if n == 0 {
			return attendance.ErrAlreadyCheckedIn
		}

		result, err = r.findByDayTx(ctx, tx, att.UserID, day)
		return err
	})
	if err != nil {
		return attendance.Attendance{}, err
	}
	return result, nil
}

// ApplyCheckOut implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ApplyCheckOut(ctx context.Context, upd attendance.CheckOutUpdate) (attendance.Attendance, error) {
	day := r.dayString(upd.Date)
	nowMs := time.Now().UTC().UnixMilli()

	var result attendance.Attendance
	err := r.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE attendances SET
  check_out_time_ms = ?,
  status = ?,
  total_hours = ?,
  remarks = CASE
    WHEN ? IS NULL THEN remarks
    WHEN remarks IS NULL OR remarks = '' THEN ?
    ELSE remarks || '; ' || ?
  END,
  updated_at_ms = ?
WHERE user_id = ? AND date = ? AND check_in_time_ms IS NOT NULL AND check_out_time_ms IS NULL;
`, upd.CheckOutTime.UTC().UnixMilli(), string(upd.Status), upd.TotalHours,
			upd.Remark, upd.Remark, upd.Remark, nowMs, upd.UserID, day)
		if err != nil {
			return fmt.Errorf("ApplyCheckOut: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("ApplyCheckOut rows: %w", err)
		}

		current, err := r.findByDayTx(ctx, tx, upd.UserID, day)
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.ErrNotCheckedIn
		}
		if err != nil {
			return fmt.Errorf("ApplyCheckOut reload: %w", err)
		}

		if n == 0 {
			if !current.HasCheckedIn() {
				return attendance.ErrNotCheckedIn
			}
			return attendance.ErrAlreadyCheckedOut
		}
		result = current
		return nil
	})
	if err != nil {
		return attendance.Attendance{}, err
	}
	return result, nil
}

// CreateManual implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) CreateManual(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Attendance{}, err
	}
	day := r.dayString(att.Date)
	nowMs := time.Now().UTC().UnixMilli()

	var result attendance.Attendance
	err = r.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO attendances(
  id, user_id, date, check_in_time_ms, check_out_time_ms, status, total_hours,
  is_manual_entry, remarks, created_by, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, date) DO NOTHING;
`, id.String(), att.UserID, day, msPtr(att.CheckInTime), msPtr(att.CheckOutTime), string(att.Status),
			att.TotalHours, boolInt(att.IsManualEntry), att.Remarks, att.CreatedBy, nowMs, nowMs)
		if err != nil {
			return fmt.Errorf("CreateManual: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("CreateManual rows: %w", err)
		}
		if n == 0 {
			return attendance.ErrDuplicateRecord
		}

		result, err = r.findByIDTx(ctx, tx, id.String())
		return err
	})
	if err != nil {
		return attendance.Attendance{}, err
	}
	return result, nil
}

// UpdateManual implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) UpdateManual(ctx context.Context, id string, patch attendance.AttendancePatch) (attendance.Attendance, error) {
	nowMs := time.Now().UTC().UnixMilli()

	var result attendance.Attendance
	err := r.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		current, err := r.findByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		patch.Apply(&current)
		if err := current.ValidateTimes(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE attendances SET
  check_in_time_ms = ?, check_out_time_ms = ?, status = ?, total_hours = ?,
  is_manual_entry = ?, remarks = ?, created_by = ?, updated_at_ms = ?
WHERE id = ?;
`, msPtr(current.CheckInTime), msPtr(current.CheckOutTime), string(current.Status), current.TotalHours,
			boolInt(current.IsManualEntry), current.Remarks, current.CreatedBy, nowMs, id); err != nil {
			return fmt.Errorf("UpdateManual: %w", err)
		}

		result, err = r.findByIDTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return attendance.Attendance{}, err
	}
	return result, nil
}

// Delete implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM attendances WHERE id = ?;", id)
		if err != nil {
			return fmt.Errorf("Delete: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("Delete rows: %w", err)
		}
		if n == 0 {
			return attendance.ErrNotFound
		}
		return nil
	})
}

var sortColumns = map[string]string{
	"date":           "date",
	"check_in_time":  "check_in_time_ms",
	"check_out_time": "check_out_time_ms",
	"status":         "status",
	"total_hours":    "total_hours",
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	var (
		where []string
		args  []any
	)

	if filter.UserID != nil && *filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Date != nil && *filter.Date != "" {
		where = append(where, "date = ?")
		args = append(args, *filter.Date)
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		where = append(where, "date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		where = append(where, "date <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.Status != nil && *filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.IsManualEntry != nil {
		where = append(where, "is_manual_entry = ?")
		args = append(args, boolInt(*filter.IsManualEntry))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendances"+whereClause+";", args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("List count: %w", err)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "date"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	query := "SELECT " + attendanceColumns + " FROM attendances" + whereClause +
		fmt.Sprintf(" ORDER BY %s %s, user_id ASC", column, order)
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, (page-1)*filter.Limit)
	}

	list, err := r.query(ctx, query+";", args...)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return list, total, nil
}

// ListInRange implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListInRange(ctx context.Context, q attendance.RangeQuery) ([]attendance.Attendance, error) {
	query := "SELECT " + attendanceColumns + " FROM attendances WHERE date >= ? AND date <= ?"
	args := []any{r.dayString(q.From), r.dayString(q.To)}

	if len(q.UserIDs) > 0 {
		query += " AND user_id IN (" + strings.TrimSuffix(strings.Repeat("?,", len(q.UserIDs)), ",") + ")"
		for _, u := range q.UserIDs {
			args = append(args, u)
		}
	}

	list, err := r.query(ctx, query+" ORDER BY date ASC, user_id ASC;", args...)
	if err != nil {
		return nil, fmt.Errorf("ListInRange: %w", err)
	}
	return list, nil
}

func (r *attendanceRepositoryImpl) query(ctx context.Context, query string, args ...any) ([]attendance.Attendance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]attendance.Attendance, 0)
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
