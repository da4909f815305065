package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const attendanceColumns = `
	id, user_id, date, check_in_time, check_out_time, status, total_hours,
	is_manual_entry, remarks, created_by, created_at, updated_at`

type attendanceRepository struct {
	db  *database.DB
	loc *time.Location
}

func NewAttendanceRepository(db *database.DB, loc *time.Location) attendance.AttendanceRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceRepository{db: db, loc: loc}
}

func (a *attendanceRepository) dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}

// scanAttendance reads one row selected with attendanceColumns.
func (a *attendanceRepository) scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var (
		att    attendance.Attendance
		status string
	)

	err := row.Scan(
		&att.ID, &att.UserID, &att.Date, &att.CheckInTime, &att.CheckOutTime, &status, &att.TotalHours,
		&att.IsManualEntry, &att.Remarks, &att.CreatedBy, &att.CreatedAt, &att.UpdatedAt,
	)
	if err != nil {
		return attendance.Attendance{}, err
	}

	att.Status = attendance.Status(status)
	att.Date = attendance.DateOnly(att.Date, a.loc)
	if att.CheckInTime != nil {
		t := att.CheckInTime.In(a.loc)
		att.CheckInTime = &t
	}
	if att.CheckOutTime != nil {
		t := att.CheckOutTime.In(a.loc)
		att.CheckOutTime = &t
	}
	return att, nil
}

// FindByUserAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE user_id = $1 AND date = $2::date
	`

	att, err := a.scanAttendance(q.QueryRow(ctx, query, userID, a.dateParam(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by user and date: %w", err)
	}

	return &att, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	if _, err := uuid.Parse(id); err != nil {
		return attendance.Attendance{}, attendance.ErrNotFound
	}

	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE id = $1`

	att, err := a.scanAttendance(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by ID: %w", err)
	}

	return att, nil
}

// UpsertCheckIn implements attendance.AttendanceRepository. The ON CONFLICT
// branch only fires for a row that has no check-in yet, so a second check-in
// returns no row.
func (a *attendanceRepository) UpsertCheckIn(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Attendance{}, err
	}

	query := `
		INSERT INTO attendances (
			id, user_id, date, check_in_time, status, is_manual_entry, remarks, created_by
		) VALUES (
			$1, $2, $3::date, $4, $5, FALSE, $6, $7
		)
		ON CONFLICT (user_id, date) DO UPDATE SET
			check_in_time = EXCLUDED.check_in_time,
			status = EXCLUDED.status,
			remarks = CASE
				WHEN EXCLUDED.remarks IS NULL THEN attendances.remarks
				WHEN attendances.remarks IS NULL OR attendances.remarks = '' THEN EXCLUDED.remarks
				ELSE attendances.remarks || '; ' || EXCLUDED.remarks
			END,
			updated_at = NOW()
		WHERE attendances.check_in_time IS NULL
		RETURNING ` + attendanceColumns

	result, err := a.scanAttendance(q.QueryRow(ctx, query,
		id.String(),
		att.UserID,
		a.dateParam(att.Date),
		att.CheckInTime,
		string(att.Status),
		att.Remarks,
		att.CreatedBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.Attendance{}, fmt.Errorf("failed to upsert check-in: %w", err)
	}

	return result, nil
}

// ApplyCheckOut implements attendance.AttendanceRepository.
func (a *attendanceRepository) ApplyCheckOut(ctx context.Context, upd attendance.CheckOutUpdate) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances SET
			check_out_time = $3,
			status = $4,
			total_hours = $5,
			remarks = CASE
				WHEN $6::text IS NULL THEN remarks
				WHEN remarks IS NULL OR remarks = '' THEN $6::text
				ELSE remarks || '; ' || $6::text
			END,
			updated_at = NOW()
		WHERE user_id = $1
		  AND date = $2::date
		  AND check_in_time IS NOT NULL
		  AND check_out_time IS NULL
		RETURNING ` + attendanceColumns

	result, err := a.scanAttendance(q.QueryRow(ctx, query,
		upd.UserID,
		a.dateParam(upd.Date),
		upd.CheckOutTime,
		string(upd.Status),
		upd.TotalHours,
		upd.Remark,
	))
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return attendance.Attendance{}, fmt.Errorf("failed to apply check-out: %w", err)
	}

	// Nothing matched: tell the two failure states apart
	current, err := a.FindByUserAndDate(ctx, upd.UserID, upd.Date)
	if err != nil {
		return attendance.Attendance{}, err
	}
	if current == nil || !current.HasCheckedIn() {
		return attendance.Attendance{}, attendance.ErrNotCheckedIn
	}
	return attendance.Attendance{}, attendance.ErrAlreadyCheckedOut
}

// CreateManual implements attendance.AttendanceRepository.
func (a *attendanceRepository) CreateManual(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Attendance{}, err
	}

	query := `
		INSERT INTO attendances (
			id, user_id, date, check_in_time, check_out_time, status, total_hours,
			is_manual_entry, remarks, created_by
		) VALUES (
			$1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (user_id, date) DO NOTHING
		RETURNING ` + attendanceColumns

	result, err := a.scanAttendance(q.QueryRow(ctx, query,
		id.String(),
		att.UserID,
		a.dateParam(att.Date),
		att.CheckInTime,
		att.CheckOutTime,
		string(att.Status),
		att.TotalHours,
		att.IsManualEntry,
		att.Remarks,
		att.CreatedBy,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == uniqueViolation) {
			return attendance.Attendance{}, attendance.ErrDuplicateRecord
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return result, nil
}

// UpdateManual implements attendance.AttendanceRepository. The row is locked
// while the patch is applied and re-validated.
func (a *attendanceRepository) UpdateManual(ctx context.Context, id string, patch attendance.AttendancePatch) (attendance.Attendance, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Attendance{}, attendance.ErrNotFound
	}

	var result attendance.Attendance
	err := WithTransaction(ctx, a.db, func(txCtx context.Context) error {
		q := GetQuerier(txCtx, a.db)
		current, err := a.scanAttendance(q.QueryRow(txCtx,
			`SELECT `+attendanceColumns+` FROM attendances WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return attendance.ErrNotFound
			}
			return fmt.Errorf("failed to lock attendance: %w", err)
		}

		patch.Apply(&current)
		if err := current.ValidateTimes(); err != nil {
			return err
		}

		query := `
			UPDATE attendances SET
				check_in_time = $2,
				check_out_time = $3,
				status = $4,
				total_hours = $5,
				is_manual_entry = $6,
				remarks = $7,
				created_by = $8,
				updated_at = NOW()
			WHERE id = $1
			RETURNING ` + attendanceColumns

		result, err = a.scanAttendance(q.QueryRow(txCtx, query,
			id,
			current.CheckInTime,
			current.CheckOutTime,
			string(current.Status),
			current.TotalHours,
			current.IsManualEntry,
			current.Remarks,
			current.CreatedBy,
		))
		if err != nil {
			return fmt.Errorf("failed to update attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.Attendance{}, err
	}

	return result, nil
}

// Delete implements attendance.AttendanceRepository.
func (a *attendanceRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, a.db)

	if _, err := uuid.Parse(id); err != nil {
		return attendance.ErrNotFound
	}

	tag, err := q.Exec(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	// Build WHERE clause
	baseWhere := "1=1"
	args := []any{}
	argIdx := 1

	if filter.UserID != nil && *filter.UserID != "" {
		baseWhere += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}

	if filter.Date != nil && *filter.Date != "" {
		baseWhere += fmt.Sprintf(" AND date = $%d::date", argIdx)
		args = append(args, *filter.Date)
		argIdx++
	}

	// Date range filters
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND date >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND date <= $%d::date", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.IsManualEntry != nil {
		baseWhere += fmt.Sprintf(" AND is_manual_entry = $%d", argIdx)
		args = append(args, *filter.IsManualEntry)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM attendances WHERE "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	// Sorting
	sortColumn := "date"
	switch filter.SortBy {
	case "check_in_time":
		sortColumn = "check_in_time"
	case "check_out_time":
		sortColumn = "check_out_time"
	case "status":
		sortColumn = "status"
	case "total_hours":
		sortColumn = "total_hours"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM attendances WHERE %s ORDER BY %s %s NULLS LAST, user_id ASC`,
		attendanceColumns, baseWhere, sortColumn, sortOrder)
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.Limit, (page-1)*filter.Limit)
	}

	list, err := a.queryAttendances(ctx, q, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendances: %w", err)
	}

	return list, total, nil
}

// ListInRange implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListInRange(ctx context.Context, rq attendance.RangeQuery) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE date >= $1::date AND date <= $2::date`
	args := []any{a.dateParam(rq.From), a.dateParam(rq.To)}

	if len(rq.UserIDs) > 0 {
		query += " AND user_id = ANY($3)"
		args = append(args, rq.UserIDs)
	}
	query += " ORDER BY date ASC, user_id ASC"

	list, err := a.queryAttendances(ctx, q, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances in range: %w", err)
	}
	return list, nil
}

func (a *attendanceRepository) queryAttendances(ctx context.Context, q database.Querier, query string, args ...any) ([]attendance.Attendance, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]attendance.Attendance, 0)
	for rows.Next() {
		att, err := a.scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, att)
	}
	return list, rows.Err()
}
