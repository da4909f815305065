package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/validator"
)

const displayTimeLayout = "2006-01-02 15:04:05"

type AttendanceServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	policy         ClockPolicy
	now            Clock
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	policy ClockPolicy,
	clock Clock,
) attendance.AttendanceService {
	if clock == nil {
		clock = time.Now
	}
	return &AttendanceServiceImpl{
		attendanceRepo: attendanceRepo,
		policy:         policy,
		now:            clock,
	}
}

// timePtrToString formats an optional instant in the policy's time zone.
func (a *AttendanceServiceImpl) timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.In(a.policy.Location).Format(displayTimeLayout)
	return &format
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// ========================================
// MARKING
// ========================================

// CheckIn implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.MarkResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.MarkResponse{}, err
	}

	now := a.now().In(a.policy.Location)
	day := a.policy.DayOf(now)

	existing, err := a.attendanceRepo.FindByUserAndDate(ctx, req.UserID, day)
	if err != nil {
		return attendance.MarkResponse{}, fmt.Errorf("failed to look up today's attendance: %w", err)
	}
	if existing != nil && existing.HasCheckedIn() {
		return attendance.MarkResponse{}, attendance.ErrAlreadyCheckedIn
	}

	// Only the late/present branch applies without a check-out
	status := a.policy.Classify(day, &now, nil, false, nil)

	data := attendance.Attendance{
		UserID:      req.UserID,
		Date:        day,
		CheckInTime: &now,
		Status:      status,
		Remarks:     trimmedOrNil(req.Location),
		CreatedBy:   req.UserID,
	}

	// The store's conditional write is authoritative; a concurrent check-in that
	// slipped past the lookup above surfaces here as ErrAlreadyCheckedIn.
	result, err := a.attendanceRepo.UpsertCheckIn(ctx, data)
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
			return attendance.MarkResponse{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.MarkResponse{}, fmt.Errorf("failed to record check-in: %w", err)
	}

	wasLate := status == attendance.StatusLate
	slog.InfoContext(ctx, "Attendance checked in",
		"user_id", req.UserID, "date", day.Format("2006-01-02"), "status", status, "late", wasLate)

	return attendance.MarkResponse{
		Attendance: a.mapAttendanceToResponse(result),
		WasLate:    wasLate,
	}, nil
}

// CheckOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.MarkResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.MarkResponse{}, err
	}

	now := a.now().In(a.policy.Location)
	day := a.policy.DayOf(now)

	existing, err := a.attendanceRepo.FindByUserAndDate(ctx, req.UserID, day)
	if err != nil {
		return attendance.MarkResponse{}, fmt.Errorf("failed to look up today's attendance: %w", err)
	}
	if existing == nil || !existing.HasCheckedIn() {
		return attendance.MarkResponse{}, attendance.ErrNotCheckedIn
	}
	if existing.HasCheckedOut() {
		return attendance.MarkResponse{}, attendance.ErrAlreadyCheckedOut
	}
	if !now.After(*existing.CheckInTime) {
		return attendance.MarkResponse{}, attendance.ErrInvalidTimeOrdering
	}

	hoursWorked := a.policy.HoursBetween(*existing.CheckInTime, now)
	// May downgrade present/late to half-day
	status := a.policy.Classify(day, existing.CheckInTime, &now, existing.IsManualEntry, nil)

	result, err := a.attendanceRepo.ApplyCheckOut(ctx, attendance.CheckOutUpdate{
		UserID:       req.UserID,
		Date:         day,
		CheckOutTime: now,
		Status:       status,
		TotalHours:   hoursWorked,
		Remark:       trimmedOrNil(req.Location),
	})
	if err != nil {
		if errors.Is(err, attendance.ErrNotCheckedIn) || errors.Is(err, attendance.ErrAlreadyCheckedOut) {
			return attendance.MarkResponse{}, err
		}
		return attendance.MarkResponse{}, fmt.Errorf("failed to record check-out: %w", err)
	}

	wasEarlyExit := a.policy.IsEarlyExit(now, day)
	slog.InfoContext(ctx, "Attendance checked out",
		"user_id", req.UserID, "date", day.Format("2006-01-02"), "status", status,
		"total_hours", hoursWorked, "early_exit", wasEarlyExit)

	return attendance.MarkResponse{
		Attendance:   a.mapAttendanceToResponse(result),
		WasLate:      a.policy.IsLate(*existing.CheckInTime, day),
		WasEarlyExit: wasEarlyExit,
	}, nil
}

// GetToday implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetToday(ctx context.Context, userID string) (attendance.TodayStatusResponse, error) {
	now := a.now().In(a.policy.Location)
	day := a.policy.DayOf(now)

	resp := attendance.TodayStatusResponse{Date: day.Format("2006-01-02")}

	existing, err := a.attendanceRepo.FindByUserAndDate(ctx, userID, day)
	if err != nil {
		return attendance.TodayStatusResponse{}, fmt.Errorf("failed to look up today's attendance: %w", err)
	}

	switch {
	case existing == nil || !existing.HasCheckedIn():
		resp.CanCheckIn = true
		resp.Message = "You have not checked in today"
	case !existing.HasCheckedOut():
		resp.HasCheckedIn = true
		resp.CanCheckOut = true
		resp.Message = "You are checked in"
	default:
		resp.HasCheckedIn = true
		resp.HasCheckedOut = true
		resp.Message = "Attendance for today is complete"
	}

	if existing != nil {
		today := a.mapAttendanceToResponse(*existing)
		resp.TodayAttendance = &today
	}

	return resp, nil
}

// ========================================
// MANUAL ENTRY
// ========================================

// parseRecordTime resolves an RFC3339 timestamp, or a wall-clock time on day,
// and requires the result to fall on day.
func (a *AttendanceServiceImpl) parseRecordTime(field string, raw *string, day time.Time) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)

	var parsed time.Time
	if t, ok := validator.IsValidDateTime(value); ok {
		parsed = t.In(a.policy.Location)
	} else if c, ok := validator.IsValidClockTime(value); ok {
		parsed = time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), c.Second(), 0, a.policy.Location)
	} else {
		return nil, validator.ValidationErrors{{
			Field:   field,
			Message: field + " must be RFC3339 or HH:MM[:SS]",
		}}
	}

	if !attendance.WithinDay(parsed, day) {
		return nil, validator.ValidationErrors{{
			Field:   field,
			Message: field + " must fall on the record date",
		}}
	}
	return &parsed, nil
}

func parseStatusOverride(raw *string) (*attendance.Status, error) {
	if raw == nil {
		return nil, nil
	}
	status, err := attendance.ParseStatus(*raw)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// CreateManual implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CreateManual(ctx context.Context, req attendance.CreateManualRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	parsedDate, _ := validator.IsValidDate(req.Date)
	day := attendance.DateOnly(parsedDate, a.policy.Location)

	override, err := parseStatusOverride(req.Status)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	checkIn, err := a.parseRecordTime("check_in_time", req.CheckInTime, day)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	checkOut, err := a.parseRecordTime("check_out_time", req.CheckOutTime, day)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	data := attendance.Attendance{
		UserID:        strings.TrimSpace(req.UserID),
		Date:          day,
		CheckInTime:   checkIn,
		CheckOutTime:  checkOut,
		TotalHours:    attendance.TotalHours(checkIn, checkOut),
		IsManualEntry: true,
		Remarks:       trimmedOrNil(req.Remarks),
		CreatedBy:     req.AdminID,
	}
	if err := data.ValidateTimes(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	// Classification is only a fallback when the administrator omits status
	data.Status = a.policy.Classify(day, checkIn, checkOut, true, override)

	created, err := a.attendanceRepo.CreateManual(ctx, data)
	if err != nil {
		if errors.Is(err, attendance.ErrDuplicateRecord) {
			return attendance.AttendanceResponse{}, attendance.ErrDuplicateRecord
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to create manual attendance: %w", err)
	}

	slog.InfoContext(ctx, "Manual attendance created",
		"admin_id", req.AdminID, "user_id", created.UserID, "date", req.Date, "status", created.Status)

	return a.mapAttendanceToResponse(created), nil
}

// UpdateManual implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) UpdateManual(ctx context.Context, req attendance.UpdateManualRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	current, err := a.attendanceRepo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, attendance.ErrNotFound) {
			return attendance.AttendanceResponse{}, attendance.ErrNotFound
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}

	override, err := parseStatusOverride(req.Status)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	checkIn, err := a.parseRecordTime("check_in_time", req.CheckInTime, current.Date)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	checkOut, err := a.parseRecordTime("check_out_time", req.CheckOutTime, current.Date)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	patch := attendance.AttendancePatch{
		Status:        override,
		CheckInTime:   checkIn,
		CheckOutTime:  checkOut,
		Remarks:       req.Remarks,
		IsManualEntry: req.IsManualEntry,
		UpdatedBy:     req.AdminID,
		Reclassify:    a.policy.ClassifyRecord,
	}

	// Reject bad ordering before any write; the store re-checks under its lock
	preview := current
	patch.Apply(&preview)
	if err := preview.ValidateTimes(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	updated, err := a.attendanceRepo.UpdateManual(ctx, req.ID, patch)
	if err != nil {
		if errors.Is(err, attendance.ErrNotFound) || errors.Is(err, attendance.ErrInvalidTimeOrdering) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to update attendance: %w", err)
	}

	slog.InfoContext(ctx, "Manual attendance updated",
		"admin_id", req.AdminID, "attendance_id", req.ID, "status", updated.Status)

	return a.mapAttendanceToResponse(updated), nil
}

// DeleteManual implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) DeleteManual(ctx context.Context, adminID string, id string) error {
	if err := a.attendanceRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, attendance.ErrNotFound) {
			return attendance.ErrNotFound
		}
		return fmt.Errorf("failed to delete attendance: %w", err)
	}

	slog.InfoContext(ctx, "Attendance deleted", "admin_id", adminID, "attendance_id", id)
	return nil
}

// ========================================
// READS
// ========================================

// GetAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetAttendance(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	att, err := a.attendanceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, attendance.ErrNotFound) {
			return attendance.AttendanceResponse{}, attendance.ErrNotFound
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}

	return a.mapAttendanceToResponse(att), nil
}

// ListAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	attendances, total, err := a.attendanceRepo.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(attendances))
	for _, att := range attendances {
		responses = append(responses, a.mapAttendanceToResponse(att))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

// mapAttendanceToResponse converts an Attendance entity to AttendanceResponse
func (a *AttendanceServiceImpl) mapAttendanceToResponse(att attendance.Attendance) attendance.AttendanceResponse {
	resp := attendance.AttendanceResponse{
		ID:            att.ID,
		UserID:        att.UserID,
		Date:          att.Date.Format("2006-01-02"),
		CheckInTime:   a.timePtrToString(att.CheckInTime),
		CheckOutTime:  a.timePtrToString(att.CheckOutTime),
		Status:        string(att.Status),
		TotalHours:    att.TotalHours,
		IsManualEntry: att.IsManualEntry,
		Remarks:       att.Remarks,
		CreatedBy:     att.CreatedBy,
		CreatedAt:     att.CreatedAt.In(a.policy.Location).Format(displayTimeLayout),
		UpdatedAt:     att.UpdatedAt.In(a.policy.Location).Format(displayTimeLayout),
	}

	if att.CheckInTime != nil {
		resp.IsLate = a.policy.IsLate(*att.CheckInTime, att.Date)
		if mins := a.policy.LateMinutes(*att.CheckInTime, att.Date); mins > 0 {
			resp.LateMinutes = &mins
		}
	}
	if att.CheckOutTime != nil {
		resp.IsEarlyExit = a.policy.IsEarlyExit(*att.CheckOutTime, att.Date)
		if mins := a.policy.EarlyExitMinutes(*att.CheckOutTime, att.Date); mins > 0 {
			resp.EarlyExitMinutes = &mins
		}
	}

	return resp
}
