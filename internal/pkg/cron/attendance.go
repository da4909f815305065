package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/employee"
	attendanceService "github.com/cmlabs-hris/attendance-tracker/internal/service/attendance"
)

// SystemActor is recorded as the author of records created by background jobs.
const SystemActor = "system"

type AttendanceJobs struct {
	attendanceRepo attendance.AttendanceRepository
	directory      employee.Directory
	policy         attendanceService.ClockPolicy
	now            attendanceService.Clock

	mu      sync.Mutex
	lastRun time.Time
}

func NewAttendanceJobs(
	attendanceRepo attendance.AttendanceRepository,
	directory employee.Directory,
	policy attendanceService.ClockPolicy,
	clock attendanceService.Clock,
) *AttendanceJobs {
	if clock == nil {
		clock = time.Now
	}
	return &AttendanceJobs{
		attendanceRepo: attendanceRepo,
		directory:      directory,
		policy:         policy,
		now:            clock,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("mark_absent_users", interval, j.MarkAbsentUsers)
}

// MarkAbsentUsers creates an absent record for every active user with no
// record today. It does nothing before the end of the working day. A day is
// finished once every active user has a record; failed writes leave it open so
// the next tick retries them.
func (j *AttendanceJobs) MarkAbsentUsers(ctx context.Context) error {
	now := j.now().In(j.policy.Location)
	day := j.policy.DayOf(now)
	if now.Before(j.policy.WorkEnd.On(day)) {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lastRun.Equal(day) {
		return nil
	}

	slog.InfoContext(ctx, "Cron: Starting mark absent users job", "date", day.Format("2006-01-02"))

	users, err := j.directory.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active users: %w", err)
	}

	marked, skipped := 0, 0
	var failures []error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := j.attendanceRepo.CreateManual(ctx, attendance.Attendance{
			UserID:        u.UserID,
			Date:          day,
			Status:        attendance.StatusAbsent,
			IsManualEntry: true,
			CreatedBy:     SystemActor,
		})
		switch {
		case err == nil:
			marked++
		case errors.Is(err, attendance.ErrDuplicateRecord):
			skipped++
		default:
			slog.ErrorContext(ctx, "Cron: Failed to mark user absent", "user_id", u.UserID, "error", err)
			failures = append(failures, fmt.Errorf("user %s: %w", u.UserID, err))
		}
	}

	if len(failures) > 0 {
		slog.WarnContext(ctx, "Cron: Mark absent users incomplete",
			"date", day.Format("2006-01-02"), "marked", marked, "failed", len(failures))
		return fmt.Errorf("mark absent for %s: %w", day.Format("2006-01-02"), errors.Join(failures...))
	}

	j.lastRun = day
	slog.InfoContext(ctx, "Cron: Marked absent users", "marked", marked, "already_recorded", skipped)
	return nil
}
