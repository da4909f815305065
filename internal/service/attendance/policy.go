package attendance

import (
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/validator"
)

// Clock returns the current instant. Services never read the wall clock directly.
type Clock func() time.Time

// TimeOfDay is an hour:minute offset from local midnight.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS"; seconds are ignored.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, ok := validator.IsValidClockTime(s)
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On returns the instant this time of day occurs on day.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ClockPolicy holds the working-hours configuration and derives statuses from timestamps.
// It has no state and never touches storage.
type ClockPolicy struct {
	WorkStart             TimeOfDay
	WorkEnd               TimeOfDay
	GracePeriodMinutes    int
	HalfDayThresholdHours float64
	Location              *time.Location
}

func NewClockPolicy(workStart, workEnd string, gracePeriodMinutes int, halfDayThresholdHours float64, loc *time.Location) (ClockPolicy, error) {
	start, err := ParseTimeOfDay(workStart)
	if err != nil {
		return ClockPolicy{}, fmt.Errorf("work start: %w", err)
	}
	end, err := ParseTimeOfDay(workEnd)
	if err != nil {
		return ClockPolicy{}, fmt.Errorf("work end: %w", err)
	}
	if end.Hour*60+end.Minute <= start.Hour*60+start.Minute {
		return ClockPolicy{}, fmt.Errorf("work end %s must be after work start %s", end, start)
	}
	if gracePeriodMinutes < 0 {
		return ClockPolicy{}, fmt.Errorf("grace period must not be negative")
	}
	if halfDayThresholdHours <= 0 {
		halfDayThresholdHours = 4
	}
	if loc == nil {
		loc = time.UTC
	}

	return ClockPolicy{
		WorkStart:             start,
		WorkEnd:               end,
		GracePeriodMinutes:    gracePeriodMinutes,
		HalfDayThresholdHours: halfDayThresholdHours,
		Location:              loc,
	}, nil
}

// DayOf returns local midnight of the day t falls on.
func (p ClockPolicy) DayOf(t time.Time) time.Time {
	return attendance.DayIn(t, p.Location)
}

func (p ClockPolicy) workStart(day time.Time) time.Time {
	return p.WorkStart.On(p.DayOf(day))
}

func (p ClockPolicy) workEnd(day time.Time) time.Time {
	return p.WorkEnd.On(p.DayOf(day))
}

// graceLimit is the last instant that still counts as on time.
func (p ClockPolicy) graceLimit(day time.Time) time.Time {
	return p.workStart(day).Add(time.Duration(p.GracePeriodMinutes) * time.Minute)
}

// IsLate reports whether checkIn is strictly after work start plus the grace period.
func (p ClockPolicy) IsLate(checkIn time.Time, day time.Time) bool {
	return checkIn.After(p.graceLimit(day))
}

// IsEarlyExit reports whether checkOut is strictly before work end.
func (p ClockPolicy) IsEarlyExit(checkOut time.Time, day time.Time) bool {
	return checkOut.Before(p.workEnd(day))
}

// LateMinutes counts whole minutes past the scheduled start, not past the grace limit.
// It is zero for on-time check-ins.
func (p ClockPolicy) LateMinutes(checkIn time.Time, day time.Time) int {
	if !p.IsLate(checkIn, day) {
		return 0
	}
	return int(math.Floor(checkIn.Sub(p.workStart(day)).Minutes()))
}

// EarlyExitMinutes counts whole minutes between checkOut and work end.
func (p ClockPolicy) EarlyExitMinutes(checkOut time.Time, day time.Time) int {
	if !p.IsEarlyExit(checkOut, day) {
		return 0
	}
	return int(math.Floor(p.workEnd(day).Sub(checkOut).Minutes()))
}

// HoursBetween returns the worked hours rounded to two decimals.
func (p ClockPolicy) HoursBetween(checkIn, checkOut time.Time) float64 {
	return attendance.RoundHours(checkOut.Sub(checkIn).Hours())
}

// Classify derives a status. Precedence: explicit override, absent (no check-in),
// half-day (both times, worked less than the threshold), late, present.
// Half-day wins over late.
func (p ClockPolicy) Classify(day time.Time, checkIn, checkOut *time.Time, isManual bool, override *attendance.Status) attendance.Status {
	if override != nil {
		return *override
	}
	if checkIn == nil {
		return attendance.StatusAbsent
	}
	if checkOut != nil && checkOut.Sub(*checkIn).Hours() < p.HalfDayThresholdHours {
		return attendance.StatusHalfDay
	}
	if p.IsLate(*checkIn, day) {
		return attendance.StatusLate
	}
	return attendance.StatusPresent
}

// ClassifyRecord derives the status of a stored record from its own timestamps.
func (p ClockPolicy) ClassifyRecord(a attendance.Attendance) attendance.Status {
	return p.Classify(a.Date, a.CheckInTime, a.CheckOutTime, a.IsManualEntry, nil)
}
