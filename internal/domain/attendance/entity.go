package attendance

import (
	"math"
	"slices"
	"strings"
	"time"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusHalfDay Status = "half-day"
)

// Statuses lists every accepted status in display order.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusHalfDay}

func (s Status) IsValid() bool {
	return slices.Contains(Statuses, s)
}

// CountsAsPresent reports whether the status contributes to the attendance rate.
func (s Status) CountsAsPresent() bool {
	return s == StatusPresent || s == StatusLate || s == StatusHalfDay
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts raw input into a Status, rejecting anything outside the enum.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Attendance is the single record of a user on a calendar day.
type Attendance struct {
	ID            string
	UserID        string
	Date          time.Time // local midnight of the working day
	CheckInTime   *time.Time
	CheckOutTime  *time.Time
	Status        Status
	TotalHours    *float64
	IsManualEntry bool
	Remarks       *string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a Attendance) HasCheckedIn() bool {
	return a.CheckInTime != nil
}

func (a Attendance) HasCheckedOut() bool {
	return a.CheckOutTime != nil
}

// ValidateTimes enforces that a check-out is strictly after its check-in.
// A check-out without a check-in is rejected as well.
func (a Attendance) ValidateTimes() error {
	if a.CheckOutTime == nil {
		return nil
	}
	if a.CheckInTime == nil || !a.CheckOutTime.After(*a.CheckInTime) {
		return ErrInvalidTimeOrdering
	}
	return nil
}

// DayIn truncates t to midnight of its calendar day in loc.
func DayIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DateOnly reinterprets a stored calendar date (whatever zone the driver
// returned it in) as local midnight in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// WithinDay reports whether t falls inside the calendar day starting at day.
func WithinDay(t time.Time, day time.Time) bool {
	return !t.Before(day) && t.Before(day.AddDate(0, 0, 1))
}

// RoundHours rounds an hour value to two decimals.
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// TotalHours returns the rounded hours between in and out, or nil when either is missing.
func TotalHours(in, out *time.Time) *float64 {
	if in == nil || out == nil {
		return nil
	}
	h := RoundHours(out.Sub(*in).Hours())
	return &h
}

// AppendRemark joins an extra remark onto existing ones without overwriting them.
func AppendRemark(existing *string, extra *string) *string {
	if extra == nil || strings.TrimSpace(*extra) == "" {
		return existing
	}
	add := strings.TrimSpace(*extra)
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return &add
	}
	joined := *existing + "; " + add
	return &joined
}

// AttendancePatch carries an administrator's partial edit.
// Reclassify, when set, derives the status after timestamps change and no
// explicit status was supplied.
type AttendancePatch struct {
	Status        *Status
	CheckInTime   *time.Time
	CheckOutTime  *time.Time
	Remarks       *string
	IsManualEntry *bool
	UpdatedBy     string
	Reclassify    func(a Attendance) Status
}

// Apply mutates a in place and re-derives total hours.
func (p AttendancePatch) Apply(a *Attendance) {
	timesChanged := false
	if p.CheckInTime != nil {
		a.CheckInTime = p.CheckInTime
		timesChanged = true
	}
	if p.CheckOutTime != nil {
		a.CheckOutTime = p.CheckOutTime
		timesChanged = true
	}
	if p.Remarks != nil {
		a.Remarks = p.Remarks
	}
	if p.IsManualEntry != nil {
		a.IsManualEntry = *p.IsManualEntry
	}
	if p.UpdatedBy != "" {
		a.CreatedBy = p.UpdatedBy
	}

	a.TotalHours = TotalHours(a.CheckInTime, a.CheckOutTime)

	switch {
	case p.Status != nil:
		a.Status = *p.Status
	case timesChanged && p.Reclassify != nil:
		a.Status = p.Reclassify(*a)
	}
}

// CheckOutUpdate is the write applied to an open record on check-out.
type CheckOutUpdate struct {
	UserID       string
	Date         time.Time
	CheckOutTime time.Time
	Status       Status
	TotalHours   float64
	Remark       *string
}

// RangeQuery selects records for aggregation. Both dates are inclusive.
type RangeQuery struct {
	From    time.Time
	To      time.Time
	UserIDs []string
}
