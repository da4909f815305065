package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/google/uuid"
)

type dayKey struct {
	userID string
	date   string
}

func keyOf(userID string, date time.Time) dayKey {
	return dayKey{userID: userID, date: date.Format("2006-01-02")}
}

type attendanceRepositoryImpl struct {
	mu    sync.RWMutex
	loc   *time.Location
	byID  map[string]attendance.Attendance
	byDay map[dayKey]string
	now   func() time.Time
}

// NewAttendanceRepository returns a process-local store. Every write runs
// under one mutex, so the (user, day) key check and the write are atomic.
func NewAttendanceRepository(loc *time.Location) attendance.AttendanceRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceRepositoryImpl{
		loc:   loc,
		byID:  make(map[string]attendance.Attendance),
		byDay: make(map[dayKey]string),
		now:   time.Now,
	}
}

func (r *attendanceRepositoryImpl) stamp() time.Time {
	return r.now().UTC()
}

// FindByUserAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) FindByUserAndDate(_ context.Context, userID string, date time.Time) (*attendance.Attendance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDay[keyOf(userID, date)]
	if !ok {
		return nil, nil
	}
	att := r.byID[id]
	return &att, nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) GetByID(_ context.Context, id string) (attendance.Attendance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	att, ok := r.byID[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return att, nil
}

// UpsertCheckIn implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) UpsertCheckIn(_ context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	att.Date = attendance.DateOnly(att.Date, r.loc)
	key := keyOf(att.UserID, att.Date)
	now := r.stamp()

	if id, ok := r.byDay[key]; ok {
		existing := r.byID[id]
		if existing.HasCheckedIn() {
			return attendance.Attendance{}, attendance.ErrAlreadyCheckedIn
		}
		// Fill a pre-existing record (e.g. an administrator's absent entry)
		existing.CheckInTime = att.CheckInTime
		existing.Status = att.Status
		existing.Remarks = attendance.AppendRemark(existing.Remarks, att.Remarks)
		existing.UpdatedAt = now
		r.byID[id] = existing
		return existing, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Attendance{}, err
	}
	att.ID = id.String()
	att.CreatedAt = now
	att.UpdatedAt = now
	r.byID[att.ID] = att
	r.byDay[key] = att.ID
	return att, nil
}

// ApplyCheckOut implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ApplyCheckOut(_ context.Context, upd attendance.CheckOutUpdate) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byDay[keyOf(upd.UserID, attendance.DateOnly(upd.Date, r.loc))]
	if !ok {
		return attendance.Attendance{}, attendance.ErrNotCheckedIn
	}
	existing := r.byID[id]
	if !existing.HasCheckedIn() {
		return attendance.Attendance{}, attendance.ErrNotCheckedIn
	}
	if existing.HasCheckedOut() {
		return attendance.Attendance{}, attendance.ErrAlreadyCheckedOut
	}

	checkOut := upd.CheckOutTime
	hours := upd.TotalHours
	existing.CheckOutTime = &checkOut
	existing.TotalHours = &hours
	existing.Status = upd.Status
	existing.Remarks = attendance.AppendRemark(existing.Remarks, upd.Remark)
	existing.UpdatedAt = r.stamp()
	r.byID[id] = existing
	return existing, nil
}

// CreateManual implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) CreateManual(_ context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	att.Date = attendance.DateOnly(att.Date, r.loc)
	key := keyOf(att.UserID, att.Date)
	if _, ok := r.byDay[key]; ok {
		return attendance.Attendance{}, attendance.ErrDuplicateRecord
	}

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Attendance{}, err
	}
	now := r.stamp()
	att.ID = id.String()
	att.CreatedAt = now
	att.UpdatedAt = now
	r.byID[att.ID] = att
	r.byDay[key] = att.ID
	return att, nil
}

// UpdateManual implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) UpdateManual(_ context.Context, id string, patch attendance.AttendancePatch) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}

	patch.Apply(&existing)
	if err := existing.ValidateTimes(); err != nil {
		return attendance.Attendance{}, err
	}
	existing.UpdatedAt = r.stamp()
	r.byID[id] = existing
	return existing, nil
}

// Delete implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return attendance.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byDay, keyOf(existing.UserID, existing.Date))
	return nil
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) List(_ context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	r.mu.RLock()
	matched := make([]attendance.Attendance, 0, len(r.byID))
	for _, att := range r.byID {
		if matchesFilter(att, filter) {
			matched = append(matched, att)
		}
	}
	r.mu.RUnlock()

	sortAttendances(matched, filter.SortBy, strings.EqualFold(filter.SortOrder, "asc"))

	total := int64(len(matched))
	if filter.Limit <= 0 {
		return matched, total, nil
	}
	page := max(filter.Page, 1)
	start := (page - 1) * filter.Limit
	if start >= len(matched) {
		return []attendance.Attendance{}, total, nil
	}
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], total, nil
}

// ListInRange implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListInRange(_ context.Context, q attendance.RangeQuery) ([]attendance.Attendance, error) {
	from := q.From.Format("2006-01-02")
	to := q.To.Format("2006-01-02")

	users := make(map[string]struct{}, len(q.UserIDs))
	for _, u := range q.UserIDs {
		users[u] = struct{}{}
	}

	r.mu.RLock()
	result := make([]attendance.Attendance, 0)
	for key, id := range r.byDay {
		if key.date < from || key.date > to {
			continue
		}
		if len(users) > 0 {
			if _, ok := users[key.userID]; !ok {
				continue
			}
		}
		result = append(result, r.byID[id])
	}
	r.mu.RUnlock()

	sortAttendances(result, "date", true)
	return result, nil
}

func matchesFilter(att attendance.Attendance, f attendance.AttendanceFilter) bool {
	date := att.Date.Format("2006-01-02")
	if f.UserID != nil && *f.UserID != "" && att.UserID != *f.UserID {
		return false
	}
	if f.Date != nil && *f.Date != "" && date != *f.Date {
		return false
	}
	if f.StartDate != nil && *f.StartDate != "" && date < *f.StartDate {
		return false
	}
	if f.EndDate != nil && *f.EndDate != "" && date > *f.EndDate {
		return false
	}
	if f.Status != nil && *f.Status != "" && string(att.Status) != *f.Status {
		return false
	}
	if f.IsManualEntry != nil && att.IsManualEntry != *f.IsManualEntry {
		return false
	}
	return true
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func hoursOrZero(h *float64) float64 {
	if h == nil {
		return 0
	}
	return *h
}

// sortAttendances orders records by the given column, breaking ties by user id.
func sortAttendances(list []attendance.Attendance, sortBy string, asc bool) {
	less := func(a, b attendance.Attendance) int {
		switch sortBy {
		case "check_in_time":
			return timeOrZero(a.CheckInTime).Compare(timeOrZero(b.CheckInTime))
		case "check_out_time":
			return timeOrZero(a.CheckOutTime).Compare(timeOrZero(b.CheckOutTime))
		case "status":
			return strings.Compare(string(a.Status), string(b.Status))
		case "total_hours":
			ha, hb := hoursOrZero(a.TotalHours), hoursOrZero(b.TotalHours)
			switch {
			case ha < hb:
				return -1
			case ha > hb:
				return 1
			}
			return 0
		default:
			return a.Date.Compare(b.Date)
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		c := less(list[i], list[j])
		if c == 0 {
			return list[i].UserID < list[j].UserID
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}
