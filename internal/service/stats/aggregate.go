package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/stats"
)

// DepartmentLookup resolves a user's department. An empty result means unassigned.
type DepartmentLookup func(userID string) string

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Summarize rolls up a record set. An empty set yields a zero percentage.
func Summarize(records []attendance.Attendance) stats.Summary {
	var (
		s         stats.Summary
		hours     float64
		withHours int
	)

	for _, r := range records {
		s.Total++
		switch r.Status {
		case attendance.StatusPresent:
			s.Present++
		case attendance.StatusAbsent:
			s.Absent++
		case attendance.StatusLate:
			s.Late++
		case attendance.StatusHalfDay:
			s.HalfDay++
		}
		if r.TotalHours != nil {
			hours += *r.TotalHours
			withHours++
		}
	}

	s.TotalHours = round2(hours)
	if withHours > 0 {
		s.AverageHours = round2(hours / float64(withHours))
	}
	if s.Total > 0 {
		s.AttendancePercentage = round2(float64(s.Present+s.Late+s.HalfDay) / float64(s.Total) * 100)
	}
	return s
}

func distinctUsers(records []attendance.Attendance) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.UserID] = struct{}{}
	}
	return len(seen)
}

// bucket partitions records by key, returning keys sorted ascending.
func bucket(records []attendance.Attendance, key func(attendance.Attendance) string) ([]string, map[string][]attendance.Attendance) {
	groups := make(map[string][]attendance.Attendance)
	for _, r := range records {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

// GroupByDay returns per-day summaries, oldest day first.
func GroupByDay(records []attendance.Attendance) []stats.DailySummary {
	keys, groups := bucket(records, func(a attendance.Attendance) string {
		return a.Date.Format("2006-01-02")
	})

	result := make([]stats.DailySummary, 0, len(keys))
	for _, day := range keys {
		result = append(result, stats.DailySummary{
			Date:           day,
			TotalEmployees: distinctUsers(groups[day]),
			Summary:        Summarize(groups[day]),
		})
	}
	return result
}

// GroupByWeek returns per-ISO-week summaries labelled "YYYY-Www", oldest first.
func GroupByWeek(records []attendance.Attendance) []stats.PeriodSummary {
	keys, groups := bucket(records, func(a attendance.Attendance) string {
		year, week := a.Date.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	})

	result := make([]stats.PeriodSummary, 0, len(keys))
	for _, period := range keys {
		result = append(result, stats.PeriodSummary{Period: period, Summary: Summarize(groups[period])})
	}
	return result
}

// GroupByUser maps each user to the summary of their records.
func GroupByUser(records []attendance.Attendance) map[string]stats.Summary {
	_, groups := bucket(records, func(a attendance.Attendance) string { return a.UserID })

	result := make(map[string]stats.Summary, len(groups))
	for userID, recs := range groups {
		result[userID] = Summarize(recs)
	}
	return result
}

// RankUsers orders per-user summaries by attendance percentage, highest first.
// Ties fall back to user id so the order is stable.
func RankUsers(byUser map[string]stats.Summary) []stats.UserSummary {
	result := make([]stats.UserSummary, 0, len(byUser))
	for userID, s := range byUser {
		result = append(result, stats.UserSummary{UserID: userID, Summary: s})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AttendancePercentage != result[j].AttendancePercentage {
			return result[i].AttendancePercentage > result[j].AttendancePercentage
		}
		return result[i].UserID < result[j].UserID
	})
	return result
}

// GroupByDepartment maps departments to summaries. Every name in departments
// appears even when no record falls into it.
func GroupByDepartment(records []attendance.Attendance, lookup DepartmentLookup, departments []string) map[string]stats.DepartmentSummary {
	_, groups := bucket(records, func(a attendance.Attendance) string {
		return departmentOf(lookup, a.UserID)
	})

	result := make(map[string]stats.DepartmentSummary, len(groups)+len(departments))
	for _, d := range departments {
		result[d] = stats.DepartmentSummary{Department: d}
	}
	for d, recs := range groups {
		result[d] = stats.DepartmentSummary{
			Department:     d,
			TotalEmployees: distinctUsers(recs),
			Summary:        Summarize(recs),
		}
	}
	return result
}

// SortDepartments flattens a department mapping into name order.
func SortDepartments(byDepartment map[string]stats.DepartmentSummary) []stats.DepartmentSummary {
	result := make([]stats.DepartmentSummary, 0, len(byDepartment))
	for _, d := range byDepartment {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Department < result[j].Department })
	return result
}

func departmentOf(lookup DepartmentLookup, userID string) string {
	if lookup == nil {
		return employee.UnassignedDepartment
	}
	if d := lookup(userID); d != "" {
		return d
	}
	return employee.UnassignedDepartment
}

// MonthlyTrend returns monthsBack calendar months ending with the month of now,
// oldest first. Months without records carry zero stats.
func MonthlyTrend(records []attendance.Attendance, now time.Time, monthsBack int) []stats.PeriodSummary {
	if monthsBack < 1 {
		return []stats.PeriodSummary{}
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	periods := make([]string, 0, monthsBack)
	for i := monthsBack - 1; i >= 0; i-- {
		periods = append(periods, first.AddDate(0, -i, 0).Format("2006-01"))
	}

	_, groups := bucket(records, func(a attendance.Attendance) string {
		return a.Date.Format("2006-01")
	})

	result := make([]stats.PeriodSummary, 0, monthsBack)
	for _, p := range periods {
		result = append(result, stats.PeriodSummary{Period: p, Summary: Summarize(groups[p])})
	}
	return result
}

// TrendWindow returns the inclusive date range MonthlyTrend covers.
func TrendWindow(now time.Time, monthsBack int) (from, to time.Time) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	from = first.AddDate(0, -(monthsBack - 1), 0)
	to = first.AddDate(0, 1, -1)
	return from, to
}
