package stats

import (
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/validator"
)

// maxRangeDays bounds a single aggregation scan
const maxRangeDays = 366

// ========================================
// RESULT SHAPES
// ========================================

// Summary is the roll-up of a set of attendance records
type Summary struct {
	Total                int     `json:"total"`
	Present              int     `json:"present"`
	Absent               int     `json:"absent"`
	Late                 int     `json:"late"`
	HalfDay              int     `json:"half_day"`
	TotalHours           float64 `json:"total_hours"`
	AverageHours         float64 `json:"average_hours"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

type DailySummary struct {
	Date           string `json:"date"` // YYYY-MM-DD
	TotalEmployees int    `json:"total_employees"`
	Summary
}

type UserSummary struct {
	UserID string `json:"user_id"`
	Summary
}

type DepartmentSummary struct {
	Department     string `json:"department"`
	TotalEmployees int    `json:"total_employees"`
	Summary
}

// PeriodSummary is one bucket of a trend series, e.g. "2026-10" or "2026-W42"
type PeriodSummary struct {
	Period string `json:"period"`
	Summary
}

type OverviewResponse struct {
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Summary     Summary             `json:"summary"`
	Daily       []DailySummary      `json:"daily"`
	Departments []DepartmentSummary `json:"departments"`
	TopUsers    []UserSummary       `json:"top_users"`
}

// ========================================
// REQUEST DTOs
// ========================================

type StatsQuery struct {
	StartDate  string  `json:"start_date"` // YYYY-MM-DD
	EndDate    string  `json:"end_date"`   // YYYY-MM-DD
	UserID     *string `json:"user_id,omitempty"`
	Department *string `json:"department,omitempty"`

	// Parsed by Validate
	From time.Time `json:"-"`
	To   time.Time `json:"-"`
}

func (q *StatsQuery) Validate() error {
	var errs validator.ValidationErrors

	from, fromOK := validator.IsValidDate(q.StartDate)
	if !fromOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	to, toOK := validator.IsValidDate(q.EndDate)
	if !toOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if fromOK && toOK {
		if to.Before(from) {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must not be before start_date",
			})
		} else if to.Sub(from).Hours()/24 >= maxRangeDays {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "date range must not exceed 366 days",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	q.From, q.To = from, to
	return nil
}

type TrendRequest struct {
	MonthsBack int     `json:"months_back"`
	UserID     *string `json:"user_id,omitempty"`
	Department *string `json:"department,omitempty"`
}

func (r *TrendRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.MonthsBack == 0 {
		r.MonthsBack = 6
	}
	if r.MonthsBack < 1 || r.MonthsBack > 24 {
		errs = append(errs, validator.ValidationError{
			Field:   "months_back",
			Message: "months_back must be between 1 and 24",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
