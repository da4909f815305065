package attendance

import (
	"strings"

	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/validator"
)

const maxRemarksLength = 500

// ========================================
// CHECK-IN / CHECK-OUT DTOs
// ========================================

type CheckInRequest struct {
	UserID   string  `json:"-"`
	Location *string `json:"location,omitempty"`
}

func (r *CheckInRequest) Validate() error {
	return validateMark(r.UserID, r.Location)
}

type CheckOutRequest struct {
	UserID   string  `json:"-"`
	Location *string `json:"location,omitempty"`
}

func (r *CheckOutRequest) Validate() error {
	return validateMark(r.UserID, r.Location)
}

func validateMark(userID string, location *string) error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(userID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if location != nil && len(*location) > 255 {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "location must not exceed 255 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MarkResponse struct {
	Attendance   AttendanceResponse `json:"attendance"`
	WasLate      bool               `json:"was_late"`
	WasEarlyExit bool               `json:"was_early_exit"`
}

type TodayStatusResponse struct {
	Date            string              `json:"date"`
	HasCheckedIn    bool                `json:"has_checked_in"`
	HasCheckedOut   bool                `json:"has_checked_out"`
	CanCheckIn      bool                `json:"can_check_in"`
	CanCheckOut     bool                `json:"can_check_out"`
	TodayAttendance *AttendanceResponse `json:"today_attendance,omitempty"`
	Message         string              `json:"message"`
}

type AttendanceResponse struct {
	ID               string   `json:"id"`
	UserID           string   `json:"user_id"`
	Date             string   `json:"date"`
	CheckInTime      *string  `json:"check_in_time,omitempty"`
	CheckOutTime     *string  `json:"check_out_time,omitempty"`
	Status           string   `json:"status"`
	TotalHours       *float64 `json:"total_hours,omitempty"`
	IsLate           bool     `json:"is_late"`
	IsEarlyExit      bool     `json:"is_early_exit"`
	LateMinutes      *int     `json:"late_minutes,omitempty"`
	EarlyExitMinutes *int     `json:"early_exit_minutes,omitempty"`
	IsManualEntry    bool     `json:"is_manual_entry"`
	Remarks          *string  `json:"remarks,omitempty"`
	CreatedBy        string   `json:"created_by"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// ========================================
// MANUAL ENTRY DTOs
// ========================================

// CreateManualRequest for administrators authoring a record directly.
// Times accept RFC3339 or HH:MM[:SS] on the record date.
type CreateManualRequest struct {
	AdminID      string  `json:"-"`
	UserID       string  `json:"user_id"`
	Date         string  `json:"date"` // YYYY-MM-DD
	Status       *string `json:"status,omitempty"`
	CheckInTime  *string `json:"check_in_time,omitempty"`
	CheckOutTime *string `json:"check_out_time,omitempty"`
	Remarks      *string `json:"remarks,omitempty"`
}

func (r *CreateManualRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AdminID) {
		errs = append(errs, validator.ValidationError{
			Field:   "admin_id",
			Message: "admin_id is required",
		})
	}

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if validator.IsEmpty(r.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if r.Remarks != nil && len(*r.Remarks) > maxRemarksLength {
		errs = append(errs, validator.ValidationError{
			Field:   "remarks",
			Message: "remarks must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// UpdateManualRequest for administrators correcting an existing record
type UpdateManualRequest struct {
	ID            string  `json:"-"`
	AdminID       string  `json:"-"`
	Status        *string `json:"status,omitempty"`
	CheckInTime   *string `json:"check_in_time,omitempty"`
	CheckOutTime  *string `json:"check_out_time,omitempty"`
	Remarks       *string `json:"remarks,omitempty"`
	IsManualEntry *bool   `json:"is_manual_entry,omitempty"`
}

func (r *UpdateManualRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}

	if validator.IsEmpty(r.AdminID) {
		errs = append(errs, validator.ValidationError{
			Field:   "admin_id",
			Message: "admin_id is required",
		})
	}

	if r.Status == nil && r.CheckInTime == nil && r.CheckOutTime == nil && r.Remarks == nil && r.IsManualEntry == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "body",
			Message: "at least one field must be provided",
		})
	}

	if r.Remarks != nil && len(*r.Remarks) > maxRemarksLength {
		errs = append(errs, validator.ValidationError{
			Field:   "remarks",
			Message: "remarks must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========================================
// LISTING DTOs
// ========================================

type AttendanceFilter struct {
	// Search & Filter
	UserID        *string `json:"user_id,omitempty"`
	Date          *string `json:"date,omitempty"`       // YYYY-MM-DD
	StartDate     *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate       *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status        *string `json:"status,omitempty"`
	IsManualEntry *bool   `json:"is_manual_entry,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, check_in_time, check_out_time, status, total_hours
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Status != nil && !Status(*f.Status).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: present, absent, late, half-day",
		})
	}

	for field, value := range map[string]*string{"date": f.Date, "start_date": f.StartDate, "end_date": f.EndDate} {
		if value != nil && *value != "" {
			if _, valid := validator.IsValidDate(*value); !valid {
				errs = append(errs, validator.ValidationError{
					Field:   field,
					Message: field + " must be in YYYY-MM-DD format",
				})
			}
		}
	}

	if f.SortBy != "" {
		validSortFields := []string{"date", "check_in_time", "check_out_time", "status", "total_hours"}
		if !validator.IsInSlice(f.SortBy, validSortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: date, check_in_time, check_out_time, status, total_hours",
			})
		}
	} else {
		f.SortBy = "date"
	}

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc" // newest first
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}
