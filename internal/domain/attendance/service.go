package attendance

import (
	"context"
)

// AttendanceService defines business logic for attendance operations
type AttendanceService interface {
	// CheckIn records the caller's arrival for today
	CheckIn(ctx context.Context, req CheckInRequest) (MarkResponse, error)

	// CheckOut closes the caller's record for today
	CheckOut(ctx context.Context, req CheckOutRequest) (MarkResponse, error)

	// GetToday reports what the caller can do next today
	GetToday(ctx context.Context, userID string) (TodayStatusResponse, error)

	// CreateManual lets an administrator author a record directly
	CreateManual(ctx context.Context, req CreateManualRequest) (AttendanceResponse, error)

	// UpdateManual lets an administrator correct any editable field of a record
	UpdateManual(ctx context.Context, req UpdateManualRequest) (AttendanceResponse, error)

	// DeleteManual removes a record
	DeleteManual(ctx context.Context, adminID string, id string) error

	// GetAttendance retrieves a single record by ID
	GetAttendance(ctx context.Context, id string) (AttendanceResponse, error)

	// ListAttendance retrieves records with filters
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)
}
