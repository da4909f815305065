package attendance

import (
	"context"
	"time"
)

// AttendanceRepository is the record store. Every implementation enforces the
// (user_id, date) uniqueness as an atomic constraint; the constraint violation,
// not a preceding lookup, is what produces ErrAlreadyCheckedIn and ErrDuplicateRecord.
type AttendanceRepository interface {
	// FindByUserAndDate returns nil, nil when the user has no record for the day
	FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*Attendance, error)

	// GetByID retrieves a record or ErrNotFound
	GetByID(ctx context.Context, id string) (Attendance, error)

	// UpsertCheckIn creates the day's record, or fills the check-in of an existing
	// record that has none. Fails with ErrAlreadyCheckedIn otherwise.
	UpsertCheckIn(ctx context.Context, att Attendance) (Attendance, error)

	// ApplyCheckOut closes an open record, appending update.Remark to existing remarks.
	// Fails with ErrNotCheckedIn or ErrAlreadyCheckedOut.
	ApplyCheckOut(ctx context.Context, update CheckOutUpdate) (Attendance, error)

	// CreateManual inserts an administrator-authored record or fails with ErrDuplicateRecord
	CreateManual(ctx context.Context, att Attendance) (Attendance, error)

	// UpdateManual applies patch atomically, re-validating time ordering
	UpdateManual(ctx context.Context, id string, patch AttendancePatch) (Attendance, error)

	// Delete physically removes a record or fails with ErrNotFound
	Delete(ctx context.Context, id string) error

	// List retrieves records with filters and pagination
	List(ctx context.Context, filter AttendanceFilter) ([]Attendance, int64, error)

	// ListInRange scans every record in the date range, used by aggregation
	ListInRange(ctx context.Context, q RangeQuery) ([]Attendance, error)
}
