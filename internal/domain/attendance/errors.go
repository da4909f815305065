package attendance

import "errors"

// Attendance domain errors
var (
	// State machine errors
	ErrAlreadyCheckedIn  = errors.New("you have already checked in today")
	ErrAlreadyCheckedOut = errors.New("you have already checked out today")
	ErrNotCheckedIn      = errors.New("you have not checked in yet")

	// Manual entry errors
	ErrDuplicateRecord     = errors.New("an attendance record already exists for this user and date")
	ErrInvalidTimeOrdering = errors.New("check-out time must be after check-in time")
	ErrInvalidStatus       = errors.New("status must be one of: present, absent, late, half-day")

	// General errors
	ErrNotFound = errors.New("attendance record not found")
)
