package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/user"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Marking state machine
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		Conflict(w, "ALREADY_CHECKED_IN", err.Error())
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Conflict(w, "ALREADY_CHECKED_OUT", err.Error())
	case errors.Is(err, attendance.ErrNotCheckedIn):
		Conflict(w, "NOT_CHECKED_IN", err.Error())

	// Manual entries
	case errors.Is(err, attendance.ErrDuplicateRecord):
		Conflict(w, "DUPLICATE_RECORD", err.Error())
	case errors.Is(err, attendance.ErrInvalidTimeOrdering):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrInvalidStatus):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrNotFound):
		NotFound(w, "Attendance record not found")

	// Identity
	case errors.Is(err, user.ErrInvalidToken), errors.Is(err, user.ErrMissingIdentity):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrAdminPrivilegeRequired), errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, err.Error())

	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
