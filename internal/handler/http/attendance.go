package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/user"
	"github.com/cmlabs-hris/attendance-tracker/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-tracker/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	GetToday(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	CreateManual(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// decodeOptionalJSON decodes r.Body into dst; an empty body leaves dst untouched.
func decodeOptionalJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func callerOrUnauthorized(w http.ResponseWriter, r *http.Request) (user.Caller, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrMissingIdentity)
	}
	return caller, ok
}

// recordID reads the {id} URL param. Anything that is not a UUID cannot name a
// record, so it is answered with 404 before reaching the store.
func recordID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.HandleError(w, attendance.ErrNotFound)
		return "", false
	}
	return id, true
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req attendance.CheckInRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		slog.Error("Failed to decode check-in request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.UserID = caller.ID

	result, err := h.attendanceService.CheckIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := "Checked in successfully"
	if result.WasLate {
		message = "Checked in late"
	}
	response.Created(w, message, result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req attendance.CheckOutRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		slog.Error("Failed to decode check-out request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.UserID = caller.ID

	result, err := h.attendanceService.CheckOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Checked out successfully", result)
}

// GetToday implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetToday(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.GetToday(r.Context(), caller.ID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetMyAttendance implements AttendanceHandler. The user filter is always the caller.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	filter, err := parseAttendanceFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	filter.UserID = &caller.ID

	h.writeList(w, r, filter)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAttendanceFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		filter.UserID = &userID
	}

	h.writeList(w, r, filter)
}

func (h *attendanceHandlerImpl) writeList(w http.ResponseWriter, r *http.Request, filter attendance.AttendanceFilter) {
	result, err := h.attendanceService.ListAttendance(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Attendances, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
		Showing:    result.Showing,
	})
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.GetAttendance(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CreateManual implements AttendanceHandler.
func (h *attendanceHandlerImpl) CreateManual(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req attendance.CreateManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode manual attendance request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.AdminID = caller.ID

	result, err := h.attendanceService.CreateManual(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance record created", result)
}

// Update implements AttendanceHandler.
func (h *attendanceHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var req attendance.UpdateManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode attendance update", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id
	req.AdminID = caller.ID

	result, err := h.attendanceService.UpdateManual(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance record updated", result)
}

// Delete implements AttendanceHandler.
func (h *attendanceHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	id, ok := recordID(w, r)
	if !ok {
		return
	}

	if err := h.attendanceService.DeleteManual(r.Context(), caller.ID, id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance record deleted", nil)
}

func parseAttendanceFilter(r *http.Request) (attendance.AttendanceFilter, error) {
	query := r.URL.Query()
	var filter attendance.AttendanceFilter

	optional := map[string]**string{
		"date":       &filter.Date,
		"start_date": &filter.StartDate,
		"end_date":   &filter.EndDate,
		"status":     &filter.Status,
	}
	for key, dst := range optional {
		if v := query.Get(key); v != "" {
			*dst = &v
		}
	}

	if v := query.Get("is_manual_entry"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, queryError("is_manual_entry", "is_manual_entry must be true or false")
		}
		filter.IsManualEntry = &b
	}

	if p := query.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			return filter, queryError("page", "page must be a number")
		}
		filter.Page = page
	}

	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			return filter, queryError("limit", "limit must be a number")
		}
		filter.Limit = limit
	}

	filter.SortBy = query.Get("sort_by")
	filter.SortOrder = query.Get("sort_order")
	return filter, nil
}
