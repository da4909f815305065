package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/stats"
	"github.com/cmlabs-hris/attendance-tracker/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/validator"
)

type StatsHandler interface {
	Summary(w http.ResponseWriter, r *http.Request)
	Daily(w http.ResponseWriter, r *http.Request)
	Weekly(w http.ResponseWriter, r *http.Request)
	Users(w http.ResponseWriter, r *http.Request)
	Departments(w http.ResponseWriter, r *http.Request)
	Trend(w http.ResponseWriter, r *http.Request)
	Overview(w http.ResponseWriter, r *http.Request)
	My(w http.ResponseWriter, r *http.Request)
}

type statsHandlerImpl struct {
	statsService stats.StatsService
}

func NewStatsHandler(statsService stats.StatsService) StatsHandler {
	return &statsHandlerImpl{statsService: statsService}
}

func queryError(field, message string) error {
	return validator.ValidationErrors{{Field: field, Message: message}}
}

func optionalQuery(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

func parseStatsQuery(r *http.Request) stats.StatsQuery {
	return stats.StatsQuery{
		StartDate:  r.URL.Query().Get("start_date"),
		EndDate:    r.URL.Query().Get("end_date"),
		UserID:     optionalQuery(r, "user_id"),
		Department: optionalQuery(r, "department"),
	}
}

func writeResult[T any](w http.ResponseWriter, result T, err error) {
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// Summary implements StatsHandler.
func (h *statsHandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	result, err := h.statsService.GetSummary(r.Context(), parseStatsQuery(r))
	writeResult(w, result, err)
}

// Daily implements StatsHandler.
func (h *statsHandlerImpl) Daily(w http.ResponseWriter, r *http.Request) {
	result, err := h.statsService.GetDaily(r.Context(), parseStatsQuery(r))
	writeResult(w, result, err)
}

// Weekly implements StatsHandler.
func (h *statsHandlerImpl) Weekly(w http.ResponseWriter, r *http.Request) {
	result, err := h.statsService.GetWeekly(r.Context(), parseStatsQuery(r))
	writeResult(w, result, err)
}

// Users implements StatsHandler.
func (h *statsHandlerImpl) Users(w http.ResponseWriter, r *http.Request) {
	result, err := h.statsService.GetUserRanking(r.Context(), parseStatsQuery(r))
	writeResult(w, result, err)
}

// Departments implements StatsHandler.
func (h *statsHandlerImpl) Departments(w http.ResponseWriter, r *http.Request) {
	result, err := h.statsService.GetDepartments(r.Context(), parseStatsQuery(r))
	writeResult(w, result, err)
}

// Trend implements StatsHandler.
func (h *statsHandlerImpl) Trend(w http.ResponseWriter, r *http.Request) {
	req := stats.TrendRequest{
		UserID:     optionalQuery(r, "user_id"),
		Department: optionalQuery(r, "department"),
	}
	if v := r.URL.Query().Get("months_back"); v != "" {
		months, err := strconv.Atoi(v)
		if err != nil {
			response.HandleError(w, queryError("months_back", "months_back must be a number"))
			return
		}
		req.MonthsBack = months
	}

	result, err := h.statsService.GetMonthlyTrend(r.Context(), req)
	writeResult(w, result, err)
}

// Overview implements StatsHandler.
func (h *statsHandlerImpl) Overview(w http.ResponseWriter, r *http.Request) {
	result, err := h.statsService.GetOverview(r.Context(), parseStatsQuery(r))
	writeResult(w, result, err)
}

// My implements StatsHandler. Returns the caller's own summary.
func (h *statsHandlerImpl) My(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	q := parseStatsQuery(r)
	q.UserID = &caller.ID
	q.Department = nil

	result, err := h.statsService.GetSummary(r.Context(), q)
	writeResult(w, result, err)
}
