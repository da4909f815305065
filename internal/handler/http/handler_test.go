package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/user"
	"github.com/cmlabs-hris/attendance-tracker/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-tracker/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/attendance-tracker/internal/service/attendance"
	statsService "github.com/cmlabs-hris/attendance-tracker/internal/service/stats"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type testServer struct {
	router *chi.Mux
	tokens jwt.Service
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := jwt.NewJWTService(handlerTestSecret, "1h")
	require.NoError(t, err)

	policy, err := attendanceService.NewClockPolicy("09:30", "17:30", 15, 4, time.UTC)
	require.NoError(t, err)

	srv := &testServer{
		tokens: tokens,
		now:    time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return srv.now }

	repo := memory.NewAttendanceRepository(time.UTC)
	dir := memory.NewDirectory(
		employee.Employee{UserID: "emp-1", Department: "Engineering", IsActive: true},
		employee.Employee{UserID: "emp-2", Department: "HR", IsActive: true},
	)

	srv.router = NewRouter(
		tokens,
		NewAttendanceHandler(attendanceService.NewAttendanceService(repo, policy, clock)),
		NewStatsHandler(statsService.NewStatsService(repo, dir, time.UTC, clock)),
		RouterOptions{AppName: "attendance-test", Env: "test", LogLevel: slog.LevelError},
	)
	return srv
}

func (s *testServer) do(t *testing.T, method, path, userID string, role user.Role, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, _, err := s.tokens.GenerateAccessToken(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response.Response
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

// ===== AUTHENTICATION TESTS =====

func TestRouter_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := srv.do(t, http.MethodPost, "/api/v1/attendance/check-in", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
}

func TestRouter_RejectsForeignToken(t *testing.T) {
	srv := newTestServer(t)
	other, err := jwt.NewJWTService("another-secret", "1h")
	require.NoError(t, err)
	token, _, err := other.GenerateAccessToken("emp-1", user.RoleEmployee)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/today", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdminRoutesForbidEmployees(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := srv.do(t, http.MethodGet, "/api/v1/attendance", "emp-1", user.RoleEmployee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/stats/summary?start_date=2024-03-01&end_date=2024-03-31", "emp-1", user.RoleEmployee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_Heartbeat(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ===== MARKING TESTS =====

func TestAttendanceHandler_CheckInCheckOut(t *testing.T) {
	srv := newTestServer(t)

	srv.now = time.Date(2024, 3, 4, 9, 50, 0, 0, time.UTC)
	rec, resp := srv.do(t, http.MethodPost, "/api/v1/attendance/check-in", "emp-1", user.RoleEmployee, map[string]string{"location": "HQ"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Checked in late", resp.Message)
	assert.Equal(t, true, dataMap(t, resp)["was_late"])

	rec, resp = srv.do(t, http.MethodPost, "/api/v1/attendance/check-in", "emp-1", user.RoleEmployee, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_CHECKED_IN", resp.Error.Code)

	srv.now = time.Date(2024, 3, 4, 17, 35, 0, 0, time.UTC)
	rec, resp = srv.do(t, http.MethodPost, "/api/v1/attendance/check-out", "emp-1", user.RoleEmployee, map[string]string{"location": "Site B"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	record := dataMap(t, resp)["attendance"].(map[string]interface{})
	assert.Equal(t, "late", record["status"])
	assert.Equal(t, 7.75, record["total_hours"])
	assert.Equal(t, "HQ; Site B", record["remarks"])

	rec, resp = srv.do(t, http.MethodPost, "/api/v1/attendance/check-out", "emp-1", user.RoleEmployee, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_CHECKED_OUT", resp.Error.Code)
}

func TestAttendanceHandler_CheckOutWithoutCheckIn(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := srv.do(t, http.MethodPost, "/api/v1/attendance/check-out", "emp-2", user.RoleEmployee, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NOT_CHECKED_IN", resp.Error.Code)
}

func TestAttendanceHandler_Today(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := srv.do(t, http.MethodGet, "/api/v1/attendance/today", "emp-1", user.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, resp)
	assert.Equal(t, true, data["can_check_in"])
	assert.Equal(t, false, data["can_check_out"])
}

// ===== MANUAL ENTRY TESTS =====

func TestAttendanceHandler_ManualLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := srv.do(t, http.MethodPost, "/api/v1/attendance/manual", "admin-1", user.RoleAdmin, map[string]string{
		"user_id":        "emp-2",
		"date":           "2024-03-01",
		"check_in_time":  "09:00",
		"check_out_time": "17:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := dataMap(t, resp)
	id := created["id"].(string)
	assert.Equal(t, true, created["is_manual_entry"])
	assert.Equal(t, "admin-1", created["created_by"])

	rec, resp = srv.do(t, http.MethodPost, "/api/v1/attendance/manual", "admin-1", user.RoleAdmin, map[string]string{
		"user_id": "emp-2",
		"date":    "2024-03-01",
		"status":  "absent",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_RECORD", resp.Error.Code)

	rec, _ = srv.do(t, http.MethodPut, "/api/v1/attendance/"+id, "admin-1", user.RoleAdmin, map[string]string{
		"check_out_time": "08:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = srv.do(t, http.MethodPut, "/api/v1/attendance/"+id, "admin-1", user.RoleAdmin, map[string]string{
		"status": "half-day",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "half-day", dataMap(t, resp)["status"])

	rec, resp = srv.do(t, http.MethodGet, "/api/v1/attendance?user_id=emp-2", "admin-1", user.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.TotalItems)
	assert.Equal(t, "1-1 of 1", resp.Meta.Showing)

	rec, _ = srv.do(t, http.MethodDelete, "/api/v1/attendance/"+id, "admin-1", user.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/attendance/"+id, "admin-1", user.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceHandler_MalformedRecordID(t *testing.T) {
	srv := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec, resp := srv.do(t, method, "/api/v1/attendance/not-a-uuid", "admin-1", user.RoleAdmin, map[string]string{
				"status": "absent",
			})
			assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
			assert.False(t, resp.Success)
		})
	}
}

func TestAttendanceHandler_ManualValidation(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := srv.do(t, http.MethodPost, "/api/v1/attendance/manual", "admin-1", user.RoleAdmin, map[string]string{
		"user_id": "emp-2",
		"date":    "03/01/2024",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Details, "date")
}

func TestAttendanceHandler_MyAttendanceIgnoresUserFilter(t *testing.T) {
	srv := newTestServer(t)

	_, _ = srv.do(t, http.MethodPost, "/api/v1/attendance/check-in", "emp-1", user.RoleEmployee, nil)
	_, _ = srv.do(t, http.MethodPost, "/api/v1/attendance/check-in", "emp-2", user.RoleEmployee, nil)

	rec, resp := srv.do(t, http.MethodGet, "/api/v1/attendance/my?user_id=emp-2", "emp-1", user.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := resp.Data.([]interface{})
	require.Len(t, records, 1)
	assert.Equal(t, "emp-1", records[0].(map[string]interface{})["user_id"])
}

func TestAttendanceHandler_BadPaginationQuery(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := srv.do(t, http.MethodGet, "/api/v1/attendance?page=abc", "admin-1", user.RoleAdmin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ===== STATS TESTS =====

func TestStatsHandler_Summary(t *testing.T) {
	srv := newTestServer(t)

	_, _ = srv.do(t, http.MethodPost, "/api/v1/attendance/check-in", "emp-1", user.RoleEmployee, nil)
	_, _ = srv.do(t, http.MethodPost, "/api/v1/attendance/manual", "admin-1", user.RoleAdmin, map[string]string{
		"user_id": "emp-2",
		"date":    "2024-03-04",
		"status":  "absent",
	})

	rec, resp := srv.do(t, http.MethodGet, "/api/v1/stats/summary?start_date=2024-03-01&end_date=2024-03-31", "admin-1", user.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := dataMap(t, resp)
	assert.Equal(t, float64(2), summary["total"])
	assert.Equal(t, float64(1), summary["present"])
	assert.Equal(t, float64(1), summary["absent"])
	assert.Equal(t, float64(50), summary["attendance_percentage"])

	rec, resp = srv.do(t, http.MethodGet, "/api/v1/stats/my?start_date=2024-03-01&end_date=2024-03-31", "emp-1", user.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), dataMap(t, resp)["total"])
}

func TestStatsHandler_InvalidRange(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := srv.do(t, http.MethodGet, "/api/v1/stats/daily?start_date=2024-03-31&end_date=2024-03-01", "admin-1", user.RoleAdmin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, resp.Error.Details, "end_date")

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/stats/trend?months_back=x", "admin-1", user.RoleAdmin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStatsHandler_Departments(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := srv.do(t, http.MethodGet, "/api/v1/stats/departments?start_date=2024-03-01&end_date=2024-03-31", "admin-1", user.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	departments := resp.Data.([]interface{})
	assert.Len(t, departments, 2)
}
