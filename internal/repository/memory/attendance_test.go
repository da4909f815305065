package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-tracker/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) *time.Time {
	t := testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return &t
}

func strPtr(s string) *string { return &s }

// ===== ATTENDANCE REPOSITORY TESTS =====

func TestAttendanceRepository_UpsertCheckIn_CreatesRecord(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAttendanceRepository(time.UTC)

	created, err := repo.UpsertCheckIn(ctx, attendance.Attendance{
		UserID:      "u1",
		Date:        testDay,
		CheckInTime: at(9, 0),
		Status:      attendance.StatusPresent,
		CreatedBy:   "u1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	found, err := repo.FindByUserAndDate(ctx, "u1", testDay)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
}

func TestAttendanceRepository_UpsertCheckIn_RejectsSecond(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAttendanceRepository(time.UTC)

	_, err := repo.UpsertCheckIn(ctx, attendance.Attendance{UserID: "u1", Date: testDay, CheckInTime: at(9, 0), Status: attendance.StatusPresent})
	require.NoError(t, err)

	_, err = repo.UpsertCheckIn(ctx, attendance.Attendance{UserID: "u1", Date: testDay, CheckInTime: at(10, 0), Status: attendance.StatusLate})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)

	found, err := repo.FindByUserAndDate(ctx, "u1", testDay)
	require.NoError(t, err)
	assert.Equal(t, *at(9, 0), *found.CheckInTime)
}

func TestAttendanceRepository_UpsertCheckIn_FillsAbsentRecord(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAttendanceRepository(time.UTC)

	absent, err := repo.CreateManual(ctx, attendance.Attendance{
		UserID:        "u1",
		Date:          testDay,
		Status:        attendance.StatusAbsent,
		IsManualEntry: true,
		Remarks:       strPtr("pre-filled"),
		CreatedBy:     "admin",
	})
	require.NoError(t, err)

	filled, err := repo.UpsertCheckIn(ctx, attendance.Attendance{
		UserID:      "u1",
		Date:        testDay,
		CheckInTime: at(9, 5),
		Status:      attendance.StatusPresent,
		Remarks:     strPtr("HQ"),
	})
	require.NoError(t, err)
	assert.Equal(t, absent.ID, filled.ID)
	assert.Equal(t, attendance.StatusPresent, filled.Status)
	assert.Equal(t, "pre-filled; HQ", *filled.Remarks)
	assert.Equal(t, "admin", filled.CreatedBy)
}

func TestAttendanceRepository_UpsertCheckIn_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAttendanceRepository(time.UTC)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpsertCheckIn(ctx, attendance.Attendance{UserID: "u1", Date: testDay, CheckInTime: at(9, 0), Status: attendance.StatusPresent})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}

func TestAttendanceRepository_ApplyCheckOut(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAttendanceRepository(time.UTC)

	_, err := repo.ApplyCheckOut(ctx, attendance.CheckOutUpdate{UserID: "u1", Date: testDay, CheckOutTime: *at(17, 0)})
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)

	_, err = repo.UpsertCheckIn(ctx, attendance.Attendance{UserID: "u1", Date: testDay, CheckInTime: at(9, 0), Status: attendance.StatusPresent, Remarks: strPtr("HQ")})
	require.NoError(t, err)

	out, err := repo.ApplyCheckOut(ctx, attendance.CheckOutUpdate{
		UserID:       "u1",
		Date:         testDay,
		CheckOutTime: *at(17, 30),
		Status:       attendance.StatusPresent,
		TotalHours:   8.5,
		Remark:       strPtr("Branch"),
	})
	require.NoError(t, err)
	require.NotNil(t, out.TotalHours)
	assert.Equal(t, 8.5, *out.TotalHours)
	assert.Equal(t, "HQ; Branch", *out.Remarks)

	_, err = repo.ApplyCheckOut(ctx, attendance.CheckOutUpdate{UserID: "u1", Date: testDay, CheckOutTime: *at(18, 0)})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
}

func TestAttendanceRepository_CreateManual_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAttendanceRepository(time.UTC)

	_, err := repo.CreateManual(ctx, attendance.Attendance{UserID: "u1", Date: testDay, Status: attendance.StatusAbsent, IsManualEntry: true})
	require.NoError(t, err)

	_, err = repo.CreateManual(ctx, attendance.Attendance{UserID: "u1", Date: testDay, Status: attendance.StatusPresent, IsManualEntry: true})
	assert.ErrorIs(t, err, attendance.ErrDuplicateRecord)
}

func TestAttendanceRepository_UpdateManual(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAttendanceRepository(time.UTC)

	created, err := repo.CreateManual(ctx, attendance.Attendance{
		UserID: "u1", Date: testDay, CheckInTime: at(9, 0), CheckOutTime: at(17, 0),
		Status: attendance.StatusPresent, IsManualEntry: true, CreatedBy: "admin",
	})
	require.NoError(t, err)

	t.Run("rejects ordering violation without writing", func(t *testing.T) {
		_, err := repo.UpdateManual(ctx, created.ID, attendance.AttendancePatch{CheckOutTime: at(8, 0), UpdatedBy: "admin2"})
		assert.ErrorIs(t, err, attendance.ErrInvalidTimeOrdering)

		stored, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, *at(17, 0), *stored.CheckOutTime)
		assert.Equal(t, "admin", stored.CreatedBy)
	})

	t.Run("recomputes hours and re-stamps author", func(t *testing.T) {
		updated, err := repo.UpdateManual(ctx, created.ID, attendance.AttendancePatch{CheckOutTime: at(12, 0), UpdatedBy: "admin2"})
		require.NoError(t, err)
		assert.Equal(t, 3.0, *updated.TotalHours)
		assert.Equal(t, "admin2", updated.CreatedBy)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.UpdateManual(ctx, "missing", attendance.AttendancePatch{Remarks: strPtr("x")})
		assert.ErrorIs(t, err, attendance.ErrNotFound)
	})
}

func TestAttendanceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAttendanceRepository(time.UTC)

	created, err := repo.CreateManual(ctx, attendance.Attendance{UserID: "u1", Date: testDay, Status: attendance.StatusAbsent})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), attendance.ErrNotFound)

	// The day key is released
	_, err = repo.CreateManual(ctx, attendance.Attendance{UserID: "u1", Date: testDay, Status: attendance.StatusPresent})
	assert.NoError(t, err)
}

func TestAttendanceRepository_ListAndRange(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAttendanceRepository(time.UTC)

	for i, user := range []string{"u1", "u2", "u3"} {
		for d := 0; d < 3; d++ {
			status := attendance.StatusPresent
			if i == 2 {
				status = attendance.StatusAbsent
			}
			_, err := repo.CreateManual(ctx, attendance.Attendance{UserID: user, Date: testDay.AddDate(0, 0, d), Status: status})
			require.NoError(t, err)
		}
	}

	filter := attendance.AttendanceFilter{Status: strPtr("absent"), Page: 1, Limit: 2, SortBy: "date", SortOrder: "asc"}
	page, total, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, testDay, page[0].Date)

	inRange, err := repo.ListInRange(ctx, attendance.RangeQuery{From: testDay, To: testDay.AddDate(0, 0, 1), UserIDs: []string{"u1", "u2"}})
	require.NoError(t, err)
	assert.Len(t, inRange, 4)
}

// ===== DIRECTORY TESTS =====

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewDirectory(
		employee.Employee{UserID: "u1", Department: "Engineering", IsActive: true},
		employee.Employee{UserID: "u2", Department: "HR", IsActive: false},
		employee.Employee{UserID: "u3", IsActive: true},
	)

	dept, err := dir.GetDepartment(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Engineering", dept)

	_, err = dir.GetDepartment(ctx, "nobody")
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	departments, err := dir.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Engineering", "HR"}, departments)

	active, err := dir.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	hr, err := dir.ListByDepartment(ctx, "HR")
	require.NoError(t, err)
	require.Len(t, hr, 1)
	assert.Equal(t, "u2", hr[0].UserID)
}
