package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policyDay = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func newTestPolicy(t *testing.T) ClockPolicy {
	t.Helper()
	policy, err := NewClockPolicy("09:30", "17:30", 15, 4, time.UTC)
	require.NoError(t, err)
	return policy
}

func clockAt(h, m, s int) *time.Time {
	t := time.Date(policyDay.Year(), policyDay.Month(), policyDay.Day(), h, m, s, 0, time.UTC)
	return &t
}

// ===== CLOCK POLICY TESTS =====

func TestNewClockPolicy(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p, err := NewClockPolicy("09:00", "17:00", 0, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, 4.0, p.HalfDayThresholdHours)
		assert.Equal(t, time.UTC, p.Location)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := NewClockPolicy("17:00", "09:00", 0, 4, time.UTC)
		assert.Error(t, err)
	})

	t.Run("malformed time", func(t *testing.T) {
		_, err := NewClockPolicy("9am", "17:00", 0, 4, time.UTC)
		assert.Error(t, err)
	})

	t.Run("negative grace", func(t *testing.T) {
		_, err := NewClockPolicy("09:00", "17:00", -1, 4, time.UTC)
		assert.Error(t, err)
	})
}

func TestClockPolicy_IsLate_Boundary(t *testing.T) {
	p := newTestPolicy(t)

	assert.False(t, p.IsLate(*clockAt(9, 45, 0), policyDay))
	assert.True(t, p.IsLate(*clockAt(9, 45, 1), policyDay))
	assert.False(t, p.IsLate(*clockAt(8, 0, 0), policyDay))
}

func TestClockPolicy_IsEarlyExit(t *testing.T) {
	p := newTestPolicy(t)

	assert.True(t, p.IsEarlyExit(*clockAt(17, 29, 59), policyDay))
	assert.False(t, p.IsEarlyExit(*clockAt(17, 30, 0), policyDay))
	assert.Equal(t, 30, p.EarlyExitMinutes(*clockAt(17, 0, 0), policyDay))
	assert.Equal(t, 0, p.EarlyExitMinutes(*clockAt(18, 0, 0), policyDay))
}

func TestClockPolicy_LateMinutes(t *testing.T) {
	p := newTestPolicy(t)

	assert.Equal(t, 0, p.LateMinutes(*clockAt(9, 45, 0), policyDay))
	assert.Equal(t, 20, p.LateMinutes(*clockAt(9, 50, 0), policyDay))
}

func TestClockPolicy_Classify(t *testing.T) {
	p := newTestPolicy(t)
	late := attendance.StatusLate

	tests := []struct {
		name     string
		checkIn  *time.Time
		checkOut *time.Time
		override *attendance.Status
		expected attendance.Status
	}{
		{"override wins without timestamps", nil, nil, &late, attendance.StatusLate},
		{"no check-in is absent", nil, nil, nil, attendance.StatusAbsent},
		{"on time at grace limit", clockAt(9, 45, 0), nil, nil, attendance.StatusPresent},
		{"one second past grace", clockAt(9, 45, 1), nil, nil, attendance.StatusLate},
		{"short day is half-day even when on time", clockAt(9, 0, 0), clockAt(12, 30, 0), nil, attendance.StatusHalfDay},
		{"short day beats lateness", clockAt(10, 0, 0), clockAt(12, 0, 0), nil, attendance.StatusHalfDay},
		{"late and long stays late", clockAt(9, 50, 0), clockAt(17, 35, 0), nil, attendance.StatusLate},
		{"exactly threshold is not half-day", clockAt(9, 0, 0), clockAt(13, 0, 0), nil, attendance.StatusPresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Classify(policyDay, tt.checkIn, tt.checkOut, false, tt.override))
		})
	}
}

func TestClockPolicy_HoursBetween(t *testing.T) {
	p := newTestPolicy(t)

	assert.Equal(t, 8.5, p.HoursBetween(*clockAt(9, 0, 0), *clockAt(17, 30, 0)))
	assert.Equal(t, 7.75, p.HoursBetween(*clockAt(9, 50, 0), *clockAt(17, 35, 0)))
	assert.Equal(t, 0.33, p.HoursBetween(*clockAt(9, 0, 0), *clockAt(9, 20, 0)))
}

func TestClockPolicy_DayOf_UsesLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	p, err := NewClockPolicy("09:00", "17:00", 0, 4, jakarta)
	require.NoError(t, err)

	// 20:00 UTC on the 3rd is 03:00 on the 4th in UTC+7
	day := p.DayOf(time.Date(2024, 3, 3, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, 4, day.Day())
	assert.Equal(t, jakarta, day.Location())
}
