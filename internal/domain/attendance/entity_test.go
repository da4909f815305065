package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus("  " + string(s) + " ")
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseStatus("Half-Day")
	require.NoError(t, err)
	assert.Equal(t, StatusHalfDay, got)

	for _, raw := range []string{"", "holiday", "half day"} {
		_, err := ParseStatus(raw)
		assert.ErrorIs(t, err, ErrInvalidStatus, raw)
	}
}

func TestStatus_CountsAsPresent(t *testing.T) {
	assert.True(t, StatusPresent.CountsAsPresent())
	assert.True(t, StatusLate.CountsAsPresent())
	assert.True(t, StatusHalfDay.CountsAsPresent())
	assert.False(t, StatusAbsent.CountsAsPresent())
}
