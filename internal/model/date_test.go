package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, time.March, 10), d)
	assert.Equal(t, "2025-03-10", d.String())
	assert.Equal(t, time.Monday, d.Weekday())

	_, err = ParseDate("10/03/2025")
	assert.Error(t, err)
}

func TestDateAddDaysCrossesMonthBoundary(t *testing.T) {
	d := NewDate(2025, time.January, 30)
	assert.Equal(t, NewDate(2025, time.February, 1), d.AddDays(2))
	assert.Equal(t, NewDate(2024, time.December, 31), d.AddDays(-30))
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2025, time.March, 10)
	b := NewDate(2025, time.March, 11)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2025, time.March, 10)
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-10"`, string(raw))

	var parsed Date
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, d, parsed)
}

func TestDateAt(t *testing.T) {
	d := NewDate(2025, time.March, 10)
	ts, err := d.At("09:30:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC), ts)

	_, err = d.At("25:00:00", time.UTC)
	assert.Error(t, err)
}

func TestTimeOfDayClock(t *testing.T) {
	h, m, s, err := TimeOfDay("14:05:30").Clock()
	require.NoError(t, err)
	assert.Equal(t, []int{14, 5, 30}, []int{h, m, s})

	// Seconds are optional.
	h, m, s, err = TimeOfDay("14:05").Clock()
	require.NoError(t, err)
	assert.Equal(t, []int{14, 5, 0}, []int{h, m, s})

	_, _, _, err = TimeOfDay("nope").Clock()
	assert.Error(t, err)
}

func TestTimeOfDayIsMidnight(t *testing.T) {
	assert.True(t, Midnight.IsMidnight())
	assert.True(t, TimeOfDay("00:00").IsMidnight())
	assert.False(t, TimeOfDay("00:00:30").IsMidnight())
	assert.False(t, TimeOfDay("09:00:00").IsMidnight())
}

func TestAppointmentStatusMachine(t *testing.T) {
	assert.True(t, AppointmentStatusProposed.CanTransitionTo(AppointmentStatusConfirmed))
	assert.True(t, AppointmentStatusConfirmed.CanTransitionTo(AppointmentStatusInProgress))
	assert.True(t, AppointmentStatusInProgress.CanTransitionTo(AppointmentStatusCompleted))

	assert.False(t, AppointmentStatusProposed.CanTransitionTo(AppointmentStatusInProgress))
	assert.False(t, AppointmentStatusConfirmed.CanTransitionTo(AppointmentStatusProposed))
	assert.False(t, AppointmentStatusCompleted.CanTransitionTo(AppointmentStatusConfirmed))

	for _, s := range []AppointmentStatus{AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusCancelledLate} {
		assert.True(t, s.Terminal())
		assert.False(t, s.Active())
	}
	assert.True(t, AppointmentStatusProposed.Active())
}
