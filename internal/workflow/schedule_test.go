package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScheduleNeitherGivenRunsImmediately(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	got, err := ResolveSchedule(now, RunOptions{})
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestResolveScheduleInAddsDuration(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	got, err := ResolveSchedule(now, RunOptions{In: 10 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), got)
}

func TestResolveScheduleAtLaterTodayStaysToday(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	got, err := ResolveSchedule(now, RunOptions{At: "14:30"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 30, 14, 30, 0, 0, time.UTC), got)
}

func TestResolveScheduleAtEarlierTodayRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	got, err := ResolveSchedule(now, RunOptions{At: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC), got)
}

func TestResolveScheduleAtAndInMutuallyExclusive(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	_, err := ResolveSchedule(now, RunOptions{At: "09:00", In: time.Minute})
	require.Error(t, err)
}
