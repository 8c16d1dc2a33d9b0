package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testZone = "Africa/Kigali"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNormalizeCarvesHourSlots(t *testing.T) {
	loc, _ := time.LoadLocation(testZone)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	n, err := NewNormalizerAt(testZone, fixedClock(now))
	require.NoError(t, err)

	windows := []Window{{
		Start: time.Date(2026, 9, 1, 9, 0, 0, 0, loc),
		End:   time.Date(2026, 9, 1, 12, 0, 0, 0, loc),
	}}

	slots := n.Normalize(windows)

	require.Len(t, slots, 3)
	for i, s := range slots {
		assert.True(t, s.End.Equal(s.Start.Add(time.Hour)), "slot %d duration", i)
	}
	assert.True(t, slots[0].Start.Equal(time.Date(2026, 9, 1, 9, 0, 0, 0, loc)))
	assert.True(t, slots[2].Start.Equal(time.Date(2026, 9, 1, 11, 0, 0, 0, loc)))
}

func TestNormalizeClampsInProgressWindow(t *testing.T) {
	loc, _ := time.LoadLocation(testZone)
	now := time.Date(2026, 9, 1, 9, 20, 0, 0, loc)
	n, err := NewNormalizerAt(testZone, fixedClock(now))
	require.NoError(t, err)

	// Window opened in the past and is still running.
	windows := []Window{{
		Start: time.Date(2026, 9, 1, 8, 0, 0, 0, loc),
		End:   time.Date(2026, 9, 1, 13, 0, 0, 0, loc),
	}}

	slots := n.Normalize(windows)

	require.NotEmpty(t, slots, "in-progress window must still yield offers")
	assert.True(t, slots[0].Start.Equal(time.Date(2026, 9, 1, 10, 0, 0, 0, loc)),
		"first slot starts at the next full hour after now")
	require.Len(t, slots, 3)
}

func TestNormalizeDropsWindowTooShort(t *testing.T) {
	loc, _ := time.LoadLocation(testZone)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, loc)
	n, err := NewNormalizerAt(testZone, fixedClock(now))
	require.NoError(t, err)

	windows := []Window{{
		Start: time.Date(2026, 9, 1, 9, 0, 0, 0, loc),
		End:   time.Date(2026, 9, 1, 9, 45, 0, 0, loc),
	}}

	assert.Empty(t, n.Normalize(windows))
}

func TestNormalizeSortsAcrossWindows(t *testing.T) {
	loc, _ := time.LoadLocation(testZone)
	now := time.Date(2026, 9, 1, 6, 0, 0, 0, loc)
	n, err := NewNormalizerAt(testZone, fixedClock(now))
	require.NoError(t, err)

	windows := []Window{
		{Start: time.Date(2026, 9, 2, 14, 0, 0, 0, loc), End: time.Date(2026, 9, 2, 16, 0, 0, 0, loc)},
		{Start: time.Date(2026, 9, 1, 9, 0, 0, 0, loc), End: time.Date(2026, 9, 1, 11, 0, 0, 0, loc)},
	}

	slots := n.Normalize(windows)

	require.Len(t, slots, 4)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start), "slots must be ascending")
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	n, err := NewNormalizer(testZone)
	require.NoError(t, err)

	assert.Empty(t, n.Normalize(nil))
}

func TestFormatDisplayUsesFixedZone(t *testing.T) {
	n, err := NewNormalizer(testZone)
	require.NoError(t, err)

	// Kigali is UTC+2 year-round.
	utc := time.Date(2026, 12, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Wednesday, December 9 at 2:00 PM", n.FormatDisplay(utc))
}

func TestNewNormalizerRejectsBadZone(t *testing.T) {
	_, err := NewNormalizer("Not/AZone")
	assert.Error(t, err)
}
