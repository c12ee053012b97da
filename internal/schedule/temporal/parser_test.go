package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Tuesday, Sep 9 2025, 09:00 Eastern.
func referenceNow(t *testing.T) time.Time {
	t.Helper()
	now, err := time.Parse(time.RFC3339, "2025-09-09T09:00:00-04:00")
	require.NoError(t, err)
	return now
}

func TestParseWeekdayClockMeridiemZone(t *testing.T) {
	parser := NewParser(0)
	r, ok := parser.Parse("Join Dr. X Zoom, Thu 10 AM PT", referenceNow(t), "America/New_York")
	require.True(t, ok)

	start, err := time.Parse(time.RFC3339, r.StartISO)
	require.NoError(t, err)
	require.Equal(t, time.Thursday, start.Weekday())
	// 10:00 Pacific is 13:00 Eastern.
	require.Equal(t, 13, start.Hour())
	require.Equal(t, 11, start.Day())

	end, err := time.Parse(time.RFC3339, r.EndISO)
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, end.Sub(start))
}

func TestParseMinutesVariantStaysIndependent(t *testing.T) {
	parser := NewParser(0)
	r, ok := parser.Parse("Join Dr. X Zoom, Thu 10:30 AM PT", referenceNow(t), "America/New_York")
	require.True(t, ok)
	start, _ := time.Parse(time.RFC3339, r.StartISO)
	require.Equal(t, 13, start.Hour())
	require.Equal(t, 30, start.Minute())
}

func TestParseZoneOnlyResolvesToday(t *testing.T) {
	parser := NewParser(0)
	r, ok := parser.Parse("Zoom with Gary 10:00 ET", referenceNow(t), "America/New_York")
	require.True(t, ok)
	start, _ := time.Parse(time.RFC3339, r.StartISO)
	// 10:00 ET is still ahead of the 09:00 reference, so it lands today.
	require.Equal(t, 9, start.Day())
	require.Equal(t, 10, start.Hour())
}

func TestParsePassedTimeRollsForward(t *testing.T) {
	parser := NewParser(0)

	// Same weekday as now, but the time already passed: one week out.
	r, ok := parser.Parse("Tue 8 AM ET", referenceNow(t), "America/New_York")
	require.True(t, ok)
	start, _ := time.Parse(time.RFC3339, r.StartISO)
	require.Equal(t, 16, start.Day())
	require.Equal(t, time.Tuesday, start.Weekday())

	// No weekday: roll to the next day.
	r, ok = parser.Parse("8:00 AM ET daily check", referenceNow(t), "America/New_York")
	require.True(t, ok)
	start, _ = time.Parse(time.RFC3339, r.StartISO)
	require.Equal(t, 10, start.Day())
}

func TestParseMeridiemConversion(t *testing.T) {
	parser := NewParser(0)

	r, ok := parser.Parse("Fri 12 PM ET", referenceNow(t), "America/New_York")
	require.True(t, ok)
	start, _ := time.Parse(time.RFC3339, r.StartISO)
	require.Equal(t, 12, start.Hour())

	r, ok = parser.Parse("Fri 12 AM ET", referenceNow(t), "America/New_York")
	require.True(t, ok)
	start, _ = time.Parse(time.RFC3339, r.StartISO)
	require.Equal(t, 0, start.Hour())

	r, ok = parser.Parse("Fri 3 PM ET", referenceNow(t), "America/New_York")
	require.True(t, ok)
	start, _ = time.Parse(time.RFC3339, r.StartISO)
	require.Equal(t, 15, start.Hour())
}

func TestParseTargetZoneConversion(t *testing.T) {
	parser := NewParser(0)
	r, ok := parser.Parse("Wed 9 AM PT", referenceNow(t), "America/Chicago")
	require.True(t, ok)
	start, _ := time.Parse(time.RFC3339, r.StartISO)
	// 9:00 Pacific is 11:00 Central.
	require.Equal(t, 11, start.Hour())
}

func TestParseNoMatch(t *testing.T) {
	parser := NewParser(0)

	cases := []string{
		"",
		"Save 70% this week only",
		"McAfee renewal 50% off",
		"User studies sign up",
		"let's talk sometime",
	}
	for _, text := range cases {
		_, ok := parser.Parse(text, referenceNow(t), "America/New_York")
		require.False(t, ok, "expected no match for %q", text)
	}
}

func TestParseRejectsUnknownTargetZone(t *testing.T) {
	parser := NewParser(0)
	_, ok := parser.Parse("Thu 10 AM PT", referenceNow(t), "Not/AZone")
	require.False(t, ok)
	_, ok = parser.Parse("Thu 10 AM PT", referenceNow(t), "")
	require.False(t, ok)
}

func TestParseSpecificityGrowsWithDetail(t *testing.T) {
	parser := NewParser(0)
	full, ok := parser.Parse("Thu 10:30 AM PT", referenceNow(t), "America/New_York")
	require.True(t, ok)
	sparse, ok := parser.Parse("10:00 ET", referenceNow(t), "America/New_York")
	require.True(t, ok)
	require.Greater(t, full.Specificity, sparse.Specificity)
}

func TestParseExplicitISOTimestampVerbatim(t *testing.T) {
	parser := NewParser(0)

	// A past instant is returned as-is; filtering is the caller's job.
	r, ok := parser.Parse("review notes from 2025-09-01T10:00:00-04:00", referenceNow(t), "America/New_York")
	require.True(t, ok)
	start, _ := time.Parse(time.RFC3339, r.StartISO)
	require.True(t, start.Before(referenceNow(t)))
	require.Equal(t, 1, start.Day())

	// Zone-less values are wall clock in the target zone.
	r, ok = parser.Parse("kickoff 2025-09-20T14:30", referenceNow(t), "America/New_York")
	require.True(t, ok)
	start, _ = time.Parse(time.RFC3339, r.StartISO)
	require.Equal(t, 14, start.Hour())
	require.Equal(t, 20, start.Day())
}

func TestParseInvalidClockValues(t *testing.T) {
	parser := NewParser(0)
	_, ok := parser.Parse("Thu 13 PM PT", referenceNow(t), "America/New_York")
	require.False(t, ok)
	_, ok = parser.Parse("meet at 29:00 ET", referenceNow(t), "America/New_York")
	require.False(t, ok)
}
