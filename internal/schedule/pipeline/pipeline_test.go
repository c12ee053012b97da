package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"cadence/internal/schedule"

	"github.com/stretchr/testify/require"
)

func newPipeline() *Pipeline {
	return New(DefaultConfig(), nil, nil, nil, nil, nil, nil)
}

func testNow(t *testing.T) time.Time {
	t.Helper()
	now, err := time.Parse(time.RFC3339, "2025-09-09T09:00:00-04:00")
	require.NoError(t, err)
	return now
}

func emailSignals(titles ...string) []schedule.Signal {
	signals := make([]schedule.Signal, 0, len(titles))
	for _, title := range titles {
		signals = append(signals, schedule.Signal{Source: schedule.SourceEmail, Title: title})
	}
	return signals
}

func generate(t *testing.T, signals []schedule.Signal) schedule.PipelineResult {
	t.Helper()
	return newPipeline().Generate(context.Background(), signals, Options{
		UserTZ: "America/New_York",
		Now:    testNow(t),
	})
}

func TestSpamBatchYieldsNoEvents(t *testing.T) {
	result := generate(t, emailSignals(
		"Save 70% this week only",
		"McAfee renewal 50% off",
		"User studies sign up",
	))
	require.Empty(t, result.Events)
}

func TestNearDuplicateZoomInvitesMergeToOne(t *testing.T) {
	result := generate(t, emailSignals(
		"Join Dr. X Zoom, Thu 10 AM PT",
		"Join Dr. X Zoom, Thu 10:30 AM PT",
	))
	require.Len(t, result.Events, 1)

	event := result.Events[0]
	start, err := time.Parse(time.RFC3339, event.StartISO)
	require.NoError(t, err)
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	hour := start.In(loc).Hour()
	require.Contains(t, []int{12, 13}, hour)
	require.NotEmpty(t, event.Reasons)
	require.Contains(t, event.Reasons, ReasonMergedDup)
}

func TestNamedPersonMergeRecordsProvenance(t *testing.T) {
	result := generate(t, emailSignals(
		"Zoom with Gary 10:00 ET",
		"Zoom with Dr. Gary 10:30 ET",
	))
	require.Len(t, result.Events, 1)

	reasons := result.Events[0].Reasons
	found := false
	for _, reason := range reasons {
		if reason == ReasonMergedDup || reason == ReasonNamedPerson || reason == ReasonWithin7Days {
			found = true
		}
	}
	require.True(t, found, "expected merge provenance in %v", reasons)
	// The representative keeps the earliest start.
	start, _ := time.Parse(time.RFC3339, result.Events[0].StartISO)
	require.Equal(t, 10, start.Hour())
	require.Equal(t, 0, start.Minute())
}

func TestPastDatedItemIsFiltered(t *testing.T) {
	result := generate(t, emailSignals(
		"Zoom retro notes from 2025-09-01T10:00:00-04:00",
	))
	require.Empty(t, result.Events)
}

func TestAllEventsStartOnOrAfterNow(t *testing.T) {
	result := generate(t, emailSignals(
		"Zoom with Gary 10:00 ET",
		"team call Thu 3 PM ET",
		"standup retro from 2025-09-01T10:00:00-04:00",
	))
	now := testNow(t)
	require.NotEmpty(t, result.Events)
	for _, event := range result.Events {
		require.False(t, event.Start().Before(now), "event %q starts in the past", event.Title)
	}
}

func TestGapInvariantAcrossEmittedEvents(t *testing.T) {
	result := generate(t, emailSignals(
		"Zoom with Gary 10:00 ET",
		"call with Legal 10:15 ET",
		"meeting with Finance 10:20 ET",
	))
	require.Len(t, result.Events, 3)
	for i := 1; i < len(result.Events); i++ {
		gap := result.Events[i].Start().Sub(result.Events[i-1].End())
		require.GreaterOrEqual(t, gap, 10*time.Minute)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	signals := emailSignals(
		"Zoom with Gary 10:00 ET",
		"call with Legal Fri 2 PM ET",
	)
	first := generate(t, signals)
	second := generate(t, signals)
	require.Len(t, second.Events, len(first.Events))
	for i := range first.Events {
		require.Equal(t, first.Events[i].Title, second.Events[i].Title)
		require.Equal(t, first.Events[i].StartISO, second.Events[i].StartISO)
		require.Equal(t, first.Events[i].EndISO, second.Events[i].EndISO)
		require.Equal(t, first.Events[i].Reasons, second.Events[i].Reasons)
	}
}

func TestEmitProjectionsDeriveFromEvents(t *testing.T) {
	result := generate(t, emailSignals(
		"Zoom with Gary 10:00 ET",
		"planning call Fri 2 PM ET",
	))
	require.Len(t, result.Events, 2)

	total := 0
	for _, events := range result.DailyPlan {
		total += len(events)
	}
	require.Equal(t, len(result.Events), total)

	total = 0
	for _, events := range result.WeeklyRollup {
		total += len(events)
	}
	require.Equal(t, len(result.Events), total)
}

func TestUnscheduledTaskIDsTrackDroppedSignals(t *testing.T) {
	signals := []schedule.Signal{
		{Source: schedule.SourceEmail, Title: "Zoom with Gary 10:00 ET", SourceID: "sig-1"},
		{Source: schedule.SourceEmail, Title: "quarterly newsletter", SourceID: "sig-2"},
	}
	result := generate(t, signals)
	require.Len(t, result.Events, 1)
	require.Equal(t, []string{"sig-2"}, result.UnscheduledTaskIDs)
}

func TestEveryRetainedEventHasReasonsAndValidRange(t *testing.T) {
	result := generate(t, emailSignals(
		"Zoom with Gary 10:00 ET",
		"sync on roadmap Thu 4 PM ET",
	))
	for _, event := range result.Events {
		require.NotEmpty(t, event.Reasons)
		require.NotEmpty(t, event.ID)
		require.True(t, event.Start().Before(event.End()))
		require.Equal(t, "America/New_York", event.Timezone)
	}
}

func TestForceAllowBypassesWeightedGate(t *testing.T) {
	// No thread context and no headers: weighted score would be zero,
	// but the meeting vocabulary hard-allows it through the gate.
	result := generate(t, emailSignals("project sync Wed 11 AM ET"))
	require.Len(t, result.Events, 1)
}

func TestImportanceRescuesLowFocusSignal(t *testing.T) {
	// No thread, no headers, no meeting vocabulary: the weighted focus
	// score is zero. The manual, fresh, urgent signal clears the rescue
	// bar and carries the importance verdict as its retention reason.
	result := generate(t, []schedule.Signal{
		{Source: schedule.SourceManual, Title: "urgent: contract signature Thu 4 PM ET"},
	})
	require.Len(t, result.Events, 1)

	rescued := false
	for _, reason := range result.Events[0].Reasons {
		if strings.HasPrefix(reason, "important") {
			rescued = true
		}
	}
	require.True(t, rescued, "expected importance provenance in %v", result.Events[0].Reasons)
}

func TestImportanceDoesNotRescueSpamLexicon(t *testing.T) {
	// The spam lexicon runs before the rescue check.
	result := generate(t, []schedule.Signal{
		{Source: schedule.SourceManual, Title: "urgent: McAfee renewal 50% off, act by Thu 4 PM ET"},
	})
	require.Empty(t, result.Events)
}

func TestLowFocusLowImportanceStaysGated(t *testing.T) {
	result := generate(t, emailSignals("quarterly roadmap recap Thu 4 PM ET"))
	require.Empty(t, result.Events)
}

func TestDistinctSubjectsWithinWindowStaySeparate(t *testing.T) {
	result := generate(t, emailSignals(
		"Zoom with Gary 10:00 ET",
		"call with Priya 10:30 ET",
	))
	require.Len(t, result.Events, 2)
}
