package importance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cadence/internal/schedule"
)

var scoreNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func dateHeader(sent time.Time) map[string]string {
	return map[string]string{"Date": sent.Format(time.RFC1123Z)}
}

func TestEvaluateRecencyDecay(t *testing.T) {
	scorer := NewScorer(nil)

	fresh := scorer.Evaluate(schedule.Signal{
		Source:  schedule.SourceEmail,
		Title:   "quick note",
		Headers: dateHeader(scoreNow.Add(-2 * time.Hour)),
	}, scoreNow)
	threeDay := scorer.Evaluate(schedule.Signal{
		Source:  schedule.SourceEmail,
		Title:   "quick note",
		Headers: dateHeader(scoreNow.Add(-48 * time.Hour)),
	}, scoreNow)
	week := scorer.Evaluate(schedule.Signal{
		Source:  schedule.SourceEmail,
		Title:   "quick note",
		Headers: dateHeader(scoreNow.Add(-6 * 24 * time.Hour)),
	}, scoreNow)
	stale := scorer.Evaluate(schedule.Signal{
		Source:  schedule.SourceEmail,
		Title:   "quick note",
		Headers: dateHeader(scoreNow.Add(-30 * 24 * time.Hour)),
	}, scoreNow)

	require.Greater(t, fresh.Score, threeDay.Score)
	require.Greater(t, threeDay.Score, week.Score)
	require.Greater(t, week.Score, stale.Score)
	require.Contains(t, fresh.Reason, "fresh-day")
	require.NotContains(t, stale.Reason, "fresh")
}

func TestEvaluateMissingDateCountsAsFresh(t *testing.T) {
	scorer := NewScorer(nil)
	eval := scorer.Evaluate(schedule.Signal{Source: schedule.SourceManual, Title: "jot"}, scoreNow)
	require.Contains(t, eval.Reason, "fresh-day")
}

func TestEvaluateKnownContact(t *testing.T) {
	scorer := NewScorer([]string{"sam@corp.example", "Priya Patel"})

	fromHeader := scorer.Evaluate(schedule.Signal{
		Source:  schedule.SourceEmail,
		Title:   "re: numbers",
		Headers: map[string]string{"From": "<sam@corp.example>", "Date": scoreNow.Format(time.RFC1123Z)},
	}, scoreNow)
	require.Contains(t, fromHeader.Reason, "known-contact")

	participant := scorer.Evaluate(schedule.Signal{
		Source: schedule.SourceSlack,
		Title:  "thread ping",
		Thread: &schedule.ThreadMetadata{Participants: []string{"priya patel"}},
	}, scoreNow)
	require.Contains(t, participant.Reason, "known-contact")

	stranger := scorer.Evaluate(schedule.Signal{
		Source:  schedule.SourceEmail,
		Title:   "re: numbers",
		Headers: map[string]string{"From": "<noreply@deals.example>", "Date": scoreNow.Format(time.RFC1123Z)},
	}, scoreNow)
	require.NotContains(t, stranger.Reason, "known-contact")
	require.InDelta(t, fromHeader.Score-weightKnownContact, stranger.Score, 1e-9)
}

func TestEvaluateChannelWeights(t *testing.T) {
	scorer := NewScorer(nil)
	manual := scorer.Evaluate(schedule.Signal{Source: schedule.SourceManual, Title: "note"}, scoreNow)
	slack := scorer.Evaluate(schedule.Signal{Source: schedule.SourceSlack, Title: "note"}, scoreNow)
	email := scorer.Evaluate(schedule.Signal{Source: schedule.SourceEmail, Title: "note"}, scoreNow)

	require.Greater(t, manual.Score, slack.Score)
	require.Greater(t, slack.Score, email.Score)
	require.Contains(t, manual.Reason, "channel-manual")
}

func TestEvaluateKeywordTables(t *testing.T) {
	scorer := NewScorer(nil)

	urgent := scorer.Evaluate(schedule.Signal{
		Source: schedule.SourceEmail,
		Title:  "URGENT: server migration blocker",
	}, scoreNow)
	require.Contains(t, urgent.Reason, "urgency-vocabulary")

	deadline := scorer.Evaluate(schedule.Signal{
		Source: schedule.SourceEmail,
		Title:  "contract renewal",
		Body:   "the invoice is due by Friday",
	}, scoreNow)
	require.Contains(t, deadline.Reason, "deadline-vocabulary")
	require.Greater(t, urgent.Score, 0.0)
}

func TestEvaluateScoreClamped(t *testing.T) {
	scorer := NewScorer([]string{"sam@corp.example"})
	eval := scorer.Evaluate(schedule.Signal{
		Source:  schedule.SourceManual,
		Title:   "URGENT contract deadline ASAP",
		Body:    "invoice overdue, renewal expires immediately",
		Headers: map[string]string{"From": "sam@corp.example"},
		Thread:  &schedule.ThreadMetadata{Participants: []string{"sam@corp.example"}},
	}, scoreNow)
	require.Equal(t, 1.0, eval.Score)
}
