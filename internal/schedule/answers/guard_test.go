package answers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func newGuard() *Guard {
	return NewGuard(DefaultConfig(), nil)
}

func TestSplitOnQuestionMarksAndConjunctions(t *testing.T) {
	questions := newGuard().SplitIntoSubQuestions(
		"What time works for the demo? And who should send the invite?")
	require.Len(t, questions, 2)
	require.Contains(t, questions[0], "demo")
	require.Contains(t, questions[1], "invite")
}

func TestSplitOnBulletsAndNewlines(t *testing.T) {
	message := "- confirm the venue budget\n- book the travel dates\n- draft agenda topics"
	questions := newGuard().SplitIntoSubQuestions(message)
	require.Len(t, questions, 3)
}

func TestSplitDedupsNearIdenticalFragments(t *testing.T) {
	message := "Can you review the budget numbers? Can you review the budget numbers again?"
	questions := newGuard().SplitIntoSubQuestions(message)
	require.Len(t, questions, 1)
}

func TestSplitCapsAtMaximum(t *testing.T) {
	var parts []string
	topics := []string{
		"alpha metrics", "beta rollout", "gamma budget", "delta hiring",
		"epsilon travel", "zeta vendors", "eta pricing", "theta legal",
		"iota staffing", "kappa launch",
	}
	for _, topic := range topics {
		parts = append(parts, "what about the "+topic+"?")
	}
	questions := newGuard().SplitIntoSubQuestions(strings.Join(parts, " "))
	require.Len(t, questions, 8)
}

func TestBuildAnswerMapCoveringAnswer(t *testing.T) {
	guard := newGuard()
	message := "What time works for the demo? Who should send the invite?"
	answer := "The demo works best at 3pm on Thursday.\nSarah should send the invite to the whole team."

	result := guard.BuildAnswerMap(message, answer)
	require.GreaterOrEqual(t, result.Relevance, 0.6)
	require.Len(t, result.Items, 2)

	_, needed := guard.MaybeClarifier(message, result.Relevance)
	require.False(t, needed)
}

func TestBuildAnswerMapUnrelatedAnswer(t *testing.T) {
	guard := newGuard()
	message := "What time works for the demo? Who should send the invite?"
	answer := "Our quarterly numbers were strong. Weather has been nice lately."

	result := guard.BuildAnswerMap(message, answer)
	require.Less(t, result.Relevance, 0.6)

	clarifier, needed := guard.MaybeClarifier(message, result.Relevance)
	require.True(t, needed)
	require.Contains(t, clarifier, "Quick clarifier")
}

func TestBuildAnswerMapImplicitCoverageFloor(t *testing.T) {
	guard := newGuard()
	message := "Can you summarize the quarterly budget situation?"
	// No single strong line match, but "budget" appears in the answer.
	answer := "Revenue grew. Costs were flat. The budget discussion continues elsewhere in this long reply."

	result := guard.BuildAnswerMap(message, answer)
	require.GreaterOrEqual(t, result.Relevance, 0.65)
}

func TestMaybeClarifierTruncatesExcerpt(t *testing.T) {
	guard := newGuard()
	long := strings.Repeat("please advise on the migration timeline ", 10)
	clarifier, needed := guard.MaybeClarifier(long, 0.1)
	require.True(t, needed)
	require.Contains(t, clarifier, "Quick clarifier")
	require.LessOrEqual(t, len(clarifier), 80+len(`Quick clarifier: when you asked "", which part should I focus on first?`))
}

func TestMaybeClarifierKeepsMultibyteExcerptValid(t *testing.T) {
	guard := newGuard()
	long := strings.Repeat("könnten wir über die Migrationstermine sprechen ", 5)
	clarifier, needed := guard.MaybeClarifier(long, 0.1)
	require.True(t, needed)
	require.True(t, utf8.ValidString(clarifier))
	require.LessOrEqual(t, utf8.RuneCountInString(clarifier),
		80+utf8.RuneCountInString(`Quick clarifier: when you asked "", which part should I focus on first?`))
}

func TestBuildAnswerMapRelevanceClamped(t *testing.T) {
	guard := newGuard()
	result := guard.BuildAnswerMap("review the budget?", "review the budget")
	require.LessOrEqual(t, result.Relevance, 1.0)
	require.GreaterOrEqual(t, result.Relevance, 0.0)
	require.GreaterOrEqual(t, result.Coverage, 0.0)
	require.LessOrEqual(t, result.Coverage, 1.0)
}
