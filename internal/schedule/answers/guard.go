// Package answers scores whether a generated answer actually covers the
// sub-questions of a user's message, and produces a clarifying question
// when it does not.
package answers

import (
	"regexp"
	"strings"

	"cadence/internal/schedule"
	"cadence/internal/textutil"
)

// Config tunes the guard thresholds.
type Config struct {
	// SimilarityThreshold dedups near-identical sub-question fragments.
	SimilarityThreshold float64
	// RelevanceFloor is the minimum mean relevance before a clarifier
	// fires.
	RelevanceFloor float64
	// ImplicitCoverScore floors a sub-question's score when a content
	// word of it appears anywhere in the answer.
	ImplicitCoverScore float64
	// MaxSubQuestions caps the number of fragments considered.
	MaxSubQuestions int
}

// DefaultConfig mirrors the tuned production thresholds.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		RelevanceFloor:      0.6,
		ImplicitCoverScore:  0.65,
		MaxSubQuestions:     8,
	}
}

// Guard evaluates answer relevance with a pluggable similarity measure.
type Guard struct {
	cfg Config
	sim textutil.Similarity
}

// NewGuard builds a guard. A nil similarity falls back to token-set
// Jaccard.
func NewGuard(cfg Config, sim textutil.Similarity) *Guard {
	if sim == nil {
		sim = textutil.Jaccard{}
	}
	if cfg.MaxSubQuestions <= 0 {
		cfg.MaxSubQuestions = DefaultConfig().MaxSubQuestions
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultConfig().SimilarityThreshold
	}
	if cfg.RelevanceFloor <= 0 {
		cfg.RelevanceFloor = DefaultConfig().RelevanceFloor
	}
	if cfg.ImplicitCoverScore <= 0 {
		cfg.ImplicitCoverScore = DefaultConfig().ImplicitCoverScore
	}
	return &Guard{cfg: cfg, sim: sim}
}

var (
	bulletPattern      = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s*`)
	conjunctionPattern = regexp.MustCompile(`(?i)\s+(?:and also|and then|as well as|and|but|plus)\s+`)
	sentenceSplit      = regexp.MustCompile(`[.!?\n]+`)
)

// SplitIntoSubQuestions segments a message into the distinct questions
// it asks: question marks, bullets, newlines, and coordinating
// conjunctions all delimit fragments. Near-identical fragments are
// deduplicated and the result is capped.
func (g *Guard) SplitIntoSubQuestions(message string) []string {
	message = bulletPattern.ReplaceAllString(message, "\n")

	var fragments []string
	for _, byMark := range strings.FieldsFunc(message, func(r rune) bool {
		return r == '?' || r == '\n'
	}) {
		for _, fragment := range conjunctionPattern.Split(byMark, -1) {
			fragment = textutil.NormalizeWhitespace(fragment)
			if len(textutil.Tokenize(fragment)) < 2 {
				continue
			}
			fragments = append(fragments, fragment)
		}
	}

	var kept []string
	for _, fragment := range fragments {
		duplicate := false
		for _, existing := range kept {
			if g.sim.Score(fragment, existing) >= g.cfg.SimilarityThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, fragment)
		}
		if len(kept) == g.cfg.MaxSubQuestions {
			break
		}
	}
	return kept
}

// BuildAnswerMap matches each sub-question of the message to its
// best-scoring answer line and aggregates a relevance score.
func (g *Guard) BuildAnswerMap(message, answer string) schedule.AnswerMap {
	questions := g.SplitIntoSubQuestions(message)
	if len(questions) == 0 {
		questions = []string{textutil.NormalizeWhitespace(message)}
	}

	lines := answerLines(answer)
	loweredAnswer := strings.ToLower(answer)

	items := make([]schedule.AnswerItem, 0, len(questions))
	total := 0.0
	covered := 0
	for _, question := range questions {
		bestLine := ""
		bestScore := 0.0
		for _, line := range lines {
			if score := g.sim.Score(question, line); score > bestScore {
				bestScore = score
				bestLine = line
			}
		}
		// Content-word floor: a long token of the question appearing
		// anywhere in the answer counts as implicit coverage.
		if bestScore < g.cfg.ImplicitCoverScore && containsContentWord(question, loweredAnswer) {
			bestScore = g.cfg.ImplicitCoverScore
		}
		if bestScore > 1 {
			bestScore = 1
		}
		if bestScore >= 0.5 {
			covered++
		}
		total += bestScore
		items = append(items, schedule.AnswerItem{Question: question, Answer: bestLine})
	}

	relevance := total / float64(len(questions))
	if relevance < 0 {
		relevance = 0
	}
	if relevance > 1 {
		relevance = 1
	}
	return schedule.AnswerMap{
		Items:     items,
		Coverage:  float64(covered) / float64(len(questions)),
		Relevance: relevance,
	}
}

// MaybeClarifier returns a single clarifying question when relevance is
// below the floor. The second result is false when no clarifier is
// needed.
func (g *Guard) MaybeClarifier(message string, relevance float64) (string, bool) {
	if relevance >= g.cfg.RelevanceFloor {
		return "", false
	}
	excerpt := textutil.NormalizeWhitespace(message)
	if runes := []rune(excerpt); len(runes) > 80 {
		excerpt = strings.TrimSpace(string(runes[:80]))
	}
	return `Quick clarifier: when you asked "` + excerpt + `", which part should I focus on first?`, true
}

func answerLines(answer string) []string {
	raw := sentenceSplit.Split(answer, -1)
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = textutil.NormalizeWhitespace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// containsContentWord reports whether any token of the question with at
// least five characters occurs in the lowercased answer.
func containsContentWord(question, loweredAnswer string) bool {
	for _, token := range textutil.Tokenize(question) {
		if len(token) >= 5 && strings.Contains(loweredAnswer, token) {
			return true
		}
	}
	return false
}
