// Package textutil provides the lexical helpers shared by the
// classification and dedup heuristics: tokenization, normalization, and
// string similarity behind a swappable interface so thresholds and
// algorithms can be tuned without touching orchestration.
package textutil

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultMinTokenLen is the minimum rune length for a token to count
// toward similarity.
const DefaultMinTokenLen = 2

// Similarity scores how alike two strings are, in [0,1].
type Similarity interface {
	Score(a, b string) float64
}

// Jaccard scores token-set overlap. It is the default measure for
// short titles and sub-question dedup.
type Jaccard struct{}

func (Jaccard) Score(a, b string) float64 {
	tokensA := Tokenize(a)
	tokensB := Tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(tokensA))
	for _, token := range tokensA {
		setA[token] = true
	}
	intersection := 0
	for _, token := range tokensB {
		if setA[token] {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// DiffRatio scores character-level closeness via edit distance over a
// diff, 1 - distance/maxLen. Better than Jaccard for near-identical
// phrasings that differ in a few characters.
type DiffRatio struct{}

func (DiffRatio) Score(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	score := 1 - float64(distance)/float64(longest)
	if score < 0 {
		return 0
	}
	return score
}

// ForName returns the similarity measure with the given name. The
// empty name selects Jaccard.
func ForName(name string) (Similarity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "jaccard":
		return Jaccard{}, nil
	case "diffratio":
		return DiffRatio{}, nil
	default:
		return nil, fmt.Errorf("unknown similarity measure %q (want jaccard or diffratio)", name)
	}
}

// Tokenize splits text into lowercase deduplicated word tokens,
// dropping tokens shorter than DefaultMinTokenLen.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			return false
		}
		if r >= '0' && r <= '9' {
			return false
		}
		return true
	})

	tokens := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		trimmed := strings.ToLower(strings.TrimSpace(field))
		if trimmed == "" || len(trimmed) < DefaultMinTokenLen || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		tokens = append(tokens, trimmed)
	}
	return tokens
}

// NormalizeWhitespace collapses runs of whitespace to single spaces.
func NormalizeWhitespace(value string) string {
	if value == "" {
		return ""
	}
	return strings.Join(strings.Fields(value), " ")
}

// ContainsAny reports whether any of the needles occurs in haystack,
// case-insensitively.
func ContainsAny(haystack string, needles []string) bool {
	lowered := strings.ToLower(haystack)
	for _, needle := range needles {
		if strings.Contains(lowered, needle) {
			return true
		}
	}
	return false
}

// ProperNouns returns the capitalized tokens of text that are not at
// sentence start and not in the stop set, preserving order.
func ProperNouns(text string, stop map[string]bool) []string {
	fields := strings.Fields(text)
	nouns := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, field := range fields {
		trimmed := strings.Trim(field, ".,:;!?()[]\"'")
		if len(trimmed) < 2 {
			continue
		}
		first := rune(trimmed[0])
		if first < 'A' || first > 'Z' {
			continue
		}
		if i == 0 {
			continue
		}
		lowered := strings.ToLower(trimmed)
		if stop[lowered] || seen[lowered] {
			continue
		}
		seen[lowered] = true
		nouns = append(nouns, trimmed)
	}
	return nouns
}
