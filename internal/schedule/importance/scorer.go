// Package importance ranks signals by how much they matter to the
// user, independent of focus: how fresh the signal is, who it came
// from, which channel carried it, and whether it uses urgency
// vocabulary. Like focus it is a scorer, not a filter.
package importance

import (
	"strings"
	"time"

	"cadence/internal/schedule"
	"cadence/internal/textutil"
)

// Rule weights. The final score is clamped to [0,1].
const (
	weightFreshDay      = 0.4
	weightFreshThreeDay = 0.25
	weightFreshWeek     = 0.1
	weightKnownContact  = 0.3
	weightUrgencyVocab  = 0.3
	weightDeadlineVocab = 0.2
)

// Channel weights favor signals the user typed or was addressed on
// directly over bulk-capable channels.
var sourceWeights = map[schedule.SignalSource]float64{
	schedule.SourceManual: 0.2,
	schedule.SourceSlack:  0.15,
	schedule.SourceEmail:  0.1,
}

var urgencyVocab = []string{
	"urgent", "asap", "immediately", "overdue", "blocker", "time-sensitive",
}

var deadlineVocab = []string{
	"deadline", "due by", "due date", "contract", "invoice", "renewal", "expires",
}

// Date header layouts seen in the wild, most common first.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC3339,
}

// Eval is the scorer's verdict on one signal.
type Eval struct {
	Score  float64
	Reason string
}

// Scorer evaluates signals against the importance heuristics.
type Scorer struct {
	allowContacts map[string]bool
}

// NewScorer builds a scorer. allowContacts lists sender addresses or
// participant names that always matter; matching is case-insensitive.
func NewScorer(allowContacts []string) *Scorer {
	contacts := make(map[string]bool, len(allowContacts))
	for _, contact := range allowContacts {
		contact = strings.ToLower(strings.TrimSpace(contact))
		if contact != "" {
			contacts[contact] = true
		}
	}
	return &Scorer{allowContacts: contacts}
}

// Evaluate scores one signal relative to now.
func (s *Scorer) Evaluate(sig schedule.Signal, now time.Time) Eval {
	score := 0.0
	var fired []string
	bump := func(weight float64, rule string) {
		score += weight
		fired = append(fired, rule)
	}

	switch age := signalAge(sig, now); {
	case age <= 24*time.Hour:
		bump(weightFreshDay, "fresh-day")
	case age <= 3*24*time.Hour:
		bump(weightFreshThreeDay, "fresh-3d")
	case age <= 7*24*time.Hour:
		bump(weightFreshWeek, "fresh-week")
	}

	if s.knownContact(sig) {
		bump(weightKnownContact, "known-contact")
	}
	if weight, ok := sourceWeights[sig.Source]; ok {
		bump(weight, "channel-"+strings.ToLower(string(sig.Source)))
	}

	text := strings.ToLower(sig.Title + " " + sig.Body)
	if textutil.ContainsAny(text, urgencyVocab) {
		bump(weightUrgencyVocab, "urgency-vocabulary")
	}
	if textutil.ContainsAny(text, deadlineVocab) {
		bump(weightDeadlineVocab, "deadline-vocabulary")
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	reason := "important"
	if len(fired) > 0 {
		reason = "important: " + strings.Join(fired, ",")
	}
	return Eval{Score: score, Reason: reason}
}

// signalAge reads the Date header. A missing or unparseable date
// counts as fresh: manual signals have no headers and were just
// produced by the caller.
func signalAge(sig schedule.Signal, now time.Time) time.Duration {
	raw, ok := sig.Header("Date")
	if !ok {
		return 0
	}
	for _, layout := range dateLayouts {
		if sent, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			age := now.Sub(sent)
			if age < 0 {
				return 0
			}
			return age
		}
	}
	return 0
}

func (s *Scorer) knownContact(sig schedule.Signal) bool {
	if len(s.allowContacts) == 0 {
		return false
	}
	if from, ok := sig.Header("From"); ok {
		if s.allowContacts[strings.ToLower(strings.Trim(from, "<> \t"))] {
			return true
		}
	}
	if sig.Thread != nil {
		for _, participant := range sig.Thread.Participants {
			if s.allowContacts[strings.ToLower(strings.TrimSpace(participant))] {
				return true
			}
		}
	}
	return false
}
