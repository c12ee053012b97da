// Package intent classifies free-text utterances into scheduling
// intents, lexically for routing and via the text-completion capability
// for structured extraction.
package intent

import (
	"regexp"
	"strings"
)

// Intent is the routing category for an utterance.
type Intent string

const (
	ScheduleRequest Intent = "schedule_request"
	PlanRequest     Intent = "plan_request"
	Mixed           Intent = "mixed"
)

// Options tunes the router's ambiguous branch. ScheduleBias applies only
// to genuinely cue-free, non-empty input; empty and dual-cue input
// always resolve to Mixed.
type Options struct {
	ScheduleBias bool
}

var scheduleCues = []string{
	"schedule", "calendar", "book", "invite", "add to my calendar",
	"set up a meeting", "reschedule", "block time",
}

var planCues = []string{
	"plan", "career", "roadmap", "think about", "strategy", "long term",
	"long-term", "goals",
}

// Loose time expressions also count as scheduling cues.
var timeExpression = regexp.MustCompile(
	`(?i)\b(\d{1,2}(:\d{2})?\s*(am|pm)|tomorrow|today|tonight|next week|` +
		`mon(day)?|tue(sday)?|wed(nesday)?|thu(rsday)?|fri(day)?|sat(urday)?|sun(day)?)\b`)

// Route classifies an utterance. Both cue families present yields
// Mixed; neither yields the conversational-first default, adjusted by
// opts for genuinely ambiguous input.
func Route(text string, opts Options) Intent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Mixed
	}
	lowered := strings.ToLower(trimmed)

	hasSchedule := containsCue(lowered, scheduleCues) || timeExpression.MatchString(trimmed)
	hasPlan := containsCue(lowered, planCues)

	switch {
	case hasSchedule && hasPlan:
		return Mixed
	case hasSchedule:
		return ScheduleRequest
	case hasPlan:
		return PlanRequest
	case opts.ScheduleBias:
		return ScheduleRequest
	default:
		return Mixed
	}
}

// IsScheduleAllowed reports whether the intent permits emitting
// calendar drafts.
func IsScheduleAllowed(intent Intent) bool {
	return intent == ScheduleRequest || intent == Mixed
}

func containsCue(lowered string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return false
}
