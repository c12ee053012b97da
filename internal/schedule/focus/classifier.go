// Package focus scores whether a signal merits attention versus bulk
// or marketing noise. It is a deterministic scorer, not a pure filter:
// callers compare the score against their configured threshold.
package focus

import (
	"regexp"
	"strings"

	"cadence/internal/schedule"
	"cadence/internal/textutil"
)

// Rule weights. Positive contributions raise the score, negative ones
// lower it; the final score is clamped to [0,1].
const (
	weightSmallThread    = 0.25
	weightUserReplied    = 0.3
	weightReplyDepth     = 0.2
	weightKnownDomain    = 0.25
	weightActionVocab    = 0.2
	weightListID         = -0.5
	weightUnsubscribe    = -0.3
	weightBulkPrecedence = -0.3
	weightMarketingVocab = -0.25
	weightImageHeavy     = -0.15

	smallThreadMax = 6
	replyDepthMin  = 2
)

var inviteVocab = []string{
	"calendar invite", "invitation", ".ics", "ics attachment", "meeting request", "invited you",
}

var meetingVocab = []string{
	"meeting", "zoom", "call", "sync", "standup", "1:1", "google meet", "teams", "huddle",
}

var actionVocab = []string{
	"action required", "please review", "decision", "deadline", "due by",
	"follow up", "follow-up", "confirm", "rsvp", "sign off", "approve",
}

var marketingVocab = []string{
	"unsubscribe", "view in browser", "view this email in", "no-reply",
	"noreply", "newsletter", "% off", "percent off",
}

var imagePattern = regexp.MustCompile(`(?i)<img\b|\.(png|jpe?g|gif)\b`)

// Classifier evaluates signals against the focus heuristics.
type Classifier struct {
	threshold    float64
	allowDomains map[string]bool
}

// NewClassifier builds a classifier. allowDomains is the curated
// sender-domain allow-list; matching is case-insensitive.
func NewClassifier(threshold float64, allowDomains []string) *Classifier {
	domains := make(map[string]bool, len(allowDomains))
	for _, domain := range allowDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			domains[domain] = true
		}
	}
	return &Classifier{threshold: threshold, allowDomains: domains}
}

// Threshold returns the configured focus threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Evaluate scores one signal. Hard-allow rules short-circuit the
// weighted accumulation.
func (c *Classifier) Evaluate(sig schedule.Signal) schedule.FocusEval {
	text := strings.ToLower(sig.Title + " " + sig.Body)

	if contentType, ok := sig.Header("Content-Type"); ok {
		lowered := strings.ToLower(contentType)
		if strings.Contains(lowered, "text/calendar") || strings.Contains(lowered, "application/ics") {
			return schedule.FocusEval{Score: 1.0, Reason: "calendar-payload", ForceAllow: true}
		}
	}
	if textutil.ContainsAny(text, inviteVocab) {
		return schedule.FocusEval{Score: 1.0, Reason: "invite-vocabulary", ForceAllow: true}
	}
	if textutil.ContainsAny(text, meetingVocab) {
		return schedule.FocusEval{Score: 1.0, Reason: "meeting-vocabulary", ForceAllow: true}
	}

	score := 0.0
	var fired []string
	bump := func(weight float64, rule string) {
		score += weight
		fired = append(fired, rule)
	}

	if sig.Thread != nil {
		if n := len(sig.Thread.Participants); n > 0 && n <= smallThreadMax {
			bump(weightSmallThread, "small-thread")
		}
		if sig.Thread.UserReplied {
			bump(weightUserReplied, "user-replied")
		}
		if sig.Thread.ReplyCount >= replyDepthMin {
			bump(weightReplyDepth, "reply-depth")
		}
	}
	if domain := senderDomain(sig); domain != "" && c.allowDomains[domain] {
		bump(weightKnownDomain, "known-domain")
	}
	if textutil.ContainsAny(text, actionVocab) {
		bump(weightActionVocab, "action-vocabulary")
	}

	if _, ok := sig.Header("List-Id"); ok {
		bump(weightListID, "list-id")
	}
	if _, ok := sig.Header("List-Unsubscribe"); ok {
		bump(weightUnsubscribe, "list-unsubscribe")
	}
	if precedence, ok := sig.Header("Precedence"); ok {
		lowered := strings.ToLower(precedence)
		if lowered == "bulk" || lowered == "list" || lowered == "junk" {
			bump(weightBulkPrecedence, "bulk-precedence")
		}
	}
	if textutil.ContainsAny(text, marketingVocab) {
		bump(weightMarketingVocab, "marketing-vocabulary")
	}
	if imageHeavy(sig.Body) {
		bump(weightImageHeavy, "image-heavy")
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	branch := "low_confidence"
	if score >= c.threshold {
		branch = "focused"
	}
	reason := branch
	if len(fired) > 0 {
		reason = branch + ": " + strings.Join(fired, ",")
	}
	return schedule.FocusEval{Score: score, Reason: reason}
}

// senderDomain extracts the domain of the From header, if any.
func senderDomain(sig schedule.Signal) string {
	from, ok := sig.Header("From")
	if !ok {
		return ""
	}
	at := strings.LastIndex(from, "@")
	if at < 0 || at == len(from)-1 {
		return ""
	}
	domain := from[at+1:]
	domain = strings.Trim(domain, "<> \t")
	if end := strings.IndexAny(domain, "> \t"); end >= 0 {
		domain = domain[:end]
	}
	return strings.ToLower(domain)
}

// imageHeavy reports a body that is mostly images with little text.
func imageHeavy(body string) bool {
	if body == "" {
		return false
	}
	images := len(imagePattern.FindAllString(body, -1))
	if images < 2 {
		return false
	}
	stripped := imagePattern.ReplaceAllString(body, "")
	return len(strings.TrimSpace(stripped)) < 200
}
