// Package schedule defines the shared data model of the
// signal-to-schedule pipeline: raw signals in, draft events and
// normalized task drafts out. All values are plain data; the core never
// persists them and performs no I/O.
package schedule

import (
	"strings"
	"time"
)

// SignalSource identifies where a signal came from.
type SignalSource string

const (
	SourceEmail  SignalSource = "EMAIL"
	SourceSlack  SignalSource = "SLACK"
	SourceManual SignalSource = "MANUAL"
)

// ThreadMetadata describes the conversation a signal belongs to.
type ThreadMetadata struct {
	Participants []string `json:"participants,omitempty" yaml:"participants,omitempty"`
	ReplyCount   int      `json:"replyCount" yaml:"replyCount"`
	UserReplied  bool     `json:"userReplied" yaml:"userReplied"`
}

// Signal is a unit of raw external text entering the pipeline. It is
// owned by the caller and read-only here.
type Signal struct {
	Source   SignalSource      `json:"source" yaml:"source"`
	Title    string            `json:"title" yaml:"title"`
	Body     string            `json:"body,omitempty" yaml:"body,omitempty"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Thread   *ThreadMetadata   `json:"threadMetadata,omitempty" yaml:"threadMetadata,omitempty"`
	SourceID string            `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
}

// Header returns a header value by case-insensitive name.
func (s Signal) Header(name string) (string, bool) {
	for key, value := range s.Headers {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return "", false
}

// EventMeta is the closed set of optional extension fields a draft
// event may carry.
type EventMeta struct {
	SpecificityScore float64  `json:"specificityScore,omitempty"`
	Deliverable      string   `json:"deliverable,omitempty"`
	Resources        []string `json:"resources,omitempty"`
}

// DraftEvent is a provisional calendar-event candidate. Invariants:
// Start < End, Timezone is a valid IANA identifier, and Reasons is
// non-empty for any retained event.
type DraftEvent struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	StartISO  string       `json:"startISO"`
	EndISO    string       `json:"endISO"`
	Timezone  string       `json:"timezone"`
	Source    SignalSource `json:"source"`
	Reasons   []string     `json:"reasons"`
	SourceRef string       `json:"sourceRef,omitempty"`
	Meta      *EventMeta   `json:"meta,omitempty"`
}

// Start parses StartISO; the zero time is returned for malformed values.
func (e DraftEvent) Start() time.Time {
	t, _ := time.Parse(time.RFC3339, e.StartISO)
	return t
}

// End parses EndISO; the zero time is returned for malformed values.
func (e DraftEvent) End() time.Time {
	t, _ := time.Parse(time.RFC3339, e.EndISO)
	return t
}

// Priority levels for task drafts.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// TaskDraft is a provisional to-do item extracted from a signal.
// EffortMinutes is always within [5,480] after normalization.
type TaskDraft struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	DueAt         string   `json:"dueAt,omitempty"`
	HardDeadline  bool     `json:"hardDeadline,omitempty"`
	EffortMinutes int      `json:"effortMinutes"`
	Priority      Priority `json:"priority"`
	Tags          []string `json:"tags,omitempty"`
	RequiresHuman bool     `json:"requiresHuman,omitempty"`
}

// CadenceKind enumerates how often an intent repeats.
type CadenceKind string

const (
	CadenceOnce          CadenceKind = "once"
	CadenceDaily         CadenceKind = "daily"
	CadenceWeekly        CadenceKind = "weekly"
	CadenceEveryOtherDay CadenceKind = "every_other_day"
	CadenceCustom        CadenceKind = "custom"
)

// Cadence describes intent recurrence.
type Cadence struct {
	Kind       CadenceKind `json:"kind"`
	DaysOfWeek []string    `json:"daysOfWeek,omitempty"`
	Interval   int         `json:"interval,omitempty"`
}

// USI is an unstructured scheduling intent extracted from free text.
// DurationMin is never below 25 after interpretation.
type USI struct {
	Goal        string  `json:"goal"`
	DurationMin int     `json:"durationMin"`
	Cadence     Cadence `json:"cadence"`
	Window      string  `json:"window,omitempty"`
	StartDate   string  `json:"startDate,omitempty"`
	EndDate     string  `json:"endDate,omitempty"`
	Count       int     `json:"count,omitempty"`
	Timezone    string  `json:"timezone"`
	Priority    int     `json:"priority"`
}

// FocusEval is the classifier's verdict on one signal.
type FocusEval struct {
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
	ForceAllow bool    `json:"forceAllow"`
}

// AnswerItem pairs a sub-question with its best-matching answer line.
type AnswerItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AnswerMap scores how well an answer covers a message's sub-questions.
type AnswerMap struct {
	Items     []AnswerItem `json:"items"`
	Coverage  float64      `json:"coverage"`
	Relevance float64      `json:"relevance"`
}

// EvidenceLink is one supporting reference returned by the search
// capability.
type EvidenceLink struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// PipelineResult is the draft pipeline's output. DailyPlan,
// WeeklyRollup, and UnscheduledTaskIDs are pure, order-preserving
// projections of Events.
type PipelineResult struct {
	Events             []DraftEvent            `json:"events"`
	DailyPlan          map[string][]DraftEvent `json:"dailyPlan"`
	WeeklyRollup       map[string][]DraftEvent `json:"weeklyRollup"`
	UnscheduledTaskIDs []string                `json:"unscheduledTaskIds"`
}
