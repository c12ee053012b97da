// Package taskdraft canonicalizes loosely-shaped task drafts, typically
// produced by the text-completion capability. Normalization is total:
// garbage fields resolve to documented defaults or are omitted, never
// rejected.
package taskdraft

import (
	"math"
	"strings"
	"time"

	"cadence/internal/schedule"
)

// Effort bounds in minutes.
const (
	MinEffortMinutes     = 5
	MaxEffortMinutes     = 480
	DefaultEffortMinutes = 50
)

// Raw is a task draft as delivered by the capability: every field is
// optional and loosely typed.
type Raw struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	DueAt         string   `json:"dueAt"`
	HardDeadline  bool     `json:"hardDeadline"`
	EffortMinutes *float64 `json:"effortMinutes"`
	Priority      string   `json:"priority"`
	Tags          []string `json:"tags"`
	RequiresHuman bool     `json:"requiresHuman"`
}

var prioritySynonyms = map[string]schedule.Priority{
	"lowest": schedule.PriorityLow, "minor": schedule.PriorityLow, "trivial": schedule.PriorityLow,
	"normal": schedule.PriorityMedium, "standard": schedule.PriorityMedium, "default": schedule.PriorityMedium,
	"important": schedule.PriorityHigh, "major": schedule.PriorityHigh,
	"critical": schedule.PriorityUrgent, "blocker": schedule.PriorityUrgent, "immediate": schedule.PriorityUrgent,
}

// ClampPriority maps an arbitrary priority string onto the enum: exact
// match first, then the synonym table, then medium. Empty input has no
// priority to clamp and yields the zero value.
func ClampPriority(raw string) schedule.Priority {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	switch schedule.Priority(trimmed) {
	case schedule.PriorityLow, schedule.PriorityMedium, schedule.PriorityHigh, schedule.PriorityUrgent:
		return schedule.Priority(trimmed)
	}
	if mapped, ok := prioritySynonyms[trimmed]; ok {
		return mapped
	}
	return schedule.PriorityMedium
}

// InferEffortMinutes clamps an effort estimate to [5,480]. Absent,
// non-finite, or non-positive input yields the default of 50.
func InferEffortMinutes(minutes *float64) int {
	if minutes == nil || math.IsNaN(*minutes) || math.IsInf(*minutes, 0) || *minutes <= 0 {
		return DefaultEffortMinutes
	}
	value := int(math.Round(*minutes))
	if value < MinEffortMinutes {
		return MinEffortMinutes
	}
	if value > MaxEffortMinutes {
		return MaxEffortMinutes
	}
	return value
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var genericLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006",
}

// ResolveDueDate turns a due phrase into an RFC3339 instant relative to
// now. ISO-8601 input passes through unchanged. The empty string means
// the field should be omitted.
func ResolveDueDate(raw string, now time.Time) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if _, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return trimmed
	}

	lowered := strings.ToLower(trimmed)
	switch lowered {
	case "today":
		return now.Format(time.RFC3339)
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(time.RFC3339)
	}
	if name, ok := strings.CutPrefix(lowered, "next "); ok {
		if weekday, found := weekdayNames[strings.TrimSpace(name)]; found {
			ahead := (int(weekday) - int(now.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return now.AddDate(0, 0, ahead).Format(time.RFC3339)
		}
	}

	for _, layout := range genericLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format(time.RFC3339)
		}
	}
	return ""
}

// NormalizeTags lowercases, deduplicates, and drops empty tags. Nil is
// returned when nothing survives so the field marshals as omitted.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned := strings.ToLower(strings.TrimSpace(tag))
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		result = append(result, cleaned)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// Normalize canonicalizes one raw draft against the reference instant.
func Normalize(raw Raw, now time.Time) schedule.TaskDraft {
	priority := ClampPriority(raw.Priority)
	if priority == "" {
		priority = schedule.PriorityMedium
	}
	return schedule.TaskDraft{
		Title:         strings.TrimSpace(raw.Title),
		Description:   strings.TrimSpace(raw.Description),
		DueAt:         ResolveDueDate(raw.DueAt, now),
		HardDeadline:  raw.HardDeadline,
		EffortMinutes: InferEffortMinutes(raw.EffortMinutes),
		Priority:      priority,
		Tags:          NormalizeTags(raw.Tags),
		RequiresHuman: raw.RequiresHuman,
	}
}

// NormalizeAll maps Normalize over a batch, preserving order.
func NormalizeAll(raws []Raw, now time.Time) []schedule.TaskDraft {
	drafts := make([]schedule.TaskDraft, 0, len(raws))
	for _, raw := range raws {
		drafts = append(drafts, Normalize(raw, now))
	}
	return drafts
}
