// Package temporal extracts absolute start/end instants from free-text
// time phrases. Parsing is total: anything unrecognized is a no-match,
// never an error.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Range is a resolved time reference in the target timezone.
type Range struct {
	StartISO string
	EndISO   string
	// Specificity grows with how explicit the phrase was (weekday,
	// minutes, meridiem, zone each contribute).
	Specificity float64
}

// Parser resolves time phrases against a reference instant.
type Parser struct {
	defaultDuration time.Duration
}

// NewParser returns a parser that applies defaultDuration when the
// phrase states no end time. A non-positive duration falls back to 30
// minutes.
func NewParser(defaultDuration time.Duration) *Parser {
	if defaultDuration <= 0 {
		defaultDuration = 30 * time.Minute
	}
	return &Parser{defaultDuration: defaultDuration}
}

// The four North American zone abbreviations map to fixed IANA zones.
var zoneAbbrevs = map[string]string{
	"pt": "America/Los_Angeles",
	"et": "America/New_York",
	"ct": "America/Chicago",
	"mt": "America/Denver",
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "weds": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// Explicit timestamps are taken verbatim, with no roll-forward; the
// caller's past-filter decides what to do with stale ones.
var isoPattern = regexp.MustCompile(
	`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:\d{2})?`)

var phrasePattern = regexp.MustCompile(
	`(?i)\b(?:(sun(?:day)?|mon(?:day)?|tue(?:s|sday)?|wed(?:s|nesday)?|thu(?:r|rs|rsday)?|fri(?:day)?|sat(?:urday)?)\b[,.]?\s*)?` +
		`(?:at\s+)?(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?\s*\b(pt|et|ct|mt)?\b`)

// Parse scans text for a weekday/clock/meridiem/zone phrase and
// resolves it to the next matching instant on or after now, expressed
// in targetTZ. The boolean result is false when no parseable phrase is
// present or targetTZ is unknown.
func (p *Parser) Parse(text string, now time.Time, targetTZ string) (Range, bool) {
	targetLoc, err := time.LoadLocation(targetTZ)
	if err != nil || targetTZ == "" {
		return Range{}, false
	}

	if raw := isoPattern.FindString(text); raw != "" {
		if start, ok := parseISO(raw, targetLoc); ok {
			return Range{
				StartISO:    start.In(targetLoc).Format(time.RFC3339),
				EndISO:      start.Add(p.defaultDuration).In(targetLoc).Format(time.RFC3339),
				Specificity: 1,
			}, true
		}
	}

	for _, match := range phrasePattern.FindAllStringSubmatch(text, -1) {
		weekdayRaw := strings.ToLower(match[1])
		hourRaw := match[2]
		minuteRaw := match[3]
		meridiem := strings.ReplaceAll(strings.ToLower(match[4]), ".", "")
		zoneRaw := strings.ToLower(match[5])

		// A bare number is not a time reference; demand at least one
		// anchoring cue around it.
		if weekdayRaw == "" && meridiem == "" && zoneRaw == "" {
			continue
		}

		hour, err := strconv.Atoi(hourRaw)
		if err != nil {
			continue
		}
		minute := 0
		if minuteRaw != "" {
			minute, err = strconv.Atoi(minuteRaw)
			if err != nil || minute > 59 {
				continue
			}
		}
		switch meridiem {
		case "am":
			if hour < 1 || hour > 12 {
				continue
			}
			if hour == 12 {
				hour = 0
			}
		case "pm":
			if hour < 1 || hour > 12 {
				continue
			}
			if hour != 12 {
				hour += 12
			}
		default:
			if hour > 23 {
				continue
			}
		}

		sourceLoc := targetLoc
		if zoneRaw != "" {
			loc, err := time.LoadLocation(zoneAbbrevs[zoneRaw])
			if err != nil {
				continue
			}
			sourceLoc = loc
		}

		localNow := now.In(sourceLoc)
		day := localNow
		if weekdayRaw != "" {
			target, ok := weekdays[weekdayRaw]
			if !ok {
				continue
			}
			ahead := (int(target) - int(localNow.Weekday()) + 7) % 7
			day = localNow.AddDate(0, 0, ahead)
		}

		start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, sourceLoc)
		if start.Before(now) {
			if weekdayRaw != "" {
				start = start.AddDate(0, 0, 7)
			} else {
				start = start.AddDate(0, 0, 1)
			}
		}

		specificity := 0.4
		if weekdayRaw != "" {
			specificity += 0.2
		}
		if minuteRaw != "" {
			specificity += 0.15
		}
		if meridiem != "" {
			specificity += 0.1
		}
		if zoneRaw != "" {
			specificity += 0.15
		}

		end := start.Add(p.defaultDuration)
		return Range{
			StartISO:    start.In(targetLoc).Format(time.RFC3339),
			EndISO:      end.In(targetLoc).Format(time.RFC3339),
			Specificity: specificity,
		}, true
	}
	return Range{}, false
}

// parseISO accepts RFC3339 variants with or without seconds and zone;
// zone-less values are wall clock in the target location.
func parseISO(raw string, loc *time.Location) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
	} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
