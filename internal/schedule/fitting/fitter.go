// Package fitting snaps block durations to canonical sizes and enforces
// minimum gaps between scheduled blocks.
package fitting

import (
	"sort"
	"time"

	"cadence/internal/schedule"
)

// BlockKind selects the canonical duration menu.
type BlockKind string

const (
	BlockFocus    BlockKind = "focus"
	BlockOutreach BlockKind = "outreach"
)

var durationMenus = map[BlockKind][]int{
	BlockFocus:    {25, 50, 90},
	BlockOutreach: {15, 30},
}

// SnapDuration snaps minutes to the nearest value in the kind's menu,
// breaking ties toward the earliest-listed (smallest) option. Unknown
// kinds use the focus menu.
func SnapDuration(minutes int, kind BlockKind) int {
	menu, ok := durationMenus[kind]
	if !ok {
		menu = durationMenus[BlockFocus]
	}
	best := menu[0]
	bestDiff := abs(minutes - best)
	for _, option := range menu[1:] {
		if diff := abs(minutes - option); diff < bestDiff {
			best = option
			bestDiff = diff
		}
	}
	return best
}

// FitDuration returns the end instant for a block starting at start
// with its duration snapped to the kind's menu.
func FitDuration(start time.Time, minutes int, kind BlockKind) time.Time {
	return start.Add(time.Duration(SnapDuration(minutes, kind)) * time.Minute)
}

// InsertBuffers sorts events by start time and walks them once,
// pushing any block that starts within minGap of the previous block's
// end to prevEnd+minGap, preserving its duration. Blocks only ever move
// later, never earlier. The input slice is not modified.
func InsertBuffers(events []schedule.DraftEvent, minGap time.Duration) []schedule.DraftEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]schedule.DraftEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start().Before(out[j].Start())
	})

	prevEnd := out[0].End()
	for i := 1; i < len(out); i++ {
		start := out[i].Start()
		end := out[i].End()
		if start.Sub(prevEnd) < minGap {
			duration := end.Sub(start)
			start = prevEnd.Add(minGap)
			end = start.Add(duration)
			out[i].StartISO = start.Format(time.RFC3339)
			out[i].EndISO = end.Format(time.RFC3339)
		}
		prevEnd = end
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
