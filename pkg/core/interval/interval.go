// Package interval provides arithmetic on half-open minute-of-day ranges
// within a single day. All functions are pure and never mutate their
// arguments.
package interval

import (
	"fmt"
	"sort"
	"strconv"
)

// Range is a half-open [Start, End) range in minutes since midnight
type Range struct {
	Start int
	End   int
}

// IsValid reports whether the range is non-empty and within a single day
func (r Range) IsValid() bool {
	return r.Start >= 0 && r.End <= 24*60 && r.Start < r.End
}

// Duration returns the range length in minutes
func (r Range) Duration() int {
	return r.End - r.Start
}

// ParseClock converts an "HH:mm" string to minutes since midnight
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid clock time %q: expected HH:mm", s)
	}
	hours, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(s[3:])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid clock time %q: out of range", s)
	}
	return hours*60 + minutes, nil
}

// FormatClock converts minutes since midnight back to "HH:mm"
func FormatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseRange converts a pair of "HH:mm" strings into a Range
func ParseRange(start, end string) (Range, error) {
	startMin, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return Range{}, err
	}
	r := Range{Start: startMin, End: endMin}
	if !r.IsValid() {
		return Range{}, fmt.Errorf("invalid range %s-%s: start must precede end", start, end)
	}
	return r, nil
}

// Overlaps reports whether two half-open ranges overlap. Touching
// endpoints do not overlap.
func Overlaps(a, b Range) bool {
	return a.Start < b.End && b.Start < a.End
}

// Intersect returns the overlap of a and b and whether it is non-empty
func Intersect(a, b Range) (Range, bool) {
	r := Range{Start: max(a.Start, b.Start), End: min(a.End, b.End)}
	if r.Start >= r.End {
		return Range{}, false
	}
	return r, true
}

// MergeOverlapping folds overlapping and touching ranges into the widest
// covering ranges. The result is sorted by start with no two elements
// overlapping or touching.
func MergeOverlapping(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			// Overlapping or touching: extend the covering range
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}

	return merged
}

// SubtractBlocked removes the blocked ranges from span, returning the free
// ranges left over in left-to-right order
func SubtractBlocked(span Range, blocked []Range) []Range {
	merged := MergeOverlapping(blocked)

	var free []Range
	cursor := span.Start
	for _, b := range merged {
		if b.End <= span.Start || b.Start >= span.End {
			continue
		}
		if b.Start > cursor {
			free = append(free, Range{Start: cursor, End: min(b.Start, span.End)})
		}
		cursor = max(cursor, b.End)
		if cursor >= span.End {
			break
		}
	}
	if cursor < span.End {
		free = append(free, Range{Start: cursor, End: span.End})
	}

	return free
}

// SliceIntoSlots emits a slot of duration minutes every step minutes
// within each free range, while the slot still fits. A step smaller than
// duration yields overlapping candidate slots, which gives the caller
// maximal choice.
func SliceIntoSlots(free []Range, duration, step int) []Range {
	if duration <= 0 || step <= 0 {
		return nil
	}

	var slots []Range
	for _, r := range free {
		for start := r.Start; start+duration <= r.End; start += step {
			slots = append(slots, Range{Start: start, End: start + duration})
		}
	}
	return slots
}
