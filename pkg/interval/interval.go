// Package interval implements half-open time interval arithmetic used to turn
// provider availability into bookable slots.
package interval

import (
	"sort"
	"time"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New returns the interval [start, end).
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Empty reports whether the interval contains no instant.
func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Duration returns the length of the interval, zero when empty.
func (i Interval) Duration() time.Duration {
	if i.Empty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Overlaps reports whether two half-open intervals share at least one instant.
// Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Clamp restricts i to bounds. The result may be empty.
func Clamp(i, bounds Interval) Interval {
	if i.Start.Before(bounds.Start) {
		i.Start = bounds.Start
	}
	if i.End.After(bounds.End) {
		i.End = bounds.End
	}
	return i
}

// SubtractIntervals removes every busy interval from free and returns the
// remaining pieces. Busy intervals may overlap each other and may extend
// past free. The pieces are pairwise disjoint but not sorted; use SortByStart.
func SubtractIntervals(free Interval, busy []Interval) []Interval {
	if free.Empty() {
		return nil
	}

	pieces := []Interval{free}
	for _, b := range busy {
		if b.Empty() {
			continue
		}

		next := make([]Interval, 0, len(pieces)+1)
		for _, p := range pieces {
			if !Overlaps(p, b) {
				next = append(next, p)
				continue
			}
			if b.Start.After(p.Start) {
				next = append(next, Interval{Start: p.Start, End: b.Start})
			}
			if b.End.Before(p.End) {
				next = append(next, Interval{Start: b.End, End: p.End})
			}
		}
		pieces = next
	}

	out := pieces[:0]
	for _, p := range pieces {
		if !p.Empty() {
			out = append(out, p)
		}
	}
	return out
}

// SortByStart orders intervals by start time, keeping the input order of ties.
func SortByStart(in []Interval) {
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].Start.Before(in[j].Start)
	})
}

// MergeOverlapping joins intervals of a start-sorted list that share at least
// one instant. Touching intervals stay separate.
func MergeOverlapping(sorted []Interval) []Interval {
	var out []Interval
	for _, i := range sorted {
		if i.Empty() {
			continue
		}
		if n := len(out); n > 0 && Overlaps(out[n-1], i) {
			if i.End.After(out[n-1].End) {
				out[n-1].End = i.End
			}
			continue
		}
		out = append(out, i)
	}
	return out
}

// SliceIntoSlots cuts each free window into fixed-length slots.
//
// With durationMinutes <= 0 every non-empty window is returned whole. Otherwise
// a slot [t, t+duration) is emitted from each window start while it fits, and t
// advances by stepMinutes (duration when stepMinutes <= 0, never below one
// minute). A step shorter than the duration yields overlapping slots.
func SliceIntoSlots(windows []Interval, durationMinutes, stepMinutes int) []Interval {
	var slots []Interval

	if durationMinutes <= 0 {
		for _, w := range windows {
			if !w.Empty() {
				slots = append(slots, w)
			}
		}
		return slots
	}

	if stepMinutes <= 0 {
		stepMinutes = durationMinutes
	}
	if stepMinutes < 1 {
		stepMinutes = 1
	}

	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(stepMinutes) * time.Minute

	for _, w := range windows {
		for t := w.Start; !t.Add(duration).After(w.End); t = t.Add(step) {
			slots = append(slots, Interval{Start: t, End: t.Add(duration)})
		}
	}
	return slots
}
