// Package interval implements half-open [start, end) time range arithmetic.
// Equality at a boundary never counts as overlap.
package interval

import (
	"sort"
	"time"
)

type Range struct {
	Start time.Time
	End   time.Time
}

// IsPositive reports whether the range has positive length.
func (r Range) IsPositive() bool {
	return r.Start.Before(r.End)
}

// Overlaps reports whether two half-open ranges intersect.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && r.End.After(o.Start)
}

// Contains reports whether t lies in [Start, End).
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Clip trims r to the bounds of b. The result may be non-positive.
func (r Range) Clip(b Range) Range {
	out := r
	if out.Start.Before(b.Start) {
		out.Start = b.Start
	}
	if out.End.After(b.End) {
		out.End = b.End
	}
	return out
}

// Sort orders ranges ascending by start time, in place.
func Sort(rs []Range) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start.Before(rs[j].Start) })
}

// Merge coalesces overlapping or touching ranges into a minimal sorted set.
func Merge(rs []Range) []Range {
	var in []Range
	for _, r := range rs {
		if r.IsPositive() {
			in = append(in, r)
		}
	}
	if len(in) == 0 {
		return nil
	}
	Sort(in)

	out := []Range{in[0]}
	for _, r := range in[1:] {
		last := &out[len(out)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// Intersect returns the ranges present in both sets, sorted ascending.
func Intersect(a, b []Range) []Range {
	a = Merge(a)
	b = Merge(b)

	var out []Range
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		r := Range{Start: a[i].Start, End: a[i].End}
		if b[j].Start.After(r.Start) {
			r.Start = b[j].Start
		}
		if b[j].End.Before(r.End) {
			r.End = b[j].End
		}
		if r.IsPositive() {
			out = append(out, r)
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// Subtract removes every busy range from every available range. A busy range
// straddling an available range splits it; ranges that become non-positive
// are dropped. The result is sorted ascending.
func Subtract(avail, busy []Range) []Range {
	busy = Merge(busy)

	var out []Range
	for _, a := range avail {
		if !a.IsPositive() {
			continue
		}
		remaining := []Range{a}
		for _, b := range busy {
			var next []Range
			for _, r := range remaining {
				if !r.Overlaps(b) {
					next = append(next, r)
					continue
				}
				left := Range{Start: r.Start, End: b.Start}
				right := Range{Start: b.End, End: r.End}
				if left.IsPositive() {
					next = append(next, left)
				}
				if right.IsPositive() {
					next = append(next, right)
				}
			}
			remaining = next
		}
		out = append(out, remaining...)
	}
	Sort(out)
	return out
}
