package planner

import (
	"sort"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// order implements the host's top-down precedence model: seed with
// chronological order, then repeatedly bubble any lower bundle above its
// dominator until a pass makes no moves or MaxOrderPasses is reached.
// Bundles move as a cohesive unit.
func order(bundles []model.Bundle) []model.Bundle {
	out := append([]model.Bundle(nil), bundles...)

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Base.Range.Start, out[j].Base.Range.Start
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return dailyStartMinutes(out[i].Base) < dailyStartMinutes(out[j].Base)
	})

	for pass := 0; pass < MaxOrderPasses; pass++ {
		moved := false
		for i := 1; i < len(out); i++ {
			for j := 0; j < i; j++ {
				if dominates(out[j], out[i]) {
					moveUp(out, i, j)
					moved = true
					break
				}
			}
		}
		if !moved {
			break
		}
	}

	return out
}

// moveUp relocates the bundle at index i to sit directly above index j,
// shifting the intervening bundles down one slot.
func moveUp(bundles []model.Bundle, i, j int) {
	b := bundles[i]
	copy(bundles[j+1:i+1], bundles[j:i])
	bundles[j] = b
}

// dominates reports whether b must sit above a under the dominance rules.
// a is the bundle currently higher in the order; when true, b is moved
// above it.
func dominates(a, b model.Bundle) bool {
	if !overlaps(a, b) {
		return false
	}

	aContainsB := containsRange(a.Base.Range, b.Base.Range)
	bContainsA := containsRange(b.Base.Range, a.Base.Range)

	switch {
	case aContainsB:
		// b is more specific than a -> b must be above a.
		return true
	case bContainsA:
		return false
	}

	da := dailyDuration(a.Base)
	db := dailyDuration(b.Base)
	if da != db {
		return db < da
	}

	sa := dailyStartMinutes(a.Base)
	sb := dailyStartMinutes(b.Base)
	return sb > sa
}

func containsRange(outer, inner model.IntentRange) bool {
	if outer.Start.Equal(inner.Start) && outer.End.Equal(inner.End) {
		return false
	}
	return !outer.Start.After(inner.Start) && !outer.End.Before(inner.End)
}

func overlaps(a, b model.Bundle) bool {
	if !dateRangesIntersect(a.Base.Range, b.Base.Range) {
		return false
	}
	if !daysIntersect(a.Base.Range.Days, b.Base.Range.Days) {
		return false
	}
	return dailyWindowsIntersect(a.Base, b.Base)
}

func dateRangesIntersect(a, b model.IntentRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

func weekdaysOf(days string) map[time.Weekday]bool {
	tokens := map[string]time.Weekday{
		"Su": time.Sunday, "Mo": time.Monday, "Tu": time.Tuesday,
		"We": time.Wednesday, "Th": time.Thursday, "Fr": time.Friday, "Sa": time.Saturday,
	}
	out := map[time.Weekday]bool{}
	for i := 0; i+1 < len(days); i += 2 {
		if wd, ok := tokens[days[i:i+2]]; ok {
			out[wd] = true
		}
	}
	return out
}

func daysIntersect(a, b string) bool {
	wa, wb := weekdaysOf(a), weekdaysOf(b)
	for d := range wa {
		if wb[d] {
			return true
		}
	}
	return false
}

func dailyStartMinutes(in model.Intent) int {
	t := in.Template.Start
	return t.Hour()*60 + t.Minute()
}

// dailyDuration returns the intent's daily active minutes, supporting
// overnight wrap (end <= start means it crosses midnight).
func dailyDuration(in model.Intent) int {
	start := in.Template.Start.Hour()*60 + in.Template.Start.Minute()
	end := in.Template.End.Hour()*60 + in.Template.End.Minute()
	if end <= start {
		end += 24 * 60
	}
	return end - start
}

func dailyWindowsIntersect(a, b model.Intent) bool {
	as, ae := windowMinutes(a)
	bs, be := windowMinutes(b)
	return intervalsIntersectMod1440(as, ae, bs, be)
}

func windowMinutes(in model.Intent) (start, end int) {
	start = in.Template.Start.Hour()*60 + in.Template.Start.Minute()
	end = in.Template.End.Hour()*60 + in.Template.End.Minute()
	if end <= start {
		end += 24 * 60
	}
	return start, end
}

// intervalsIntersectMod1440 tests whether two [start,end) minute windows
// (end may exceed 1440 to represent overnight wrap) intersect on the
// 24-hour clock.
func intervalsIntersectMod1440(as, ae, bs, be int) bool {
	for _, shift := range []int{-1440, 0, 1440} {
		if as < be+shift && bs < ae+shift {
			return true
		}
	}
	return false
}
