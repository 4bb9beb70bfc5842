package ics

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// recurrenceKey canonicalizes a time for EXDATE/override matching:
// RFC 5545 semantics compare recurrence identifiers by their local
// wall-clock value, not by absolute instant.
func recurrenceKey(t time.Time) string {
	return t.Format("20060102T150405")
}

// Expand produces the ordered list of Occurrences for one base event and
// its override map, within [horizonStart, horizonEnd].
func Expand(base model.Event, overrides map[string]*model.Event, horizonStart, horizonEnd time.Time) []model.Occurrence {
	duration := base.DTEnd.Sub(base.DTStart)

	overrideKeys := make(map[string]bool, len(overrides))
	for k := range overrides {
		overrideKeys[k] = true
	}

	var out []model.Occurrence

	// Step 1: every override whose DTSTART falls in the horizon.
	for _, ov := range overrides {
		if ov.DTStart.Before(horizonStart) || ov.DTStart.After(horizonEnd) {
			continue
		}
		out = append(out, model.Occurrence{
			Start:       ov.DTStart,
			End:         ov.DTEnd,
			IsOverride:  true,
			SourceEvent: ov,
		})
	}

	// Step 2: no RRULE -> at most one occurrence at DTSTART.
	if base.RRule == nil {
		if !base.DTStart.Before(horizonStart) && !base.DTStart.After(horizonEnd) &&
			!overrideKeys[recurrenceKey(base.DTStart)] {
			out = append(out, model.Occurrence{
				Start:       base.DTStart,
				End:         base.DTEnd,
				SourceEvent: &base,
			})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
		return out
	}

	// Step 3/4: RRULE expansion, restricted to FREQ in {DAILY, WEEKLY}.
	// Any other FREQ means the caller already decided to drop the series;
	// emit nothing rather than guess.
	starts := expandRRule(base, horizonStart, horizonEnd)

	exdateKeys := make(map[string]bool, len(base.EXDates))
	for _, d := range base.EXDates {
		exdateKeys[recurrenceKey(d)] = true
	}

	for _, s := range starts {
		key := recurrenceKey(s)
		if exdateKeys[key] || overrideKeys[key] {
			continue
		}
		out = append(out, model.Occurrence{
			Start:       s,
			End:         s.Add(duration),
			SourceEvent: &base,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// expandRRule builds an rrule-go Set from base's RRULE and returns the
// occurrence start times within [horizonStart, horizonEnd]. Only DAILY and
// WEEKLY FREQ are expanded; anything else returns nil.
func expandRRule(base model.Event, horizonStart, horizonEnd time.Time) []time.Time {
	rr := base.RRule
	if rr == nil {
		return nil
	}

	var freq rrule.Frequency
	switch rr.Freq {
	case "DAILY":
		freq = rrule.DAILY
	case "WEEKLY":
		freq = rrule.WEEKLY
	default:
		return nil
	}

	opts := rrule.ROption{
		Freq:     freq,
		Interval: rr.Interval,
		Dtstart:  base.DTStart,
	}
	if !rr.Until.IsZero() {
		opts.Until = rr.Until
	}
	if rr.Count > 0 {
		opts.Count = rr.Count
	}
	if freq == rrule.WEEKLY {
		if len(rr.ByDay) > 0 {
			opts.Byweekday = toRRuleWeekdays(rr.ByDay)
		} else {
			opts.Byweekday = toRRuleWeekdays([]time.Weekday{base.DTStart.Weekday()})
		}
	}

	r, err := rrule.NewRRule(opts)
	if err != nil {
		warnf("failed to build RRULE expansion", "uid", base.UID, "error", err)
		return nil
	}

	return r.Between(horizonStart, horizonEnd, true)
}

func toRRuleWeekdays(days []time.Weekday) []rrule.Weekday {
	out := make([]rrule.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, toRRuleWeekday(d))
	}
	return out
}

func toRRuleWeekday(d time.Weekday) rrule.Weekday {
	switch d {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}
