// Package planner projects runner series into bundles, applies guard-date
// clamping, enforces the managed-entry cap, orders bundles by host
// precedence, and flattens to a desired entry list via schedfile's
// intent-to-entry mapping.
package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/fppsem"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/schedfile"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/yamlmeta"
)

// MaxManagedEntries is the hard cap on desired entries after guard clamping.
const MaxManagedEntries = 100

// MaxOrderPasses bounds the bubble-sort-style ordering pass loop.
const MaxOrderPasses = 50

// CapExceededError is returned when the desired entry count would exceed
// MaxManagedEntries.
type CapExceededError struct {
	Limit     int
	Attempted int
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("scheduler_entry_limit_exceeded: limit=%d attempted=%d", e.Limit, e.Attempted)
}

// Result is the Planner's output.
type Result struct {
	Entries  []model.Entry
	Bundles  []model.Bundle
	Warnings []string
}

// Planner owns a single run's bundle-building and ordering state.
type Planner struct {
	now func() time.Time
}

// New builds a Planner. now defaults to time.Now when nil.
func New(now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{now: now}
}

// Plan projects series into a desired entry list.
func (p *Planner) Plan(series []model.Series) (Result, error) {
	now := p.now()
	guard := fppsem.GuardDate(now)

	var bundles []model.Bundle
	var warnings []string

	for _, s := range series {
		b, ok, warn := buildBundle(s, guard)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if !ok {
			continue
		}
		bundles = append(bundles, b)
	}

	attempted := 0
	for _, b := range bundles {
		attempted += 1 + len(b.Overrides)
	}
	if attempted > MaxManagedEntries {
		return Result{Warnings: warnings}, &CapExceededError{Limit: MaxManagedEntries, Attempted: attempted}
	}

	ordered := order(bundles)

	var entries []model.Entry
	for _, b := range ordered {
		for _, ov := range b.Overrides {
			entry, err := schedfile.IntentToEntry(ov)
			if err != nil {
				warnings = append(warnings, "dropped override intent: "+err.Error())
				continue
			}
			entries = append(entries, entry)
		}
		entry, err := schedfile.IntentToEntry(b.Base)
		if err != nil {
			warnings = append(warnings, "dropped base intent: "+err.Error())
			continue
		}
		entries = append(entries, entry)
	}

	return Result{Entries: entries, Bundles: ordered, Warnings: warnings}, nil
}

// buildBundle projects one series into a Bundle. ok is false when the
// bundle is entirely clamped out by the guard date.
func buildBundle(s model.Series, guard time.Time) (model.Bundle, bool, string) {
	base := s.Base
	yaml := mergeYAML(s.YAMLBase, nil)

	rangeStart := dateOnly(base.DTStart)
	rangeEnd := computeRangeEnd(base, guard)

	if !rangeStart.Before(guard) {
		return model.Bundle{}, false, fmt.Sprintf("dropped bundle %s: range.start >= guardDate", s.UID)
	}
	if rangeEnd.After(guard) {
		rangeEnd = guard
	}

	days := deriveDays(base)

	baseIntent := model.Intent{
		UID:      s.UID,
		Template: buildTemplate(base.Summary, s.Resolved, yaml, base.DTStart, base.DTEnd, false),
		Range: model.IntentRange{
			Start: rangeStart,
			End:   rangeEnd,
			Days:  days,
		},
	}

	var overrideIntents []model.Intent
	for _, ov := range s.Overrides {
		if ov.DTStart.Before(rangeStart) || ov.DTStart.After(guard) {
			continue
		}
		ovYAML := mergeYAML(s.YAMLBase, yamlmeta.Extract(ov.Description))
		day := fppsem.DayToken(ov.DTStart.Weekday())
		overrideIntents = append(overrideIntents, model.Intent{
			UID:      s.UID,
			Template: buildTemplate(ov.Summary, s.Resolved, ovYAML, ov.DTStart, ov.DTEnd, true),
			Range: model.IntentRange{
				Start: dateOnly(ov.DTStart),
				End:   dateOnly(ov.DTStart),
				Days:  day,
			},
		})
	}

	return model.Bundle{Base: baseIntent, Overrides: overrideIntents}, true, ""
}

// buildTemplate projects one event's resolved target plus its merged YAML
// metadata into an IntentTemplate.
func buildTemplate(summary string, resolved model.ResolvedTarget, yaml map[string]interface{}, start, end time.Time, isOverride bool) model.IntentTemplate {
	typ := effectiveType(resolved, yaml)
	target := resolved.Target
	var args []string

	if typ == model.TargetCommand {
		if cmd := yamlmeta.Nested(yaml, "command"); cmd != nil {
			if name := yamlmeta.String(cmd, "name"); name != "" {
				target = name
			}
			if raw := yamlmeta.String(cmd, "args"); raw != "" {
				args = strings.Fields(raw)
			}
		}
	}

	return model.IntentTemplate{
		Summary:       summary,
		Type:          typ,
		Target:        target,
		Start:         start,
		End:           end,
		StartSymbolic: symbolicTime(yamlmeta.Nested(yaml, "start")),
		EndSymbolic:   symbolicTime(yamlmeta.Nested(yaml, "end")),
		Enabled:       yamlmeta.Bool(yaml, "enabled", true),
		StopType:      fppsem.StopTypeFromString(yamlmeta.String(yaml, "stopType")),
		Repeat:        repeatFor(typ, yaml),
		CommandArgs:   args,
		IsOverride:    isOverride,
	}
}

// repeatFor maps the YAML repeat key to a Repeat, defaulting playlists and
// sequences to immediate repeat when the key is absent (the host loops a
// show for its whole window unless told otherwise); commands default to none.
func repeatFor(typ model.TargetKind, yaml map[string]interface{}) model.Repeat {
	raw, present := yaml["repeat"]
	if !present {
		if typ == model.TargetCommand {
			return model.Repeat{Kind: model.RepeatNone}
		}
		return model.Repeat{Kind: model.RepeatImmediate}
	}
	switch v := raw.(type) {
	case string:
		return fppsem.RepeatFromString(v)
	case float64:
		if n := int(v); n > 0 {
			return model.Repeat{Kind: model.RepeatMinutes, Minutes: n}
		}
	case int:
		if v > 0 {
			return model.Repeat{Kind: model.RepeatMinutes, Minutes: v}
		}
	}
	return model.Repeat{Kind: model.RepeatNone}
}

// symbolicTime reads a nested {symbolic, offset} descriptor, returning nil
// when absent or when the symbolic name isn't one of the four sun markers.
func symbolicTime(m map[string]interface{}) *model.SymbolicTime {
	if m == nil {
		return nil
	}
	kind := yamlmeta.String(m, "symbolic")
	if !fppsem.IsSymbolicTimeToken(kind) {
		return nil
	}
	offset := 0
	switch v := m["offset"].(type) {
	case float64:
		offset = int(v)
	case int:
		offset = v
	}
	return &model.SymbolicTime{Kind: kind, Offset: offset}
}

func effectiveType(resolved model.ResolvedTarget, yaml map[string]interface{}) model.TargetKind {
	if t, ok := fppsem.NormalizeTargetType(yamlmeta.String(yaml, "type")); ok {
		return t
	}
	return resolved.Type
}

func mergeYAML(base, override map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// computeRangeEnd derives the active range's end from RRULE UNTIL,
// defaulting to the guard date for unbounded or non-recurring series.
func computeRangeEnd(base *model.Event, guard time.Time) time.Time {
	if base.RRule == nil {
		return dateOnly(base.DTStart)
	}
	if base.RRule.Until.IsZero() {
		return dateOnly(guard)
	}

	until := base.RRule.Until.In(base.DTStart.Location())
	dtstartTOD := timeOfDayMinutes(base.DTStart)
	untilTOD := timeOfDayMinutes(until)

	end := dateOnly(until)
	if untilTOD < dtstartTOD {
		end = end.AddDate(0, 0, -1)
	}
	return end
}

func timeOfDayMinutes(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// deriveDays maps the recurrence shape to the day-mask token run.
func deriveDays(base *model.Event) string {
	if base.RRule == nil {
		return fppsem.DayToken(base.DTStart.Weekday())
	}
	switch base.RRule.Freq {
	case "DAILY":
		return fppsem.AllDaysToken
	case "WEEKLY":
		if len(base.RRule.ByDay) > 0 {
			return weeklyDaysToken(base.RRule.ByDay)
		}
		return fppsem.DayToken(base.DTStart.Weekday())
	default:
		return fppsem.DayToken(base.DTStart.Weekday())
	}
}

func weeklyDaysToken(days []time.Weekday) string {
	present := map[time.Weekday]bool{}
	for _, d := range days {
		present[d] = true
	}
	out := ""
	for d := time.Sunday; d <= time.Saturday; d++ {
		if present[d] {
			out += fppsem.DayToken(d)
		}
	}
	return out
}
