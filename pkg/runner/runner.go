// Package runner drives calendar ingestion: it fetches the ICS feed,
// parses it, expands occurrences within the sync horizon, resolves targets
// and per-occurrence YAML metadata, and emits one Series per event UID.
package runner

import (
	"log/slog"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/fppsem"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/ics"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/target"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/yamlmeta"
)

// Fetcher is the subset of ics.Fetcher the runner depends on, so tests can
// substitute a fixed-text fake without an HTTP round trip.
type Fetcher interface {
	Fetch(url string) string
}

// Runner assembles Series records from a calendar URL.
type Runner struct {
	fetcher  Fetcher
	resolver *target.Resolver
	now      func() time.Time
}

// New builds a Runner. now defaults to time.Now when nil, overridable for
// deterministic tests.
func New(fetcher Fetcher, resolver *target.Resolver, now func() time.Time) *Runner {
	if now == nil {
		now = time.Now
	}
	return &Runner{fetcher: fetcher, resolver: resolver, now: now}
}

// Result is the Runner's output: one Series per eligible UID, plus
// accumulated warnings. Warnings never abort the run.
type Result struct {
	Series   []model.Series
	Warnings []string
}

// Run fetches icsURL, parses it, and expands every series within
// [now, guardDate].
func (r *Runner) Run(icsURL string) Result {
	now := r.now()
	guard := fppsem.GuardDate(now)

	text := r.fetcher.Fetch(icsURL)
	events := ics.Parse(text)

	return r.build(events, now, guard)
}

func (r *Runner) build(events []model.Event, horizonStart, horizonEnd time.Time) Result {
	var res Result

	bases := map[string]*model.Event{}
	overridesByBase := map[string]map[string]*model.Event{}

	for i := range events {
		ev := &events[i]
		if ev.IsOverride {
			key := recurrenceKey(ev.RecurrenceID)
			if overridesByBase[ev.UID] == nil {
				overridesByBase[ev.UID] = map[string]*model.Event{}
			}
			overridesByBase[ev.UID][key] = ev
			continue
		}
		bases[ev.UID] = ev
	}

	for uid, base := range bases {
		if base.IsAllDay {
			res.Warnings = append(res.Warnings, "dropped all-day series: "+uid)
			continue
		}

		resolved, ok := r.resolver.Resolve(base.Summary)
		if !ok {
			res.Warnings = append(res.Warnings, "dropped series with unresolved target: "+uid)
			continue
		}

		if base.RRule != nil && base.RRule.Freq != "DAILY" && base.RRule.Freq != "WEEKLY" {
			res.Warnings = append(res.Warnings, "dropped series with unsupported RRULE FREQ "+base.RRule.Freq+": "+uid)
			continue
		}

		overrides := overridesByBase[uid]
		occurrences := ics.Expand(*base, overrides, horizonStart, horizonEnd)
		if len(occurrences) == 0 {
			continue
		}

		yamlBase := yamlmeta.Extract(base.Description)
		for i := range occurrences {
			occ := &occurrences[i]
			if occ.SourceEvent != nil {
				occ.YAML = yamlmeta.Extract(occ.SourceEvent.Description)
			}
		}

		series := model.Series{
			UID:         uid,
			Base:        base,
			Overrides:   overrides,
			Resolved:    resolved,
			YAMLBase:    yamlBase,
			Occurrences: occurrences,
		}
		res.Series = append(res.Series, series)
	}

	for _, w := range res.Warnings {
		slog.Warn("scheduler runner", "detail", w)
	}

	return res
}

func recurrenceKey(t time.Time) string {
	return t.Format("20060102T150405")
}
