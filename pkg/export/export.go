// Package export reads the unmanaged entries left in the host scheduler
// file and renders them back out as an RFC 5545 ICS feed, so a user's
// hand-added entries can round-trip through any calendar client.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"sigs.k8s.io/yaml"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/fppsem"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/suntime"
)

// maxPrecedenceExdates bounds how many EXDATEs a single lower-precedence
// entry can accumulate from higher-precedence overlaps, as a safety net
// against pathological long-range overlaps.
const maxPrecedenceExdates = 366

// Locale carries the host's coordinates, used to resolve symbolic time
// tokens (SunRise, SunSet, Dawn, Dusk) into concrete clock times for the
// exported DTSTART/DTEND.
type Locale struct {
	Latitude  float64
	Longitude float64
}

// Build renders entries (assumed already filtered to the unmanaged subset,
// in their existing host-file order — array order is precedence order, the
// earliest entry wins) as a VCALENDAR string. tzName is used for both
// X-WR-TIMEZONE and the synthesized VTIMEZONE block; now is the DTSTAMP/
// VTIMEZONE-window reference instant.
func Build(entries []model.Entry, tzName string, locale Locale, now time.Time) (string, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return "", fmt.Errorf("export: load location %q: %w", tzName, err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//GoogleCalendarScheduler-sub000//FPP Sync//EN")
	cal.SetCalscale("GREGORIAN")
	cal.SetXWRTimezone(tzName)

	vtimezone := synthesizeVTimezone(loc, tzName, now)

	for i, e := range entries {
		uid := fmt.Sprintf("gcs-unmanaged-%d-%s@fpp-sync", i, strings.ToLower(strings.TrimSpace(targetName(e))))
		if err := addEvent(cal, e, entries[:i], loc, locale, uid, now); err != nil {
			return "", err
		}
	}

	// Serialize already emits CRLF line endings; only the VTIMEZONE block
	// is spliced in by hand (the library has no VTIMEZONE builder).
	body := cal.Serialize()
	body = strings.Replace(body, "END:VCALENDAR", vtimezone+"END:VCALENDAR", 1)
	return body, nil
}

func targetName(e model.Entry) string {
	if e.Command != "" {
		return e.Command
	}
	return e.Playlist
}

func addEvent(cal *ics.Calendar, e model.Entry, higherPrecedence []model.Entry, loc *time.Location, locale Locale, uid string, now time.Time) error {
	startDate, err := time.ParseInLocation(fppsem.DateLayout, e.StartDate, loc)
	if err != nil {
		return fmt.Errorf("export: parse startDate %q: %w", e.StartDate, err)
	}
	endDate, err := time.ParseInLocation(fppsem.DateLayout, e.EndDate, loc)
	if err != nil {
		return fmt.Errorf("export: parse endDate %q: %w", e.EndDate, err)
	}

	dtstart, err := resolveClock(e.StartTime, e.StartTimeOffset, startDate, loc, locale)
	if err != nil {
		return fmt.Errorf("export: parse startTime %q: %w", e.StartTime, err)
	}
	dtend, err := resolveClock(e.EndTime, e.EndTimeOffset, startDate, loc, locale)
	if err != nil {
		return fmt.Errorf("export: parse endTime %q: %w", e.EndTime, err)
	}
	crossesMidnight := dtend.Before(dtstart) || dtend.Equal(dtstart)
	if crossesMidnight {
		dtend = dtend.AddDate(0, 0, 1)
	}

	vevent := cal.AddEvent(uid)
	vevent.SetDtStampTime(now.UTC())
	vevent.SetSummary(summaryFor(e))
	if desc, err := describe(e); err == nil && desc != "" {
		vevent.SetDescription(desc)
	}

	tzidParam := &ics.KeyValues{Key: "TZID", Value: []string{loc.String()}}
	vevent.AddProperty(ics.ComponentPropertyDtStart, dtstart.Format("20060102T150405"), tzidParam)
	vevent.AddProperty(ics.ComponentPropertyDtEnd, dtend.Format("20060102T150405"), tzidParam)

	oneOff := startDate.Equal(endDate)
	if !oneOff {
		rrule, exdates := buildRecurrence(e, startDate, endDate, dtstart, loc)
		vevent.AddProperty(ics.ComponentPropertyRrule, rrule)

		exdates = append(exdates, precedenceExdates(e, higherPrecedence, startDate, endDate, loc)...)
		sort.Slice(exdates, func(i, j int) bool { return exdates[i].Before(exdates[j]) })
		for i, d := range exdates {
			if i >= maxPrecedenceExdates {
				break
			}
			vevent.AddProperty(ics.ComponentPropertyExdate, d.Format("20060102T150405"), tzidParam)
		}
	}

	return nil
}

// resolveClock turns a host time token into a concrete instant on date.
// Absolute "HH:MM:SS" tokens (including the 24:00:00 rollover) parse
// directly; symbolic tokens are estimated from the locale's coordinates
// and shifted by the entry's offset minutes.
func resolveClock(token string, offsetMinutes int, date time.Time, loc *time.Location, locale Locale) (time.Time, error) {
	if fppsem.IsSymbolicTimeToken(token) {
		times := suntime.Estimate(date, locale.Latitude, locale.Longitude, loc)
		var t time.Time
		switch fppsem.SymbolicTimeKind(token) {
		case fppsem.SymbolicDawn:
			t = times.Dawn
		case fppsem.SymbolicSunRise:
			t = times.SunRise
		case fppsem.SymbolicSunSet:
			t = times.SunSet
		default:
			t = times.Dusk
		}
		return t.Add(time.Duration(offsetMinutes) * time.Minute), nil
	}

	h, m, s, rollover, err := fppsem.ParseClock(token)
	if err != nil {
		return time.Time{}, err
	}
	if rollover {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1), nil
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, s, 0, loc), nil
}

func summaryFor(e model.Entry) string {
	if e.Command != "" {
		return e.Command
	}
	return e.Playlist
}

// describe serializes the entry's host-only fields into a fenced YAML
// metadata block, mirroring the format pkg/yamlmeta expects to parse back
// out of a VEVENT DESCRIPTION on a future import.
func describe(e model.Entry) (string, error) {
	meta := map[string]interface{}{
		"stopType": e.StopType,
	}
	if e.Sequence == 1 {
		meta["type"] = "sequence"
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return "", err
	}
	return "```yaml\n" + string(data) + "```", nil
}

// buildRecurrence derives a weekly RRULE (or DAILY for the all-days mask)
// from the entry's day enum, with UNTIL clamped to at most 366 days past
// DTSTART for client compatibility. UNTIL always carries DTSTART's local
// wall-clock time, so the final occurrence of an event that crosses
// midnight isn't dropped by clients that compare UNTIL against DTSTART's
// time-of-day.
func buildRecurrence(e model.Entry, startDate, endDate, dtstart time.Time, loc *time.Location) (string, []time.Time) {
	until := endDate
	if max := startDate.AddDate(0, 0, 366); until.After(max) {
		until = max
	}
	// Keep UNTIL aligned with DTSTART's wall-clock time regardless of
	// whether the event's end spills into the next day, so a client that
	// compares UNTIL's time-of-day against DTSTART's never drops the final
	// occurrence.
	until = time.Date(until.Year(), until.Month(), until.Day(), dtstart.Hour(), dtstart.Minute(), dtstart.Second(), 0, loc)

	days := fppsem.DaysToken(e.Day)
	freq := "WEEKLY"
	byday := byDayList(days)
	if days == fppsem.AllDaysToken {
		freq = "DAILY"
		byday = ""
	}

	rule := fmt.Sprintf("FREQ=%s;UNTIL=%s", freq, until.UTC().Format("20060102T150405Z"))
	if byday != "" {
		rule += ";BYDAY=" + byday
	}
	return rule, nil
}

var byDayTokens = map[string]string{
	"Su": "SU", "Mo": "MO", "Tu": "TU", "We": "WE", "Th": "TH", "Fr": "FR", "Sa": "SA",
}

func byDayList(days string) string {
	var out []string
	for i := 0; i+1 < len(days); i += 2 {
		if tok, ok := byDayTokens[days[i:i+2]]; ok {
			out = append(out, tok)
		}
	}
	return strings.Join(out, ",")
}

// precedenceExdates returns the concrete dates within [startDate,endDate]
// where a higher-precedence (earlier in the host file) entry's active
// range, day mask, and time window overlap this entry's, so that
// round-tripping the export preserves the host's precedence-by-order
// semantics instead of silently double-booking those dates.
func precedenceExdates(e model.Entry, higherPrecedence []model.Entry, startDate, endDate time.Time, loc *time.Location) []time.Time {
	var out []time.Time
	days := weekdaySet(fppsem.DaysToken(e.Day))

	for _, h := range higherPrecedence {
		hStart, err1 := time.ParseInLocation(fppsem.DateLayout, h.StartDate, loc)
		hEnd, err2 := time.ParseInLocation(fppsem.DateLayout, h.EndDate, loc)
		if err1 != nil || err2 != nil {
			continue
		}
		if !timeWindowsOverlap(e, h) {
			continue
		}
		hDays := weekdaySet(fppsem.DaysToken(h.Day))

		lo := startDate
		if hStart.After(lo) {
			lo = hStart
		}
		hi := endDate
		if hEnd.Before(hi) {
			hi = hEnd
		}
		for d := lo; !d.After(hi) && len(out) < maxPrecedenceExdates; d = d.AddDate(0, 0, 1) {
			if days[d.Weekday()] && hDays[d.Weekday()] {
				out = append(out, d)
			}
		}
	}
	return out
}

func weekdaySet(token string) map[time.Weekday]bool {
	tokens := map[string]time.Weekday{
		"Su": time.Sunday, "Mo": time.Monday, "Tu": time.Tuesday,
		"We": time.Wednesday, "Th": time.Thursday, "Fr": time.Friday, "Sa": time.Saturday,
	}
	out := map[time.Weekday]bool{}
	for i := 0; i+1 < len(token); i += 2 {
		if wd, ok := tokens[token[i:i+2]]; ok {
			out[wd] = true
		}
	}
	return out
}

func timeWindowsOverlap(a, b model.Entry) bool {
	as, ae := windowMinutes(a)
	bs, be := windowMinutes(b)
	for _, shift := range []int{-1440, 0, 1440} {
		if as < be+shift && bs < ae+shift {
			return true
		}
	}
	return false
}

func windowMinutes(e model.Entry) (start, end int) {
	sh, sm, ss, _, _ := fppsem.ParseClock(e.StartTime)
	eh, em, es, _, _ := fppsem.ParseClock(e.EndTime)
	start = sh*60 + sm + ss/60
	end = eh*60 + em + es/60
	if end <= start {
		end += 24 * 60
	}
	return start, end
}

// synthesizeVTimezone builds a practical VTIMEZONE block covering one year
// back to six years forward from now, by sampling loc's offset transitions
// across a representative year and projecting each transition as a yearly
// RRULE the way real IANA-derived VTIMEZONE blocks do.
func synthesizeVTimezone(loc *time.Location, tzName string, now time.Time) string {
	year := now.Year() - 1
	transitions := detectTransitions(loc, year)

	var b strings.Builder
	b.WriteString("BEGIN:VTIMEZONE\r\n")
	b.WriteString("TZID:" + tzName + "\r\n")

	if len(transitions) == 0 {
		_, offset := now.In(loc).Zone()
		b.WriteString("BEGIN:STANDARD\r\n")
		b.WriteString("DTSTART:19700101T000000\r\n")
		b.WriteString(fmt.Sprintf("TZOFFSETFROM:%s\r\n", formatOffset(offset)))
		b.WriteString(fmt.Sprintf("TZOFFSETTO:%s\r\n", formatOffset(offset)))
		b.WriteString("END:STANDARD\r\n")
	}
	for _, t := range transitions {
		kind := "STANDARD"
		if t.isDST {
			kind = "DAYLIGHT"
		}
		b.WriteString("BEGIN:" + kind + "\r\n")
		b.WriteString("DTSTART:" + t.at.Format("20060102T150405") + "\r\n")
		b.WriteString(fmt.Sprintf("TZOFFSETFROM:%s\r\n", formatOffset(t.fromOffset)))
		b.WriteString(fmt.Sprintf("TZOFFSETTO:%s\r\n", formatOffset(t.toOffset)))
		b.WriteString(fmt.Sprintf("RRULE:FREQ=YEARLY;BYMONTH=%d;BYDAY=%d%s;BYHOUR=%d;BYMINUTE=%d\r\n",
			int(t.at.Month()), t.ordinal, byDayTokens[fppsem.DayToken(t.at.Weekday())], t.at.Hour(), t.at.Minute()))
		b.WriteString("END:" + kind + "\r\n")
	}

	b.WriteString("END:VTIMEZONE\r\n")
	return b.String()
}

type transition struct {
	at         time.Time
	fromOffset int
	toOffset   int
	isDST      bool
	ordinal    int // 1..4, or -1 for "last"
}

// detectTransitions samples loc day-by-day across year and reports every
// offset change found, annotated with the nth-weekday-of-month ordinal a
// VTIMEZONE RRULE needs to recur it.
func detectTransitions(loc *time.Location, year int) []transition {
	var out []transition
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	_, prevOffset := start.Zone()

	for d := start; d.Year() == year; d = d.AddDate(0, 0, 1) {
		_, offset := d.Zone()
		if offset == prevOffset {
			continue
		}
		// The daily scan sees the change only at the next midnight; walk the
		// previous day hour by hour to find the change itself, expressed in
		// the wall-clock time in force before it.
		at := d.AddDate(0, 0, -1)
		for _, o := at.Zone(); o == prevOffset; _, o = at.Zone() {
			at = at.Add(time.Hour)
		}
		at = at.In(time.FixedZone("", prevOffset))
		out = append(out, transition{
			at:         at,
			fromOffset: prevOffset,
			toOffset:   offset,
			isDST:      offset > prevOffset,
			ordinal:    weekdayOrdinalInMonth(at),
		})
		prevOffset = offset
	}
	return out
}

func weekdayOrdinalInMonth(d time.Time) int {
	n := (d.Day()-1)/7 + 1
	lastOfMonth := time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, d.Location())
	if lastOfMonth.Day()-d.Day() < 7 {
		return -1
	}
	return n
}

func formatOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	return fmt.Sprintf("%s%02d%02d", sign, h, m)
}
