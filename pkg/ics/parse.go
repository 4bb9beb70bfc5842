package ics

import (
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// Parse decodes raw ICS text into an unordered list of Event records.
// Malformed VEVENT blocks are skipped with a warning rather than failing
// the whole parse.
func Parse(text string) []model.Event {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cal, err := ical.ParseCalendar(strings.NewReader(text))
	if err != nil {
		warnf("failed to parse ICS calendar", "error", err)
		return nil
	}

	var events []model.Event
	for _, ve := range cal.Events() {
		ev, ok := parseEvent(ve)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events
}

func parseEvent(ve *ical.VEvent) (model.Event, bool) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		warnf("VEVENT missing UID, skipping")
		return model.Event{}, false
	}

	start, isAllDay, err := parseDateTimeProperty(ve, ical.ComponentPropertyDtStart)
	if err != nil {
		warnf("VEVENT has unparseable DTSTART, skipping", "uid", uidProp.Value, "error", err)
		return model.Event{}, false
	}

	end, _, err := parseDateTimeProperty(ve, ical.ComponentPropertyDtEnd)
	if err != nil {
		// DTEND is optional on some producers; fall back to DTSTART so
		// duration math downstream is well-defined (zero duration).
		end = start
	}

	ev := model.Event{
		UID:      uidProp.Value,
		DTStart:  start,
		DTEnd:    end,
		IsAllDay: isAllDay,
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = unescapeText(p.Value)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rr, ok := parseRRule(p.Value, start)
		if ok {
			ev.RRule = rr
		}
	}

	ev.EXDates = parseExDates(ve)

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		recur, _, err := parseDateTimeValue(p.Value, propParams(p))
		if err == nil {
			ev.IsOverride = true
			ev.RecurrenceID = recur
		}
	}

	return ev, true
}

// parseDateTimeProperty reads a DTSTART/DTEND-shaped property, returning
// whether it was a DATE-only (all-day) value.
func parseDateTimeProperty(ve *ical.VEvent, name ical.ComponentProperty) (time.Time, bool, error) {
	p := ve.GetProperty(name)
	if p == nil {
		return time.Time{}, false, errMissingProperty(string(name))
	}
	return parseDateTimeValue(p.Value, propParams(p))
}

func propParams(p *ical.IANAProperty) map[string][]string {
	if p == nil {
		return nil
	}
	return p.ICalParameters
}

// parseDateTimeValue parses a DTSTART/DTEND/RECURRENCE-ID value in any of
// its four shapes: DATE-only ("YYYYMMDD"), floating local ("YYYYMMDDTHHMMSS"),
// UTC ("YYYYMMDDTHHMMSSZ"), or TZID-qualified floating time interpreted in
// the named zone.
func parseDateTimeValue(value string, params map[string][]string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)

	if len(value) == 8 && !strings.Contains(value, "T") {
		t, err := time.Parse("20060102", value)
		return t, true, err
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse("20060102T150405Z", value)
		return t, false, err
	}

	loc := time.Local
	if tzids, ok := params["TZID"]; ok && len(tzids) > 0 {
		if l, err := time.LoadLocation(tzids[0]); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation("20060102T150405", value, loc)
	return t, false, err
}

// parseRRule parses the subset of RRULE this system understands: FREQ,
// INTERVAL (default 1), BYDAY, UNTIL (all three forms), COUNT. Other FREQ
// values are still returned (so callers can decide to drop the series) but
// are not expanded.
func parseRRule(raw string, dtstart time.Time) (*model.RRule, bool) {
	rr := &model.RRule{Interval: 1}
	for _, part := range strings.Split(raw, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := strings.ToUpper(kv[0]), kv[1]
		switch key {
		case "FREQ":
			rr.Freq = strings.ToUpper(val)
		case "INTERVAL":
			if n, err := strconv.Atoi(val); err == nil && n >= 1 {
				rr.Interval = n
			}
		case "BYDAY":
			for _, d := range strings.Split(val, ",") {
				if wd, ok := weekdayFromByDay(d); ok {
					rr.ByDay = append(rr.ByDay, wd)
				}
			}
		case "UNTIL":
			if u, ok := parseUntil(val); ok {
				rr.Until = u
			}
		case "COUNT":
			if n, err := strconv.Atoi(val); err == nil {
				rr.Count = n
			}
		}
	}
	if rr.Freq == "" {
		return nil, false
	}
	return rr, true
}

// parseUntil accepts all three UNTIL forms seen in real feeds: YYYYMMDD,
// YYYYMMDDTHHMMSSZ, and YYYYMMDDTHHMMSS.
func parseUntil(val string) (time.Time, bool) {
	val = strings.TrimSpace(val)
	layouts := []string{"20060102T150405Z", "20060102T150405", "20060102"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func weekdayFromByDay(tok string) (time.Weekday, bool) {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	// Strip any leading ordinal (e.g. "2TU"); this system only consumes
	// plain weekday tokens, ordinals are not part of the DAILY/WEEKLY subset.
	for len(tok) > 0 && (tok[0] == '-' || tok[0] == '+' || (tok[0] >= '0' && tok[0] <= '9')) {
		tok = tok[1:]
	}
	switch tok {
	case "SU":
		return time.Sunday, true
	case "MO":
		return time.Monday, true
	case "TU":
		return time.Tuesday, true
	case "WE":
		return time.Wednesday, true
	case "TH":
		return time.Thursday, true
	case "FR":
		return time.Friday, true
	case "SA":
		return time.Saturday, true
	default:
		return 0, false
	}
}

// parseExDates collects every EXDATE property on the event (RFC 5545
// allows EXDATE to repeat, and each occurrence may itself carry a
// comma-separated list).
func parseExDates(ve *ical.VEvent) []time.Time {
	var out []time.Time
	for i := range ve.Properties {
		p := &ve.Properties[i]
		if p.IANAToken != string(ical.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(p.Value, ",") {
			if t, _, err := parseDateTimeValue(v, p.ICalParameters); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

func unescapeText(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(s)
}

type missingPropertyError struct{ name string }

func (e *missingPropertyError) Error() string { return "ics: missing property " + e.name }

func errMissingProperty(name string) error { return &missingPropertyError{name: name} }
