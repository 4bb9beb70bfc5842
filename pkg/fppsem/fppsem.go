// Package fppsem is the single source of truth for Falcon Player host
// scheduler semantics: type normalization, stop-type and repeat enum
// mapping, the day-mask enum, sentinel dates, the 24:00:00 rollover, the
// guard date, and symbolic time resolution.
package fppsem

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// DateLayout is the wire format for startDate/endDate/identity date tokens.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for startTime/endTime, including the
// 24:00:00 rollover sentinel which time.Parse cannot represent.
const TimeLayout = "15:04:05"

// SentinelYear is the year component of a "this month/day in the current
// year" sentinel date ("0000-MM-DD").
const SentinelYear = "0000"

// GuardDate returns Dec 31 of (year+5), the upper bound every emitted
// schedule's end date must respect.
func GuardDate(now time.Time) time.Time {
	return time.Date(now.Year()+5, time.December, 31, 0, 0, 0, 0, now.Location())
}

// IsSentinelDate reports whether a "YYYY-MM-DD" string uses the "0000"
// sentinel year.
func IsSentinelDate(date string) bool {
	return strings.HasPrefix(date, SentinelYear+"-")
}

// NormalizeTargetType maps a free-form type string (as might arrive via
// YAML metadata) onto the canonical TargetKind enum. Unknown values return
// ok=false so callers can fall back to resolver output.
func NormalizeTargetType(s string) (model.TargetKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "playlist":
		return model.TargetPlaylist, true
	case "sequence":
		return model.TargetSequence, true
	case "command":
		return model.TargetCommand, true
	default:
		return "", false
	}
}

// StopTypeFromString maps the YAML/config stopType vocabulary onto the
// host's {0,1,2} enum, clamping any out-of-range integer input.
func StopTypeFromString(s string) model.StopType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hard":
		return model.StopHard
	case "graceful_loop":
		return model.StopGracefulLoop
	case "graceful", "":
		return model.StopGraceful
	default:
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return ClampStopType(n)
		}
		return model.StopGraceful
	}
}

// ClampStopType clamps an arbitrary integer into the valid [0,2] stop-type range.
func ClampStopType(v int) model.StopType {
	switch {
	case v < 0:
		return model.StopGraceful
	case v > 2:
		return model.StopGracefulLoop
	default:
		return model.StopType(v)
	}
}

// RepeatFromString parses the YAML/config repeat vocabulary: "none",
// "immediate", or an integer number of minutes.
func RepeatFromString(s string) model.Repeat {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none":
		return model.Repeat{Kind: model.RepeatNone}
	case "immediate":
		return model.Repeat{Kind: model.RepeatImmediate}
	default:
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return model.Repeat{Kind: model.RepeatMinutes, Minutes: n}
		}
		return model.Repeat{Kind: model.RepeatNone}
	}
}

// RepeatToEncoded maps a Repeat value onto the host's single encoded
// integer: none -> 0, immediate -> 1, N minutes -> N*100. Values already
// encoded (>=100) pass through unchanged.
func RepeatToEncoded(r model.Repeat) int {
	switch r.Kind {
	case model.RepeatImmediate:
		return 1
	case model.RepeatMinutes:
		if r.Minutes >= 100 {
			return r.Minutes
		}
		return r.Minutes * 100
	default:
		return 0
	}
}

// dayToken maps a time.Weekday to its two-letter token.
func dayToken(w time.Weekday) string {
	return [...]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}[w]
}

// DayToken exports dayToken for callers outside this package that need the
// two-letter weekday token (e.g. the planner's days-derivation step).
func DayToken(w time.Weekday) string { return dayToken(w) }

// AllDaysToken is the seven-day sentinel used by Days derivation and by DayEnum.
const AllDaysToken = "SuMoTuWeThFrSa"

// dayEnumTable maps known day-mask token combinations to the host's 0..13
// day enum. Single-day tokens map to 0..6 in Su..Sa order.
var dayEnumTable = map[string]int{
	"Su": 0, "Mo": 1, "Tu": 2, "We": 3, "Th": 4, "Fr": 5, "Sa": 6,
	"SuMoTuWeThFrSa": 7,
	"MoTuWeThFr":     8,
	"SuSa":           9,
	"MoWeFr":         10,
	"TuTh":           11,
	"SuMoTuWeTh":     12,
	"FrSa":           13,
}

// DayEnum maps a days token to the host's day enum. Unrecognized
// combinations fall back to the supplied DTSTART weekday.
func DayEnum(days string, fallback time.Weekday) int {
	if v, ok := dayEnumTable[days]; ok {
		return v
	}
	return dayEnumTable[dayToken(fallback)]
}

var daysTokenByEnum = map[int]string{
	0: "Su", 1: "Mo", 2: "Tu", 3: "We", 4: "Th", 5: "Fr", 6: "Sa",
	7: AllDaysToken, 8: "MoTuWeThFr", 9: "SuSa", 10: "MoWeFr",
	11: "TuTh", 12: "SuMoTuWeTh", 13: "FrSa",
}

// DaysToken is the inverse of DayEnum: it maps the host's 0..13 day enum
// back to its two-letter-token-run representation.
func DaysToken(dayEnum int) string {
	return daysTokenByEnum[dayEnum]
}

// FormatClock formats a time-of-day as HH:MM:SS, except that a time whose
// hour/min/sec are all zero AND which the caller has flagged as an
// end-of-day boundary is rendered "24:00:00" per the host's rollover rule.
func FormatClock(t time.Time, isEndOfDayRollover bool) string {
	if isEndOfDayRollover && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return "24:00:00"
	}
	return t.Format(TimeLayout)
}

// ParseClock parses a "HH:MM:SS" string, accepting the "24:00:00" rollover
// sentinel as 24h0m0s past midnight of an unspecified base date.
func ParseClock(s string) (hour, min, sec int, rollover bool, err error) {
	if s == "24:00:00" {
		return 24, 0, 0, true, nil
	}
	var parts [3]int
	n, err := fmt.Sscanf(s, "%d:%d:%d", &parts[0], &parts[1], &parts[2])
	if err != nil || n != 3 {
		return 0, 0, 0, false, fmt.Errorf("fppsem: invalid clock string %q", s)
	}
	return parts[0], parts[1], parts[2], false, nil
}

// SymbolicTimeKind enumerates the display-time-only symbolic markers.
type SymbolicTimeKind string

const (
	SymbolicSunRise SymbolicTimeKind = "SunRise"
	SymbolicSunSet  SymbolicTimeKind = "SunSet"
	SymbolicDawn    SymbolicTimeKind = "Dawn"
	SymbolicDusk    SymbolicTimeKind = "Dusk"
)

// IsSymbolicTimeToken reports whether a token names one of the four
// symbolic times resolved via the sun-time estimator.
func IsSymbolicTimeToken(token string) bool {
	switch SymbolicTimeKind(token) {
	case SymbolicSunRise, SymbolicSunSet, SymbolicDawn, SymbolicDusk:
		return true
	default:
		return false
	}
}
