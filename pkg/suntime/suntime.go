// Package suntime implements a deterministic, NOAA-style solar position
// estimator used only to resolve symbolic display times (SunRise, SunSet,
// Dawn, Dusk) for a given latitude/longitude and date. It is not exact to
// the second; the host scheduler only needs a stable, repeatable minute.
package suntime

import (
	"math"
	"time"
)

// Times holds the four symbolic times resolved for one date/location, each
// expressed as a wall-clock time.Time on that date in the given location.
type Times struct {
	Dawn    time.Time
	SunRise time.Time
	SunSet  time.Time
	Dusk    time.Time
}

// civilTwilightDegrees is the sun-below-horizon angle used for dawn/dusk.
const civilTwilightDegrees = 6.0

// Estimate computes Dawn/SunRise/SunSet/Dusk for the given date at
// lat/lon (degrees), expressed in loc.
func Estimate(date time.Time, lat, lon float64, loc *time.Location) Times {
	dayOfYear := float64(date.YearDay())

	horizon := hourAngleTimes(dayOfYear, lat, lon, 0.833)
	twilight := hourAngleTimes(dayOfYear, lat, lon, civilTwilightDegrees)

	return Times{
		Dawn:    atClock(date, twilight.rise, loc),
		SunRise: atClock(date, horizon.rise, loc),
		SunSet:  atClock(date, horizon.set, loc),
		Dusk:    atClock(date, twilight.set, loc),
	}
}

type riseSet struct {
	rise float64 // fractional UTC hour
	set  float64
}

// hourAngleTimes runs the NOAA sunrise/sunset equation for the given
// horizon depression angle, reusable for both the 0.833° horizon
// correction and civil twilight's 6° depression.
func hourAngleTimes(dayOfYear, lat, lon, zenithOffsetDeg float64) riseSet {
	zenith := 90.0 + zenithOffsetDeg
	return riseSet{
		rise: computeUTCHour(dayOfYear, lat, lon, zenith, true),
		set:  computeUTCHour(dayOfYear, lat, lon, zenith, false),
	}
}

func computeUTCHour(dayOfYear, lat, lon, zenith float64, isRise bool) float64 {
	rad := math.Pi / 180
	deg := 180 / math.Pi

	lngHour := lon / 15

	var t float64
	if isRise {
		t = dayOfYear + ((6 - lngHour) / 24)
	} else {
		t = dayOfYear + ((18 - lngHour) / 24)
	}

	m := (0.9856 * t) - 3.289

	l := m + (1.916 * math.Sin(m*rad)) + (0.020 * math.Sin(2*m*rad)) + 282.634
	l = normalizeDegrees(l)

	raRad := math.Atan(0.91764 * math.Tan(l*rad))
	ra := deg * raRad
	ra = normalizeDegrees(ra)

	lQuadrant := math.Floor(l/90) * 90
	raQuadrant := math.Floor(ra/90) * 90
	ra += lQuadrant - raQuadrant
	ra /= 15

	sinDec := 0.39782 * math.Sin(l*rad)
	cosDec := math.Cos(math.Asin(sinDec))

	cosH := (math.Cos(zenith*rad) - (sinDec * math.Sin(lat*rad))) / (cosDec * math.Cos(lat*rad))
	cosH = clamp(cosH, -1, 1)

	var h float64
	if isRise {
		h = 360 - deg*math.Acos(cosH)
	} else {
		h = deg * math.Acos(cosH)
	}
	h /= 15

	localT := h + ra - (0.06571 * t) - 6.622
	utc := localT - lngHour
	return normalizeHour(utc)
}

func normalizeDegrees(v float64) float64 {
	for v < 0 {
		v += 360
	}
	for v >= 360 {
		v -= 360
	}
	return v
}

func normalizeHour(v float64) float64 {
	for v < 0 {
		v += 24
	}
	for v >= 24 {
		v -= 24
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// atClock converts a fractional UTC hour into a wall-clock time.Time on
// date's calendar day, in loc.
func atClock(date time.Time, utcHour float64, loc *time.Location) time.Time {
	hour := int(utcHour)
	fracMin := (utcHour - float64(hour)) * 60
	min := int(fracMin)
	sec := int((fracMin - float64(min)) * 60)

	utc := time.Date(date.Year(), date.Month(), date.Day(), hour, min, sec, 0, time.UTC)
	local := utc.In(loc)
	// Far from Greenwich the UTC hour on date's day can fall on the
	// neighbouring local day; move it by one day onto date's day.
	if y, m, d := local.Date(); y != date.Year() || m != date.Month() || d != date.Day() {
		if local.Before(time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)) {
			return local.Add(24 * time.Hour)
		}
		return local.Add(-24 * time.Hour)
	}
	return local
}
