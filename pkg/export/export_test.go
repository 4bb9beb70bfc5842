package export

import (
	"strings"
	"testing"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

func TestBuild_OneOffEntryHasNoRRule(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		{Day: 1, StartTime: "08:00:00", EndTime: "09:00:00", StartDate: "2026-03-02", EndDate: "2026-03-02", Playlist: "OneOff"},
	}

	out, err := Build(entries, "UTC", Locale{}, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(out, "BEGIN:VEVENT") {
		t.Fatalf("expected a VEVENT in output, got:\n%s", out)
	}
	if strings.Contains(out, "RRULE") {
		t.Errorf("expected no RRULE for a single-day entry")
	}
}

func TestBuild_RecurringEntryHasWeeklyRRule(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		{Day: 1, StartTime: "08:00:00", EndTime: "09:00:00", StartDate: "2026-01-05", EndDate: "2026-06-01", Playlist: "Weekly"},
	}

	out, err := Build(entries, "UTC", Locale{}, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(out, "RRULE:FREQ=WEEKLY") {
		t.Errorf("expected a WEEKLY RRULE, got:\n%s", out)
	}
	if !strings.Contains(out, "BYDAY=MO") {
		t.Errorf("expected BYDAY=MO, got:\n%s", out)
	}
}

func TestBuild_AllDaysMaskProducesDailyRRule(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		{Day: 7, StartTime: "18:00:00", EndTime: "23:00:00", StartDate: "2026-01-01", EndDate: "2026-12-31", Playlist: "Nightly"},
	}

	out, err := Build(entries, "UTC", Locale{}, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(out, "RRULE:FREQ=DAILY") {
		t.Errorf("expected a DAILY RRULE, got:\n%s", out)
	}
}

func TestBuild_UntilClampedTo366Days(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		{Day: 7, StartTime: "18:00:00", EndTime: "23:00:00", StartDate: "2026-01-01", EndDate: "2031-12-31", Playlist: "LongRunning"},
	}

	out, err := Build(entries, "UTC", Locale{}, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Contains(out, "UNTIL=20311231") {
		t.Errorf("expected UNTIL to be clamped well before the raw endDate, got:\n%s", out)
	}
}

func TestBuild_LowerPrecedenceEntryGetsExdatesForHigherPrecedenceOverlap(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		// Higher precedence: narrower holiday override, earlier in the file.
		{Day: 7, StartTime: "19:00:00", EndTime: "22:00:00", StartDate: "2026-12-24", EndDate: "2026-12-26", Playlist: "Holiday"},
		// Lower precedence: broad nightly show overlapping those dates.
		{Day: 7, StartTime: "18:00:00", EndTime: "23:00:00", StartDate: "2026-11-01", EndDate: "2026-12-31", Playlist: "Nightly"},
	}

	out, err := Build(entries, "UTC", Locale{}, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(out, "EXDATE") {
		t.Errorf("expected the lower-precedence entry to carry EXDATEs for the overlap, got:\n%s", out)
	}
}

func TestBuild_SymbolicStartTimeResolvesToClockTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.Entry{
		{Day: 7, StartTime: "SunSet", StartTimeOffset: -30, EndTime: "23:00:00", StartDate: "2026-06-01", EndDate: "2026-06-01", Playlist: "Dusk Show"},
	}

	out, err := Build(entries, "UTC", Locale{Latitude: 51.5074, Longitude: -0.1278}, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Contains(out, "SunSet") {
		t.Errorf("expected the symbolic token to be resolved to a clock time, got:\n%s", out)
	}
	if !strings.Contains(out, "DTSTART;TZID=UTC:20260601T") {
		t.Errorf("expected a concrete DTSTART on the entry's date, got:\n%s", out)
	}
}
