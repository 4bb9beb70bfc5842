package schedfile

import (
	"testing"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// One daily playlist intent maps to the exact host entry tuple the FPP
// scheduler expects.
func TestIntentToEntry_DailyPlaylist(t *testing.T) {
	loc := time.UTC
	in := model.Intent{
		UID: "u1",
		Template: model.IntentTemplate{
			Type:     model.TargetPlaylist,
			Target:   "Show",
			Enabled:  true,
			Start:    time.Date(2025, 1, 1, 18, 0, 0, 0, loc),
			End:      time.Date(2025, 1, 1, 23, 0, 0, 0, loc),
			StopType: model.StopGraceful,
			Repeat:   model.Repeat{Kind: model.RepeatImmediate},
		},
		Range: model.IntentRange{
			Start: time.Date(2025, 1, 1, 0, 0, 0, 0, loc),
			End:   time.Date(2025, 12, 31, 0, 0, 0, 0, loc),
			Days:  "SuMoTuWeThFrSa",
		},
	}

	entry, err := IntentToEntry(in)
	if err != nil {
		t.Fatalf("IntentToEntry: %v", err)
	}
	if entry.Day != 7 || entry.StartTime != "18:00:00" || entry.EndTime != "23:00:00" ||
		entry.StartDate != "2025-01-01" || entry.EndDate != "2025-12-31" ||
		entry.Playlist != "Show" || entry.StopType != 0 || entry.Repeat != 1 || entry.Enabled != 1 {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestIntentToEntry_MidnightEndRollsOverTo2400(t *testing.T) {
	loc := time.UTC
	in := model.Intent{
		UID: "christmas",
		Template: model.IntentTemplate{
			Type:   model.TargetPlaylist,
			Target: "Christmas",
			Start:  time.Date(2025, 12, 25, 17, 0, 0, 0, loc),
			End:    time.Date(2025, 12, 26, 0, 0, 0, 0, loc),
		},
		Range: model.IntentRange{
			Start: time.Date(2025, 12, 25, 0, 0, 0, 0, loc),
			End:   time.Date(2025, 12, 25, 0, 0, 0, 0, loc),
			Days:  "We",
		},
	}

	entry, err := IntentToEntry(in)
	if err != nil {
		t.Fatalf("IntentToEntry: %v", err)
	}
	if entry.EndTime != "24:00:00" {
		t.Errorf("expected EndTime 24:00:00 for a midnight end, got %q", entry.EndTime)
	}
}

func TestIntentToEntry_CommandIsOneMinuteWindow(t *testing.T) {
	loc := time.UTC
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, loc)
	in := model.Intent{
		UID: "cmd1",
		Template: model.IntentTemplate{
			Type:   model.TargetCommand,
			Target: "Restart FPPD",
			Start:  start,
			End:    start, // commands carry no independent end in the template
		},
		Range: model.IntentRange{Start: start, End: start, Days: "We"},
	}

	entry, err := IntentToEntry(in)
	if err != nil {
		t.Fatalf("IntentToEntry: %v", err)
	}
	if entry.Command != "Restart FPPD" {
		t.Errorf("expected command target, got %+v", entry)
	}
	if entry.EndTime != "09:01:00" {
		t.Errorf("expected command end time to be start+1m, got %q", entry.EndTime)
	}
	if entry.EndDate != entry.StartDate {
		t.Errorf("expected command endDate == startDate, got start=%q end=%q", entry.StartDate, entry.EndDate)
	}
}

func TestIntentToEntry_RejectsUnresolvedTarget(t *testing.T) {
	_, err := IntentToEntry(model.Intent{Template: model.IntentTemplate{Type: model.TargetPlaylist, Target: ""}})
	if err == nil {
		t.Fatal("expected an error for an empty target")
	}
}
