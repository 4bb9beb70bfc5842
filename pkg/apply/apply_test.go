package apply

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/manifest"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

func withIdentity(e model.Entry, refYear int) model.Entry {
	ident := manifest.NewIdentity(nil)
	id, ok := ident.Extract(e, refYear)
	if !ok {
		return e
	}
	e.Manifest = &model.ManifestSidecar{ID: manifest.ID(id), Identity: id, Hash: manifest.Hash(id, e)}
	return e
}

func writeSchedule(t *testing.T, path string, entries []model.Entry) {
	t.Helper()
	if entries == nil {
		entries = []model.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		t.Fatalf("marshal schedule: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write schedule: %v", err)
	}
}

func TestRun_DryRunNeverWrites(t *testing.T) {
	dir := t.TempDir()
	schedPath := filepath.Join(dir, "schedule.json")
	writeSchedule(t, schedPath, nil)
	before, _ := os.Stat(schedPath)

	desired := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)

	res, err := Run(Input{
		SchedulePath: schedPath, ManifestPath: filepath.Join(dir, "manifest.json"),
		DryRun: true, Desired: []model.Entry{desired}, DesiredUIDs: []string{"uid-1"},
		ReferenceYear: 2026, Now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.DryRun || res.Creates != 1 {
		t.Fatalf("expected dry-run result with 1 create, got %+v", res)
	}

	after, _ := os.Stat(schedPath)
	if !before.ModTime().Equal(after.ModTime()) {
		t.Errorf("expected schedule.json mtime unchanged under dry-run")
	}
}

func TestRun_NoOpWhenNothingChanged(t *testing.T) {
	dir := t.TempDir()
	schedPath := filepath.Join(dir, "schedule.json")
	entry := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)
	writeSchedule(t, schedPath, []model.Entry{entry})

	res, err := Run(Input{
		SchedulePath: schedPath, ManifestPath: filepath.Join(dir, "manifest.json"),
		DryRun: false, Desired: []model.Entry{entry}, DesiredUIDs: []string{"uid-1"},
		ReferenceYear: 2026, Now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.NoOp {
		t.Fatalf("expected a no-op result, got %+v", res)
	}
}

func TestRun_CreateAppendsAndPreservesUnmanaged(t *testing.T) {
	dir := t.TempDir()
	schedPath := filepath.Join(dir, "schedule.json")
	manifestPath := filepath.Join(dir, "manifest.json")
	unmanaged := model.Entry{Day: 3, StartTime: "10:00:00", EndTime: "11:00:00", StartDate: "2026-02-01", EndDate: "2026-02-01", Playlist: "HandAdded"}
	writeSchedule(t, schedPath, []model.Entry{unmanaged})

	desired := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)

	res, err := Run(Input{
		SchedulePath: schedPath, ManifestPath: manifestPath, Calendar: "https://example.com/cal.ics",
		DryRun: false, Desired: []model.Entry{desired}, DesiredUIDs: []string{"uid-1"},
		ReferenceYear: 2026, Now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Creates != 1 {
		t.Fatalf("expected 1 create, got %+v", res)
	}

	data, err := os.ReadFile(schedPath)
	if err != nil {
		t.Fatalf("reading schedule.json: %v", err)
	}
	var out []model.Entry
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode schedule.json: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries (unmanaged + new), got %d", len(out))
	}
	if out[0].Playlist != "HandAdded" {
		t.Errorf("expected unmanaged entry to remain first, got %+v", out[0])
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "schedule.json.bak-*"))
	if len(matches) == 0 {
		t.Errorf("expected a backup file to have been written")
	}

	store := manifest.NewStore(manifestPath)
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("loading manifest: %v", err)
	}
	if snap.Current == nil || len(snap.Current.Entries) != 1 {
		t.Fatalf("expected manifest to record 1 current entry, got %+v", snap.Current)
	}
}

func TestRun_DeleteRemovesManagedEntryNotInDesired(t *testing.T) {
	dir := t.TempDir()
	schedPath := filepath.Join(dir, "schedule.json")
	entry := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)
	writeSchedule(t, schedPath, []model.Entry{entry})

	res, err := Run(Input{
		SchedulePath: schedPath, ManifestPath: filepath.Join(dir, "manifest.json"),
		DryRun: false, Desired: nil, DesiredUIDs: nil,
		ReferenceYear: 2026, Now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Deletes != 1 {
		t.Fatalf("expected 1 delete, got %+v", res)
	}

	data, _ := os.ReadFile(schedPath)
	var out []model.Entry
	_ = json.Unmarshal(data, &out)
	if len(out) != 0 {
		t.Fatalf("expected the managed entry to be removed, got %+v", out)
	}
}
