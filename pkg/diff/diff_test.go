package diff

import (
	"testing"

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

func TestDiff_NewManagedEntryIsCreate(t *testing.T) {
	desired := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)

	result := Diff(nil, []model.Entry{desired}, []string{"uid-1"}, 2026)
	creates, updates, deletes := result.Counts()
	if creates != 1 || updates != 0 || deletes != 0 {
		t.Fatalf("expected 1 create, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
}

func TestDiff_UnchangedManagedEntryIsNoOp(t *testing.T) {
	desired := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)

	result := Diff([]model.Entry{desired}, []model.Entry{desired}, []string{"uid-1"}, 2026)
	if len(result.Changes) != 0 {
		t.Fatalf("expected no changes, got %+v", result.Changes)
	}
}

func TestDiff_ChangedCanonicalFieldIsUpdate(t *testing.T) {
	existing := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)
	desired := existing
	desired.EndTime = "18:00:00"

	result := Diff([]model.Entry{existing}, []model.Entry{desired}, []string{"uid-1"}, 2026)
	creates, updates, deletes := result.Counts()
	if creates != 0 || updates != 1 || deletes != 0 {
		t.Fatalf("expected 1 update, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
}

func TestDiff_ManagedIDMissingFromDesiredIsDelete(t *testing.T) {
	existing := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)

	result := Diff([]model.Entry{existing}, nil, nil, 2026)
	creates, updates, deletes := result.Counts()
	if creates != 0 || updates != 0 || deletes != 1 {
		t.Fatalf("expected 1 delete, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
}

func TestDiff_UnmanagedEntryUntouchedWhenNoIdentityMatch(t *testing.T) {
	unmanaged := model.Entry{Day: 1, StartTime: "09:00:00", EndTime: "10:00:00", StartDate: "2026-02-01", EndDate: "2026-02-01", Playlist: "HandAdded"}
	desired := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)

	result := Diff([]model.Entry{unmanaged}, []model.Entry{desired}, []string{"uid-1"}, 2026)
	creates, updates, deletes := result.Counts()
	if creates != 1 || updates != 0 || deletes != 0 {
		t.Fatalf("expected the unmanaged entry to be left alone and the desired entry to be a create, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
}

func TestDiff_SymbolicDateAdoptionMatchesByIdentity(t *testing.T) {
	// The unmanaged entry uses a concrete date; the desired entry's
	// identity resolves to the same id via the symbolic/hard date union.
	unmanaged := model.Entry{Day: 7, StartTime: "17:00:00", EndTime: "24:00:00", StartDate: "2025-12-25", EndDate: "2025-12-25", Playlist: "Christmas"}
	desired := model.Entry{Day: 7, StartTime: "17:00:00", EndTime: "24:00:00", StartDate: "2025-12-25", EndDate: "2025-12-25", Playlist: "Christmas"}

	ident := manifest.NewIdentity(nil)
	id, ok := ident.Extract(desired, 2025)
	if !ok {
		t.Fatalf("expected desired identity to extract")
	}
	desired.Manifest = &model.ManifestSidecar{ID: manifest.ID(id), Identity: id, Hash: manifest.Hash(id, desired)}

	result := Diff([]model.Entry{unmanaged}, []model.Entry{desired}, []string{"uid-1"}, 2025)
	creates, updates, deletes := result.Counts()
	if creates != 0 || updates != 1 || deletes != 0 {
		t.Fatalf("expected adoption to produce 1 update, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
	if !result.Changes[0].Adopted {
		t.Errorf("expected the update to be flagged as adopted")
	}
}

func TestDiff_DuplicateDesiredIDsKeepFirst(t *testing.T) {
	desired := withIdentity(model.Entry{Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)

	result := Diff(nil, []model.Entry{desired, desired}, []string{"uid-1", "uid-2"}, 2026)
	creates, updates, deletes := result.Counts()
	if creates != 1 || updates != 0 || deletes != 0 {
		t.Fatalf("expected only the first duplicate to produce a create, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
}

func TestDiff_NoAdoptionWithoutPlannerUID(t *testing.T) {
	unmanaged := model.Entry{Day: 7, StartTime: "17:00:00", EndTime: "24:00:00", StartDate: "2025-12-25", EndDate: "2025-12-25", Playlist: "Christmas"}
	desired := unmanaged

	ident := manifest.NewIdentity(nil)
	id, _ := ident.Extract(desired, 2025)
	desired.Manifest = &model.ManifestSidecar{ID: manifest.ID(id), Identity: id, Hash: manifest.Hash(id, desired)}

	result := Diff([]model.Entry{unmanaged}, []model.Entry{desired}, []string{""}, 2025)
	creates, updates, deletes := result.Counts()
	if creates != 1 || updates != 0 || deletes != 0 {
		t.Fatalf("expected adoption to be refused without a planner UID, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
}

func TestDiff_BehaviorOnlyChangeIsUpdateViaHash(t *testing.T) {
	// enabled and the time offsets sit outside the canonical field set, so
	// only the behavioral hash can surface them as an UPDATE.
	existing := withIdentity(model.Entry{Enabled: 1, Day: 1, StartTime: "08:00:00", EndTime: "17:00:00", StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow"}, 2026)

	changed := existing
	changed.Enabled = 0
	changed.Manifest = nil
	changed = withIdentity(changed, 2026)

	if existing.Manifest.ID != changed.Manifest.ID {
		t.Fatalf("expected enabled to not affect the identity id")
	}

	result := Diff([]model.Entry{existing}, []model.Entry{changed}, []string{"uid-1"}, 2026)
	creates, updates, deletes := result.Counts()
	if creates != 0 || updates != 1 || deletes != 0 {
		t.Fatalf("expected 1 update from the hash difference, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
}

func TestDiff_LegacyTaggedEntryMissingFromDesiredIsDelete(t *testing.T) {
	legacy := model.Entry{
		Day: 1, StartTime: "08:00:00", EndTime: "17:00:00",
		StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow",
		Args: []string{"|M|GCS:v1|some-uid"},
	}

	result := Diff([]model.Entry{legacy}, nil, nil, 2026)
	creates, updates, deletes := result.Counts()
	if creates != 0 || updates != 0 || deletes != 1 {
		t.Fatalf("expected the legacy-tagged entry to be deleted, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
	if result.Changes[0].Kind != Delete || result.Changes[0].ExistingIndex != 0 {
		t.Errorf("unexpected change: %+v", result.Changes[0])
	}
}

func TestDiff_LegacyTaggedEntryMigratesToSidecarViaUpdate(t *testing.T) {
	legacy := model.Entry{
		Day: 1, StartTime: "08:00:00", EndTime: "17:00:00",
		StartDate: "2026-01-05", EndDate: "2026-12-31", Playlist: "MorningShow",
		Args: []string{"|M|GCS:v1|some-uid"},
	}
	desired := legacy
	desired.Args = nil
	desired = withIdentity(desired, 2026)

	result := Diff([]model.Entry{legacy}, []model.Entry{desired}, []string{"some-uid"}, 2026)
	creates, updates, deletes := result.Counts()
	if creates != 0 || updates != 1 || deletes != 0 {
		t.Fatalf("expected the legacy entry to migrate via update, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
	c := result.Changes[0]
	if c.Kind != Update || c.ExistingIndex != 0 {
		t.Fatalf("unexpected change: %+v", c)
	}
	if c.Desired.Manifest == nil || c.Desired.Manifest.ID == "" {
		t.Errorf("expected the replacement entry to carry a _manifest sidecar")
	}
}

func TestDiff_LegacyTaggedEntryWithoutIdentityStillDeletes(t *testing.T) {
	// No target and no dates, so no identity can be derived; the legacy tag
	// alone must still make the entry managed and therefore deletable.
	legacy := model.Entry{Day: 1, Args: []string{"|M|GCS:v1|orphan-uid"}}

	result := Diff([]model.Entry{legacy}, nil, nil, 2026)
	creates, updates, deletes := result.Counts()
	if creates != 0 || updates != 0 || deletes != 1 {
		t.Fatalf("expected the identity-less legacy entry to be deleted, got creates=%d updates=%d deletes=%d", creates, updates, deletes)
	}
}
