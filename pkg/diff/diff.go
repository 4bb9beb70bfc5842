// Package diff classifies a desired entry set against the existing
// scheduler file: it partitions the file into managed/unmanaged entries,
// matching desired entries against them by manifest id (with
// identity-equality adoption for unmanaged entries carrying a stable
// planner UID), and classifying the result as CREATE/UPDATE/DELETE/NO-OP.
package diff

import (
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/manifest"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/schedfile"
)

// Change is one classified difference between the existing file and the
// desired entry set.
type Change struct {
	Kind          Kind
	Existing      *model.Entry // set for UPDATE, DELETE
	Desired       *model.Entry // set for CREATE, UPDATE
	Adopted       bool         // true when an UPDATE came from identity-based adoption
	ExistingIndex int          // index into the `existing` slice passed to Diff; -1 for CREATE
}

// Kind enumerates the diff classification.
type Kind int

const (
	NoOp Kind = iota
	Create
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "CREATE"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "NO-OP"
	}
}

// canonicalFields is the field set SchedulerComparator tests for managed-id
// equality.
type canonicalFields struct {
	Type      string
	Target    string
	StartDate string
	EndDate   string
	Day       int
	StartTime string
	EndTime   string
	Playlist  string
	Sequence  int
	Repeat    int
	StopType  int
	Command   string
}

func canonicalOf(e model.Entry) canonicalFields {
	typ := ""
	switch {
	case e.Command != "":
		typ = string(model.TargetCommand)
	case e.Sequence == 1:
		typ = string(model.TargetSequence)
	case e.Playlist != "":
		typ = string(model.TargetPlaylist)
	}
	target := e.Playlist
	if e.Command != "" {
		target = e.Command
	}
	return canonicalFields{
		Type: typ, Target: target,
		StartDate: e.StartDate, EndDate: e.EndDate,
		Day: e.Day, StartTime: e.StartTime, EndTime: e.EndTime,
		Playlist: e.Playlist, Sequence: e.Sequence,
		Repeat: e.Repeat, StopType: e.StopType, Command: e.Command,
	}
}

// entriesEqual is the comparator's equality test: the canonical field set
// plus the behavioral hash, so fields outside the canonical set (enabled,
// time offsets) still force an UPDATE when they change.
func entriesEqual(existing, desired model.Entry) bool {
	if canonicalOf(existing) != canonicalOf(desired) {
		return false
	}
	if existing.Manifest != nil && desired.Manifest != nil &&
		existing.Manifest.Hash != "" && desired.Manifest.Hash != "" {
		return existing.Manifest.Hash == desired.Manifest.Hash
	}
	return true
}

// Result is the full set of classified changes; unchanged entries (NO-OP)
// produce no Change.
type Result struct {
	Changes []Change
}

// Diff computes the CREATE/UPDATE/DELETE set for one sync run. desired is
// the planner's ordered entry list (already carrying `_manifest` sidecars);
// desiredUIDs is parallel to desired and supplies the planner UID used to
// gate adoption (empty string means "no stable UID", forcing CREATE).
func Diff(existing []model.Entry, desired []model.Entry, desiredUIDs []string, referenceYear int) Result {
	ident := manifest.NewIdentity(nil)

	type managedRecord struct {
		entry  model.Entry
		index  int
		legacy bool
	}
	managedByID := map[string]managedRecord{}
	unmanagedByIdentity := map[string]int{} // identity id -> index into `existing`

	for i, e := range existing {
		if e.Manifest != nil && e.Manifest.ID != "" {
			managedByID[e.Manifest.ID] = managedRecord{entry: e, index: i}
			continue
		}
		if tag, ok := schedfile.LegacyTag(e); ok {
			// Legacy-tagged entries are managed even without a sidecar.
			// Key by computed identity so a matching desired entry updates
			// them in place; when no identity can be derived the tag itself
			// keys the record, which no desired id ever matches, so the
			// entry is deleted once it drops out of the desired set.
			key := tag
			if id, idOK := ident.Extract(e, referenceYear); idOK {
				key = manifest.ID(id)
			}
			managedByID[key] = managedRecord{entry: e, index: i, legacy: true}
			continue
		}
		if id, ok := ident.Extract(e, referenceYear); ok {
			unmanagedByIdentity[manifest.ID(id)] = i
		}
	}

	consumedUnmanaged := map[int]bool{}
	var changes []Change

	seenManagedIDs := map[string]bool{}
	seenDesiredIDs := map[string]bool{}

	for i, d := range desired {
		dID := ""
		if d.Manifest != nil {
			dID = d.Manifest.ID
		}

		// Duplicate desired ids keep the first; the rest are discarded
		// silently.
		if dID != "" {
			if seenDesiredIDs[dID] {
				continue
			}
			seenDesiredIDs[dID] = true
		}

		if rec, ok := managedByID[dID]; ok {
			seenManagedIDs[dID] = true
			// A legacy match always updates, migrating the entry onto the
			// _manifest sidecar even when its fields are already correct.
			if rec.legacy || !entriesEqual(rec.entry, d) {
				ex := rec.entry
				de := d
				changes = append(changes, Change{Kind: Update, Existing: &ex, Desired: &de, ExistingIndex: rec.index})
			}
			continue
		}

		uid := ""
		if i < len(desiredUIDs) {
			uid = desiredUIDs[i]
		}
		if uid != "" {
			if idx, ok := unmanagedByIdentity[dID]; ok && !consumedUnmanaged[idx] {
				consumedUnmanaged[idx] = true
				ex := existing[idx]
				de := d
				changes = append(changes, Change{Kind: Update, Existing: &ex, Desired: &de, Adopted: true, ExistingIndex: idx})
				continue
			}
		}

		de := d
		changes = append(changes, Change{Kind: Create, Desired: &de, ExistingIndex: -1})
	}

	for id, rec := range managedByID {
		if !seenManagedIDs[id] {
			ex := rec.entry
			changes = append(changes, Change{Kind: Delete, Existing: &ex, ExistingIndex: rec.index})
		}
	}

	return Result{Changes: changes}
}

// Counts summarizes a Result for the plan-status API response.
func (r Result) Counts() (creates, updates, deletes int) {
	for _, c := range r.Changes {
		switch c.Kind {
		case Create:
			creates++
		case Update:
			updates++
		case Delete:
			deletes++
		}
	}
	return
}
