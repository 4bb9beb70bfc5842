// Package apply is the sole write boundary for schedule.json. It
// recomputes the plan (never trusting a stale preview), guards on
// dry-run, builds the new schedule.json contents in existing-file order,
// and commits the backup/atomic-write/verify/manifest sequence.
package apply

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/diff"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/manifest"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/schedfile"
)

// Result is the outcome of one Apply invocation.
type Result struct {
	OK       bool
	DryRun   bool
	NoOp     bool
	Creates  int
	Updates  int
	Deletes  int
	Warnings []string
}

// Input bundles everything Apply needs that the caller (the orchestrator)
// has already computed for this run: the desired entries in planner order,
// their parallel planner UIDs, and where to find the host and manifest
// files.
type Input struct {
	SchedulePath  string
	ManifestPath  string
	Calendar      string
	DryRun        bool
	Desired       []model.Entry
	DesiredUIDs   []string
	ReferenceYear int
	Now           time.Time
}

// Run executes one apply. When in.DryRun is true, it returns immediately
// with DryRun:true and no filesystem writes; the dry-run guard is checked
// first and unconditionally.
func Run(in Input) (Result, error) {
	if in.DryRun {
		existing := schedfile.ReadLenient(in.SchedulePath)
		d := diff.Diff(existing, in.Desired, in.DesiredUIDs, in.ReferenceYear)
		creates, updates, deletes := d.Counts()
		return Result{OK: true, DryRun: true, Creates: creates, Updates: updates, Deletes: deletes}, nil
	}

	// A missing file is a fresh install, not corruption; only a file that
	// exists but cannot be decoded aborts the apply.
	existing, err := schedfile.ReadStrict(in.SchedulePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("apply: strict read of %s failed: %w", in.SchedulePath, err)
		}
		existing = nil
	}

	d := diff.Diff(existing, in.Desired, in.DesiredUIDs, in.ReferenceYear)
	creates, updates, deletes := d.Counts()
	if creates == 0 && updates == 0 && deletes == 0 {
		return Result{OK: true, NoOp: true}, nil
	}

	newFile, expectedPresent, expectedAbsent := BuildNewFile(existing, d)

	if _, err := schedfile.Backup(in.SchedulePath, in.Now); err != nil {
		return Result{}, fmt.Errorf("apply: backup failed: %w", err)
	}

	if err := schedfile.AtomicWrite(in.SchedulePath, newFile); err != nil {
		return Result{}, fmt.Errorf("apply: atomic write failed: %w", err)
	}

	if err := schedfile.Verify(in.SchedulePath, expectedPresent, expectedAbsent); err != nil {
		return Result{}, fmt.Errorf("apply: %w", err)
	}

	result := Result{OK: true, Creates: creates, Updates: updates, Deletes: deletes}

	ident := manifest.NewIdentity(nil)
	entries := manifest.BuildEntries(ident, in.DesiredUIDs, in.Desired, in.ReferenceYear)
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		order = append(order, e.ID)
	}
	store := manifest.NewStore(in.ManifestPath)
	if err := store.Commit(in.Calendar, entries, order, in.Now); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("manifest commit failed after a successful apply: %v", err))
	}

	return result, nil
}

// BuildNewFile walks the existing file in order, keeping unmanaged
// entries in place, substituting or dropping managed
// entries by id, then appending new entries in planner order. Exported so
// pkg/orchestrator's Rollback can reuse the same splice logic against a
// diff computed from a restored manifest snapshot rather than a fresh
// planner run.
func BuildNewFile(existing []model.Entry, d diff.Result) (file []model.Entry, expectedPresent, expectedAbsent []string) {
	replacementByIndex := map[int]model.Entry{}
	droppedIndex := map[int]bool{}
	for _, c := range d.Changes {
		switch c.Kind {
		case diff.Update:
			replacementByIndex[c.ExistingIndex] = *c.Desired
		case diff.Delete:
			droppedIndex[c.ExistingIndex] = true
			if c.Existing.Manifest != nil {
				expectedAbsent = append(expectedAbsent, c.Existing.Manifest.ID)
			}
		}
	}

	for i, e := range existing {
		if droppedIndex[i] {
			continue
		}
		if replacement, ok := replacementByIndex[i]; ok {
			file = append(file, replacement)
			if replacement.Manifest != nil {
				expectedPresent = append(expectedPresent, replacement.Manifest.ID)
			}
			continue
		}
		file = append(file, e)
		if e.Manifest != nil {
			expectedPresent = append(expectedPresent, e.Manifest.ID)
		}
	}

	for _, c := range d.Changes {
		if c.Kind != diff.Create {
			continue
		}
		file = append(file, *c.Desired)
		if c.Desired.Manifest != nil {
			expectedPresent = append(expectedPresent, c.Desired.Manifest.ID)
		}
	}

	// Replacements/drops are applied by existing-file index (ExistingIndex),
	// which covers both managed updates and identity-adopted unmanaged
	// entries; appended creates preserve planner order because d.Changes is
	// built in desired-list iteration order (see pkg/diff).
	return file, expectedPresent, expectedAbsent
}
