package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// SchemaVersion is the manifest.json schema version this package writes.
const SchemaVersion = 1

// Store persists the current/previous snapshot pair to manifest.json and
// supports a single-step undo by swapping previous back into current.
type Store struct {
	path string
}

// NewStore builds a Store rooted at the given manifest.json path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads manifest.json, treating a missing file as an empty snapshot
// (no current or previous side) rather than an error.
func (s *Store) Load() (*model.ManifestSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &model.ManifestSnapshot{SchemaVersion: SchemaVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", s.path, err)
	}
	var snap model.ManifestSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", s.path, err)
	}
	return &snap, nil
}

// Commit promotes the existing current snapshot to previous, writes the new
// entries as current, and persists the result atomically. calendar is the
// source ICS URL, recorded for diagnostics.
func (s *Store) Commit(calendar string, entries []model.ManifestEntry, order []string, now time.Time) error {
	snap, err := s.Load()
	if err != nil {
		return err
	}

	next := &model.ManifestSnapshot{
		SchemaVersion: SchemaVersion,
		Calendar:      calendar,
		Previous:      snap.Current,
		Current: &model.ManifestSnapshotData{
			AppliedAt: now,
			Entries:   entries,
			Order:     order,
		},
	}

	return s.write(next)
}

// Rollback swaps previous back into current, dropping the (now rejected)
// current side, and returns the restored snapshot data so the caller can
// reconstruct schedule.json from it. Returns an error if there is no
// previous snapshot to roll back to.
func (s *Store) Rollback() (*model.ManifestSnapshotData, error) {
	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	if snap.Previous == nil {
		return nil, fmt.Errorf("manifest: no previous snapshot to roll back to")
	}

	restored := snap.Previous
	next := &model.ManifestSnapshot{
		SchemaVersion: SchemaVersion,
		Calendar:      snap.Calendar,
		Current:       restored,
		Previous:      nil,
	}
	if err := s.write(next); err != nil {
		return nil, err
	}
	return restored, nil
}

func (s *Store) write(snap *model.ManifestSnapshot) error {
	tmpPath := fmt.Sprintf("%s.tmp-%d", s.path, os.Getpid())

	lock := flock.New(tmpPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("manifest: lock %s: %w", tmpPath, err)
	}
	if !locked {
		return fmt.Errorf("manifest: could not acquire exclusive lock on %s", tmpPath)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	data = append(data, '\n')

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(s.path); statErr == nil {
		mode = info.Mode()
	}

	if err := os.WriteFile(tmpPath, data, mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("manifest: write temp %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("manifest: rename %s -> %s: %w", tmpPath, s.path, err)
	}
	return nil
}

// BuildEntries pairs desired host entries with the planner order and their
// freshly-computed identity/hash, producing the ManifestEntry rows Commit
// expects. uids must be parallel to entries.
func BuildEntries(identity *Identity, uids []string, entries []model.Entry, referenceYear int) []model.ManifestEntry {
	out := make([]model.ManifestEntry, 0, len(entries))
	for i, e := range entries {
		id, ok := identity.Extract(e, referenceYear)
		if !ok {
			continue
		}
		sidecar := model.ManifestSidecar{
			ID:       ID(id),
			Identity: id,
			Hash:     Hash(id, e),
		}
		e.Manifest = &sidecar
		out = append(out, model.ManifestEntry{
			UID:      uids[i],
			ID:       sidecar.ID,
			Hash:     sidecar.Hash,
			Identity: id,
			Payload:  e,
		})
	}
	return out
}
