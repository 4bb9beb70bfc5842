package schedfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// legacyIdentityArg is the prefix the legacy (pre-_manifest) managed-entry
// tag used, still recognized on read.
const legacyIdentityArg = "|M|GCS:v1|"

// ReadStrict reads and decodes schedule.json, failing hard on a missing or
// corrupt file — used by Apply, which must never silently treat corruption
// as an empty schedule.
func ReadStrict(path string) ([]model.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schedfile: read %s: %w", path, err)
	}
	var entries []model.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("schedfile: decode %s: %w", path, err)
	}
	return entries, nil
}

// ReadLenient reads schedule.json, treating a missing or corrupt file as
// empty — used by Plan/Diff, which
// must never fail a preview just because the file hasn't been created yet.
func ReadLenient(path string) []model.Entry {
	entries, err := ReadStrict(path)
	if err != nil {
		return nil
	}
	return entries
}

// IsManaged reports whether an existing entry is owned by this system,
// via its _manifest sidecar or the legacy args[] identity tag.
func IsManaged(e model.Entry) bool {
	if e.Manifest != nil && e.Manifest.ID != "" {
		return true
	}
	_, ok := LegacyTag(e)
	return ok
}

// LegacyTag returns the legacy args[] identity tag carried by e, if any.
// Pre-sidecar installs marked their entries with this tag instead of the
// _manifest object; readers still honor it so those entries stay managed.
func LegacyTag(e model.Entry) (string, bool) {
	for _, a := range e.Args {
		if strings.HasPrefix(a, legacyIdentityArg) {
			return a, true
		}
	}
	return "", false
}

// Backup copies path to "<path>.bak-<UTC timestamp>" and returns the
// backup path.
func Backup(path string, now time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("schedfile: backup read %s: %w", path, err)
	}

	backupPath := fmt.Sprintf("%s.bak-%s", path, now.UTC().Format("20060102T150405Z"))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("schedfile: write backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

// AtomicWrite encodes entries as pretty JSON with a trailing newline and
// writes them to path via the temp-file-plus-rename pattern, holding an
// exclusive lock on the temp file during encoding.
func AtomicWrite(path string, entries []model.Entry) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}

	tmpPath := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())

	lock := flock.New(tmpPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("schedfile: lock %s: %w", tmpPath, err)
	}
	if !locked {
		return fmt.Errorf("schedfile: could not acquire exclusive lock on %s", tmpPath)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if entries == nil {
		entries = []model.Entry{}
	}
	if err := enc.Encode(entries); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("schedfile: encode: %w", err)
	}

	if err := os.WriteFile(tmpPath, buf.Bytes(), mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("schedfile: write temp %s: %w", tmpPath, err)
	}

	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("schedfile: chmod %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("schedfile: rename %s -> %s: %w", tmpPath, path, err)
	}

	return nil
}

// Verify re-reads path and checks that every expectedPresent id is present
// and every expectedAbsent id is absent.
func Verify(path string, expectedPresent, expectedAbsent []string) error {
	entries, err := ReadStrict(path)
	if err != nil {
		return fmt.Errorf("schedfile: post-write verification could not re-read %s: %w", path, err)
	}

	present := map[string]bool{}
	for _, e := range entries {
		if e.Manifest != nil {
			present[e.Manifest.ID] = true
		}
	}

	for _, id := range expectedPresent {
		if !present[id] {
			return fmt.Errorf("schedfile: post-write verification failed, missing expected id %s", id)
		}
	}
	for _, id := range expectedAbsent {
		if present[id] {
			return fmt.Errorf("schedfile: post-write verification failed, found deleted id %s still present", id)
		}
	}
	return nil
}
