package target

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

func mediaRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "playlists", "Show", "playlist.json"), "{}")
	mustWrite(t, filepath.Join(dir, "playlists", "Flat.json"), "{}")
	mustWrite(t, filepath.Join(dir, "sequences", "Sparkle.fseq"), "")
	return dir
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve_Order(t *testing.T) {
	r := NewResolver(mediaRoot(t))

	cases := []struct {
		summary string
		want    model.ResolvedTarget
		ok      bool
	}{
		{"cmd: Lights On", model.ResolvedTarget{Type: model.TargetCommand, Target: "Lights On"}, true},
		{"command:Restart FPPD", model.ResolvedTarget{Type: model.TargetCommand, Target: "Restart FPPD"}, true},
		{"Show", model.ResolvedTarget{Type: model.TargetPlaylist, Target: "Show"}, true},
		{"Flat", model.ResolvedTarget{Type: model.TargetPlaylist, Target: "Flat"}, true},
		{"Sparkle", model.ResolvedTarget{Type: model.TargetSequence, Target: "Sparkle"}, true},
		{"Nonexistent", model.ResolvedTarget{}, false},
		{"", model.ResolvedTarget{}, false},
		{"cmd:", model.ResolvedTarget{}, false},
	}
	for _, c := range cases {
		got, ok := r.Resolve(c.summary)
		if ok != c.ok || got != c.want {
			t.Errorf("Resolve(%q) = %+v, %v; want %+v, %v", c.summary, got, ok, c.want, c.ok)
		}
	}
}

func TestResolve_CommandPrefixWinsOverPlaylist(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "playlists", "cmd: Show", "playlist.json"), "{}")
	r := NewResolver(dir)

	got, ok := r.Resolve("cmd: Show")
	if !ok || got.Type != model.TargetCommand || got.Target != "Show" {
		t.Errorf("Resolve(%q) = %+v, %v; want command Show", "cmd: Show", got, ok)
	}
}

func TestResolve_SequenceStoredWithoutExtension(t *testing.T) {
	r := NewResolver(mediaRoot(t))
	got, ok := r.Resolve("Sparkle")
	if !ok || got.Target != "Sparkle" {
		t.Fatalf("Resolve(Sparkle) = %+v, %v", got, ok)
	}
}
