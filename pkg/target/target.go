// Package target resolves an event summary to a concrete schedule target:
// a playlist, a sequence, or a command.
package target

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// Resolver probes the FPP media root for playlists and sequences matching
// an event summary.
type Resolver struct {
	mediaRoot string
}

// NewResolver creates a Resolver rooted at mediaRoot, the directory that
// holds the host's playlists/ and sequences/ subdirectories.
func NewResolver(mediaRoot string) *Resolver {
	return &Resolver{mediaRoot: mediaRoot}
}

// Resolve maps summary to its target. Resolution order: a cmd:/command:
// prefix names a command; a playlist directory or file under playlists/
// names a playlist; a .fseq file under sequences/ names a sequence (stored
// without the extension). Anything else is unresolved.
func (r *Resolver) Resolve(summary string) (model.ResolvedTarget, bool) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return model.ResolvedTarget{}, false
	}

	for _, prefix := range []string{"cmd:", "command:"} {
		if strings.HasPrefix(summary, prefix) {
			name := strings.TrimSpace(strings.TrimPrefix(summary, prefix))
			if name == "" {
				return model.ResolvedTarget{}, false
			}
			return model.ResolvedTarget{Type: model.TargetCommand, Target: name}, true
		}
	}

	if r.isFile(filepath.Join("playlists", summary, "playlist.json")) ||
		r.isFile(filepath.Join("playlists", summary+".json")) {
		return model.ResolvedTarget{Type: model.TargetPlaylist, Target: summary}, true
	}

	if r.isFile(filepath.Join("sequences", summary+".fseq")) {
		return model.ResolvedTarget{Type: model.TargetSequence, Target: summary}, true
	}

	return model.ResolvedTarget{}, false
}

func (r *Resolver) isFile(rel string) bool {
	_, err := os.Stat(filepath.Join(r.mediaRoot, rel))
	return err == nil
}
