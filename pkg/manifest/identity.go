// Package manifest builds canonical identity keys and behavioral hashes
// for scheduler entries, and persists the applied snapshot pair (current +
// previous) that gives ids continuity across runs and a single-step undo.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/fppsem"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/holiday"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
)

// Identity wraps a HolidayResolver so dual hard/symbolic date tokens can be
// derived; injected rather than package-level so callers control the table.
type Identity struct {
	holidays *holiday.Resolver
}

// NewIdentity builds an Identity helper. A nil resolver uses the default
// holiday table.
func NewIdentity(resolver *holiday.Resolver) *Identity {
	if resolver == nil {
		resolver = holiday.NewResolver(nil)
	}
	return &Identity{holidays: resolver}
}

// Extract builds the canonical model.Identity for a host scheduler entry,
// given the reference year used to resolve symbolic dates.
func (m *Identity) Extract(e model.Entry, referenceYear int) (model.Identity, bool) {
	typ := entryType(e)
	target := entryTarget(e)
	if typ == "" || target == "" || e.StartDate == "" || e.EndDate == "" {
		return model.Identity{}, false
	}

	startDate := m.dualDate(e.StartDate, referenceYear)
	endDate := m.dualDate(e.EndDate, referenceYear)
	if len(startDate.Tokens) == 0 || len(endDate.Tokens) == 0 {
		return model.Identity{}, false
	}

	startTime := model.TimeToken{Token: e.StartTime, Offset: e.StartTimeOffset}
	endTime := model.TimeToken{Token: e.EndTime, Offset: e.EndTimeOffset}
	if typ == model.TargetCommand {
		// Commands have no duration; force endTime := startTime.
		endTime = startTime
	}

	return model.Identity{
		Type:      typ,
		Target:    target,
		Days:      fppsem.DaysToken(e.Day),
		StartTime: startTime,
		EndTime:   endTime,
		StartDate: startDate,
		EndDate:   endDate,
	}, true
}

func entryType(e model.Entry) model.TargetKind {
	switch {
	case e.Command != "":
		return model.TargetCommand
	case e.Sequence == 1:
		return model.TargetSequence
	case e.Playlist != "":
		return model.TargetPlaylist
	default:
		return ""
	}
}

func entryTarget(e model.Entry) string {
	if e.Command != "" {
		return e.Command
	}
	return e.Playlist
}

// dualDate derives the {tokens, hard, symbolic} representation of a raw
// date field: if it parses as YYYY-MM-DD, hard is set and symbolic is
// filled in only if a holiday rule matches that exact date; if it is
// already a holiday short-name, it is left symbolic-only.
func (m *Identity) dualDate(raw string, referenceYear int) model.DateTokens {
	if fppsem.IsSentinelDate(raw) {
		return model.DateTokens{Tokens: []string{raw}, Hard: raw}
	}

	if t, err := time.Parse(fppsem.DateLayout, raw); err == nil {
		dt := model.DateTokens{Hard: raw}
		if name, ok := m.holidays.DateToHoliday(t); ok {
			dt.Symbolic = name
		}
		dt.Tokens = sortedUnique(dt.Hard, dt.Symbolic)
		return dt
	}

	// Not a parseable ISO date: treat as a symbolic holiday short-name.
	if _, ok := m.holidays.HolidayToDate(raw, referenceYear); ok {
		dt := model.DateTokens{Symbolic: raw}
		dt.Tokens = sortedUnique(dt.Symbolic)
		return dt
	}

	return model.DateTokens{}
}

func sortedUnique(vals ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// idKey is the canonical, JSON-serialized key used to compute a stable id.
type idKey struct {
	Type      string `json:"type"`
	Target    string `json:"target"`
	Days      string `json:"days"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// hashKey is the canonical, JSON-serialized key used to compute the
// behavioral hash: the full identity (dual-date token arrays) plus a
// normalized behavior projection.
type hashKey struct {
	Type            string   `json:"type"`
	Target          string   `json:"target"`
	Days            string   `json:"days"`
	StartTime       string   `json:"startTime"`
	EndTime         string   `json:"endTime"`
	StartDateTokens []string `json:"startDateTokens"`
	EndDateTokens   []string `json:"endDateTokens"`
	Enabled         int      `json:"enabled"`
	Day             int      `json:"day"`
	Repeat          int      `json:"repeat"`
	StartTimeOffset int      `json:"startTimeOffset"`
	EndTimeOffset   int      `json:"endTimeOffset"`
	StopType        int      `json:"stopType"`
}

func stableTime(t model.TimeToken) string {
	return fmt.Sprintf("%s@%d", t.Token, t.Offset)
}

func symbolicFirst(d model.DateTokens) string {
	if d.Symbolic != "" {
		return d.Symbolic
	}
	return d.Hard
}

// ID computes the stable identity id (SHA-256 of the canonical id key).
func ID(id model.Identity) string {
	key := idKey{
		Type:      string(id.Type),
		Target:    id.Target,
		Days:      id.Days,
		StartTime: stableTime(id.StartTime),
		EndTime:   stableTime(id.EndTime),
		StartDate: symbolicFirst(id.StartDate),
		EndDate:   symbolicFirst(id.EndDate),
	}
	return canonicalSHA256(key)
}

// Hash computes the behavioral hash (SHA-256 of the canonical hash key).
func Hash(id model.Identity, e model.Entry) string {
	key := hashKey{
		Type:            string(id.Type),
		Target:          id.Target,
		Days:            id.Days,
		StartTime:       stableTime(id.StartTime),
		EndTime:         stableTime(id.EndTime),
		StartDateTokens: id.StartDate.Tokens,
		EndDateTokens:   id.EndDate.Tokens,
		Enabled:         e.Enabled,
		Day:             e.Day,
		Repeat:          e.Repeat,
		StartTimeOffset: e.StartTimeOffset,
		EndTimeOffset:   e.EndTimeOffset,
		StopType:        e.StopType,
	}
	return canonicalSHA256(key)
}

func canonicalSHA256(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("manifest: failed to canonicalize identity key: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
