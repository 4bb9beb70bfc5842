// Package model holds the plain data types shared across the plan, diff,
// and apply stages of the scheduler sync pipeline.
package model

import "time"

// TargetKind is the resolved kind of a schedule target.
type TargetKind string

const (
	TargetPlaylist TargetKind = "playlist"
	TargetSequence TargetKind = "sequence"
	TargetCommand  TargetKind = "command"
)

// StopType mirrors the host scheduler's stop-type enum.
type StopType int

const (
	StopGraceful     StopType = 0
	StopHard         StopType = 1
	StopGracefulLoop StopType = 2
)

// Event is a single VEVENT as parsed from the ICS feed. Immutable once built.
type Event struct {
	UID           string
	Summary       string
	Description   string
	DTStart       time.Time
	DTEnd         time.Time
	IsAllDay      bool
	RRule         *RRule
	EXDates       []time.Time
	IsOverride    bool
	RecurrenceID  time.Time
}

// RRule is the subset of RFC 5545 RRULE this system understands.
type RRule struct {
	Freq     string // DAILY or WEEKLY; anything else causes the series to be dropped
	Interval int
	ByDay    []time.Weekday
	Until    time.Time
	Count    int
}

// Occurrence is one expanded instance of a series within the sync horizon.
type Occurrence struct {
	Start       time.Time
	End         time.Time
	IsOverride  bool
	SourceEvent *Event
	YAML        map[string]interface{}
}

// ResolvedTarget is the output of target resolution for an event summary.
type ResolvedTarget struct {
	Type   TargetKind
	Target string
}

// Series aggregates one UID's base event, its overrides, and its expanded
// occurrences within [now, guardDate].
type Series struct {
	UID         string
	Base        *Event
	Overrides   map[string]*Event // keyed by RECURRENCE-ID in canonical form
	Resolved    ResolvedTarget
	YAMLBase    map[string]interface{}
	Occurrences []Occurrence
}

// Repeat is the host scheduler's repeat enum: none, immediate, or every N minutes.
type Repeat struct {
	Kind    RepeatKind
	Minutes int // only meaningful when Kind == RepeatMinutes
}

type RepeatKind int

const (
	RepeatNone RepeatKind = iota
	RepeatImmediate
	RepeatMinutes
)

// SymbolicTime is a sun-relative time descriptor (Dawn, SunRise, SunSet,
// Dusk) plus an offset in minutes, carried through to the host entry's
// symbolic startTime/endTime token and offset fields.
type SymbolicTime struct {
	Kind   string
	Offset int
}

// IntentTemplate is the per-occurrence payload of a planner Intent.
type IntentTemplate struct {
	Summary       string
	Type          TargetKind
	Target        string
	Start         time.Time
	End           time.Time
	StartSymbolic *SymbolicTime
	EndSymbolic   *SymbolicTime
	Enabled       bool
	StopType      StopType
	Repeat        Repeat
	CommandArgs   []string
	IsOverride    bool
}

// IntentRange is the active date range and day mask of a planner Intent.
type IntentRange struct {
	Start time.Time
	End   time.Time
	Days  string // compact two-letter token concatenation, or the seven-day sentinel
}

// Intent is one planner-level unit of desired scheduling behavior.
type Intent struct {
	UID      string
	Template IntentTemplate
	Range    IntentRange
}

// Bundle is one base intent plus zero or more overrides, treated as a
// cohesive unit during ordering.
type Bundle struct {
	Base      Intent
	Overrides []Intent
}

// ManifestSidecar is the opaque `_manifest` payload attached to every
// managed scheduler-file entry.
type ManifestSidecar struct {
	ID       string   `json:"id"`
	Identity Identity `json:"identity"`
	Hash     string   `json:"hash"`
}

// Entry is the host scheduler tuple, serialized verbatim into schedule.json.
// Enabled is the host's 0/1 integer, not a JSON bool.
type Entry struct {
	Enabled         int              `json:"enabled"`
	Sequence        int              `json:"sequence,omitempty"`
	Day             int              `json:"day"`
	StartTime       string           `json:"startTime"`
	EndTime         string           `json:"endTime"`
	StartTimeOffset int              `json:"startTimeOffset,omitempty"`
	EndTimeOffset   int              `json:"endTimeOffset,omitempty"`
	Repeat          int              `json:"repeat"`
	StartDate       string           `json:"startDate"`
	EndDate         string           `json:"endDate"`
	StopType        int              `json:"stopType"`
	Playlist        string           `json:"playlist,omitempty"`
	Command         string           `json:"command,omitempty"`
	Args            []string         `json:"args,omitempty"`
	Manifest        *ManifestSidecar `json:"_manifest,omitempty"`
}

// TimeToken is a symbolic-or-absolute time with an offset, as used in an
// Identity's startTime/endTime fields.
type TimeToken struct {
	Token  string // absolute "HH:MM:SS" or a symbolic name (SunRise, SunSet, Dawn, Dusk)
	Offset int    // minutes, only meaningful for symbolic tokens
}

// DateTokens is the dual hard/symbolic representation of a date field.
type DateTokens struct {
	Tokens   []string // sorted, unique, union of hard and symbolic forms
	Hard     string   // "YYYY-MM-DD", may be empty if undeterminable
	Symbolic string   // holiday short-name, may be empty
}

// Identity is the canonical, behaviorally-stable identity key of a
// scheduler entry.
type Identity struct {
	Type      TargetKind `json:"type"`
	Target    string     `json:"target"`
	Days      string     `json:"days"`
	StartTime TimeToken  `json:"startTime"`
	EndTime   TimeToken  `json:"endTime"`
	StartDate DateTokens `json:"startDate"`
	EndDate   DateTokens `json:"endDate"`
}

// ManifestEntry is one persisted record in a manifest snapshot.
type ManifestEntry struct {
	UID      string   `json:"uid"`
	ID       string   `json:"id"`
	Hash     string   `json:"hash"`
	Identity Identity `json:"identity"`
	Payload  Entry    `json:"payload"`
}

// ManifestSnapshotData is one side (current or previous) of the manifest file.
type ManifestSnapshotData struct {
	AppliedAt time.Time       `json:"appliedAt"`
	Entries   []ManifestEntry `json:"entries"`
	Order     []string        `json:"order"`
}

// ManifestSnapshot is the full persisted manifest.json contents.
type ManifestSnapshot struct {
	SchemaVersion int                    `json:"schemaVersion"`
	Calendar      string                 `json:"calendar"`
	Current       *ManifestSnapshotData  `json:"current"`
	Previous      *ManifestSnapshotData  `json:"previous"`
}
