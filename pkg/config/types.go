package config

// CalendarConfig points at the remote ICS feed this sync run reconciles
// against.
type CalendarConfig struct {
	ICSURL string `json:"ics_url,omitempty"`
}

// RuntimeConfig gates the write boundary. DryRun defaults to true so a
// freshly-deployed install never mutates schedule.json until explicitly
// armed.
type RuntimeConfig struct {
	DryRun bool `json:"dry_run" default:"true"`
}

// Counts mirrors the plan-status API response's creates/updates/deletes
// tuple.
type Counts struct {
	Creates int `json:"creates,omitempty"`
	Updates int `json:"updates,omitempty"`
	Deletes int `json:"deletes,omitempty"`
}

// SyncStatus records the outcome of the most recent run, persisted back
// into the config file so a UI can display it without re-running anything.
type SyncStatus struct {
	LastRun    string `json:"last_run,omitempty"`
	LastStatus string `json:"last_status,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	Counts     Counts `json:"counts,omitempty"`
}

// PathsConfig locates the host scheduler's files on disk. Defaults match a
// stock FPP install's media root.
type PathsConfig struct {
	ScheduleFile string `json:"scheduleFile,omitempty" default:"/home/fpp/media/config/schedule.json"`
	ManifestFile string `json:"manifestFile,omitempty" default:"/home/fpp/media/config/gcs-manifest.json"`
	MediaRoot    string `json:"mediaRoot,omitempty" default:"/home/fpp/media"`
	EnvFile      string `json:"envFile,omitempty" default:"/home/fpp/media/config/fpp-env.json"`
}

// Config is the full on-disk configuration file.
type Config struct {
	Version  int            `json:"version" default:"1"`
	Calendar CalendarConfig `json:"calendar"`
	Runtime  RuntimeConfig  `json:"runtime"`
	Sync     SyncStatus     `json:"sync,omitempty"`
	Paths    PathsConfig    `json:"paths,omitempty"`
}
