// Package orchestrator wires the pipeline stages together: one owned
// Config, a mutex guarding reconcile/UpdateConfig, and Plan/Apply/Rollback
// entry points the CLI and the status endpoints (pkg/api) both call into.
package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/apply"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/config"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/diff"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/ics"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/manifest"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/planner"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/runner"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/schedfile"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/target"
)

// Result is the outcome of one Plan or Apply invocation, threaded through
// to pkg/api's response builders.
type Result struct {
	OK       bool
	DryRun   bool
	NoOp     bool
	Creates  int
	Updates  int
	Deletes  int
	Warnings []string
	Err      error
}

// Orchestrator owns one Config and runs Runner -> Planner -> Diff -> Apply
// -> ManifestStore.Commit behind a mutex, so a config-file reload (via
// config.Watcher.OnConfigChange) can never race a timer-driven reconcile.
type Orchestrator struct {
	mu  sync.RWMutex
	cfg config.Config
	now func() time.Time
}

// New builds an Orchestrator over cfg. now defaults to time.Now.
func New(cfg config.Config, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{cfg: cfg, now: now}
}

// UpdateConfig swaps in a freshly-reloaded Config; config.Watcher calls
// this on every config-file change.
func (o *Orchestrator) UpdateConfig(cfg config.Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg = cfg
}

func (o *Orchestrator) snapshot() config.Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

// Plan runs the pipeline through Diff only, never touching the host
// scheduler file. It always behaves as a dry-run regardless of
// runtime.dry_run, since a plan preview must never itself be a write
// boundary.
func (o *Orchestrator) Plan() Result {
	return o.run(true)
}

// Apply runs the full pipeline, writing schedule.json and manifest.json
// unless runtime.dry_run is set, in which case it behaves exactly like
// Plan.
func (o *Orchestrator) Apply() Result {
	cfg := o.snapshot()
	return o.run(cfg.Runtime.DryRun)
}

// Rollback restores the previous manifest snapshot and re-splices
// schedule.json against it using the same BuildNewFile logic Apply uses
// against a fresh planner run, so unmanaged entries are preserved and
// managed entries are substituted/dropped by manifest id exactly as they
// would be for any other diff.
func (o *Orchestrator) Rollback() Result {
	cfg := o.snapshot()
	now := o.now()

	store := manifest.NewStore(cfg.Paths.ManifestFile)
	restored, err := store.Rollback()
	if err != nil {
		return Result{Err: fmt.Errorf("orchestrator: rollback: %w", err)}
	}

	desired := make([]model.Entry, 0, len(restored.Entries))
	uids := make([]string, 0, len(restored.Entries))
	for _, me := range restored.Entries {
		e := me.Payload
		e.Manifest = &model.ManifestSidecar{ID: me.ID, Identity: me.Identity, Hash: me.Hash}
		desired = append(desired, e)
		uids = append(uids, me.UID)
	}

	existing, err := schedfile.ReadStrict(cfg.Paths.ScheduleFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Result{Err: fmt.Errorf("orchestrator: rollback: strict read of %s failed: %w", cfg.Paths.ScheduleFile, err)}
		}
		existing = nil
	}

	d := diff.Diff(existing, desired, uids, now.Year())
	newFile, expectedPresent, expectedAbsent := apply.BuildNewFile(existing, d)

	if _, err := schedfile.Backup(cfg.Paths.ScheduleFile, now); err != nil {
		return Result{Err: fmt.Errorf("orchestrator: rollback: backup failed: %w", err)}
	}
	if err := schedfile.AtomicWrite(cfg.Paths.ScheduleFile, newFile); err != nil {
		return Result{Err: fmt.Errorf("orchestrator: rollback: atomic write failed: %w", err)}
	}
	if err := schedfile.Verify(cfg.Paths.ScheduleFile, expectedPresent, expectedAbsent); err != nil {
		return Result{Err: fmt.Errorf("orchestrator: rollback: %w", err)}
	}

	return Result{OK: true}
}

// run executes one Runner -> Planner -> Apply pass. dryRun forces a
// preview-only pass regardless of the stored config.
func (o *Orchestrator) run(dryRun bool) Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	cfg := o.cfg
	now := o.now()

	desired, uids, warnings, err := o.planPipeline(cfg, now)
	if err != nil {
		return Result{Warnings: warnings, Err: fmt.Errorf("orchestrator: plan: %w", err)}
	}

	res, err := apply.Run(apply.Input{
		SchedulePath:  cfg.Paths.ScheduleFile,
		ManifestPath:  cfg.Paths.ManifestFile,
		Calendar:      cfg.Calendar.ICSURL,
		DryRun:        dryRun,
		Desired:       desired,
		DesiredUIDs:   uids,
		ReferenceYear: now.Year(),
		Now:           now,
	})
	warnings = append(warnings, res.Warnings...)
	if err != nil {
		return Result{Warnings: warnings, Err: fmt.Errorf("orchestrator: apply: %w", err)}
	}

	return Result{
		OK: res.OK, DryRun: res.DryRun, NoOp: res.NoOp,
		Creates: res.Creates, Updates: res.Updates, Deletes: res.Deletes,
		Warnings: warnings,
	}
}

// DiffResult is the detailed preview the plan_diff endpoint response is
// built from.
type DiffResult struct {
	Changes  diff.Result
	Desired  []model.Entry
	Existing []model.Entry
	Warnings []string
	Err      error
}

// PlanDiff runs Runner -> Planner -> Diff and returns the full
// classification plus the desired/existing entry lists, for callers that
// need more than the plan_status counts (the plan_diff endpoint).
func (o *Orchestrator) PlanDiff() DiffResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	cfg := o.cfg
	now := o.now()

	desired, uids, warnings, err := o.planPipeline(cfg, now)
	if err != nil {
		return DiffResult{Warnings: warnings, Err: fmt.Errorf("orchestrator: plan: %w", err)}
	}

	existing := schedfile.ReadLenient(cfg.Paths.ScheduleFile)
	d := diff.Diff(existing, desired, uids, now.Year())

	return DiffResult{Changes: d, Desired: desired, Existing: existing, Warnings: warnings}
}

// planPipeline runs Runner -> Planner and attaches manifest identity,
// producing the (desired, uids) pair both run() and PlanDiff() need. The
// caller must already hold o.mu.
func (o *Orchestrator) planPipeline(cfg config.Config, now time.Time) (desired []model.Entry, uids []string, warnings []string, err error) {
	resolver := target.NewResolver(cfg.Paths.MediaRoot)
	r := runner.New(ics.NewFetcher(), resolver, o.now)
	runResult := r.Run(cfg.Calendar.ICSURL)

	p := planner.New(o.now)
	planResult, planErr := p.Plan(runResult.Series)
	warnings = append(append([]string{}, runResult.Warnings...), planResult.Warnings...)
	if planErr != nil {
		return nil, nil, warnings, planErr
	}

	var identityWarnings []string
	desired, uids, identityWarnings = attachIdentity(planResult.Entries, uidsFor(planResult.Bundles), now.Year())
	warnings = append(warnings, identityWarnings...)
	return desired, uids, warnings, nil
}

// uidsFor flattens the planner's ordered bundles into a UID slice parallel
// to planner.Result.Entries: override entries first, then the base, per
// bundle, in the order the planner flattened them.
func uidsFor(bundles []model.Bundle) []string {
	var uids []string
	for _, b := range bundles {
		for range b.Overrides {
			uids = append(uids, b.Base.UID)
		}
		uids = append(uids, b.Base.UID)
	}
	return uids
}

// attachIdentity computes and attaches the _manifest sidecar every desired
// entry needs before it can be matched against the existing file's managed
// ids (pkg/diff) or persisted into the next manifest snapshot (pkg/apply).
// Entries whose identity cannot be extracted are dropped with their UID,
// keeping the two slices parallel, and a diagnostic is appended to the
// returned warnings.
func attachIdentity(entries []model.Entry, uids []string, referenceYear int) (out []model.Entry, outUIDs []string, warnings []string) {
	ident := manifest.NewIdentity(nil)
	out = make([]model.Entry, 0, len(entries))
	outUIDs = make([]string, 0, len(uids))
	for i, e := range entries {
		uid := ""
		if i < len(uids) {
			uid = uids[i]
		}

		id, ok := ident.Extract(e, referenceYear)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("dropped entry with incomplete identity: uid=%s", uid))
			continue
		}
		e.Manifest = &model.ManifestSidecar{ID: manifest.ID(id), Identity: id, Hash: manifest.Hash(id, e)}
		out = append(out, e)
		outUIDs = append(outUIDs, uid)
	}
	return out, outUIDs, warnings
}
