package api

import (
	"errors"
	"testing"

	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/diff"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/orchestrator"
)

func TestBuildPlanStatus_Success(t *testing.T) {
	res := orchestrator.Result{OK: true, DryRun: true, Creates: 2, Updates: 1}
	out := BuildPlanStatus(res)
	if !out.OK || !out.DryRun || out.Counts.Creates != 2 || out.Counts.Updates != 1 {
		t.Fatalf("unexpected PlanStatus: %+v", out)
	}
	if out.Error != "" {
		t.Errorf("expected no error field on a successful result, got %q", out.Error)
	}
}

func TestBuildPlanStatus_Error(t *testing.T) {
	out := BuildPlanStatus(orchestrator.Result{Err: errors.New("boom")})
	if out.OK {
		t.Errorf("expected ok=false when orchestrator.Result carries an error")
	}
	if out.Error != "boom" {
		t.Errorf("expected the error message to surface, got %q", out.Error)
	}
}

func TestBuildApplyResult_NoOp(t *testing.T) {
	out := BuildApplyResult(orchestrator.Result{OK: true, NoOp: true})
	if !out.OK || !out.NoOp {
		t.Fatalf("unexpected ApplyResult: %+v", out)
	}
}

func TestBuildRollbackResult(t *testing.T) {
	if out := BuildRollbackResult(orchestrator.Result{OK: true}); !out.OK {
		t.Errorf("expected ok=true")
	}
	if out := BuildRollbackResult(orchestrator.Result{Err: errors.New("no previous snapshot")}); out.OK || out.Error == "" {
		t.Errorf("expected a surfaced error, got %+v", out)
	}
}

func TestBuildPlanDiff_ClassifiesChanges(t *testing.T) {
	created := model.Entry{Playlist: "New"}
	updatedExisting := model.Entry{Playlist: "Changed", Manifest: &model.ManifestSidecar{ID: "id-1"}}
	updatedDesired := model.Entry{Playlist: "Changed", StartTime: "09:00:00", Manifest: &model.ManifestSidecar{ID: "id-1"}}
	deleted := model.Entry{Playlist: "Gone", Manifest: &model.ManifestSidecar{ID: "id-2"}}

	res := orchestrator.DiffResult{
		Desired:  []model.Entry{created, updatedDesired},
		Existing: []model.Entry{updatedExisting, deleted},
		Changes: diff.Result{Changes: []diff.Change{
			{Kind: diff.Create, Desired: &created},
			{Kind: diff.Update, Existing: &updatedExisting, Desired: &updatedDesired},
			{Kind: diff.Delete, Existing: &deleted},
		}},
	}

	out := BuildPlanDiff(res)
	if !out.OK {
		t.Fatalf("expected ok=true, got %+v", out)
	}
	if len(out.Diff.Creates) != 1 || out.Diff.Creates[0].Playlist != "New" {
		t.Errorf("expected 1 create, got %+v", out.Diff.Creates)
	}
	if len(out.Diff.Updates) != 1 || out.Diff.Updates[0].StartTime != "09:00:00" {
		t.Errorf("expected 1 update carrying the desired payload, got %+v", out.Diff.Updates)
	}
	if len(out.Diff.Deletes) != 1 || out.Diff.Deletes[0].Playlist != "Gone" {
		t.Errorf("expected 1 delete carrying the existing payload, got %+v", out.Diff.Deletes)
	}
	if len(out.Diff.DesiredEntries) != 2 || len(out.Diff.ExistingRaw) != 2 {
		t.Errorf("expected the full desired/existing lists to be carried through, got %+v", out.Diff)
	}
}

func TestBuildPlanDiff_Error(t *testing.T) {
	out := BuildPlanDiff(orchestrator.DiffResult{Err: errors.New("fetch failed")})
	if out.OK {
		t.Errorf("expected ok=false")
	}
	if out.Error != "fetch failed" {
		t.Errorf("expected the error to surface, got %q", out.Error)
	}
}
