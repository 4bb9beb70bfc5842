// Package api holds the status-endpoint response contracts. The HTTP
// server that serves these over the wire is the host's own UI controller,
// outside this repository; this package supplies the response structs plus
// pure builder functions from an orchestrator.Result, so that controller
// (or a future handler here) has exact, tested JSON shapes to marshal.
package api

import (
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/diff"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/model"
	"github.com/robbiet76/GoogleCalendarScheduler-sub000/pkg/orchestrator"
)

// Counts is the creates/updates/deletes tuple shared by every status
// response.
type Counts struct {
	Creates int `json:"creates"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
}

// PlanStatus is the response contract for a plan-only preview.
type PlanStatus struct {
	OK       bool     `json:"ok"`
	DryRun   bool     `json:"dryRun"`
	NoOp     bool     `json:"noOp"`
	Counts   Counts   `json:"counts"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ApplyResult is the response contract for an apply run.
type ApplyResult struct {
	OK       bool     `json:"ok"`
	DryRun   bool     `json:"dryRun"`
	NoOp     bool     `json:"noOp"`
	Counts   Counts   `json:"counts"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// RollbackResult is the response contract for a rollback run.
type RollbackResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// DiffDetail is the inner "diff" object of the plan_diff response: the
// classified changes plus the full desired/existing entry lists a UI can
// render a diff view from.
type DiffDetail struct {
	Creates        []model.Entry `json:"creates,omitempty"`
	Updates        []model.Entry `json:"updates,omitempty"`
	Deletes        []model.Entry `json:"deletes,omitempty"`
	DesiredEntries []model.Entry `json:"desiredEntries,omitempty"`
	ExistingRaw    []model.Entry `json:"existingRaw,omitempty"`
}

// PlanDiff is the response contract for the plan_diff endpoint.
type PlanDiff struct {
	OK       bool       `json:"ok"`
	Diff     DiffDetail `json:"diff"`
	Warnings []string   `json:"warnings,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// BuildPlanStatus projects an orchestrator.Result (from Orchestrator.Plan)
// into the plan-status response contract.
func BuildPlanStatus(res orchestrator.Result) PlanStatus {
	out := PlanStatus{
		OK:       res.OK && res.Err == nil,
		DryRun:   res.DryRun,
		NoOp:     res.NoOp,
		Counts:   Counts{Creates: res.Creates, Updates: res.Updates, Deletes: res.Deletes},
		Warnings: res.Warnings,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// BuildApplyResult projects an orchestrator.Result (from
// Orchestrator.Apply) into the apply-result response contract.
func BuildApplyResult(res orchestrator.Result) ApplyResult {
	out := ApplyResult{
		OK:       res.OK && res.Err == nil,
		DryRun:   res.DryRun,
		NoOp:     res.NoOp,
		Counts:   Counts{Creates: res.Creates, Updates: res.Updates, Deletes: res.Deletes},
		Warnings: res.Warnings,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// BuildRollbackResult projects an orchestrator.Result (from
// Orchestrator.Rollback) into the rollback response contract.
func BuildRollbackResult(res orchestrator.Result) RollbackResult {
	out := RollbackResult{OK: res.OK && res.Err == nil}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// BuildPlanDiff projects an orchestrator.DiffResult (from
// Orchestrator.PlanDiff) into the plan_diff response contract.
func BuildPlanDiff(res orchestrator.DiffResult) PlanDiff {
	out := PlanDiff{
		OK:       res.Err == nil,
		Warnings: res.Warnings,
		Diff: DiffDetail{
			DesiredEntries: res.Desired,
			ExistingRaw:    res.Existing,
		},
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
		return out
	}
	for _, c := range res.Changes.Changes {
		switch c.Kind {
		case diff.Create:
			out.Diff.Creates = append(out.Diff.Creates, *c.Desired)
		case diff.Update:
			out.Diff.Updates = append(out.Diff.Updates, *c.Desired)
		case diff.Delete:
			out.Diff.Deletes = append(out.Diff.Deletes, *c.Existing)
		}
	}
	return out
}
