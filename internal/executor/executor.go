// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package executor walks a completed migration plan and dispatches each
// move against the real Cloud Port, or logs it without dispatching under
// dry-run. Grounded on internal/collector/collector.go's task-runner shape
// (a small struct holding the dependency it drives plus swappable logging
// hooks for tests), simplified to a single linear walk since this planner
// has no scheduling loop to run.
package executor

import (
	"context"

	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/nova-rebalancer/internal/cloudport"
	"github.com/sapcc/nova-rebalancer/internal/planner"
)

// Summary reports how many moves were attempted and how many succeeded. A
// live move succeeds when its dispatch is accepted; under dry-run every
// logged move counts as succeeded. A single failed migration never aborts the
// remaining plan (spec §4.6).
type Summary struct {
	Attempted int
	Succeeded int
}

// Executor dispatches planned moves through a Cloud Port.
type Executor struct {
	Cloud  cloudport.Port
	DryRun bool

	// LogInfo and LogError are usually logg.Info/logg.Error, swappable in tests.
	LogInfo  func(format string, args ...any)
	LogError func(format string, args ...any)
}

// New builds an Executor with the teacher's default logging hooks.
func New(cloud cloudport.Port, dryRun bool) *Executor {
	return &Executor{
		Cloud:    cloud,
		DryRun:   dryRun,
		LogInfo:  logg.Info,
		LogError: logg.Error,
	}
}

// Run dispatches every planned move in order. Under dry-run, no move is
// dispatched; each is logged as if it would run (spec property 7: dry-run
// must never call LiveMigrate).
func (e *Executor) Run(ctx context.Context, moves []planner.PlannedMove) Summary {
	var summary Summary
	for _, move := range moves {
		summary.Attempted++

		if e.DryRun {
			e.LogInfo("dry-run: would live-migrate %s from %s to %s", move.VMID, move.SourceHost, move.TargetHost)
			summary.Succeeded++
			continue
		}

		outcome, err := e.Cloud.LiveMigrate(ctx, move.VMID, move.TargetHost)
		if err != nil || outcome != cloudport.MigrationOK {
			e.LogError("live-migrate of %s from %s to %s failed: %s", move.VMID, move.SourceHost, move.TargetHost, errString(err))
			continue
		}

		e.LogInfo("live-migrated %s from %s to %s", move.VMID, move.SourceHost, move.TargetHost)
		summary.Succeeded++
	}
	return summary
}

func errString(err error) string {
	if err == nil {
		return "rejected by cloud"
	}
	return err.Error()
}
