// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator runs one end-to-end balance pass: survey
// hypervisors, classify, plan, execute, summarize. Grounded on
// cmd/limes/main.go's task dispatch shape (load config, connect, run one
// named task, log a structured summary at the end), collapsed to the single
// task this CLI has.
package orchestrator

import (
	"context"

	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/nova-rebalancer/internal/classifier"
	"github.com/sapcc/nova-rebalancer/internal/cloudport"
	"github.com/sapcc/nova-rebalancer/internal/config"
	"github.com/sapcc/nova-rebalancer/internal/executor"
	"github.com/sapcc/nova-rebalancer/internal/flavorcache"
	"github.com/sapcc/nova-rebalancer/internal/placementport"
	"github.com/sapcc/nova-rebalancer/internal/planner"
)

// RunSummary is the structured per-run outcome logged at the end of a
// balance pass (SPEC_FULL.md §10 supplemented feature).
type RunSummary struct {
	HypervisorsSeen int
	Overutilized    int
	Underutilized   int
	PlannedMoves    int
	Attempted       int
	Succeeded       int
}

// Run executes one full balance pass against the given Cloud and Placement
// ports, using cfg for thresholds/ratios/dry-run.
func Run(ctx context.Context, cloud cloudport.Port, placement placementport.Port, cfg config.Config) (RunSummary, *planner.Planner, error) {
	var summary RunSummary

	flavors, err := flavorcache.Build(ctx, cloud)
	if err != nil {
		return summary, nil, err
	}

	hypervisors, err := cloud.ListHypervisors(ctx)
	if err != nil {
		return summary, nil, err
	}
	summary.HypervisorsSeen = len(hypervisors)
	if len(hypervisors) == 0 {
		logg.Info("no hypervisors found, nothing to balance")
		return summary, nil, nil
	}

	result := classifier.Classify(hypervisors, cfg.Threshold)
	summary.Overutilized = len(result.Overutilized)
	summary.Underutilized = len(result.Underutilized)
	logg.Info("surveyed %d hypervisors: %d overutilized, %d underutilized, avg_running_vms=%.1f",
		summary.HypervisorsSeen, summary.Overutilized, summary.Underutilized, result.AverageVMs)

	if summary.Overutilized == 0 {
		logg.Info("balanced")
		return summary, nil, nil
	}
	if summary.Underutilized == 0 {
		logg.Info("no targets")
		return summary, nil, nil
	}

	active := append(append([]cloudport.Hypervisor{}, result.Overutilized...), result.Underutilized...)
	p := planner.New(active, cloud, placement, flavors, cfg.CPUOvercommit, cfg.MemoryOvercommit, cfg.TargetFraction)

	moves, err := p.Plan(ctx)
	if err != nil {
		return summary, p, err
	}
	summary.PlannedMoves = len(moves)
	logg.Info("planned %d migration(s)", summary.PlannedMoves)

	exec := executor.New(cloud, cfg.DryRun)
	execSummary := exec.Run(ctx, moves)
	summary.Attempted = execSummary.Attempted
	summary.Succeeded = execSummary.Succeeded

	logg.Info("run complete: hypervisors=%d overutilized=%d underutilized=%d planned=%d attempted=%d succeeded=%d dry_run=%t",
		summary.HypervisorsSeen, summary.Overutilized, summary.Underutilized, summary.PlannedMoves,
		summary.Attempted, summary.Succeeded, cfg.DryRun)

	if statsLogger, ok := placement.(interface{ LogStats() }); ok {
		statsLogger.LogStats()
	}

	return summary, p, nil
}
