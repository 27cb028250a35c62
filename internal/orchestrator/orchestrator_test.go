// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"testing"

	"github.com/sapcc/go-bits/assert"

	"github.com/sapcc/nova-rebalancer/internal/cloudport"
	"github.com/sapcc/nova-rebalancer/internal/config"
	"github.com/sapcc/nova-rebalancer/internal/placementport"
)

func TestRunEndToEnd(t *testing.T) {
	cloud := &cloudport.Mock{
		Hypervisors: []cloudport.Hypervisor{
			{Hostname: "a", VCPUsTotal: 10, VCPUsUsed: 9, MemoryMBTotal: 1_000_000, MemoryMBUsed: 1000, RunningVMs: 10, State: cloudport.StateUp, Status: cloudport.StatusEnabled},
			{Hostname: "b", VCPUsTotal: 10, VCPUsUsed: 1, MemoryMBTotal: 1_000_000, RunningVMs: 1, State: cloudport.StateUp, Status: cloudport.StatusEnabled},
		},
		Servers: []cloudport.VM{
			{ID: "vm-1", Status: "active", CurrentHost: "a", FlavorRef: "small"},
		},
		Flavors: []cloudport.Flavor{
			{ID: "small", Name: "small", VCPUs: 1, RAMMB: 100},
		},
	}
	placement := &placementport.Mock{}

	cfg := config.Default()
	cfg.CPUOvercommit = 1
	cfg.MemoryOvercommit = 1
	cfg.DryRun = true

	summary, plan, err := Run(context.Background(), cloud, placement, cfg)
	if err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, "hypervisors seen", summary.HypervisorsSeen, 2)
	assert.DeepEqual(t, "overutilized count", summary.Overutilized, 1)
	assert.DeepEqual(t, "planned moves", summary.PlannedMoves, 1)
	assert.DeepEqual(t, "dry-run dispatches nothing", len(cloud.Migrations), 0)
	if plan == nil {
		t.Fatal("expected a non-nil planner for reporting")
	}
}

func TestRunEmptyHypervisorListReturnsEarly(t *testing.T) {
	cloud := &cloudport.Mock{}
	placement := &placementport.Mock{}

	summary, plan, err := Run(context.Background(), cloud, placement, config.Default())
	if err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, "hypervisors seen", summary.HypervisorsSeen, 0)
	assert.DeepEqual(t, "no moves planned", summary.PlannedMoves, 0)
	if plan != nil {
		t.Fatal("expected no planner when there are no hypervisors")
	}
}

func TestRunBalancedClusterReturnsEarly(t *testing.T) {
	// S1: both hosts run exactly avg_vms, neither exceeds avg_vms*threshold.
	cloud := &cloudport.Mock{
		Hypervisors: []cloudport.Hypervisor{
			{Hostname: "a", VCPUsTotal: 10, VCPUsUsed: 5, MemoryMBTotal: 1_000_000, RunningVMs: 10, State: cloudport.StateUp, Status: cloudport.StatusEnabled},
			{Hostname: "b", VCPUsTotal: 10, VCPUsUsed: 5, MemoryMBTotal: 1_000_000, RunningVMs: 10, State: cloudport.StateUp, Status: cloudport.StatusEnabled},
		},
	}
	placement := &placementport.Mock{}

	summary, plan, err := Run(context.Background(), cloud, placement, config.Default())
	if err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, "overutilized count", summary.Overutilized, 0)
	assert.DeepEqual(t, "no moves planned", summary.PlannedMoves, 0)
	if plan != nil {
		t.Fatal("expected no planner for an already-balanced cluster")
	}
}

func TestRunNoUnderutilizedTargetsReturnsEarly(t *testing.T) {
	// Every active host is overutilized, so there is no migration target.
	cfg := config.Default()
	cfg.Threshold = 0
	cloud := &cloudport.Mock{
		Hypervisors: []cloudport.Hypervisor{
			{Hostname: "a", VCPUsTotal: 10, VCPUsUsed: 5, MemoryMBTotal: 1_000_000, RunningVMs: 10, State: cloudport.StateUp, Status: cloudport.StatusEnabled},
			{Hostname: "b", VCPUsTotal: 10, VCPUsUsed: 5, MemoryMBTotal: 1_000_000, RunningVMs: 10, State: cloudport.StateUp, Status: cloudport.StatusEnabled},
		},
	}
	placement := &placementport.Mock{}

	summary, plan, err := Run(context.Background(), cloud, placement, cfg)
	if err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, "underutilized count", summary.Underutilized, 0)
	assert.DeepEqual(t, "no moves planned", summary.PlannedMoves, 0)
	if plan != nil {
		t.Fatal("expected no planner when there are no underutilized targets")
	}
}
