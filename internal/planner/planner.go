// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/nova-rebalancer/internal/cloudport"
	"github.com/sapcc/nova-rebalancer/internal/flavorcache"
	"github.com/sapcc/nova-rebalancer/internal/placementport"
	"github.com/sapcc/nova-rebalancer/internal/util"
)

// traitWarmupWorkers bounds how many hosts' resource-provider-uuid/traits
// lookups run concurrently during warmupTraitCache (spec §5).
const traitWarmupWorkers = 8

// PlannedMove is one successfully committed migration decision, in the order
// it was committed (spec §4.5.6).
type PlannedMove struct {
	VMID       string
	SourceHost string
	TargetHost string
}

// candidate is one migration-eligible VM paired with its resolved flavor and
// the host it currently sits on.
type candidate struct {
	vm        cloudport.VM
	flavor    cloudport.Flavor
	source    string
	footprint int64 // vcpus * ram_mb, spec §4.5.3
}

// Planner owns the shadow capacity model for one planning pass. It is built
// fresh per run from a Classifier result and discarded once Plan returns.
type Planner struct {
	hosts     map[string]*SimulatedHost
	hostOrder []string

	cloud     cloudport.Port
	placement placementport.Port
	flavors   *flavorcache.Cache

	cpuRatio, memRatio, targetFraction float64
}

// New builds the shadow state from every hypervisor the Node Classifier
// considered active. Ratios/fraction of zero fall back to the spec §4.5
// defaults.
func New(hypervisors []cloudport.Hypervisor, cloud cloudport.Port, placement placementport.Port, flavors *flavorcache.Cache, cpuRatio, memRatio, targetFraction float64) *Planner {
	if cpuRatio == 0 {
		cpuRatio = DefaultCPUOvercommitRatio
	}
	if memRatio == 0 {
		memRatio = DefaultMemoryOvercommitRatio
	}
	if targetFraction == 0 {
		targetFraction = DefaultTargetFraction
	}

	p := &Planner{
		hosts:          make(map[string]*SimulatedHost, len(hypervisors)),
		cloud:          cloud,
		placement:      placement,
		flavors:        flavors,
		cpuRatio:       cpuRatio,
		memRatio:       memRatio,
		targetFraction: targetFraction,
	}
	for _, h := range hypervisors {
		p.hosts[h.Hostname] = newSimulatedHost(h, cpuRatio, memRatio)
		p.hostOrder = append(p.hostOrder, h.Hostname)
	}
	sort.Strings(p.hostOrder)
	return p
}

// ClusterMetrics returns the average, minimum and maximum node_utilization
// across the current (possibly already-mutated) shadow state.
func (p *Planner) ClusterMetrics() (avg, min, max float64) {
	if len(p.hostOrder) == 0 {
		return 0, 0, 0
	}
	var sum float64
	first := p.hosts[p.hostOrder[0]].NodeUtilization()
	min, max = first, first
	for _, name := range p.hostOrder {
		u := p.hosts[name].NodeUtilization()
		sum += u
		if u < min {
			min = u
		}
		if u > max {
			max = u
		}
	}
	return sum / float64(len(p.hostOrder)), min, max
}

func (p *Planner) targetUtilization() float64 {
	avg, _, _ := p.ClusterMetrics()
	return avg * p.targetFraction
}

// Host exposes the current simulated state for one host, for reporting.
func (p *Planner) Host(hostname string) (*SimulatedHost, bool) {
	h, ok := p.hosts[hostname]
	return h, ok
}

// Hosts returns the simulated hosts in deterministic (hostname-sorted)
// order.
func (p *Planner) Hosts() []*SimulatedHost {
	out := make([]*SimulatedHost, 0, len(p.hostOrder))
	for _, name := range p.hostOrder {
		out = append(out, p.hosts[name])
	}
	return out
}

// Plan runs one candidate-selection and target-scoring pass (spec §4.5) and
// returns the ordered list of committed moves. Candidates are selected once
// against the state at the start of this call; the pass never rescans for
// new sources (spec §4.5.7).
func (p *Planner) Plan(ctx context.Context) ([]PlannedMove, error) {
	candidates, err := p.selectCandidates(ctx)
	if err != nil {
		return nil, err
	}

	p.warmupTraitCache(ctx)

	var moves []PlannedMove
	for _, c := range candidates {
		target, ok := p.scoreTargets(ctx, c)
		if !ok {
			logg.Debug("planner: no eligible target host for vm %s on %s, skipping", c.vm.ID, c.source)
			continue
		}
		if !p.commit(c, target) {
			err := util.ResourceError{Host: target, Reason: fmt.Sprintf("cannot absorb vm %s from %s", c.vm.ID, c.source)}
			logg.Error("planner: %s", err.Error())
			continue
		}
		moves = append(moves, PlannedMove{VMID: c.vm.ID, SourceHost: c.source, TargetHost: target})
	}
	return moves, nil
}

// selectCandidates builds the flat, globally sorted candidate list (spec
// §4.5.3): every active VM on a host whose node_utilization exceeds
// target_util, sorted by descending resource footprint and ascending VM id.
func (p *Planner) selectCandidates(ctx context.Context) ([]candidate, error) {
	targetUtil := p.targetUtilization()

	var sources []string
	for _, name := range p.hostOrder {
		if p.hosts[name].NodeUtilization() > targetUtil {
			sources = append(sources, name)
		}
	}

	var candidates []candidate
	for _, source := range sources {
		vms, err := p.cloud.ListServers(ctx, source)
		if err != nil {
			return nil, err
		}
		for _, vm := range vms {
			if !vm.IsActive() {
				continue
			}
			flavor, ok := p.flavors.Lookup(vm.FlavorRef)
			if !ok {
				logg.Info("planner: skipping vm %s, flavor %s not found in catalog", vm.ID, vm.FlavorRef)
				continue
			}
			candidates = append(candidates, candidate{
				vm:        vm,
				flavor:    flavor,
				source:    source,
				footprint: flavor.VCPUs * flavor.RAMMB,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].footprint != candidates[j].footprint {
			return candidates[i].footprint > candidates[j].footprint
		}
		return candidates[i].vm.ID < candidates[j].vm.ID
	})
	return candidates, nil
}

// requiredTraits is the union of the VM's own hinted traits and its
// flavor's extra-spec required traits (data model, spec §3).
func requiredTraits(c candidate) []string {
	seen := make(map[string]bool, len(c.vm.RequiredTraits)+len(c.flavor.ExtraSpecs))
	var out []string
	for _, t := range c.vm.RequiredTraits {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range c.flavor.RequiredTraits() {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// scoreTargets implements spec §4.5.4: re-samples target_util fresh against
// the current shadow state, then picks the eligible host whose post-move
// utilization is closest to that target_util, breaking ties by lower
// current utilization and then by hostname.
func (p *Planner) scoreTargets(ctx context.Context, c candidate) (string, bool) {
	targetUtil := p.targetUtilization()
	traits := requiredTraits(c)

	var best string
	var bestDelta, bestCurrentUtil float64
	found := false

	for _, name := range p.hostOrder {
		if name == c.source {
			continue
		}
		host := p.hosts[name]
		if host.NodeUtilization() > targetUtil {
			continue
		}
		if !host.canAccept(c.flavor.VCPUs, c.flavor.RAMMB) {
			continue
		}
		if !p.hostHasTraits(ctx, name, traits) {
			continue
		}

		delta := host.postMoveUtilization(c.flavor.VCPUs, c.flavor.RAMMB) - targetUtil
		if delta < 0 {
			delta = -delta
		}
		currentUtil := host.NodeUtilization()

		switch {
		case !found:
			best, bestDelta, bestCurrentUtil, found = name, delta, currentUtil, true
		case delta < bestDelta:
			best, bestDelta, bestCurrentUtil = name, delta, currentUtil
		case delta == bestDelta && currentUtil < bestCurrentUtil:
			best, bestCurrentUtil = name, currentUtil
		case delta == bestDelta && currentUtil == bestCurrentUtil && name < best:
			best = name
		}
	}
	return best, found
}

// warmupTraitCache pre-fetches resource_provider_uuid and traits for every
// candidate target host before scoring begins, fanned out over a bounded
// worker pool (spec §5; per-service goroutine dispatch style of
// cmd/limes-collect/main.go, bounded and joined here since the Placement
// Port's caches are filled once and then read repeatedly by scoreTargets).
// Best-effort only: scoreTargets falls back to an on-demand lookup for any
// host this warmup failed to populate.
func (p *Planner) warmupTraitCache(ctx context.Context) {
	sem := make(chan struct{}, traitWarmupWorkers)
	var wg sync.WaitGroup

	for _, name := range p.hostOrder {
		wg.Add(1)
		sem <- struct{}{}
		go func(hostname string) {
			defer wg.Done()
			defer func() { <-sem }()
			uuid, ok := p.placement.ResourceProviderUUID(ctx, hostname)
			if !ok {
				return
			}
			p.placement.Traits(ctx, uuid)
		}(name)
	}
	wg.Wait()
}

func (p *Planner) hostHasTraits(ctx context.Context, hostname string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	uuid, ok := p.placement.ResourceProviderUUID(ctx, hostname)
	if !ok {
		return false
	}
	available := p.placement.Traits(ctx, uuid)
	for _, t := range required {
		if !available[t] {
			return false
		}
	}
	return true
}

// commit atomically applies one move to the shadow state. Either both sides
// mutate or neither does.
func (p *Planner) commit(c candidate, target string) bool {
	src := p.hosts[c.source]
	dst := p.hosts[target]

	if !src.canRelease(c.flavor.VCPUs, c.flavor.RAMMB) || !dst.canAccept(c.flavor.VCPUs, c.flavor.RAMMB) {
		return false
	}
	if !src.applyOutgoing(c.vm.ID, c.flavor.VCPUs, c.flavor.RAMMB) {
		return false
	}
	if !dst.applyIncoming(c.vm.ID, c.flavor.VCPUs, c.flavor.RAMMB) {
		// roll back the source mutation to keep the two sides atomic.
		src.VCPUsUsed += c.flavor.VCPUs
		src.MemoryMBUsed += c.flavor.RAMMB
		src.RunningVMs++
		delete(src.OutgoingVMIDs, c.vm.ID)
		return false
	}
	return true
}
