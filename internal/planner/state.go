// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package planner is the core of this repository: the shadow per-host
// capacity model and the migration planner that ranks candidate VMs, scores
// targets under capacity and trait constraints, and commits moves against
// the shadow model so later decisions see the effect of earlier ones.
//
// Grounded on internal/liquids/nova/binpack_simulation.go's BinpackHypervisors
// shadow-capacity model (a per-hypervisor running total mutated as
// instances are hypothetically placed) — the same shape, but mutated by
// real decisions (migrations) instead of simulated bin-packing, and with an
// explicit incoming/outgoing VM-id bookkeeping spec §3 requires that the
// teacher's binpacking model has no need for.
package planner

import "github.com/sapcc/nova-rebalancer/internal/cloudport"

// Default overcommit ratios and target fraction, per spec §4.5.
const (
	DefaultCPUOvercommitRatio    = 8.0
	DefaultMemoryOvercommitRatio = 1.5
	DefaultTargetFraction        = 0.9
)

// SimulatedHost is the mutable per-host projection the planner exclusively
// owns for the duration of one planning pass (spec §3).
type SimulatedHost struct {
	Hostname      string
	State         cloudport.HypervisorState
	Status        cloudport.HypervisorStatus
	VCPUsTotal    int64
	VCPUsUsed     int64
	MemoryMBTotal int64
	MemoryMBUsed  int64
	RunningVMs    int64

	// IncomingVMIDs and OutgoingVMIDs are disjoint sets of VM ids whose
	// migrations are planned but not yet executed.
	IncomingVMIDs map[string]bool
	OutgoingVMIDs map[string]bool

	cpuRatio, memRatio float64
}

func newSimulatedHost(h cloudport.Hypervisor, cpuRatio, memRatio float64) *SimulatedHost {
	return &SimulatedHost{
		Hostname:      h.Hostname,
		State:         h.State,
		Status:        h.Status,
		VCPUsTotal:    h.VCPUsTotal,
		VCPUsUsed:     h.VCPUsUsed,
		MemoryMBTotal: h.MemoryMBTotal,
		MemoryMBUsed:  h.MemoryMBUsed,
		RunningVMs:    h.RunningVMs,
		IncomingVMIDs: make(map[string]bool),
		OutgoingVMIDs: make(map[string]bool),
		cpuRatio:      cpuRatio,
		memRatio:      memRatio,
	}
}

// AvailableVCPUs is vcpus_total*R_cpu - vcpus_used, never stored (spec §3).
func (s *SimulatedHost) AvailableVCPUs() float64 {
	return float64(s.VCPUsTotal)*s.cpuRatio - float64(s.VCPUsUsed)
}

// AvailableMemory is memory_mb_total*R_mem - memory_mb_used, never stored.
func (s *SimulatedHost) AvailableMemory() float64 {
	return float64(s.MemoryMBTotal)*s.memRatio - float64(s.MemoryMBUsed)
}

// CPURatio is vcpus_used / (vcpus_total*R_cpu).
func (s *SimulatedHost) CPURatio() float64 {
	total := float64(s.VCPUsTotal) * s.cpuRatio
	if total == 0 {
		return 0
	}
	return float64(s.VCPUsUsed) / total
}

// MemoryRatio is memory_mb_used / (memory_mb_total*R_mem).
func (s *SimulatedHost) MemoryRatio() float64 {
	total := float64(s.MemoryMBTotal) * s.memRatio
	if total == 0 {
		return 0
	}
	return float64(s.MemoryMBUsed) / total
}

// NodeUtilization is max(CPURatio, MemoryRatio).
func (s *SimulatedHost) NodeUtilization() float64 {
	cpu, mem := s.CPURatio(), s.MemoryRatio()
	if cpu > mem {
		return cpu
	}
	return mem
}

// postMoveUtilization is the node_utilization this host would have after
// hypothetically absorbing a VM of the given flavor, without mutating state.
func (s *SimulatedHost) postMoveUtilization(vcpus, ramMB int64) float64 {
	cpuTotal := float64(s.VCPUsTotal) * s.cpuRatio
	memTotal := float64(s.MemoryMBTotal) * s.memRatio
	var cpuRatio, memRatio float64
	if cpuTotal != 0 {
		cpuRatio = (float64(s.VCPUsUsed) + float64(vcpus)) / cpuTotal
	}
	if memTotal != 0 {
		memRatio = (float64(s.MemoryMBUsed) + float64(ramMB)) / memTotal
	}
	if cpuRatio > memRatio {
		return cpuRatio
	}
	return memRatio
}

// canAccept reports whether this host has enough available capacity for the
// given flavor (criterion 3 of spec §4.5.4).
func (s *SimulatedHost) canAccept(vcpus, ramMB int64) bool {
	return s.AvailableVCPUs() >= float64(vcpus) && s.AvailableMemory() >= float64(ramMB)
}

// canRelease reports whether this host can give up the given flavor's
// footprint without its usage counters going negative.
func (s *SimulatedHost) canRelease(vcpus, ramMB int64) bool {
	return s.VCPUsUsed-vcpus >= 0 && s.MemoryMBUsed-ramMB >= 0 && s.RunningVMs-1 >= 0
}

// applyOutgoing mutates this host to reflect vm departing with the given
// flavor's resource footprint. Returns false (and leaves the host
// unchanged) if the non-negativity invariant would be violated.
func (s *SimulatedHost) applyOutgoing(vmID string, vcpus, ramMB int64) bool {
	if s.VCPUsUsed-vcpus < 0 || s.MemoryMBUsed-ramMB < 0 || s.RunningVMs-1 < 0 {
		return false
	}
	s.VCPUsUsed -= vcpus
	s.MemoryMBUsed -= ramMB
	s.RunningVMs--
	s.OutgoingVMIDs[vmID] = true
	return true
}

// applyIncoming mutates this host to reflect vm arriving with the given
// flavor's resource footprint. Returns false (and leaves the host
// unchanged) if the target-capacity invariant would be violated.
func (s *SimulatedHost) applyIncoming(vmID string, vcpus, ramMB int64) bool {
	if s.AvailableVCPUs()-float64(vcpus) < 0 || s.AvailableMemory()-float64(ramMB) < 0 {
		return false
	}
	s.VCPUsUsed += vcpus
	s.MemoryMBUsed += ramMB
	s.RunningVMs++
	s.IncomingVMIDs[vmID] = true
	return true
}
