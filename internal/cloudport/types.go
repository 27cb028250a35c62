// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package cloudport abstracts access to the compute control plane:
// hypervisor inventory, servers per host, the flavor catalog, and
// live-migrate dispatch. Grounded on internal/liquids/nova's use of
// gophercloud/v2 compute/v2/{hypervisors,flavors,servers}.
package cloudport

import (
	"context"
	"strings"
)

// HypervisorState mirrors Nova's hypervisor `state` field, defaulted to
// Unknown when the upstream record omits it.
type HypervisorState string

const (
	StateUp      HypervisorState = "up"
	StateDown    HypervisorState = "down"
	StateUnknown HypervisorState = "unknown"
)

// HypervisorStatus mirrors Nova's hypervisor `status` field.
type HypervisorStatus string

const (
	StatusEnabled  HypervisorStatus = "enabled"
	StatusDisabled HypervisorStatus = "disabled"
	StatusUnknown  HypervisorStatus = "unknown"
)

// Hypervisor is one immutable compute-node snapshot as returned by
// list_hypervisors(). Unknown upstream fields default to zero/"unknown";
// defaulting is centralized in the gophercloud-backed Port implementation,
// never left to callers.
type Hypervisor struct {
	Hostname      string
	VCPUsTotal    int64
	VCPUsUsed     int64
	MemoryMBTotal int64
	MemoryMBUsed  int64
	RunningVMs    int64
	State         HypervisorState
	Status        HypervisorStatus
}

// IsActive reports whether this hypervisor passes the Node Classifier's
// active filter (state=up, status=enabled).
func (h Hypervisor) IsActive() bool {
	return h.State == StateUp && h.Status == StatusEnabled
}

// Flavor is an immutable resource template, indexable by both ID and Name.
type Flavor struct {
	ID         string
	Name       string
	VCPUs      int64
	RAMMB      int64
	ExtraSpecs map[string]string
}

// RequiredTraits returns the traits this flavor's extra specs mark as
// required: keys of the form "trait:SOME_TRAIT" whose value lowercases to
// "required" contribute SOME_TRAIT. See spec property 8 (flavor round-trip).
func (f Flavor) RequiredTraits() []string {
	var traits []string
	for key, value := range f.ExtraSpecs {
		trait, ok := strings.CutPrefix(key, "trait:")
		if ok && strings.EqualFold(value, "required") {
			traits = append(traits, trait)
		}
	}
	return traits
}

// VM is a server record. Only Status == "active" VMs are migration
// candidates (spec §9 Open Question: non-active VMs are left out of scope
// deliberately, not by omission).
type VM struct {
	ID             string
	Name           string
	Status         string
	CurrentHost    string
	FlavorRef      string
	RequiredTraits []string
}

// IsActive reports whether this VM's status makes it migration-eligible.
func (v VM) IsActive() bool {
	return v.Status == "active"
}

// MigrationOutcome is the result of a live_migrate dispatch.
type MigrationOutcome int

const (
	MigrationOK MigrationOutcome = iota
	MigrationFailed
)

// Port abstracts the compute control plane. Implementations must tolerate
// upstream records lacking fields (defaulting to 0/"unknown") and must
// return util.CloudUnavailable on transport error.
type Port interface {
	// ListHypervisors returns every hypervisor known to the compute service.
	ListHypervisors(ctx context.Context) ([]Hypervisor, error)
	// ListServers returns every VM (all projects) whose current host equals
	// hostname.
	ListServers(ctx context.Context, hostname string) ([]VM, error)
	// GetVM returns the full record for a single VM, including placement
	// hints folded into RequiredTraits.
	GetVM(ctx context.Context, id string) (VM, error)
	// LiveMigrate dispatches a live-migrate request. No retry at this layer.
	LiveMigrate(ctx context.Context, vmID, targetHost string) (MigrationOutcome, error)
	// ListFlavors enumerates the full flavor catalog.
	ListFlavors(ctx context.Context) ([]Flavor, error)
}
