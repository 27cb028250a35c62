// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package cloudport

import (
	"context"
	"strings"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/flavors"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/hypervisors"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/pagination"

	"github.com/sapcc/nova-rebalancer/internal/util"
)

// NovaPort is the gophercloud-backed implementation of Port, talking to the
// Nova compute API. Grounded on internal/liquids/nova/liquid.go (client
// setup, microversion pinning) and gophercloud_fixes.go (hypervisor
// pagination).
type NovaPort struct {
	Client *gophercloud.ServiceClient
}

// NewNovaPort builds a NovaPort from an authenticated service client. The
// microversion is pinned high enough to guarantee extra_specs on flavor
// listings and OS-EXT-SRV-ATTR fields on server listings, the same way
// liquid.go pins NovaV2.Microversion for its own purposes.
func NewNovaPort(client *gophercloud.ServiceClient) *NovaPort {
	client.Microversion = "2.61"
	return &NovaPort{Client: client}
}

// rawHypervisor is the subset of Nova's hypervisor-detail representation
// this planner cares about. Centralizing the JSON tags here is the single
// place upstream field defaulting happens (spec §4.1).
type rawHypervisor struct {
	HypervisorHostname string `json:"hypervisor_hostname"`
	VCPUs              int64  `json:"vcpus"`
	VCPUsUsed          int64  `json:"vcpus_used"`
	MemoryMB           int64  `json:"memory_mb"`
	MemoryMBUsed       int64  `json:"memory_mb_used"`
	RunningVMs         int64  `json:"running_vms"`
	State              string `json:"state"`
	Status             string `json:"status"`
}

func (r rawHypervisor) toHypervisor() Hypervisor {
	return Hypervisor{
		Hostname:      r.HypervisorHostname,
		VCPUsTotal:    r.VCPUs,
		VCPUsUsed:     r.VCPUsUsed,
		MemoryMBTotal: r.MemoryMB,
		MemoryMBUsed:  r.MemoryMBUsed,
		RunningVMs:    r.RunningVMs,
		State:         defaultState(r.State),
		Status:        defaultStatus(r.Status),
	}
}

func defaultState(s string) HypervisorState {
	switch HypervisorState(s) {
	case StateUp, StateDown:
		return HypervisorState(s)
	default:
		return StateUnknown
	}
}

func defaultStatus(s string) HypervisorStatus {
	switch HypervisorStatus(s) {
	case StatusEnabled, StatusDisabled:
		return HypervisorStatus(s)
	default:
		return StatusUnknown
	}
}

// ListHypervisors implements Port.
func (p *NovaPort) ListHypervisors(ctx context.Context) ([]Hypervisor, error) {
	var raw []rawHypervisor
	err := hypervisors.List(p.Client, nil).EachPage(ctx, func(_ context.Context, page pagination.Page) (bool, error) {
		var batch []rawHypervisor
		err := hypervisors.ExtractHypervisorsInto(page, &batch)
		if err != nil {
			return false, err
		}
		raw = append(raw, batch...)
		return true, nil
	})
	if err != nil {
		return nil, util.CloudUnavailable{Op: "list_hypervisors", Err: err}
	}

	result := make([]Hypervisor, 0, len(raw))
	for _, r := range raw {
		result = append(result, r.toHypervisor())
	}
	return result, nil
}

// rawServer is the subset of the Nova server representation this planner
// cares about. The upstream field names ("OS-EXT-SRV-ATTR:host",
// "flavor":{"id":...}) are environment-dependent per spec §9's Open
// Question; this struct is the single place that data path is read.
type rawServer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Host   string `json:"OS-EXT-SRV-ATTR:host"`
	Flavor struct {
		ID string `json:"id"`
	} `json:"flavor"`
	HCIInfo struct {
		RequiredTraits []string `json:"required_traits"`
	} `json:"hci_info"`
}

func (r rawServer) toVM() VM {
	return VM{
		ID:             r.ID,
		Name:           r.Name,
		Status:         strings.ToLower(r.Status),
		CurrentHost:    r.Host,
		FlavorRef:      r.Flavor.ID,
		RequiredTraits: r.HCIInfo.RequiredTraits,
	}
}

// ListServers implements Port. It lists across all projects and filters to
// the requested host, since not every deployment's policy honors a
// server-side host filter on the all-tenants listing.
func (p *NovaPort) ListServers(ctx context.Context, hostname string) ([]VM, error) {
	opts := servers.ListOpts{
		AllTenants: true,
		Host:       hostname,
	}

	allPages, err := servers.List(p.Client, opts).AllPages(ctx)
	if err != nil {
		return nil, util.CloudUnavailable{Op: "list_servers", Err: err}
	}
	var raw []rawServer
	err = servers.ExtractServersInto(allPages, &raw)
	if err != nil {
		return nil, util.CloudUnavailable{Op: "list_servers", Err: err}
	}

	result := make([]VM, 0, len(raw))
	for _, r := range raw {
		if r.Host != hostname {
			continue
		}
		result = append(result, r.toVM())
	}
	return result, nil
}

// GetVM implements Port.
func (p *NovaPort) GetVM(ctx context.Context, id string) (VM, error) {
	var r rawServer
	err := servers.Get(ctx, p.Client, id).ExtractInto(&r)
	if err != nil {
		return VM{}, util.CloudUnavailable{Op: "get_vm", Err: err}
	}
	return r.toVM(), nil
}

// LiveMigrate implements Port. No retry at this layer, per spec §4.1.
func (p *NovaPort) LiveMigrate(ctx context.Context, vmID, targetHost string) (MigrationOutcome, error) {
	body := map[string]any{
		"os-migrateLive": map[string]any{
			"host":            targetHost,
			"block_migration": "auto",
		},
	}
	_, err := p.Client.Post(ctx, p.Client.ServiceURL("servers", vmID, "action"), body, nil, &gophercloud.RequestOpts{
		OkCodes: []int{202},
	})
	if err != nil {
		return MigrationFailed, util.MigrationDispatchError{VMID: vmID, TargetHost: targetHost, Err: err}
	}
	return MigrationOK, nil
}

// ListFlavors enumerates the full flavor catalog, used by the Flavor Cache.
// Grounded on internal/liquids/nova/flavor_selection.go's ForeachFlavor.
func (p *NovaPort) ListFlavors(ctx context.Context) ([]Flavor, error) {
	allPages, err := flavors.ListDetail(p.Client, flavors.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, util.CloudUnavailable{Op: "list_flavors", Err: err}
	}
	var raw []flavors.Flavor
	err = flavors.ExtractFlavorsInto(allPages, &raw)
	if err != nil {
		return nil, util.CloudUnavailable{Op: "list_flavors", Err: err}
	}

	result := make([]Flavor, 0, len(raw))
	for _, f := range raw {
		result = append(result, Flavor{
			ID:         f.ID,
			Name:       f.Name,
			VCPUs:      int64(f.VCPUs),
			RAMMB:      int64(f.RAM),
			ExtraSpecs: f.ExtraSpecs,
		})
	}
	return result, nil
}
