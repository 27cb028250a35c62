// SPDX-FileCopyrightText: 2019 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package placementport abstracts access to the Placement service: resolving
// a hostname to its resource-provider UUID, and fetching that provider's
// traits. Grounded on pkg/plugins/client_placement.go's hand-rolled
// ServiceClient (the teacher never migrated this one to gophercloud/v2's
// built-in resourceproviders package, so this keeps the same manual-request
// idiom rather than mixing styles).
package placementport

import (
	"context"
	"sync"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/sapcc/go-bits/logg"
)

// Port abstracts the Placement service. Both operations are cached per run
// after first successful call; a failure returns the empty set/none and
// logs, per spec §4.2 — it never returns an error to the caller.
type Port interface {
	ResourceProviderUUID(ctx context.Context, hostname string) (uuid string, found bool)
	Traits(ctx context.Context, providerUUID string) map[string]bool
}

// CacheStats reports how effective the Client's per-run caches were. Useful
// as a debug-level diagnostic to judge whether trait lookups are the
// bottleneck in a large planning run.
type CacheStats struct {
	ProviderUUIDHits, ProviderUUIDMisses int
	TraitHits, TraitMisses               int
}

// PlacementVersion is the minimum Placement microversion this planner
// requires (trait list format stabilized at 1.6, but the spec asks for
// 1.32 specifically to match the reference deployment's minimum).
const PlacementVersion = "1.32"

// Client is the gophercloud-backed implementation of Port.
type Client struct {
	Service *gophercloud.ServiceClient

	mu            sync.Mutex
	providerUUIDs map[string]string // hostname -> uuid, "" cached when placement has no provider by that name
	traitSets     map[string]map[string]bool
	stats         CacheStats
}

// NewClient builds a placement Client from an authenticated service client
// pointed at the placement endpoint. Grounded on
// pkg/plugins/client_placement.go's newPlacementClient, updated to
// gophercloud/v2's context-carrying request API.
func NewClient(service *gophercloud.ServiceClient) *Client {
	service.Microversion = PlacementVersion
	return &Client{
		Service:       service,
		providerUUIDs: make(map[string]string),
		traitSets:     make(map[string]map[string]bool),
	}
}

// ResourceProviderUUID implements Port. The lookup is by resource-provider
// name, which Nova sets to the hypervisor hostname; the first matching
// entry is used, per spec §6.
func (c *Client) ResourceProviderUUID(ctx context.Context, hostname string) (string, bool) {
	c.mu.Lock()
	if uuid, ok := c.providerUUIDs[hostname]; ok {
		c.stats.ProviderUUIDHits++
		c.mu.Unlock()
		return uuid, uuid != ""
	}
	c.stats.ProviderUUIDMisses++
	c.mu.Unlock()

	var data struct {
		Providers []struct {
			UUID string `json:"uuid"`
			Name string `json:"name"`
		} `json:"resource_providers"`
	}
	url := c.Service.ServiceURL("resource_providers") + "?name=" + hostname
	_, err := c.Service.Get(ctx, url, &data, &gophercloud.RequestOpts{OkCodes: []int{200}}) //nolint:bodyclose // gophercloud closes it
	if err != nil {
		logg.Error("placement: could not resolve resource provider for host %s: %s", hostname, err.Error())
		return "", false
	}
	if len(data.Providers) == 0 {
		logg.Error("placement: no resource provider found for host %s", hostname)
		c.mu.Lock()
		c.providerUUIDs[hostname] = ""
		c.mu.Unlock()
		return "", false
	}

	uuid := data.Providers[0].UUID
	c.mu.Lock()
	c.providerUUIDs[hostname] = uuid
	c.mu.Unlock()
	return uuid, true
}

// Traits implements Port. A failure (including "provider not found") logs
// and returns an empty set, never an error, so that a VM with no required
// traits still passes trivially against a host whose traits could not be
// resolved, while one that does need traits is correctly rejected.
func (c *Client) Traits(ctx context.Context, providerUUID string) map[string]bool {
	c.mu.Lock()
	if set, ok := c.traitSets[providerUUID]; ok {
		c.stats.TraitHits++
		c.mu.Unlock()
		return set
	}
	c.stats.TraitMisses++
	c.mu.Unlock()

	var data struct {
		Traits []string `json:"traits"`
	}
	url := c.Service.ServiceURL("resource_providers", providerUUID, "traits")
	_, err := c.Service.Get(ctx, url, &data, &gophercloud.RequestOpts{OkCodes: []int{200}}) //nolint:bodyclose
	set := make(map[string]bool, len(data.Traits))
	if err != nil {
		logg.Error("placement: could not fetch traits for resource provider %s: %s", providerUUID, err.Error())
		return set
	}
	for _, t := range data.Traits {
		set[t] = true
	}

	c.mu.Lock()
	c.traitSets[providerUUID] = set
	c.mu.Unlock()
	return set
}

// Stats returns a snapshot of this run's cache hit/miss counts.
func (c *Client) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LogStats emits a debug-level summary of cache effectiveness, gated on
// logg.ShowDebug the same way the rest of the codebase's diagnostics are.
func (c *Client) LogStats() {
	s := c.Stats()
	logg.Debug("placement: resource-provider cache hits=%d misses=%d, trait cache hits=%d misses=%d",
		s.ProviderUUIDHits, s.ProviderUUIDMisses, s.TraitHits, s.TraitMisses)
}

var _ Port = (*Client)(nil)
