// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package flavorcache builds a one-shot, run-scoped index of the flavor
// catalog, keyed by both ID and name. Grounded on
// internal/liquids/nova/flavor_selection.go's ForeachFlavor enumeration
// pattern, simplified to a plain slice fetch since this planner has no
// need for FlavorSelection's required/excluded extra-spec filtering.
package flavorcache

import (
	"context"
	"fmt"

	"github.com/sapcc/nova-rebalancer/internal/cloudport"
	"github.com/sapcc/nova-rebalancer/internal/util"
)

// Cache is populated once per run by enumerating all flavors. Lookups by ID
// or by name are served from an in-memory map built at construction time;
// callers never mutate it, so no locking is needed.
type Cache struct {
	byID   map[string]cloudport.Flavor
	byName map[string]cloudport.Flavor
}

// flavorLister is the subset of cloudport.Port this package depends on.
type flavorLister interface {
	ListFlavors(ctx context.Context) ([]cloudport.Flavor, error)
}

// Build enumerates every flavor exactly once. Flavor IDs take priority over
// names on key collision, per spec §4.3.
func Build(ctx context.Context, port flavorLister) (*Cache, error) {
	flavors, err := port.ListFlavors(ctx)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		byID:   make(map[string]cloudport.Flavor, len(flavors)),
		byName: make(map[string]cloudport.Flavor, len(flavors)),
	}
	for _, f := range flavors {
		c.byID[f.ID] = f
	}
	for _, f := range flavors {
		if _, collidesWithID := c.byID[f.Name]; collidesWithID {
			continue
		}
		c.byName[f.Name] = f
	}
	return c, nil
}

// ByID looks up a flavor by id or name (id is tried first, per spec §4.3).
// A lookup miss is a ConfigurationError per spec §4.3, since the caller
// asked for a flavor that must exist for the catalog to be self-consistent.
func (c *Cache) ByID(idOrName string) (cloudport.Flavor, error) {
	if f, ok := c.byID[idOrName]; ok {
		return f, nil
	}
	if f, ok := c.byName[idOrName]; ok {
		return f, nil
	}
	return cloudport.Flavor{}, util.ConfigurationError{Msg: fmt.Sprintf("no such flavor: %s", idOrName)}
}

// Lookup is like ByID but reports a plain ok bool instead of an error, for
// callers (the planner's candidate selection) that want to skip a VM with a
// debug/warning log rather than abort on a missing flavor.
func (c *Cache) Lookup(idOrName string) (cloudport.Flavor, bool) {
	if f, ok := c.byID[idOrName]; ok {
		return f, true
	}
	f, ok := c.byName[idOrName]
	return f, ok
}
