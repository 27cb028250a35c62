// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package flavorcache

import (
	"context"
	"testing"

	"github.com/sapcc/go-bits/assert"

	"github.com/sapcc/nova-rebalancer/internal/cloudport"
)

type fakeLister struct {
	flavors []cloudport.Flavor
}

func (f fakeLister) ListFlavors(_ context.Context) ([]cloudport.Flavor, error) {
	return f.flavors, nil
}

func TestLookupByIDAndName(t *testing.T) {
	lister := fakeLister{flavors: []cloudport.Flavor{
		{ID: "11111111-1111-1111-1111-111111111111", Name: "m1.small", VCPUs: 2, RAMMB: 4096},
		{ID: "22222222-2222-2222-2222-222222222222", Name: "m1.medium", VCPUs: 4, RAMMB: 8192},
	}}

	cache, err := Build(context.Background(), lister)
	if err != nil {
		t.Fatal(err)
	}

	byID, err := cache.ByID("11111111-1111-1111-1111-111111111111")
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, "flavor by id", byID.Name, "m1.small")

	byName, err := cache.ByID("m1.medium")
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, "flavor by name", byName.ID, "22222222-2222-2222-2222-222222222222")

	_, err = cache.ByID("does-not-exist")
	if err == nil {
		t.Fatal("expected an error for a missing flavor")
	}
}

func TestIDWinsOverNameCollision(t *testing.T) {
	// A flavor named exactly like another flavor's ID: id lookup must win.
	lister := fakeLister{flavors: []cloudport.Flavor{
		{ID: "clashing-key", Name: "real-name"},
		{ID: "some-other-id", Name: "clashing-key"},
	}}

	cache, err := Build(context.Background(), lister)
	if err != nil {
		t.Fatal(err)
	}

	f, err := cache.ByID("clashing-key")
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, "id wins over name on collision", f.ID, "clashing-key")
}
