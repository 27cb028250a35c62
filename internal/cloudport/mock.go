// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package cloudport

import (
	"context"
	"fmt"
)

// Mock is an in-memory Port used by planner/classifier/executor tests.
// Grounded on the teacher's in-package mock clients (internal/test's
// mock_liquid_client.go pattern: a struct field per backing collection,
// queried by simple linear scan since test fixtures are small).
type Mock struct {
	Hypervisors []Hypervisor
	Servers     []VM
	Flavors     []Flavor

	// FailLiveMigrateFor, if set, makes LiveMigrate fail for these VM IDs.
	FailLiveMigrateFor map[string]bool
	// Migrations records every successful LiveMigrate call in call order.
	Migrations []MigrationCall
}

// MigrationCall records one live_migrate dispatch observed by the Mock.
type MigrationCall struct {
	VMID       string
	TargetHost string
}

func (m *Mock) ListHypervisors(_ context.Context) ([]Hypervisor, error) {
	return m.Hypervisors, nil
}

func (m *Mock) ListServers(_ context.Context, hostname string) ([]VM, error) {
	var result []VM
	for _, vm := range m.Servers {
		if vm.CurrentHost == hostname {
			result = append(result, vm)
		}
	}
	return result, nil
}

func (m *Mock) GetVM(_ context.Context, id string) (VM, error) {
	for _, vm := range m.Servers {
		if vm.ID == id {
			return vm, nil
		}
	}
	return VM{}, fmt.Errorf("no such VM: %s", id)
}

func (m *Mock) LiveMigrate(_ context.Context, vmID, targetHost string) (MigrationOutcome, error) {
	if m.FailLiveMigrateFor[vmID] {
		return MigrationFailed, fmt.Errorf("live-migrate rejected for %s", vmID)
	}
	m.Migrations = append(m.Migrations, MigrationCall{VMID: vmID, TargetHost: targetHost})
	return MigrationOK, nil
}

func (m *Mock) ListFlavors(_ context.Context) ([]Flavor, error) {
	return m.Flavors, nil
}

var _ Port = (*Mock)(nil)
