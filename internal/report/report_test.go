// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sapcc/nova-rebalancer/internal/cloudport"
	"github.com/sapcc/nova-rebalancer/internal/flavorcache"
	"github.com/sapcc/nova-rebalancer/internal/placementport"
	"github.com/sapcc/nova-rebalancer/internal/planner"
)

func TestWriteResourceTable(t *testing.T) {
	hypervisors := []cloudport.Hypervisor{
		{Hostname: "a", VCPUsTotal: 10, VCPUsUsed: 5, MemoryMBTotal: 1000, MemoryMBUsed: 200, RunningVMs: 3, State: cloudport.StateUp, Status: cloudport.StatusEnabled},
	}
	cache, err := flavorcache.Build(context.Background(), fakeLister{})
	if err != nil {
		t.Fatal(err)
	}
	p := planner.New(hypervisors, &cloudport.Mock{}, &placementport.Mock{}, cache, 1, 1, 0)

	var buf bytes.Buffer
	if err := WriteResourceTable(&buf, p); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "HOST") {
		t.Errorf("expected a header row, got: %s", out)
	}
	if !strings.Contains(out, "a") {
		t.Errorf("expected host 'a' in output, got: %s", out)
	}
	if !strings.Contains(out, "up") || !strings.Contains(out, "enabled") {
		t.Errorf("expected state/status columns in output, got: %s", out)
	}
	if !strings.Contains(out, "5/10") {
		t.Errorf("expected used/total vcpus in output, got: %s", out)
	}
}

type fakeLister struct{}

func (fakeLister) ListFlavors(_ context.Context) ([]cloudport.Flavor, error) {
	return nil, nil
}
