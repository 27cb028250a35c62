// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package report renders per-host utilization as a tabwriter-aligned table
// for the --show-resources CLI flag (SPEC_FULL.md §4.8). Grounded on the
// tabwriter usage pattern found across the retrieved example pack for
// human-facing CLI tables; the teacher itself has no CLI table renderer, so
// this follows stdlib text/tabwriter directly, which is the idiom every
// table-printing example in the pack uses rather than a third-party table
// library.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sapcc/nova-rebalancer/internal/planner"
)

// WriteResourceTable renders one row per host (hostname-sorted, as Hosts()
// already guarantees): hostname, state/status, vCPU and memory used/total
// with their overcommit ratio, running VM count, and node_utilization
// (SPEC_FULL.md §4.8).
func WriteResourceTable(w io.Writer, p *planner.Planner) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tSTATE\tSTATUS\tVMS\tVCPUS (USED/TOTAL)\tCPU RATIO\tMEMORY MB (USED/TOTAL)\tMEMORY RATIO\tUTILIZATION")

	for _, h := range p.Hosts() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%.1f%%\t%d/%d\t%.1f%%\t%.1f%%\n",
			h.Hostname,
			h.State,
			h.Status,
			h.RunningVMs,
			h.VCPUsUsed, h.VCPUsTotal,
			h.CPURatio()*100,
			h.MemoryMBUsed, h.MemoryMBTotal,
			h.MemoryRatio()*100,
			h.NodeUtilization()*100,
		)
	}

	return tw.Flush()
}
