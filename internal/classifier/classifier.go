// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package classifier partitions a hypervisor list into over- and
// underutilized nodes by running-VM count, relative to the cluster average.
// Grounded on spec §4.4; shaped like the teacher's small single-purpose
// filter/aggregate helpers (e.g. internal/util/algorithms.go's
// DistributeFairly) rather than a stateful object.
package classifier

import "github.com/sapcc/nova-rebalancer/internal/cloudport"

// Result is the outcome of one classification pass.
type Result struct {
	Overutilized  []cloudport.Hypervisor
	Underutilized []cloudport.Hypervisor
	AverageVMs    float64
}

// Classify discards nodes that are not (state=up, status=enabled), computes
// the average running-VM count over the remainder, and partitions the
// remainder into over/underutilized relative to avg*threshold.
//
// The border case running_vms == avg*threshold counts as underutilized
// (spec §4.4).
func Classify(hypervisors []cloudport.Hypervisor, threshold float64) Result {
	active := make([]cloudport.Hypervisor, 0, len(hypervisors))
	for _, h := range hypervisors {
		if h.IsActive() {
			active = append(active, h)
		}
	}

	var avg float64
	if len(active) > 0 {
		var sum int64
		for _, h := range active {
			sum += h.RunningVMs
		}
		avg = float64(sum) / float64(len(active))
	}

	result := Result{AverageVMs: avg}
	cutoff := avg * threshold
	for _, h := range active {
		if float64(h.RunningVMs) > cutoff {
			result.Overutilized = append(result.Overutilized, h)
		} else {
			result.Underutilized = append(result.Underutilized, h)
		}
	}
	return result
}
