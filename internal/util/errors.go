// SPDX-FileCopyrightText: 2018 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package util collects small helpers shared by the port, config, auth,
// flavor-cache and planner packages: error kinds and Gophercloud error
// unwrapping.
package util

import (
	"errors"
	"fmt"

	"github.com/gophercloud/gophercloud/v2"
)

// UnpackError is usually a no-op, but for some Gophercloud errors, it removes
// the outer layer that obscures the better error message hidden within.
func UnpackError(err error) error {
	var innerErr gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &innerErr) {
		return innerErr
	}
	return err
}

// ConfigurationError indicates missing credentials or required parameters.
// It is always fatal: callers surface it before any planning starts.
type ConfigurationError struct {
	Msg string
}

func (e ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// CloudUnavailable indicates a transport-level failure reaching the compute
// or placement API. Whether it is fatal depends on where it occurred: a
// top-level phase failure (e.g. ListHypervisors) aborts the run, but a
// per-VM lookup failure during scoring is caught and turned into a skip.
type CloudUnavailable struct {
	Op  string
	Err error
}

func (e CloudUnavailable) Error() string {
	return fmt.Sprintf("cloud unavailable during %s: %s", e.Op, UnpackError(e.Err).Error())
}

func (e CloudUnavailable) Unwrap() error {
	return e.Err
}

// ResourceError indicates that committing a planned move against the
// simulated state would violate a capacity or non-negativity invariant.
// It is never fatal: the single move is rejected and planning continues.
type ResourceError struct {
	Host   string
	Reason string
}

func (e ResourceError) Error() string {
	return fmt.Sprintf("resource invariant violated on %s: %s", e.Host, e.Reason)
}

// MigrationDispatchError indicates that the cloud rejected a live-migrate
// request. It is never fatal: it is logged and the executor proceeds to the
// next planned move.
type MigrationDispatchError struct {
	VMID       string
	TargetHost string
	Err        error
}

func (e MigrationDispatchError) Error() string {
	return fmt.Sprintf("live-migrate of %s to %s failed: %s", e.VMID, e.TargetHost, UnpackError(e.Err).Error())
}

func (e MigrationDispatchError) Unwrap() error {
	return e.Err
}
