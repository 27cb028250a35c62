// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package openstackauth bootstraps the gophercloud/v2 provider client and
// the Nova and Placement service clients derived from it. Grounded on
// internal/core/auth.go's AuthToOpenstack, ported from gophercloud v1's
// clientconfig.AuthOptions()/openstack.AuthenticatedClient(*ao) to v2's
// context-carrying openstack.AuthOptionsFromEnv()/AuthenticatedClient(ctx, ao).
package openstackauth

import (
	"context"
	"fmt"
	"os"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"

	"github.com/sapcc/nova-rebalancer/internal/util"
)

// Session holds the authenticated provider client and the two service
// clients the planner needs.
type Session struct {
	Provider  *gophercloud.ProviderClient
	Compute   *gophercloud.ServiceClient
	Placement *gophercloud.ServiceClient
}

// Connect reads standard OS_* environment variables, authenticates, and
// builds the Compute v2 and Placement service clients. A missing required
// credential is a util.ConfigurationError; a reachability/auth failure is a
// util.CloudUnavailable.
func Connect(ctx context.Context) (*Session, error) {
	for _, name := range []string{"OS_AUTH_URL", "OS_PROJECT_NAME", "OS_USERNAME", "OS_PASSWORD"} {
		if os.Getenv(name) == "" {
			return nil, util.ConfigurationError{Msg: fmt.Sprintf("required environment variable %s is not set", name)}
		}
	}

	ao, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, util.ConfigurationError{Msg: err.Error()}
	}
	ao.AllowReauth = true

	provider, err := openstack.AuthenticatedClient(ctx, ao)
	if err != nil {
		return nil, util.CloudUnavailable{Op: "authenticate", Err: err}
	}

	eo := gophercloud.EndpointOpts{
		Availability: gophercloud.Availability(os.Getenv("OS_INTERFACE")),
		Region:       os.Getenv("OS_REGION_NAME"),
	}

	compute, err := openstack.NewComputeV2(provider, eo)
	if err != nil {
		return nil, util.CloudUnavailable{Op: "init_compute_client", Err: err}
	}

	placement, err := openstack.NewPlacementV1(provider, eo)
	if err != nil {
		return nil, util.CloudUnavailable{Op: "init_placement_client", Err: err}
	}

	return &Session{Provider: provider, Compute: compute, Placement: placement}, nil
}
