// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Command nova-rebalancer surveys a Nova compute fleet, plans a sequence of
// live migrations to even out utilization, and either executes or
// dry-run-logs the plan. Grounded on cmd/limes/main.go's task-dispatch
// entrypoint shape, with flag parsing lifted from the cobra/pflag root
// command convention.
package main

import (
	"context"
	"os"

	"github.com/sapcc/go-bits/logg"
	"github.com/spf13/cobra"

	"github.com/sapcc/nova-rebalancer/internal/cloudport"
	"github.com/sapcc/nova-rebalancer/internal/config"
	"github.com/sapcc/nova-rebalancer/internal/openstackauth"
	"github.com/sapcc/nova-rebalancer/internal/orchestrator"
	"github.com/sapcc/nova-rebalancer/internal/placementport"
	"github.com/sapcc/nova-rebalancer/internal/planner"
	"github.com/sapcc/nova-rebalancer/internal/report"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logg.Fatal(err.Error())
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Default()
	var configPath string
	var showResources bool

	cmd := &cobra.Command{
		Use:   "nova-rebalancer",
		Short: "Survey a Nova compute fleet and plan/execute live migrations to even out utilization",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				merged, err := config.LoadFile(configPath, cfg)
				if err != nil {
					return err
				}
				// Flags passed explicitly on the command line win over the file.
				flags := cmd.Flags()
				if flags.Changed("threshold") {
					merged.Threshold = cfg.Threshold
				}
				if flags.Changed("dry-run") {
					merged.DryRun = cfg.DryRun
				}
				if flags.Changed("verbose") {
					merged.Verbose = cfg.Verbose
				}
				cfg = merged
			}
			logg.ShowDebug = cfg.Verbose
			return run(cmd.Context(), cfg, showResources)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&cfg.DryRun, "dry-run", false, "log planned migrations instead of dispatching them")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging")
	flags.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "overutilization threshold relative to the cluster average running-VM count")
	flags.StringVar(&configPath, "config", "", "optional YAML file overriding unset flag values")
	flags.BoolVar(&showResources, "show-resources", false, "print a per-host resource utilization table and exit, without planning or executing")

	return cmd
}

func run(ctx context.Context, cfg config.Config, showResources bool) error {
	session, err := openstackauth.Connect(ctx)
	if err != nil {
		return err
	}

	cloud := cloudport.NewNovaPort(session.Compute)
	placementClient := placementport.NewClient(session.Placement)

	if showResources {
		hypervisors, err := cloud.ListHypervisors(ctx)
		if err != nil {
			return err
		}
		p := planner.New(hypervisors, cloud, placementClient, nil, cfg.CPUOvercommit, cfg.MemoryOvercommit, cfg.TargetFraction)
		return report.WriteResourceTable(os.Stdout, p)
	}

	_, _, err = orchestrator.Run(ctx, cloud, placementClient, cfg)
	return err
}
