// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package config loads the planner's tunable parameters: CLI flags first,
// then an optional YAML file overriding unset values. Grounded on
// internal/core/config.go's YAML-tagged configuration structs, scaled down
// to this planner's much smaller parameter set (SPEC_FULL.md §10).
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/sapcc/nova-rebalancer/internal/util"
)

// Config holds every tunable the balance run needs, after CLI flags and an
// optional config file have been merged. Precedence: CLI flag (if the user
// passed it explicitly) wins, otherwise the config file value is used,
// otherwise the hardcoded default (SPEC_FULL.md §6).
type Config struct {
	Threshold        float64 `yaml:"threshold"`
	CPUOvercommit    float64 `yaml:"cpu_overcommit_ratio"`
	MemoryOvercommit float64 `yaml:"memory_overcommit_ratio"`
	TargetFraction   float64 `yaml:"target_fraction"`
	DryRun           bool    `yaml:"dry_run"`
	Verbose          bool    `yaml:"verbose"`
}

// Default returns the spec's hardcoded defaults (§4.4, §4.5).
func Default() Config {
	return Config{
		Threshold:        1.2,
		CPUOvercommit:    8.0,
		MemoryOvercommit: 1.5,
		TargetFraction:   0.9,
	}
}

// LoadFile reads a YAML config file and overlays its non-zero fields onto
// base. A missing file is a util.ConfigurationError, since the caller only
// reaches here after the user explicitly passed --config.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, util.ConfigurationError{Msg: fmt.Sprintf("cannot read config file %s: %s", path, err.Error())}
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return base, util.ConfigurationError{Msg: fmt.Sprintf("cannot parse config file %s: %s", path, err.Error())}
	}

	merged := base
	if fromFile.Threshold != 0 {
		merged.Threshold = fromFile.Threshold
	}
	if fromFile.CPUOvercommit != 0 {
		merged.CPUOvercommit = fromFile.CPUOvercommit
	}
	if fromFile.MemoryOvercommit != 0 {
		merged.MemoryOvercommit = fromFile.MemoryOvercommit
	}
	if fromFile.TargetFraction != 0 {
		merged.TargetFraction = fromFile.TargetFraction
	}
	if fromFile.DryRun {
		merged.DryRun = true
	}
	if fromFile.Verbose {
		merged.Verbose = true
	}
	return merged, nil
}
