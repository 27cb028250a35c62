// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sapcc/go-bits/assert"
)

func TestLoadFileOverlaysOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte("threshold: 1.5\ndry_run: true\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	merged, err := LoadFile(path, Default())
	if err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, "threshold overridden", merged.Threshold, 1.5)
	assert.DeepEqual(t, "dry_run overridden", merged.DryRun, true)
	assert.DeepEqual(t, "cpu overcommit left at default", merged.CPUOvercommit, Default().CPUOvercommit)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/does/not/exist.yaml", Default())
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
