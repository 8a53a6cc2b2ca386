// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTopology = `
racks:
  - name: /dc1/r1
    nodes:
      - name: dn1
        ip: 10.0.0.1
        storages:
          - type: ssd
            capacity: 1TiB
            used: 100GiB
          - id: dn1-cold
            type: archive
            capacity: 8TiB
      - name: dn2
        stale: true
        storages:
          - capacity: 4TB
  - name: dc1/r2
    nodes:
      - name: dn3
        storages:
          - type: hdd
            capacity: 4TB
            read_only: true
`

func writeTopologyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	topo, err := LoadFile(writeTopologyFile(t, sampleTopology))
	require.NoError(t, err)

	assert.Equal(t, 3, topo.LeafCount())
	assert.Equal(t, []string{"/dc1/r1", "/dc1/r2"}, topo.Racks())

	dn1, ok := topo.NodeByName("dn1")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", dn1.IP.String())
	require.Len(t, dn1.Storages, 2)
	assert.Equal(t, "dn1-ssd-0", dn1.Storages[0].ID)
	assert.Equal(t, types.StorageTypeSSD, dn1.Storages[0].Type)
	assert.Equal(t, uint64(1<<40), dn1.Storages[0].TotalBytes)
	assert.Equal(t, uint64(100<<30), dn1.Storages[0].UsedBytes)
	assert.Equal(t, "dn1-cold", dn1.Storages[1].ID)

	dn2, ok := topo.NodeByName("dn2")
	require.True(t, ok)
	assert.True(t, dn2.Stale)
	assert.Equal(t, types.StorageTypeHDD, dn2.Storages[0].Type)
	assert.Equal(t, uint64(4_000_000_000_000), dn2.Storages[0].TotalBytes)

	dn3, ok := topo.NodeByName("dn3")
	require.True(t, ok)
	assert.True(t, dn3.Storages[0].ReadOnly)
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFileConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := FileConfig{Racks: []RackConfig{
		{Name: "", Nodes: []NodeConfig{
			{Name: "dn1", IP: "not-an-ip"},
			{Name: "dn1"},
			{Name: "dn2", Storages: []StorageConfig{{Type: "tape", Capacity: "lots"}}},
		}},
	}}

	errs := cfg.Validate()
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{
		"racks[0].name",
		"racks[0].nodes[0].ip",
		"racks[0].nodes[1].name",
		"racks[0].nodes[2].storages[0].type",
		"racks[0].nodes[2].storages[0].capacity",
	}, fields)

	_, err := Build(cfg)
	assert.ErrorContains(t, err, "invalid topology")

	assert.Len(t, FileConfig{}.Validate(), 1)
}
