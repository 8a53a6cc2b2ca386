// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"testing"

	"github.com/LeeDigitalWorks/rackplace/pkg/topology"
	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targetWithFree(t *testing.T, topo *topology.Topology, name, rack string, free uint64) types.StorageTarget {
	t.Helper()
	n := types.NewNode(name, rack, &types.Storage{ID: name + "-hdd", Type: types.StorageTypeHDD, TotalBytes: 100, UsedBytes: 100 - free})
	require.NoError(t, topo.Add(n))
	return types.NewStorageTarget(n, n.Storages[0])
}

func TestChooseReplicasToDelete(t *testing.T) {
	t.Parallel()

	topo := topology.New()
	a := targetWithFree(t, topo, "a", "/r1", 10)
	b := targetWithFree(t, topo, "b", "/r1", 5)
	c := targetWithFree(t, topo, "c", "/r2", 1)
	d := targetWithFree(t, topo, "d", "/r3", 50)
	p := createTestPlacer(t, PolicyRackFaultTolerant, topo, 1)

	candidates := []types.StorageTarget{a, b, c, d}

	// The crowded rack gives up its fullest replica, even though c is fuller.
	deleted := p.ChooseReplicasToDelete(candidates, 3)
	require.Len(t, deleted, 1)
	assert.Equal(t, b.NodeID(), deleted[0].NodeID())

	// Once every rack holds one, the fullest goes next.
	deleted = p.ChooseReplicasToDelete(candidates, 2)
	require.Len(t, deleted, 2)
	assert.Equal(t, b.NodeID(), deleted[0].NodeID())
	assert.Equal(t, c.NodeID(), deleted[1].NodeID())

	assert.Empty(t, p.ChooseReplicasToDelete(candidates, 4))
	assert.Len(t, p.ChooseReplicasToDelete(candidates, -1), 4)
}

func TestChooseReplicasToDelete_PrefersStale(t *testing.T) {
	t.Parallel()

	topo := topology.New()
	a := targetWithFree(t, topo, "a", "/r1", 1)
	b := targetWithFree(t, topo, "b", "/r1", 90)
	b.Node.Stale = true
	c := targetWithFree(t, topo, "c", "/r2", 1)
	p := createTestPlacer(t, PolicyDefault, topo, 1)

	deleted := p.ChooseReplicasToDelete([]types.StorageTarget{a, b, c}, 2)
	require.Len(t, deleted, 1)
	assert.Equal(t, b.NodeID(), deleted[0].NodeID())
}
