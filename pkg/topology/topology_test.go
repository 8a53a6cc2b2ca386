// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"testing"

	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopology_AddAndCount(t *testing.T) {
	t.Parallel()

	topo := New()
	require.NoError(t, topo.Add(types.NewNode("dn1", "/r2")))
	require.NoError(t, topo.Add(types.NewNode("dn2", "/r1")))
	require.NoError(t, topo.Add(types.NewNode("dn3", "r1")))

	assert.Equal(t, 3, topo.LeafCount())
	assert.Equal(t, 2, topo.RackCount())
	assert.Equal(t, []string{"/r1", "/r2"}, topo.Racks())
	assert.True(t, topo.HasEverBeenMultiRack())

	rack, ok := topo.Rack("/r1")
	require.True(t, ok)
	assert.Equal(t, []string{"dn2", "dn3"}, namesOf(t, topo, rack))

	nodes := topo.Nodes("")
	require.Len(t, nodes, 3)
	assert.Equal(t, "dn1", nodes[0].Name)
	assert.Len(t, topo.Nodes("/r2"), 1)
	assert.Empty(t, topo.Nodes("/r9"))
}

func TestTopology_AddRejects(t *testing.T) {
	t.Parallel()

	topo := New()
	assert.Error(t, topo.Add(nil))
	assert.Error(t, topo.Add(&types.Node{Name: "noid"}))

	require.NoError(t, topo.Add(types.NewNode("dn1", "/r1")))
	imposter := types.NewNode("dn1", "/r1")
	imposter.NodeID = types.NodeIDFromName("other")
	assert.Error(t, topo.Add(imposter))
}

func TestTopology_AddMovesRack(t *testing.T) {
	t.Parallel()

	topo := New()
	require.NoError(t, topo.Add(types.NewNode("dn1", "/r1")))
	require.NoError(t, topo.Add(types.NewNode("dn1", "/r2")))

	assert.Equal(t, 1, topo.LeafCount())
	assert.Equal(t, []string{"/r2"}, topo.Racks())
	rack, ok := topo.RackOf(types.NodeIDFromName("dn1"))
	require.True(t, ok)
	assert.Equal(t, "/r2", rack)
	assert.False(t, topo.HasEverBeenMultiRack(), "racks never coexisted")
}

func TestTopology_RemoveKeepsMultiRackHistory(t *testing.T) {
	t.Parallel()

	topo := New()
	require.NoError(t, topo.Add(types.NewNode("dn1", "/r1")))
	assert.False(t, topo.HasEverBeenMultiRack())
	require.NoError(t, topo.Add(types.NewNode("dn2", "/r2")))

	assert.True(t, topo.Remove(types.NodeIDFromName("dn2")))
	assert.False(t, topo.Remove(types.NodeIDFromName("dn2")))

	assert.Equal(t, 1, topo.RackCount())
	assert.True(t, topo.HasEverBeenMultiRack())
	_, ok := topo.Rack("/r2")
	assert.False(t, ok)
	_, ok = topo.NodeByName("dn2")
	assert.False(t, ok)
}

func TestTopology_SetStale(t *testing.T) {
	t.Parallel()

	topo := New()
	require.NoError(t, topo.Add(types.NewNode("dn1", "/r1")))
	id := types.NodeIDFromName("dn1")
	before, _ := topo.Node(id)

	require.True(t, topo.SetStale(id, true))
	after, _ := topo.Node(id)
	assert.True(t, after.Stale)
	assert.False(t, before.Stale, "handed-out nodes are not mutated")

	assert.False(t, topo.SetStale(types.NodeIDFromName("missing"), true))
}

func namesOf(t *testing.T, topo *Topology, rack types.Rack) []string {
	t.Helper()
	out := make([]string, 0, len(rack.NodeIDs))
	for _, id := range rack.NodeIDs {
		n, ok := topo.Node(id)
		require.True(t, ok)
		out = append(out, n.Name)
	}
	return out
}
