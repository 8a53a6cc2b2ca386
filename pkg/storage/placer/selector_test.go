// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"testing"

	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSelector_ChooseRandom_RespectsRackCap(t *testing.T) {
	t.Parallel()

	topo := createTestTopology(t, rackDef{"/r1", 3})
	s := NewRandomSelector(topo, 1)
	sel := &Selection{Excluded: NewExcludedNodes(), MaxPerRack: 1}

	err := s.ChooseRandom(2, "", sel)
	require.Error(t, err)

	var nere *NotEnoughReplicasError
	require.ErrorAs(t, err, &nere)
	assert.Equal(t, 2, nere.Wanted)
	assert.Equal(t, 1, nere.Chosen)
	assert.Equal(t, 2, nere.Reasons[ReasonTooManyNodesOnRack])

	assert.Len(t, sel.Results, 1)
	assert.Len(t, sel.Excluded, 3, "every examined node is excluded")
}

func TestRandomSelector_ChooseRandom_Scope(t *testing.T) {
	t.Parallel()

	topo := createTestTopology(t, rackDef{"/r1", 2}, rackDef{"/r2", 2})
	s := NewRandomSelector(topo, 2)
	sel := &Selection{Excluded: NewExcludedNodes(), MaxPerRack: 2}

	require.NoError(t, s.ChooseRandom(2, "/r2", sel))
	assert.Equal(t, map[string]int{"/r2": 2}, rackCounts(sel.Results))
}

func TestRandomSelector_ChooseRandom_NoCandidates(t *testing.T) {
	t.Parallel()

	topo := createTestTopology(t, rackDef{"/r1", 1})
	s := NewRandomSelector(topo, 3)
	only := types.NodeIDFromName(nodeName("/r1", 0))
	sel := &Selection{Excluded: NewExcludedNodes(only), MaxPerRack: 1}

	err := s.ChooseRandom(1, "", sel)
	var nere *NotEnoughReplicasError
	require.ErrorAs(t, err, &nere)
	assert.Equal(t, 1, nere.Reasons[ReasonNoCandidates])
	assert.Empty(t, sel.Results)
}

func TestRandomSelector_ChooseRandom_ConsumesDemand(t *testing.T) {
	t.Parallel()

	topo := createTestTopology(t, rackDef{"/r1", 2}, rackDef{"/r2", 2})
	s := NewRandomSelector(topo, 4)
	demand := types.NewStorageTypeDemand(types.StorageTypeHDD, types.StorageTypeHDD)
	sel := &Selection{Excluded: NewExcludedNodes(), MaxPerRack: 2, Demand: demand}

	require.NoError(t, s.ChooseRandom(2, "", sel))
	assert.Zero(t, demand.Remaining())
}

func TestRandomSelector_ChooseRandom_SkipsStale(t *testing.T) {
	t.Parallel()

	topo := createTestTopology(t, rackDef{"/r1", 2})
	stale := types.NodeIDFromName(nodeName("/r1", 0))
	require.True(t, topo.SetStale(stale, true))
	s := NewRandomSelector(topo, 5)

	sel := &Selection{Excluded: NewExcludedNodes(), MaxPerRack: 2, AvoidStale: true}
	err := s.ChooseRandom(2, "", sel)
	var nere *NotEnoughReplicasError
	require.ErrorAs(t, err, &nere)
	assert.Equal(t, 1, nere.Reasons[ReasonNodeStale])
	require.Len(t, sel.Results, 1)
	assert.NotEqual(t, stale, sel.Results[0].NodeID())

	sel = &Selection{Excluded: NewExcludedNodes(), MaxPerRack: 2}
	require.NoError(t, s.ChooseRandom(2, "", sel))
}

func TestRandomSelector_ChooseLocal(t *testing.T) {
	t.Parallel()

	topo := createTestTopology(t, rackDef{"/r1", 2}, rackDef{"/r2", 1})
	s := NewRandomSelector(topo, 6)
	writer, _ := topo.NodeByName(nodeName("/r1", 0))
	rackmate, _ := topo.NodeByName(nodeName("/r1", 1))
	remote, _ := topo.NodeByName(nodeName("/r2", 0))

	t.Run("writer itself", func(t *testing.T) {
		sel := &Selection{Excluded: NewExcludedNodes(), MaxPerRack: 3}
		got, err := s.ChooseLocal(writer, sel)
		require.NoError(t, err)
		assert.Equal(t, writer.NodeID, got.NodeID())
	})

	t.Run("writer rack", func(t *testing.T) {
		sel := &Selection{Excluded: NewExcludedNodes(writer.NodeID), MaxPerRack: 3}
		got, err := s.ChooseLocal(writer, sel)
		require.NoError(t, err)
		assert.Equal(t, rackmate.NodeID, got.NodeID())
	})

	t.Run("anywhere", func(t *testing.T) {
		sel := &Selection{Excluded: NewExcludedNodes(writer.NodeID, rackmate.NodeID), MaxPerRack: 3}
		got, err := s.ChooseLocal(writer, sel)
		require.NoError(t, err)
		assert.Equal(t, remote.NodeID, got.NodeID())
	})

	t.Run("nothing left", func(t *testing.T) {
		sel := &Selection{Excluded: NewExcludedNodes(writer.NodeID, rackmate.NodeID, remote.NodeID), MaxPerRack: 3}
		_, err := s.ChooseLocal(writer, sel)
		assert.ErrorIs(t, err, ErrNotEnoughReplicas)
	})
}

func TestExcludedNodes(t *testing.T) {
	t.Parallel()

	a := types.NodeIDFromName("a")
	b := types.NodeIDFromName("b")

	ex := NewExcludedNodes(a)
	assert.True(t, ex.Add(b))
	assert.False(t, ex.Add(b))

	cp := ex.Clone()
	cp.Add(types.NodeIDFromName("c"))
	assert.Len(t, ex, 2)
	assert.Len(t, cp, 3)

	ex.Merge(cp)
	assert.Len(t, ex, 3)
	assert.ElementsMatch(t, cp.IDs(), ex.IDs())
}

func TestNotEnoughReplicasError(t *testing.T) {
	t.Parallel()

	err := newNotEnoughReplicas(3, 1, "/r1")
	err.reject(ReasonNodeStale)
	err.reject(ReasonTooManyNodesOnRack)
	err.reject(ReasonTooManyNodesOnRack)

	assert.ErrorIs(t, err, ErrNotEnoughReplicas)
	assert.Equal(t,
		"not enough replicas: chose 1 of 3 in scope /r1 (node is stale=1, too many nodes on rack=2)",
		err.Error())
}
