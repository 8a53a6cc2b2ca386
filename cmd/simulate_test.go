// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/LeeDigitalWorks/rackplace/pkg/storage/placer"
	"github.com/LeeDigitalWorks/rackplace/pkg/topology"
	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSimTopology(t *testing.T, racks, nodesPerRack int) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for r := 0; r < racks; r++ {
		for n := 0; n < nodesPerRack; n++ {
			name := fmt.Sprintf("r%d-dn%d", r, n)
			node := types.NewNode(name, fmt.Sprintf("/r%d", r), &types.Storage{
				ID:         name + "-hdd",
				Type:       types.StorageTypeHDD,
				TotalBytes: 1 << 40,
			})
			require.NoError(t, topo.Add(node))
		}
	}
	return topo
}

func TestSimulate_EvenSpread(t *testing.T) {
	t.Parallel()

	topo := createSimTopology(t, 3, 2)
	p, err := placer.New(placer.Config{Policy: placer.PolicyRackFaultTolerant, AvoidStaleNodes: true, Seed: 7}, topo)
	require.NoError(t, err)

	opts := SimulateOpts{
		PlaceOpts:   PlaceOpts{Replicas: 3, BlockSize: 128 << 20},
		Blocks:      30,
		Parallel:    4,
		WriterLocal: true,
	}
	report, err := simulate(context.Background(), p, topo.Nodes(""), opts)
	require.NoError(t, err)

	blocks, complete, partial, unsatisfied := report.Counts()
	assert.Equal(t, 30, blocks)
	assert.Equal(t, 30, complete)
	assert.Zero(t, partial)
	assert.Zero(t, unsatisfied)
	assert.Equal(t, map[string]int{"/r0": 30, "/r1": 30, "/r2": 30}, report.RackShare())
}

func TestSimulate_Canceled(t *testing.T) {
	t.Parallel()

	topo := createSimTopology(t, 2, 1)
	p, err := placer.New(placer.DefaultConfig(), topo)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = simulate(ctx, p, topo.Nodes(""), SimulateOpts{PlaceOpts: PlaceOpts{Replicas: 2}, Blocks: 10, Parallel: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulationReport(t *testing.T) {
	t.Parallel()

	topo := createSimTopology(t, 2, 1)
	n0, _ := topo.NodeByName("r0-dn0")
	n1, _ := topo.NodeByName("r1-dn0")

	r := NewSimulationReport(3)
	r.Record(&placer.Result{
		Targets: []types.StorageTarget{types.NewStorageTarget(n0, n0.Storages[0]), types.NewStorageTarget(n1, n1.Storages[0])},
		Status:  placer.NewPlacementStatus(2, 3, 2),
	}, &placer.NotEnoughReplicasError{
		Wanted:  3,
		Chosen:  2,
		Reasons: map[placer.RejectReason]int{placer.ReasonTooManyNodesOnRack: 2},
	})
	r.Record(&placer.Result{
		Targets: []types.StorageTarget{types.NewStorageTarget(n0, n0.Storages[0])},
		Status:  placer.NewPlacementStatus(1, 3, 2),
	}, nil)

	blocks, complete, partial, unsatisfied := r.Counts()
	assert.Equal(t, 2, blocks)
	assert.Equal(t, 1, complete)
	assert.Equal(t, 1, partial)
	assert.Equal(t, 1, unsatisfied)
	assert.Equal(t, map[string]int{"/r0": 2, "/r1": 1}, r.RackShare())

	var out bytes.Buffer
	r.Print(&out)
	assert.Contains(t, out.String(), "/r0")
	assert.Contains(t, out.String(), "too many nodes on rack")
	assert.Contains(t, out.String(), "Per node:          min 1, max 2")
}
