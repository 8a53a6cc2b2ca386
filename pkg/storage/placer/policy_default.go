// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"github.com/LeeDigitalWorks/rackplace/pkg/types"
)

// defaultPolicy places replicas without targeting racks: the first near the
// writer, the rest at random, under a loose per-rack cap.
type defaultPolicy struct {
	basePolicy
}

func (p *defaultPolicy) Name() string { return PolicyDefault }

func (p *defaultPolicy) MaxNodesPerRack(numChosen, numWanted int) (int, int) {
	wanted, total := p.clampReplicas(numChosen, numWanted)

	numRacks := p.topo.RackCount()
	if numRacks <= 1 || total <= 1 {
		return wanted, total
	}

	maxPerRack := (total-1)/numRacks + 2
	if maxPerRack == total {
		maxPerRack--
	}
	return wanted, maxPerRack
}

func (p *defaultPolicy) PlaceReplicas(numReplicas, maxPerRack int, pl *Placement) (*types.Node, error) {
	a := p.chooseOnce(numReplicas, pl.Writer, pl.Excluded, maxPerRack, pl)
	return a.writer, a.err()
}

// VerifyPlacement asks for two racks at most
func (p *defaultPolicy) VerifyPlacement(locs []*types.Node, numReplicas int) PlacementStatus {
	return verifyAcrossRacks(p.topo, locs, min(2, numReplicas))
}
