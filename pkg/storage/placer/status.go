// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placer

import (
	"fmt"

	"github.com/LeeDigitalWorks/rackplace/pkg/types"

	"github.com/google/btree"
)

// PlacementStatus reports how rack-fault-tolerant an existing placement is.
// It is immutable once built.
type PlacementStatus struct {
	currentRacks  int
	requiredRacks int
	totalRacks    int
	racks         []string
}

// NewPlacementStatus builds a status from rack counts
func NewPlacementStatus(currentRacks, requiredRacks, totalRacks int) PlacementStatus {
	return PlacementStatus{
		currentRacks:  currentRacks,
		requiredRacks: requiredRacks,
		totalRacks:    totalRacks,
	}
}

// singleRackStatus is reported for clusters that never had a second rack
var singleRackStatus = NewPlacementStatus(1, 1, 1)

// CurrentRacks is the number of distinct racks the placement spans
func (s PlacementStatus) CurrentRacks() int { return s.currentRacks }

// RequiredRacks is the number of racks the placement should span
func (s PlacementStatus) RequiredRacks() int { return s.requiredRacks }

// TotalRacks is the number of racks in the cluster when verified
func (s PlacementStatus) TotalRacks() int { return s.totalRacks }

// Racks returns the distinct racks of the placement, ordered
func (s PlacementStatus) Racks() []string {
	return append([]string(nil), s.racks...)
}

// IsSatisfied reports whether the placement spans enough racks, or every
// rack the cluster has.
func (s PlacementStatus) IsSatisfied() bool {
	return s.requiredRacks <= s.currentRacks || s.currentRacks >= s.totalRacks
}

// AdditionalReplicasRequired is the number of extra racks to replicate to
func (s PlacementStatus) AdditionalReplicasRequired() int {
	if s.IsSatisfied() {
		return 0
	}
	return s.requiredRacks - s.currentRacks
}

func (s PlacementStatus) String() string {
	if s.IsSatisfied() {
		return fmt.Sprintf("placement satisfied: %d of %d required racks (cluster racks: %d)",
			s.currentRacks, s.requiredRacks, s.totalRacks)
	}
	return fmt.Sprintf("block should be additionally replicated on %d more rack(s); total number of racks in the cluster: %d",
		s.requiredRacks-s.currentRacks, s.totalRacks)
}

// verifyAcrossRacks dedupes locs by exact rack string. Nil entries are skipped.
func verifyAcrossRacks(topo Topology, locs []*types.Node, requiredRacks int) PlacementStatus {
	if !topo.HasEverBeenMultiRack() {
		return singleRackStatus
	}

	racks := btree.NewOrderedG[string](4)
	for _, n := range locs {
		if n == nil {
			continue
		}
		racks.ReplaceOrInsert(n.Rack)
	}

	st := NewPlacementStatus(racks.Len(), requiredRacks, topo.RackCount())
	st.racks = make([]string, 0, racks.Len())
	racks.Ascend(func(r string) bool {
		st.racks = append(st.racks, r)
		return true
	})
	return st
}
